package bgen

import "sort"

// binomial returns C(n, k), the number of ways to choose k items from n
// without regard to order. Returns 0 for out-of-range k.
func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 0; i < k; i++ {
		result = result * (n - i) / (i + 1)
	}
	return result
}

// multisetCount returns the number of unordered selections of ploidy
// alleles (with repetition allowed) out of k allele categories, i.e.
// C(k+ploidy-1, ploidy). This is spec.md's ncombs formula for unphased
// Layout 2 genotypes of a single sample.
func multisetCount(k, ploidy int) int {
	if k <= 0 || ploidy < 0 {
		return 0
	}
	return binomial(k+ploidy-1, ploidy)
}

// genotypeCombinations enumerates every unordered selection of ploidy
// allele indices out of [0,k), each represented as a non-decreasing
// []int of length ploidy, in the colexicographic order the format uses
// to line entries up with the bitstream (see spec.md's Layout 2
// probability storage section). Colex order compares two sequences from
// their last element backward: the first sequence to have the smaller
// value at the rightmost differing position sorts first.
func genotypeCombinations(k, ploidy int) [][]int {
	if ploidy == 0 {
		return [][]int{{}}
	}
	var out [][]int
	cur := make([]int, ploidy)
	var gen func(pos, minVal int)
	gen = func(pos, minVal int) {
		if pos == ploidy {
			combo := make([]int, ploidy)
			copy(combo, cur)
			out = append(out, combo)
			return
		}
		for v := minVal; v < k; v++ {
			cur[pos] = v
			gen(pos+1, v)
		}
	}
	gen(0, 0)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for p := ploidy - 1; p >= 0; p-- {
			if a[p] != b[p] {
				return a[p] < b[p]
			}
		}
		return false
	})
	return out
}
