package bgen

import (
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bgen/internal/bitio"
)

// readLayout2 fills out[i*ncombs:(i+1)*ncombs] for every sample, unpacking
// the nbits-wide probability bitstream that starts at g.layout2.bitOffset.
// Every sample's entry in the stream is skipped over even when missing or
// shorter than max ploidy, since the bit cursor must advance by exactly the
// number of bits the writer emitted regardless of what the reader does with
// them (spec.md C10's "bit-cursor advancement through missing samples").
func (g *Genotype) readLayout2(out []float64) error {
	k := int(g.nalleles)
	maxVal := float64((uint64(1) << uint(g.nbits)) - 1)

	cursor := bitio.NewCursor(g.layout2.payload[g.layout2.bitOffset/8:])

	combosByPloidy := make(map[int][][]int)
	comboFor := func(p int) [][]int {
		if c, ok := combosByPloidy[p]; ok {
			return c
		}
		c := genotypeCombinations(k, p)
		combosByPloidy[p] = c
		return c
	}

	for i := 0; i < int(g.nSamples); i++ {
		row := out[i*g.ncombs : (i+1)*g.ncombs]
		for j := range row {
			row[j] = math.NaN()
		}
		ploidy := int(g.samples[i].ploidy)

		var stored int
		if g.phased {
			stored = ploidy * (k - 1)
		} else {
			stored = len(comboFor(ploidy)) - 1
		}
		if stored < 0 {
			stored = 0
		}

		values := make([]float64, stored)
		for s := 0; s < stored; s++ {
			v, ok := cursor.Read(int(g.nbits))
			if !ok {
				return errors.E(errors.Invalid, "bgen: truncated layout 2 probability stream", i)
			}
			values[s] = float64(v) / maxVal
		}
		if g.samples[i].missing || ploidy == 0 {
			// ploidy == 0 carries no stored values at all (comboFor(0) is a
			// single empty combination); row stays fully NaN per spec.md
			// §8's "samples with ploidy = 0" boundary case.
			continue
		}

		if g.phased {
			decodePhasedRow(row, values, k, ploidy)
		} else {
			decodeUnphasedRow(row, values, comboFor(ploidy))
		}
	}
	return nil
}

// decodePhasedRow expands ploidy haplotypes of k-1 stored values each
// (the k-th allele's probability is implied) into row, haplotype-major.
func decodePhasedRow(row, values []float64, k, ploidy int) {
	for h := 0; h < ploidy; h++ {
		sum := 0.0
		base := h * (k - 1)
		for a := 0; a < k-1; a++ {
			p := values[base+a]
			row[h*k+a] = p
			sum += p
		}
		row[h*k+k-1] = 1 - sum
	}
}

// decodeUnphasedRow expands the len(combos)-1 stored values (the last
// combination's probability is implied) across row in combination order.
func decodeUnphasedRow(row, values []float64, combos [][]int) {
	if len(combos) == 0 {
		return
	}
	sum := 0.0
	for i := 0; i < len(combos)-1; i++ {
		row[i] = values[i]
		sum += values[i]
	}
	row[len(combos)-1] = 1 - sum
}
