package bgen

import (
	"math"

	"github.com/grailbio/base/errors"
)

// Dosage fills out, one entry per sample, with the expected alt-allele
// dosage (0..2) for the common biallelic, unphased, diploid case. It is a
// convenience over Read for callers that only want a single number per
// sample rather than the full probability row (SPEC_FULL.md Addition #4).
//
// Dosage requires NAlleles() == 2 and MaxPloidy() == 2; Layout 1 always
// satisfies both. Samples with ploidy other than 2, or missing genotypes,
// get NaN.
func (g *Genotype) Dosage(out []float64) error {
	if g.nalleles != 2 {
		return errors.E(errors.NotSupported, "bgen: Dosage requires a biallelic variant", g.nalleles)
	}
	if g.maxPloidy != 2 {
		return errors.E(errors.NotSupported, "bgen: Dosage requires max ploidy 2", g.maxPloidy)
	}
	if g.phased {
		return errors.E(errors.NotSupported, "bgen: Dosage does not support phased genotypes")
	}
	if len(out) != int(g.nSamples) {
		return errors.E(errors.Invalid, "bgen: Dosage buffer has wrong length", len(out), g.nSamples)
	}

	probs := make([]float64, int(g.nSamples)*g.ncombs)
	if err := g.Read(probs); err != nil {
		return err
	}
	for i := range out {
		if g.samples[i].missing || g.samples[i].ploidy != 2 {
			out[i] = math.NaN()
			continue
		}
		row := probs[i*g.ncombs : (i+1)*g.ncombs]
		// ncombs==3 here: (AA, AB, BB) in colex order over {0,1}; dosage
		// counts copies of the alt allele (index 1).
		out[i] = row[1] + 2*row[2]
	}
	return nil
}
