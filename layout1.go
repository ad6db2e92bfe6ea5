package bgen

import "math"

// layout1MaxProb is the fixed-point denominator Layout 1 probabilities are
// stored against: each stored uint16 is a numerator out of 32768, and the
// three numerators for a sample sum to exactly that (spec.md C9).
const layout1MaxProb = 32768

// readLayout1 fills out[i*3:i*3+3] with sample i's (AA, AB, BB)
// probabilities, or NaN triples for missing samples. Layout 1 is always
// diploid and unphased, so ncombs is fixed at 3.
func (g *Genotype) readLayout1(out []float64) error {
	buf := g.layout1.probs
	for i := 0; i < int(g.nSamples); i++ {
		row := out[i*3 : i*3+3]
		if g.samples[i].missing {
			row[0], row[1], row[2] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		off := i * 6
		a := le16(buf[off : off+2])
		b := le16(buf[off+2 : off+4])
		c := le16(buf[off+4 : off+6])
		row[0] = float64(a) / layout1MaxProb
		row[1] = float64(b) / layout1MaxProb
		row[2] = float64(c) / layout1MaxProb
	}
	return nil
}
