package bgen

import (
	"math"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDosageLayout1(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	variants := []fixtureVariant{
		{
			id: "V1", rsid: "rs1", chrom: "1", position: 1, alleleIDs: []string{"A", "G"},
			layout1Probs: [][3]uint16{
				{32768, 0, 0}, // homozygous ref -> dosage 0
				{0, 32768, 0}, // het -> dosage 1
				{0, 0, 32768}, // homozygous alt -> dosage 2
				{0, 0, 0},     // missing -> NaN
			},
		},
	}
	path := writeFixture(t, dir, 4, nil, 1, variants)
	f, err := Open(path, nil)
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck
	require.NoError(t, f.SeekToVariants())

	it := NewVariantIterator(f)
	vm, ok := it.Next()
	require.True(t, ok)

	g, err := OpenGenotype(f, vm.GenotypeOffset)
	require.NoError(t, err)
	defer g.Close()

	out := make([]float64, 4)
	require.NoError(t, g.Dosage(out))
	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 1.0, out[1], 1e-9)
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.True(t, math.IsNaN(out[3]))
}

func TestDosageRejectsMultiAllelic(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	variants := []fixtureVariant{
		{
			id: "V1", rsid: "rs1", chrom: "1", position: 1, alleleIDs: []string{"A", "G", "T"},
			ploidy: []uint8{2}, missing: []bool{false}, nbits: 8,
			stored: [][]uint32{{255, 0, 0, 0, 0}},
		},
	}
	path := writeFixture(t, dir, 1, nil, 2, variants)
	f, err := Open(path, nil)
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck
	require.NoError(t, f.SeekToVariants())

	it := NewVariantIterator(f)
	vm, ok := it.Next()
	require.True(t, ok)

	g, err := OpenGenotype(f, vm.GenotypeOffset)
	require.NoError(t, err)
	defer g.Close()

	out := make([]float64, 1)
	assert.Error(t, g.Dosage(out))
}
