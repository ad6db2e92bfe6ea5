package bgen

import (
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenHeaderAndSamples(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	variants := []fixtureVariant{
		{
			id: "rs1", rsid: "rs1", chrom: "1", position: 100,
			alleleIDs:    []string{"A", "G"},
			layout1Probs: [][3]uint16{{32768, 0, 0}, {0, 32768, 0}, {0, 0, 32768}},
		},
	}
	path := writeFixture(t, dir, 3, []string{"sample_0", "sample_1", "sample_2"}, 1, variants)

	f, err := Open(path, nil)
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck

	assert.Equal(t, uint32(3), f.NSamples())
	assert.Equal(t, uint32(1), f.NVariants())
	assert.Equal(t, uint8(1), f.Layout())
	assert.Equal(t, CompressionNone, f.CompressionKind())
	assert.True(t, f.ContainSamples())

	samples, err := f.ReadSamples()
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.True(t, samples[0].Equal(String("sample_0")))
	assert.True(t, samples[2].Equal(String("sample_2")))
}

func TestOpenWithoutSampleBlock(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	variants := []fixtureVariant{
		{
			id: "rs1", rsid: "rs1", chrom: "1", position: 100,
			alleleIDs:    []string{"A", "G"},
			layout1Probs: [][3]uint16{{32768, 0, 0}},
		},
	}
	path := writeFixture(t, dir, 1, nil, 1, variants)

	f, err := Open(path, nil)
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck

	assert.False(t, f.ContainSamples())
	samples, err := f.ReadSamples()
	require.NoError(t, err)
	assert.Nil(t, samples)

	require.NoError(t, f.SeekToVariants())
	it := NewVariantIterator(f)
	vm, ok := it.Next()
	require.True(t, ok)
	assert.True(t, vm.ID.Equal(String("rs1")))
}

func TestCloseIsIdempotent(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeFixture(t, dir, 1, nil, 1, []fixtureVariant{
		{id: "rs1", rsid: "rs1", chrom: "1", position: 1, alleleIDs: []string{"A", "G"}, layout1Probs: [][3]uint16{{32768, 0, 0}}},
	})

	f, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())

	var nilFile *File
	assert.NoError(t, nilFile.Close())
}
