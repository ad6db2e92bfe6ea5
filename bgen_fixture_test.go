package bgen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/bgen/internal/bitio"
	"github.com/grailbio/bgen/internal/ioutil"
	"github.com/stretchr/testify/require"
)

// fixtureVariant is the minimal description needed to synthesize one
// variant's metadata + genotype block for the test fixtures below.
type fixtureVariant struct {
	id, rsid, chrom string
	position        uint32
	alleleIDs       []string

	// Layout 1 only.
	layout1Probs [][3]uint16 // per sample

	// Layout 2 only.
	ploidy   []uint8
	missing  []bool
	phased   bool
	nbits    uint8
	stored   [][]uint32 // per sample, raw nbits-wide values actually emitted (len depends on ploidy/phased)
}

// writeFixture serializes a minimal, valid BGEN byte stream for nSamples
// samples and the given variants, at the requested layout/compression, and
// returns its path under dir. Only CompressionNone is supported,
// since the decompress paths are already covered directly by
// internal/codec's own tests.
func writeFixture(t *testing.T, dir string, nSamples uint32, sampleIDs []string, layout uint8, variants []fixtureVariant) string {
	t.Helper()

	var body bytes.Buffer // everything from header_length through EOF
	const headerLength = 20
	require.NoError(t, ioutil.WriteU32(&body, headerLength))
	require.NoError(t, ioutil.WriteU32(&body, uint32(len(variants))))
	require.NoError(t, ioutil.WriteU32(&body, nSamples))
	require.NoError(t, ioutil.WriteU32(&body, bgenMagic))
	containSample := sampleIDs != nil
	flags := uint32(CompressionNone) | (uint32(layout) << 2)
	if containSample {
		flags |= 1 << 31
	}
	require.NoError(t, ioutil.WriteU32(&body, flags))

	sampleBlockSize := uint32(0)
	var sampleBlock bytes.Buffer
	if containSample {
		require.NoError(t, ioutil.WriteU32(&sampleBlock, 0)) // sample block length, unchecked by readers
		require.NoError(t, ioutil.WriteU32(&sampleBlock, nSamples))
		for _, id := range sampleIDs {
			require.NoError(t, ioutil.WriteLengthPrefixed(&sampleBlock, []byte(id), 2))
		}
		sampleBlockSize = uint32(sampleBlock.Len())
		body.Write(sampleBlock.Bytes())
	}

	for _, v := range variants {
		if layout == 1 {
			require.NoError(t, ioutil.WriteU32(&body, nSamples))
		}
		require.NoError(t, ioutil.WriteLengthPrefixed(&body, []byte(v.id), 2))
		require.NoError(t, ioutil.WriteLengthPrefixed(&body, []byte(v.rsid), 2))
		require.NoError(t, ioutil.WriteLengthPrefixed(&body, []byte(v.chrom), 2))
		require.NoError(t, ioutil.WriteU32(&body, v.position))
		if layout == 2 {
			require.NoError(t, ioutil.WriteU16(&body, uint16(len(v.alleleIDs))))
		}
		for _, a := range v.alleleIDs {
			require.NoError(t, ioutil.WriteLengthPrefixed(&body, []byte(a), 4))
		}

		if layout == 1 {
			var block bytes.Buffer
			for _, p := range v.layout1Probs {
				require.NoError(t, ioutil.WriteU16(&block, p[0]))
				require.NoError(t, ioutil.WriteU16(&block, p[1]))
				require.NoError(t, ioutil.WriteU16(&block, p[2]))
			}
			body.Write(block.Bytes())
		} else {
			payload := buildLayout2Payload(t, nSamples, v)
			require.NoError(t, ioutil.WriteU32(&body, uint32(len(payload))))
			body.Write(payload)
		}
	}

	raw := uint32(headerLength) + sampleBlockSize
	var out bytes.Buffer
	require.NoError(t, ioutil.WriteU32(&out, raw))
	out.Write(body.Bytes())

	path := filepath.Join(dir, "fixture.bgen")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

func buildLayout2Payload(t *testing.T, nSamples uint32, v fixtureVariant) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ioutil.WriteU32(&buf, nSamples))
	require.NoError(t, ioutil.WriteU16(&buf, uint16(len(v.alleleIDs))))

	minP, maxP := v.ploidy[0], v.ploidy[0]
	for _, p := range v.ploidy {
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}
	buf.WriteByte(minP)
	buf.WriteByte(maxP)
	for i := uint32(0); i < nSamples; i++ {
		b := v.ploidy[i] & 0b111111
		if v.missing[i] {
			b |= 1 << 7
		}
		buf.WriteByte(b)
	}
	if v.phased {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteByte(v.nbits)

	w := bitio.NewWriter()
	for i := uint32(0); i < nSamples; i++ {
		for _, raw := range v.stored[i] {
			w.Write(raw, int(v.nbits))
		}
	}
	buf.Write(w.Bytes())
	return buf.Bytes()
}
