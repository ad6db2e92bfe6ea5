package bgen

import (
	"io"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bgen/internal/codec"
	"github.com/grailbio/bgen/internal/ioutil"
)

// sampleState is the per-sample (ploidy, missing) pair recorded at
// genotype-open time.
type sampleState struct {
	ploidy  uint8
	missing bool
}

// Genotype is an opened variant probability block. It owns its
// decompressed payload buffer; it borrows the file's stream only for the
// duration of OpenGenotype. Per the spec's layout-dispatch design note,
// the two layouts are modeled as a tag plus two payload structs rather
// than as a subtype hierarchy.
type Genotype struct {
	nSamples  uint32
	layout    uint8
	nalleles  uint16
	minPloidy uint8
	maxPloidy uint8
	phased    bool
	nbits     uint8
	ncombs    int
	samples   []sampleState // len == nSamples

	layout1 *layout1Data
	layout2 *layout2Data

	decoded bool
}

type layout1Data struct {
	probs []byte // 6*N bytes: N * (u16,u16,u16)
}

type layout2Data struct {
	payload   []byte // decompressed payload, header already parsed out
	bitOffset int     // bit offset into payload at which the probability stream begins
}

// OpenGenotype seeks f to offset and reads the variant-probability block
// header (layout-dependent) into a new Genotype handle. The payload is
// read and decompressed during this call; Read only unpacks bits
// afterwards.
func OpenGenotype(f *File, offset uint64) (*Genotype, error) {
	if offset > math.MaxInt64 {
		panicOffsetOverflow("open genotype", offset)
	}
	stream := f.streamReadSeeker()
	if _, err := stream.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, errors.E(errors.IO, "bgen: could not seek to genotype block", err)
	}
	g := &Genotype{nSamples: f.nSamples, layout: f.layout}
	switch f.layout {
	case 1:
		if err := g.openLayout1(stream, f.compression); err != nil {
			return nil, err
		}
	case 2:
		if err := g.openLayout2(stream, f.compression); err != nil {
			return nil, err
		}
	default:
		return nil, errors.E(errors.Invalid, "bgen: unrecognized layout", f.layout)
	}
	return g, nil
}

// NAlleles returns the variant's allele count.
func (g *Genotype) NAlleles() uint16 { return g.nalleles }

// MinPloidy returns the smallest per-sample ploidy in this variant.
func (g *Genotype) MinPloidy() uint8 { return g.minPloidy }

// MaxPloidy returns the largest per-sample ploidy in this variant.
func (g *Genotype) MaxPloidy() uint8 { return g.maxPloidy }

// Phased reports whether the variant stores phased haplotype
// probabilities. Always false for Layout 1.
func (g *Genotype) Phased() bool { return g.phased }

// NCombs returns the number of probability entries per sample row.
func (g *Genotype) NCombs() int { return g.ncombs }

// Ploidy returns the ploidy of sample i.
func (g *Genotype) Ploidy(i int) uint8 { return g.samples[i].ploidy }

// Missing reports whether sample i's genotype is missing.
func (g *Genotype) Missing(i int) bool { return g.samples[i].missing }

// Read unpacks every sample's probability row into out, which must have
// length N * NCombs(), N being the file's NSamples(); row i occupies out[i*NCombs():(i+1)*NCombs()].
// Missing samples' rows, and any padding slots for samples whose ploidy is
// below MaxPloidy(), are filled with NaN.
func (g *Genotype) Read(out []float64) error {
	want := int(g.nSamples) * g.ncombs
	if len(out) != want {
		return errors.E(errors.Invalid, "bgen: Read buffer has wrong length", len(out), want)
	}
	switch g.layout {
	case 1:
		return g.readLayout1(out)
	case 2:
		return g.readLayout2(out)
	default:
		return errors.E(errors.Invalid, "bgen: unrecognized layout", g.layout)
	}
}

// Close releases the handle's payload buffer. A nil or already-closed
// Genotype is a no-op.
func (g *Genotype) Close() {
	if g == nil {
		return
	}
	g.layout1 = nil
	g.layout2 = nil
}

func (g *Genotype) openLayout1(r io.ReadSeeker, compression Compression) error {
	g.nalleles = 2
	g.minPloidy, g.maxPloidy = 2, 2
	g.phased = false
	g.ncombs = 3
	g.nbits = 16
	g.samples = make([]sampleState, g.nSamples)
	for i := range g.samples {
		g.samples[i].ploidy = 2
	}

	wantSize := int(6 * g.nSamples)
	switch compression {
	case CompressionNone:
		buf := make([]byte, wantSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return errors.E(errors.Invalid, "bgen: short read of layout 1 genotype block", err)
		}
		g.layout1 = &layout1Data{probs: buf}
	default:
		compressedSize, err := ioutil.ReadU32(r)
		if err != nil {
			return errors.E(errors.Invalid, "bgen: could not read layout 1 compressed_size", err)
		}
		compressed := make([]byte, compressedSize)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return errors.E(errors.Invalid, "bgen: short read of layout 1 compressed block", err)
		}
		buf, err := codec.Decompress(compression, compressed, wantSize)
		if err != nil {
			return errors.E(errors.Invalid, "bgen: layout 1 decompression failed", err)
		}
		g.layout1 = &layout1Data{probs: buf}
	}
	return g.decodeLayout1Missingness()
}

func (g *Genotype) decodeLayout1Missingness() error {
	buf := g.layout1.probs
	for i := 0; i < int(g.nSamples); i++ {
		off := i * 6
		a := le16(buf[off : off+2])
		b := le16(buf[off+2 : off+4])
		c := le16(buf[off+4 : off+6])
		g.samples[i].missing = a == 0 && b == 0 && c == 0
	}
	return nil
}

func (g *Genotype) openLayout2(r io.ReadSeeker, compression Compression) error {
	totalBlockSize, err := ioutil.ReadU32(r)
	if err != nil {
		return errors.E(errors.Invalid, "bgen: could not read layout 2 total_block_size", err)
	}
	var payload []byte
	if compression != CompressionNone {
		uncompressedSize, err := ioutil.ReadU32(r)
		if err != nil {
			return errors.E(errors.Invalid, "bgen: could not read layout 2 uncompressed_size", err)
		}
		if totalBlockSize < 4 {
			return errors.E(errors.Invalid, "bgen: layout 2 total_block_size too small")
		}
		compressed := make([]byte, totalBlockSize-4)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return errors.E(errors.Invalid, "bgen: short read of layout 2 compressed block", err)
		}
		payload, err = codec.Decompress(compression, compressed, int(uncompressedSize))
		if err != nil {
			return errors.E(errors.Invalid, "bgen: layout 2 decompression failed", err)
		}
	} else {
		payload = make([]byte, totalBlockSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return errors.E(errors.Invalid, "bgen: short read of layout 2 raw block", err)
		}
	}

	pos := 0
	nCheck := le32(payload[pos : pos+4])
	pos += 4
	if nCheck != g.nSamples {
		return errors.E(errors.Invalid, "bgen: layout 2 sample count mismatch")
	}
	g.nalleles = le16(payload[pos : pos+2])
	pos += 2
	g.minPloidy = payload[pos]
	pos++
	g.maxPloidy = payload[pos]
	pos++

	g.samples = make([]sampleState, g.nSamples)
	for i := range g.samples {
		b := payload[pos]
		pos++
		g.samples[i].missing = (b>>7)&1 == 1
		g.samples[i].ploidy = b & 0b111111
	}

	phasedByte := payload[pos]
	pos++
	g.phased = phasedByte == 1

	g.nbits = payload[pos]
	pos++
	if g.nbits < 1 || g.nbits > 32 {
		return errors.E(errors.Invalid, "bgen: layout 2 nbits out of range", g.nbits)
	}

	if g.phased {
		g.ncombs = int(g.nalleles) * int(g.maxPloidy)
	} else {
		g.ncombs = int(multisetCount(int(g.nalleles), int(g.maxPloidy)))
	}

	g.layout2 = &layout2Data{payload: payload, bitOffset: pos * 8}
	return nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
