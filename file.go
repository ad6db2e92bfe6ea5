package bgen

import (
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bgen/internal/codec"
	"github.com/grailbio/bgen/internal/ioutil"
)

// bgenMagic is "bgen" interpreted as a little-endian uint32, the value the
// header's magic field is expected to hold. A mismatch is a warning, not a
// fatal error -- some BGEN writers in the wild emit zeros here.
const bgenMagic = 1852139362

// Compression identifies the compression scheme declared by a BGEN file's
// header flags.
type Compression = codec.Kind

// Compression scheme constants, re-exported from internal/codec so callers
// never need to import the internal package directly.
const (
	CompressionNone Compression = codec.None
	CompressionZlib Compression = codec.Zlib
	CompressionZstd Compression = codec.Zstd
)

// OpenOptions customizes Open.
type OpenOptions struct {
	// Logger receives non-fatal warnings (e.g. magic-number mismatch). If
	// nil, DefaultLogger() is used.
	Logger Logger
}

// File is an open BGEN file: its header metadata, sample block location and
// a cursor into the variant stream. A File exclusively owns its underlying
// stream and path; it is not safe for concurrent use by multiple
// goroutines -- to parallelize across variants, callers should open
// separate File values for the same path, one per goroutine, matching the
// file handle ownership rules.
type File struct {
	path   string
	stream *os.File

	nSamples       uint32
	nVariants      uint32
	layout         uint8
	compression    Compression
	containSample  bool
	samplesStart   int64
	variantsStart  int64

	logger Logger
}

// Open opens the BGEN file at path and parses its header. opts may be nil.
func Open(path string, opts *OpenOptions) (f *File, err error) {
	logger := DefaultLogger()
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	}
	stream, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.NotExist, "bgen: could not open file", path, err)
	}
	f = &File{path: path, stream: stream, logger: logger}
	defer func() {
		if err != nil {
			f.Close()
			f = nil
		}
	}()

	variantsStartRaw, rerr := ioutil.ReadU32(stream)
	if rerr != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not read variants_start field", rerr)
	}
	f.variantsStart = int64(variantsStartRaw) + 4

	if rerr := f.readHeader(); rerr != nil {
		return nil, rerr
	}

	pos, serr := stream.Seek(0, io.SeekCurrent)
	if serr != nil {
		return nil, errors.E(errors.IO, "bgen: could not tell current offset", serr)
	}
	f.samplesStart = pos
	return f, nil
}

// readHeader reads the fixed header fields (header_length, V, N, magic),
// skips the free area, and reads the flags word, per spec §4.2; together
// with the flags the fixed part is 20 bytes.
func (f *File) readHeader() error {
	headerLength, err := ioutil.ReadU32(f.stream)
	if err != nil {
		return errors.E(errors.Invalid, "bgen: could not read header length", err)
	}
	if f.nVariants, err = ioutil.ReadU32(f.stream); err != nil {
		return errors.E(errors.Invalid, "bgen: could not read number of variants", err)
	}
	if f.nSamples, err = ioutil.ReadU32(f.stream); err != nil {
		return errors.E(errors.Invalid, "bgen: could not read number of samples", err)
	}
	magic, err := ioutil.ReadU32(f.stream)
	if err != nil {
		return errors.E(errors.Invalid, "bgen: could not read magic number", err)
	}
	if magic != bgenMagic {
		f.logger.Warnf("bgen: magic number mismatch: got %d, want %d", magic, bgenMagic)
	}
	if headerLength < 20 {
		return errors.E(errors.Invalid, "bgen: header length shorter than fixed header")
	}
	if err := ioutil.Skip(f.stream, int64(headerLength-20)); err != nil {
		return errors.E(errors.Invalid, "bgen: could not skip free header area", err)
	}
	flags, err := ioutil.ReadU32(f.stream)
	if err != nil {
		return errors.E(errors.Invalid, "bgen: could not read flags", err)
	}
	f.compression = Compression(flags & 0b11)
	if f.compression > CompressionZstd {
		return errors.E(errors.Invalid, "bgen: invalid compression flag")
	}
	f.layout = uint8((flags >> 2) & 0b1111)
	if f.layout != 1 && f.layout != 2 {
		return errors.E(errors.Invalid, "bgen: unsupported layout", f.layout)
	}
	f.containSample = (flags>>31)&1 == 1
	return nil
}

// NSamples returns N, the number of samples shared by every variant.
func (f *File) NSamples() uint32 { return f.nSamples }

// NVariants returns V, the number of variants in the file.
func (f *File) NVariants() uint32 { return f.nVariants }

// Layout returns 1 or 2.
func (f *File) Layout() uint8 { return f.layout }

// CompressionKind returns the file's declared genotype-block compression.
func (f *File) CompressionKind() Compression { return f.compression }

// ContainSamples reports whether the file stores a sample-identifier block.
func (f *File) ContainSamples() bool { return f.containSample }

// Path returns the path this File was opened from.
func (f *File) Path() string { return f.path }

// ReadSamples reads and returns the N sample identifiers, if present. It
// returns (nil, nil) when ContainSamples() is false, matching the spec's
// "returns empty/null" contract (§4.2).
func (f *File) ReadSamples() ([]String, error) {
	if _, err := f.stream.Seek(f.samplesStart, io.SeekStart); err != nil {
		return nil, errors.E(errors.IO, "bgen: could not seek to samples block", err)
	}
	if !f.containSample {
		f.logger.Warnf("bgen: file does not contain sample ids")
		return nil, nil
	}
	if err := ioutil.Skip(f.stream, 8); err != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not skip sample block header", err)
	}
	samples := make([]String, f.nSamples)
	for i := range samples {
		raw, err := ioutil.ReadLengthPrefixed(f.stream, 2)
		if err != nil {
			return nil, errors.E(errors.Invalid, "bgen: could not read sample id", i, err)
		}
		samples[i] = String(raw)
	}
	pos, err := f.stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.E(errors.IO, "bgen: could not tell after samples block", err)
	}
	f.variantsStart = pos
	return samples, nil
}

// SeekToVariants positions the stream at the start of the variant stream,
// ready for NewVariantIterator.
func (f *File) SeekToVariants() error {
	if _, err := f.stream.Seek(f.variantsStart, io.SeekStart); err != nil {
		return errors.E(errors.IO, "bgen: could not seek to variants start", err)
	}
	return nil
}

// VariantsStart returns the absolute byte offset of the first variant
// header, as currently known (it advances past the sample block once
// ReadSamples has been called).
func (f *File) VariantsStart() int64 { return f.variantsStart }

// Close releases the underlying stream. It is a no-op on a nil or
// already-closed File.
func (f *File) Close() error {
	if f == nil || f.stream == nil {
		return nil
	}
	err := f.stream.Close()
	f.stream = nil
	if err != nil {
		return errors.E(errors.IO, "bgen: could not close file", f.path, err)
	}
	return nil
}

// streamReadSeeker exposes the underlying *os.File to sibling files in this package
// (variant iteration, genotype block opening) without making it part of the
// public API.
func (f *File) streamReadSeeker() io.ReadSeeker { return f.stream }
