// Package codec adapts the zlib and zstd codecs used by BGEN's Layout 1 and
// Layout 2 genotype blocks to a single decompress(kind, src, wantSize) ->
// []byte contract. BGEN's own zlib streams are raw RFC1950 zlib, not gzip,
// so this uses klauspost/compress/zlib -- a drop-in superset of the stdlib
// package that already backs every gzip use in the rest of this module's
// dependency pack (encoding/bgzf, encoding/converter, pileup/common.go all
// import its sibling klauspost/compress/gzip).
package codec

import (
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Kind identifies the compression scheme of a genotype block, matching the
// BGEN header's 2-bit compression field.
type Kind uint8

const (
	// None means the genotype block is stored uncompressed.
	None Kind = 0
	// Zlib means the genotype block is a raw zlib (RFC1950) stream.
	Zlib Kind = 1
	// Zstd means the genotype block is a zstd frame.
	Zstd Kind = 2
)

// Decompress inflates src according to kind into a freshly allocated buffer
// of exactly wantSize bytes. For None it fails with errors.Invalid unless
// len(src) == wantSize. For Zlib and Zstd it fails with errors.Invalid if
// the stream decodes to fewer than wantSize bytes; decoding stops after
// wantSize bytes, so a stream that decodes to more than wantSize bytes is
// not detected and its first wantSize bytes are returned.
func Decompress(kind Kind, src []byte, wantSize int) ([]byte, error) {
	switch kind {
	case None:
		if len(src) != wantSize {
			return nil, errors.E(errors.Invalid, "codec: uncompressed block size mismatch")
		}
		out := make([]byte, wantSize)
		copy(out, src)
		return out, nil
	case Zlib:
		return decompressZlib(src, wantSize)
	case Zstd:
		return decompressZstd(src, wantSize)
	default:
		return nil, errors.E(errors.Invalid, "codec: unknown compression kind")
	}
}

func decompressZlib(src []byte, wantSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, errors.E(errors.Invalid, "codec: zlib header invalid", err)
	}
	defer zr.Close() // nolint: errcheck
	out := make([]byte, wantSize)
	n, err := io.ReadFull(zr, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.E(errors.Invalid, "codec: zlib decompression failed", err)
	}
	if n != wantSize {
		return nil, errors.E(errors.Invalid, "codec: zlib decompressed size mismatch")
	}
	return out, nil
}

func decompressZstd(src []byte, wantSize int) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, errors.E(errors.Invalid, "codec: zstd header invalid", err)
	}
	defer zr.Close()
	out := make([]byte, wantSize)
	n, err := io.ReadFull(zr, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.E(errors.Invalid, "codec: zstd decompression failed", err)
	}
	if n != wantSize {
		return nil, errors.E(errors.Invalid, "codec: zstd decompressed size mismatch")
	}
	return out, nil
}
