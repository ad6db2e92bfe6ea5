// Package ioutil provides the fixed-width little-endian integer and
// length-prefixed string primitives shared by the bgen file, metafile and
// genotype readers/writers. Every BGEN integer on disk is little-endian;
// no other encoding is ever handled here.
package ioutil

import (
	"encoding/binary"
	"io"

	"github.com/grailbio/base/errors"
)

// ReadU16 reads a little-endian uint16 from r.
func ReadU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.E(errors.IO, "ioutil: short read of u16", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// ReadU32 reads a little-endian uint32 from r.
func ReadU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.E(errors.IO, "ioutil: short read of u32", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadU64 reads a little-endian uint64 from r.
func ReadU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.E(errors.IO, "ioutil: short read of u64", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteU16 writes v to w in little-endian order.
func WriteU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return writeFull(w, buf[:])
}

// WriteU32 writes v to w in little-endian order.
func WriteU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return writeFull(w, buf[:])
}

// WriteU64 writes v to w in little-endian order.
func WriteU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return writeFull(w, buf[:])
}

func writeFull(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return errors.E(errors.Invalid, "ioutil: write failed", err)
	}
	if n != len(buf) {
		return errors.E(errors.Invalid, "ioutil: short write")
	}
	return nil
}

// ReadLengthPrefixed reads a prefixWidth-byte little-endian length L followed
// by L raw bytes. prefixWidth must be 1, 2 or 4. A zero-length payload is
// legal and returns a non-nil, zero-length slice.
func ReadLengthPrefixed(r io.Reader, prefixWidth int) ([]byte, error) {
	var length uint64
	switch prefixWidth {
	case 1:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, errors.E(errors.IO, "ioutil: short read of string length", err)
		}
		length = uint64(buf[0])
	case 2:
		v, err := ReadU16(r)
		if err != nil {
			return nil, err
		}
		length = uint64(v)
	case 4:
		v, err := ReadU32(r)
		if err != nil {
			return nil, err
		}
		length = uint64(v)
	default:
		return nil, errors.E(errors.Invalid, "ioutil: unsupported string prefix width")
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.E(errors.IO, "ioutil: short read of string payload", err)
		}
	}
	return payload, nil
}

// WriteLengthPrefixed writes len(payload) as a prefixWidth-byte little-endian
// integer followed by payload itself.
func WriteLengthPrefixed(w io.Writer, payload []byte, prefixWidth int) error {
	switch prefixWidth {
	case 1:
		if len(payload) > 0xff {
			return errors.E(errors.Invalid, "ioutil: string too long for 1-byte prefix")
		}
		if err := writeFull(w, []byte{byte(len(payload))}); err != nil {
			return err
		}
	case 2:
		if len(payload) > 0xffff {
			return errors.E(errors.Invalid, "ioutil: string too long for 2-byte prefix")
		}
		if err := WriteU16(w, uint16(len(payload))); err != nil {
			return err
		}
	case 4:
		if err := WriteU32(w, uint32(len(payload))); err != nil {
			return err
		}
	default:
		return errors.E(errors.Invalid, "ioutil: unsupported string prefix width")
	}
	if len(payload) == 0 {
		return nil
	}
	return writeFull(w, payload)
}

// Skip advances r by n bytes using Seek when r implements io.Seeker, falling
// back to a discarding copy otherwise.
func Skip(r io.Reader, n int64) error {
	if n == 0 {
		return nil
	}
	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(n, io.SeekCurrent); err != nil {
			return errors.E(errors.IO, "ioutil: seek failed", err)
		}
		return nil
	}
	if _, err := io.CopyN(discard{}, r, n); err != nil {
		return errors.E(errors.IO, "ioutil: short read while skipping", err)
	}
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
