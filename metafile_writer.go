package bgen

import (
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bgen/internal/ioutil"
)

// CreateOptions customizes Metafile creation.
type CreateOptions struct {
	// Logger receives progress messages. If nil, DefaultLogger() is used.
	Logger Logger
	// WriteChecksum appends a trailing seahash-64 integrity record over the
	// metadata region after the partition table (SPEC_FULL.md Addition #3).
	// Defaults to true.
	WriteChecksum *bool
}

func (o *CreateOptions) writeChecksum() bool {
	if o == nil || o.WriteChecksum == nil {
		return true
	}
	return *o.WriteChecksum
}

func (o *CreateOptions) logger() Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return DefaultLogger()
}

// CreateMetafile streams f's variant stream into a new sidecar file at
// path, partitioned into npartitions equal-size ranges. f must be
// positioned so that File.SeekToVariants() would put it at the first
// variant header; CreateMetafile calls SeekToVariants itself before
// reading. On any failure, the partially-written file at path is removed,
// since the spec considers no partial metafile valid.
func CreateMetafile(f *File, path string, npartitions uint32, opts *CreateOptions) (mf *Metafile, err error) {
	if npartitions == 0 {
		return nil, errors.E(errors.Invalid, "bgen: npartitions must be >= 1")
	}
	if err := f.SeekToVariants(); err != nil {
		return nil, err
	}

	out, err := os.Create(path)
	if err != nil {
		return nil, errors.E(errors.IO, "bgen: could not create metafile", path, err)
	}
	defer func() {
		if err != nil {
			out.Close() // nolint: errcheck
			os.Remove(path) // nolint: errcheck
		}
	}()

	if _, werr := out.WriteString(metafileSignature); werr != nil {
		return nil, errors.E(errors.IO, "bgen: could not write metafile signature", werr)
	}
	if werr := ioutil.WriteU32(out, f.nVariants); werr != nil {
		return nil, errors.E(errors.IO, "bgen: could not write metafile variant count", werr)
	}
	// Reserve 8 bytes for metadata_size, filled in once the metadata region
	// size is known.
	if werr := ioutil.WriteU64(out, 0); werr != nil {
		return nil, errors.E(errors.IO, "bgen: could not reserve metadata_size slot", werr)
	}

	partSize := ceilDiv(f.nVariants, npartitions)
	poffset := make([]uint64, npartitions+1)

	it := NewVariantIterator(f)
	logger := opts.logger()
	j := 0
	for i := uint32(0); ; i++ {
		vm, ok := it.Next()
		if !ok {
			break
		}
		start := currentSize(out)
		if werr := writeVariantRecord(out, &vm); werr != nil {
			return nil, errors.E(errors.IO, "bgen: could not write variant record", i, werr)
		}
		size := currentSize(out) - start

		// True for the first variant of every partition; mirrors the
		// original writer's off-by-one slot advance exactly (see
		// SPEC_FULL.md "Resolved Open Questions").
		if i%partSize == 0 {
			j++
			poffset[j] = poffset[j-1]
		}
		poffset[j] += uint64(size)

		if i > 0 && i%100000 == 0 {
			logger.Warnf("bgen: wrote %d/%d variants to metafile", i, f.nVariants)
		}
	}
	if it.Err() != nil {
		return nil, errors.E(errors.Invalid, "bgen: variant iteration failed while writing metafile", it.Err())
	}

	if werr := ioutil.WriteU32(out, npartitions); werr != nil {
		return nil, errors.E(errors.IO, "bgen: could not write partition count", werr)
	}
	for k := uint32(0); k < npartitions; k++ {
		if werr := ioutil.WriteU64(out, poffset[k]); werr != nil {
			return nil, errors.E(errors.IO, "bgen: could not write partition offset", k, werr)
		}
	}

	// poffset[j] is the running total of every record written, which is the
	// metadata region size even when fewer than npartitions slots were
	// reached (ceil(V/P) can leave trailing partitions empty).
	metadataSize := poffset[j]
	if opts.writeChecksum() {
		if cerr := writeChecksumTrailer(out, path, metadataSize); cerr != nil {
			return nil, cerr
		}
	}

	if _, serr := out.Seek(int64(len(metafileSignature))+4, 0); serr != nil {
		return nil, errors.E(errors.IO, "bgen: could not seek back to metadata_size slot", serr)
	}
	if werr := ioutil.WriteU64(out, metadataSize); werr != nil {
		return nil, errors.E(errors.IO, "bgen: could not backfill metadata_size", werr)
	}
	if serr := out.Sync(); serr != nil {
		return nil, errors.E(errors.IO, "bgen: could not flush metafile", serr)
	}
	if cerr := out.Close(); cerr != nil {
		return nil, errors.E(errors.IO, "bgen: could not close metafile after writing", cerr)
	}

	return OpenMetafile(path, nil)
}

// writeChecksumTrailer re-reads the metadata region it just wrote and
// appends a seahash-64 checksum record after the partition table. It is
// opportunistic: a reader that predates this trailer never looks past the
// partition table, so this never affects on-disk compatibility with the
// format spec.md defines.
func writeChecksumTrailer(out *os.File, path string, metadataSize uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.E(errors.IO, "bgen: could not reopen metafile to checksum it", err)
	}
	defer f.Close() // nolint: errcheck
	if _, err := f.Seek(int64(metafileHeaderSize), 0); err != nil {
		return errors.E(errors.IO, "bgen: could not seek to metadata region", err)
	}
	buf := make([]byte, metadataSize)
	if _, err := readFull(f, buf); err != nil {
		return errors.E(errors.IO, "bgen: could not reread metadata region for checksum", err)
	}
	sum := seahashSum(buf)
	if err := ioutil.WriteU32(out, checksumTrailerMagic); err != nil {
		return errors.E(errors.IO, "bgen: could not write checksum magic", err)
	}
	if err := ioutil.WriteU64(out, sum); err != nil {
		return errors.E(errors.IO, "bgen: could not write checksum", err)
	}
	return nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func currentSize(f *os.File) int64 {
	pos, err := f.Seek(0, 1)
	if err != nil {
		log.Panicf("bgen: could not tell metafile write position: %v", err)
	}
	return pos
}

func writeVariantRecord(w *os.File, vm *VariantMetadata) error {
	if err := ioutil.WriteU64(w, vm.GenotypeOffset); err != nil {
		return err
	}
	if err := ioutil.WriteLengthPrefixed(w, vm.ID, 2); err != nil {
		return err
	}
	if err := ioutil.WriteLengthPrefixed(w, vm.RSID, 2); err != nil {
		return err
	}
	if err := ioutil.WriteLengthPrefixed(w, vm.Chrom, 2); err != nil {
		return err
	}
	if err := ioutil.WriteU32(w, vm.Position); err != nil {
		return err
	}
	if err := ioutil.WriteU16(w, vm.NAlleles()); err != nil {
		return err
	}
	for _, a := range vm.AlleleIDs {
		if err := ioutil.WriteLengthPrefixed(w, a, 4); err != nil {
			return err
		}
	}
	return nil
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}
