package bgen

import (
	"bytes"
	"io"
	"os"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/bgen/internal/ioutil"
)

// Metafile is an opened sidecar index: a validated signature, the total
// variant count, and the partition offset table. It exclusively owns its
// stream and partition table.
type Metafile struct {
	path             string
	stream           *os.File
	nVariants        uint32
	metadataSize     uint64
	partitionOffsets []uint64 // length npartitions
	cache            *partitionCache
}

// OpenMetafileOptions customizes OpenMetafile.
type OpenMetafileOptions struct {
	// PartitionCacheSize bounds how many materialized partitions
	// ReadPartition keeps warm (SPEC_FULL.md Addition #2). 0 disables
	// caching. Negative values are treated as the default (8).
	PartitionCacheSize int
}

// OpenMetafile opens the sidecar at path, validates its signature, and
// reads its partition table.
func OpenMetafile(path string, opts *OpenMetafileOptions) (mf *Metafile, err error) {
	stream, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.NotExist, "bgen: could not open metafile", path, err)
	}
	mf = &Metafile{path: path, stream: stream}
	defer func() {
		if err != nil {
			mf.Close()
			mf = nil
		}
	}()

	sig := make([]byte, len(metafileSignature))
	if _, rerr := io.ReadFull(stream, sig); rerr != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not read metafile signature", rerr)
	}
	if !bytes.Equal(sig, []byte(metafileSignature)) {
		return nil, errors.E(errors.Invalid, "bgen: unrecognized metafile signature", string(sig))
	}
	if mf.nVariants, err = ioutil.ReadU32(stream); err != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not read metafile variant count", err)
	}
	if mf.metadataSize, err = ioutil.ReadU64(stream); err != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not read metadata_size", err)
	}
	if mf.metadataSize > 1<<62 {
		panicOffsetOverflow("metafile open", mf.metadataSize)
	}
	if err := ioutil.Skip(stream, int64(mf.metadataSize)); err != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not skip metadata region", err)
	}
	npartitions, err := ioutil.ReadU32(stream)
	if err != nil {
		return nil, errors.E(errors.Invalid, "bgen: could not read partition count", err)
	}
	mf.partitionOffsets = make([]uint64, npartitions)
	for k := range mf.partitionOffsets {
		if mf.partitionOffsets[k], err = ioutil.ReadU64(stream); err != nil {
			return nil, errors.E(errors.Invalid, "bgen: could not read partition offset", k, err)
		}
	}

	cacheSize := 8
	if opts != nil {
		if opts.PartitionCacheSize == 0 {
			cacheSize = 0
		} else if opts.PartitionCacheSize > 0 {
			cacheSize = opts.PartitionCacheSize
		}
	}
	mf.cache = newPartitionCache(path, cacheSize)

	return mf, nil
}

// Fingerprint returns a stable, non-cryptographic hash of mf's path, handy
// for telling apart log lines from several concurrently open Metafile
// values without printing full paths.
func (mf *Metafile) Fingerprint() uint64 {
	if mf.cache == nil {
		return farm.Hash64([]byte(mf.path))
	}
	return mf.cache.fingerprint()
}

// NPartitions returns P.
func (mf *Metafile) NPartitions() uint32 { return uint32(len(mf.partitionOffsets)) }

// NVariants returns V.
func (mf *Metafile) NVariants() uint32 { return mf.nVariants }

// partSize returns ceil(V/P).
func (mf *Metafile) partSize() uint32 { return ceilDiv(mf.nVariants, mf.NPartitions()) }

// partitionLen returns the number of variants in partition k.
func (mf *Metafile) partitionLen(k uint32) uint32 {
	size := mf.partSize()
	if size*k >= mf.nVariants {
		return 0
	}
	return min32(size, mf.nVariants-size*k)
}

// ReadPartition materializes partition k into an in-memory array of
// variant metadata. When partition caching is enabled, the returned slice
// (and the allele-id strings within it) is also held by the cache and is
// returned again by later ReadPartition calls for the same k; with caching
// disabled, every call returns a freshly read slice.
func (mf *Metafile) ReadPartition(k uint32) ([]VariantMetadata, error) {
	if k >= mf.NPartitions() {
		return nil, errors.E(errors.Precondition, "bgen: partition index out of range", k)
	}
	if mf.cache != nil {
		if cached, ok := mf.cache.get(k); ok {
			return cached, nil
		}
	}
	nvars := mf.partitionLen(k)
	offset := int64(metafileHeaderSize) + int64(mf.partitionOffsets[k])
	if offset < 0 {
		panicOffsetOverflow("metafile partition read", mf.partitionOffsets[k])
	}
	if _, err := mf.stream.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.E(errors.IO, "bgen: could not seek to partition", k, err)
	}
	vars := make([]VariantMetadata, nvars)
	for i := range vars {
		vm, err := readVariantRecord(mf.stream)
		if err != nil {
			return nil, errors.E(errors.Invalid, "bgen: could not read variant record", k, i, err)
		}
		vars[i] = vm
	}
	if mf.cache != nil {
		mf.cache.put(k, vars)
	}
	return vars, nil
}

// VerifyChecksum re-reads the metadata region and compares it against the
// optional trailing seahash-64 record (SPEC_FULL.md Addition #3). It
// returns checked=false, ok=false and a nil error if the metafile has no
// trailer -- that is not an error, since readers must tolerate metafiles
// without it.
func (mf *Metafile) VerifyChecksum() (checked bool, ok bool, err error) {
	trailerOffset := int64(metafileHeaderSize) + int64(mf.metadataSize) + 4 + 8*int64(mf.NPartitions())
	if _, serr := mf.stream.Seek(trailerOffset, io.SeekStart); serr != nil {
		return false, false, nil
	}
	magic, merr := ioutil.ReadU32(mf.stream)
	if merr != nil {
		return false, false, nil
	}
	if magic != checksumTrailerMagic {
		return false, false, nil
	}
	want, serr := ioutil.ReadU64(mf.stream)
	if serr != nil {
		return false, false, nil
	}
	if _, serr := mf.stream.Seek(int64(metafileHeaderSize), io.SeekStart); serr != nil {
		return true, false, errors.E(errors.IO, "bgen: could not seek to metadata region to verify checksum", serr)
	}
	buf := make([]byte, mf.metadataSize)
	if _, rerr := io.ReadFull(mf.stream, buf); rerr != nil {
		return true, false, errors.E(errors.IO, "bgen: could not read metadata region to verify checksum", rerr)
	}
	return true, seahashSum(buf) == want, nil
}

// Close releases the metafile's stream. It is a no-op on a nil or
// already-closed Metafile.
func (mf *Metafile) Close() error {
	if mf == nil || mf.stream == nil {
		return nil
	}
	err := mf.stream.Close()
	mf.stream = nil
	if err != nil {
		return errors.E(errors.IO, "bgen: could not close metafile", mf.path, err)
	}
	return nil
}

func readVariantRecord(r io.Reader) (VariantMetadata, error) {
	var vm VariantMetadata
	offset, err := ioutil.ReadU64(r)
	if err != nil {
		return vm, err
	}
	vm.GenotypeOffset = offset

	idRaw, err := ioutil.ReadLengthPrefixed(r, 2)
	if err != nil {
		return vm, err
	}
	vm.ID = String(idRaw)

	rsidRaw, err := ioutil.ReadLengthPrefixed(r, 2)
	if err != nil {
		return vm, err
	}
	vm.RSID = String(rsidRaw)

	chromRaw, err := ioutil.ReadLengthPrefixed(r, 2)
	if err != nil {
		return vm, err
	}
	vm.Chrom = String(chromRaw)

	if vm.Position, err = ioutil.ReadU32(r); err != nil {
		return vm, err
	}
	nalleles, err := ioutil.ReadU16(r)
	if err != nil {
		return vm, err
	}
	vm.AlleleIDs = make([]String, nalleles)
	for i := range vm.AlleleIDs {
		raw, err := ioutil.ReadLengthPrefixed(r, 4)
		if err != nil {
			return vm, err
		}
		vm.AlleleIDs[i] = String(raw)
	}
	return vm, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
