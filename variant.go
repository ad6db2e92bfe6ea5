package bgen

import (
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bgen/internal/ioutil"
)

// VariantMetadata describes one variant: its identifying fields and the
// byte offset of its genotype block. nalleles always equals
// len(AlleleIDs).
type VariantMetadata struct {
	GenotypeOffset uint64
	ID             String
	RSID           String
	Chrom          String
	Position       uint32
	AlleleIDs      []String
}

// NAlleles returns the number of alleles, i.e. len(AlleleIDs).
func (v *VariantMetadata) NAlleles() uint16 { return uint16(len(v.AlleleIDs)) }

// VariantIterator yields a File's variant headers one at a time, without
// decoding genotypes. It is single-pass: once positioned partway through
// the stream by Next, it cannot be restarted except by calling
// File.SeekToVariants again and creating a fresh iterator.
type VariantIterator struct {
	f       *File
	r       io.ReadSeeker
	index   uint32
	total   uint32
	err     error
}

// NewVariantIterator creates an iterator over f's variant stream. f must
// already be positioned at the start of the variants (see
// File.SeekToVariants), and the iterator takes over sequential reads on f's
// stream until exhausted.
func NewVariantIterator(f *File) *VariantIterator {
	return &VariantIterator{f: f, r: f.streamReadSeeker(), total: f.nVariants}
}

// Err returns the first error encountered by Next, if any.
func (it *VariantIterator) Err() error { return it.err }

// Next reads and returns the next variant's metadata, including the byte
// offset at which its genotype block begins
// (VariantMetadata.GenotypeOffset). It returns ok=false once all V variants
// have been consumed or an error has occurred; check Err() to distinguish
// clean exhaustion from failure.
func (it *VariantIterator) Next() (vm VariantMetadata, ok bool) {
	if it.err != nil || it.index >= it.total {
		return VariantMetadata{}, false
	}
	vm, err := it.readOne()
	if err != nil {
		it.err = err
		return VariantMetadata{}, false
	}
	it.index++
	return vm, true
}

func (it *VariantIterator) readOne() (VariantMetadata, error) {
	var vm VariantMetadata

	if it.f.layout == 1 {
		n, err := ioutil.ReadU32(it.r)
		if err != nil {
			return vm, errors.E(errors.Invalid, "bgen: could not read n_samples_in_variant", err)
		}
		if n != it.f.nSamples {
			return vm, errors.E(errors.Invalid, "bgen: variant sample count does not match file N")
		}
	}

	idRaw, err := ioutil.ReadLengthPrefixed(it.r, 2)
	if err != nil {
		return vm, errors.E(errors.Invalid, "bgen: could not read variant id", err)
	}
	vm.ID = String(idRaw)

	rsidRaw, err := ioutil.ReadLengthPrefixed(it.r, 2)
	if err != nil {
		return vm, errors.E(errors.Invalid, "bgen: could not read variant rsid", err)
	}
	vm.RSID = String(rsidRaw)

	chromRaw, err := ioutil.ReadLengthPrefixed(it.r, 2)
	if err != nil {
		return vm, errors.E(errors.Invalid, "bgen: could not read variant chrom", err)
	}
	vm.Chrom = String(chromRaw)

	if vm.Position, err = ioutil.ReadU32(it.r); err != nil {
		return vm, errors.E(errors.Invalid, "bgen: could not read variant position", err)
	}

	var nalleles uint16
	if it.f.layout == 1 {
		nalleles = 2
	} else {
		if nalleles, err = ioutil.ReadU16(it.r); err != nil {
			return vm, errors.E(errors.Invalid, "bgen: could not read nalleles", err)
		}
	}
	if nalleles < 2 {
		return vm, errors.E(errors.Invalid, "bgen: variant has fewer than 2 alleles")
	}
	vm.AlleleIDs = make([]String, nalleles)
	for i := range vm.AlleleIDs {
		raw, err := ioutil.ReadLengthPrefixed(it.r, 4)
		if err != nil {
			return vm, errors.E(errors.Invalid, "bgen: could not read allele id", i, err)
		}
		vm.AlleleIDs[i] = String(raw)
	}

	genotypeOffset, err := it.streamOffset()
	if err != nil {
		return vm, err
	}
	vm.GenotypeOffset = genotypeOffset

	blockLen, err := it.skipGenotypeBlock()
	if err != nil {
		return vm, err
	}
	_ = blockLen
	return vm, nil
}

func (it *VariantIterator) streamOffset() (uint64, error) {
	pos, err := it.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.E(errors.IO, "bgen: could not tell stream position", err)
	}
	if pos < 0 {
		panicOffsetOverflow("variant iteration", uint64(pos))
	}
	return uint64(pos), nil
}

// skipGenotypeBlock advances the cursor past the current variant's
// genotype block without decoding it, per spec §4.3 step 8.
func (it *VariantIterator) skipGenotypeBlock() (uint64, error) {
	if it.f.layout == 1 {
		if it.f.compression == CompressionNone {
			size := uint64(6) * uint64(it.f.nSamples)
			if err := ioutil.Skip(it.r, int64(size)); err != nil {
				return 0, errors.E(errors.Invalid, "bgen: could not skip layout 1 genotype block", err)
			}
			return size, nil
		}
		compressedSize, err := ioutil.ReadU32(it.r)
		if err != nil {
			return 0, errors.E(errors.Invalid, "bgen: could not read compressed_size", err)
		}
		if err := ioutil.Skip(it.r, int64(compressedSize)); err != nil {
			return 0, errors.E(errors.Invalid, "bgen: could not skip layout 1 compressed genotype block", err)
		}
		return uint64(compressedSize), nil
	}
	// Layout 2: a u32 total_block_size prefix covers everything that follows.
	totalBlockSize, err := ioutil.ReadU32(it.r)
	if err != nil {
		return 0, errors.E(errors.Invalid, "bgen: could not read total_block_size", err)
	}
	if err := ioutil.Skip(it.r, int64(totalBlockSize)); err != nil {
		return 0, errors.E(errors.Invalid, "bgen: could not skip layout 2 genotype block", err)
	}
	return uint64(totalBlockSize), nil
}
