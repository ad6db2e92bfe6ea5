package bgen

import "blainsmith.com/go/seahash"

// metafileSignature is the literal sidecar-format signature. Backward
// compatibility is defined by this string: an unrecognized signature is a
// hard error, per spec §6.
const metafileSignature = "bgen index 03"

// metafileHeaderSize is the byte size of signature + V + metadata_size,
// i.e. the offset at which the metadata region begins.
const metafileHeaderSize = len(metafileSignature) + 4 + 8

// checksumTrailerMagic tags the optional trailing integrity record (see
// SPEC_FULL.md Addition #3) so a reader can tell it apart from end-of-file
// on a metafile written before this trailer existed.
const checksumTrailerMagic = 0x62676b73 // "bgks" read as a big-endian u32; written little-endian, the bytes on disk are "skgb"

func seahashSum(data []byte) uint64 {
	return seahash.Sum64(data)
}
