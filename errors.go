package bgen

// Error kinds returned by this package's operations, wrapped through
// github.com/grailbio/base/errors the way encoding/fasta and encoding/pam do
// in the teacher repository. The spec's named error kinds map onto
// errors.Kind as follows:
//
//	IO_OPEN_ERROR    -> errors.NotExist (Open, OpenMetafile, for any open
//	                    failure) / errors.IO (CreateMetafile)
//	IO_SHORT_READ    -> errors.IO
//	IO_WRITE_ERROR   -> errors.IO
//	FORMAT_ERROR     -> errors.Invalid
//	DECOMPRESS_ERROR -> errors.Invalid
//	OUT_OF_RANGE     -> errors.Precondition
//	OFFSET_OVERFLOW  -> unrecoverable; panics via log.Panicf, matching the
//	                    teacher's own use of log.Panicf for "this should
//	                    never happen on a well-formed input" conditions
//	                    (encoding/bam/pool.go, encoding/pam/fieldio/reader.go).
import (
	"github.com/grailbio/base/log"
)

// panicOffsetOverflow reports a u64 offset that does not fit in the
// platform's seek type. The spec (§7 OFFSET_OVERFLOW) calls this fatal;
// every caller of this package runs on a single goroutine per file handle,
// so there is no safe way to unwind out of the middle of a seek sequence
// that has already been re-pointed at a corrupt offset.
func panicOffsetOverflow(context string, offset uint64) {
	log.Panicf("bgen: %s: offset %d overflows the platform seek type", context, offset)
}
