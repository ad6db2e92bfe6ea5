package bgen

import "github.com/grailbio/base/log"

// Logger receives non-fatal diagnostics, such as the magic-number mismatch
// warning from Open. The spec's Design Notes call for replacing the
// original C library's global reporter with an injected sink; this is that
// sink. The zero value is not usable — use DefaultLogger() or your own
// implementation.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// DefaultLogger adapts github.com/grailbio/base/log, the logging facade the
// rest of this module's teacher (encoding/bam/pool.go, encoding/bam/shard.go)
// uses directly, into the Logger interface above.
func DefaultLogger() Logger { return baseLogAdapter{} }

type baseLogAdapter struct{}

func (baseLogAdapter) Warnf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

