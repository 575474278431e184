package sts

import "errors"

// Validation errors surfaced by the test battery. Every failure is detected
// before any statistic is computed; no test produces a partial result or
// downgrades a validation failure to a default p-value.
var (
	// ErrInvalidInput reports an empty sequence or a symbol other than '0'/'1'.
	ErrInvalidInput = errors.New("invalid bit string")

	// ErrUnsupportedLength reports a sequence shorter than a test's absolute floor.
	ErrUnsupportedLength = errors.New("unsupported sequence length")

	// ErrInvalidParameter reports a caller-supplied template length or block
	// count outside its valid range, or a derived block size too small for a
	// meaningful statistic.
	ErrInvalidParameter = errors.New("invalid test parameter")
)
