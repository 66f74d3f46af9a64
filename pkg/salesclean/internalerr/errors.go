package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrStageFailed       = errors.New("pipeline stage failed")
)
