package domain

import "errors"

// Sentinel errors of the refresh pipeline. "No data" conditions never map to
// an error; components return zero-count success results instead.
var (
	// ErrStorageUnavailable marks a genuine backend I/O failure. Fatal for
	// the current job; the pair is retried at its next scheduled run.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrEnumerationFailed means the batch could not even list its jobs.
	// It is the only condition that fails a whole refresh run.
	ErrEnumerationFailed = errors.New("integration enumeration failed")

	// ErrUnknownPlatform is returned when no populator is registered for an
	// integration's platform type.
	ErrUnknownPlatform = errors.New("unknown platform type")
)
