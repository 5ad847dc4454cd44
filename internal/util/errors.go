package util

import "errors"

// Sentinel errors for the failure categories the engine distinguishes.
// None of them is fatal: the library facade turns each into an empty result.
var (
	// ErrNotFound indicates a file, directory or cache row is absent
	ErrNotFound = errors.New("not found")

	// ErrMalformed indicates corrupt input: a bad chunk, bad compression or unparsable JSON
	ErrMalformed = errors.New("malformed data")

	// ErrStorageUnavailable indicates the cache could not be opened, read or written
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
