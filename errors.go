// File: confkit/errors.go
package confkit

import "errors"

// MaxValueSize caps individual string values to guard against
// pathological inputs from files or the environment.
const MaxValueSize = 1 << 20 // 1MB

var (
	// ErrInvalidKey indicates a caller supplied a nil, empty, or
	// whitespace-only configuration key.
	ErrInvalidKey = errors.New("invalid configuration key")

	// ErrMissingValue indicates a strict lookup found no value for the
	// requested key. The wrapping error carries the key and target type.
	ErrMissingValue = errors.New("missing required configuration value")

	// ErrConfigNotFound indicates the configuration file does not exist.
	// It is non-fatal: the store can run on defaults, env, and CLI values.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrNotRegistered indicates a typed accessor was called for a key
	// the store has never seen.
	ErrNotRegistered = errors.New("key not registered")

	// ErrCLIParse indicates command-line arguments could not be parsed.
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	// ErrValueSize indicates a value exceeded MaxValueSize.
	ErrValueSize = errors.New("value exceeds maximum size")
)
