// File: confkit/strict.go
package confkit

import (
	"fmt"
	"reflect"
	"strings"
)

// Require retrieves the value for key and binds it to T, failing loudly
// when the key is blank (ErrInvalidKey) or the value is absent
// (ErrMissingValue). A nil-free return is guaranteed: callers may treat
// the result as mandatory configuration. Intended for startup paths
// where a missing value should abort the application.
//
// String targets take a fast path through the raw indexer and skip
// generic binding. Section keys bind their subtree, so struct targets
// work the same way Scan does.
func Require[T any](src Source, key string) (T, error) {
	var zero T

	if strings.TrimSpace(key) == "" {
		return zero, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	// Fast path for plain strings: no decoder needed, and absence is
	// detected directly instead of surfacing as a zero value.
	if _, isString := any(zero).(string); isString {
		raw, found := src.Raw(key)
		if !found {
			return zero, missingValue[T](key)
		}
		return any(raw).(T), nil
	}

	// Existence check first, so a missing key is reported as missing
	// rather than masked by decoder defaults.
	if !src.Has(key) {
		return zero, missingValue[T](key)
	}

	val, ok := src.Value(key)
	if !ok || val == nil {
		return zero, missingValue[T](key)
	}

	target := new(T)
	if err := decodeValue(val, target); err != nil {
		return zero, fmt.Errorf("bind key %q to %s: %w", key, reflect.TypeOf((*T)(nil)).Elem(), err)
	}

	return *target, nil
}

// RequireString is the string specialization of Require: same
// validation, same failure semantics, never returns an absent value.
func RequireString(src Source, key string) (string, error) {
	return Require[string](src, key)
}

// Lookup retrieves the string value for key, reporting absence instead
// of raising it. The boolean distinguishes a present empty string from
// a missing key. Blank keys still fail with ErrInvalidKey, matching the
// strict accessors.
func Lookup(src Source, key string) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	val, found := src.Raw(key)
	return val, found, nil
}

// missingValue builds the failure for an absent mandatory key, carrying
// the key and the requested type to aid diagnosis at startup.
func missingValue[T any](key string) error {
	return fmt.Errorf("%w: key %q (%s)", ErrMissingValue, key, reflect.TypeOf((*T)(nil)).Elem())
}
