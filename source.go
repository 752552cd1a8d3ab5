// File: confkit/source.go
package confkit

// Source is the read surface the strict accessors and the startup dump
// operate against. *Store satisfies it; tests and callers that already
// have their own configuration layer can supply a minimal adapter.
type Source interface {
	// Raw returns the string form of the value stored under key.
	// The second return is false when the key is absent or has no value.
	Raw(key string) (string, bool)

	// Value returns the underlying value for key: the leaf value itself,
	// or a nested map[string]any when key names a section. The second
	// return is false when neither exists.
	Value(key string) (any, bool)

	// Has reports whether key exists as a leaf or as a section.
	Has(key string) bool

	// All returns the flattened effective snapshot. Section keys appear
	// with Defined == false; callers that only care about concrete values
	// must filter on Defined.
	All() []Entry
}

// Entry is one flattened key/value pair from a Source snapshot.
// Defined distinguishes "present with a value" (including the empty
// string) from "key exists structurally but carries no value".
type Entry struct {
	Key     string
	Value   string
	Defined bool
}
