// File: confkit/doc.go

// Package confkit provides strict, fail-fast access to application
// configuration, backed by a thread-safe layered store with support for
// TOML/JSON/YAML files, environment variables, command-line arguments,
// and default values with configurable precedence.
//
// Keys are hierarchical with colon-separated segments (e.g.
// "Server:Port", "Log:StartupConfiguration").
//
// Strict access:
//
//	port, err := confkit.Require[int64](store, "Server:Port")
//	name, err := confkit.RequireString(store, "Service:Name")
//
// Require and RequireString fail with ErrInvalidKey for blank keys and
// ErrMissingValue when the key is absent or unset, so missing mandatory
// configuration surfaces at startup instead of as a zero value later.
// Lookup is the non-strict variant: absence is reported, not raised.
//
// Startup diagnostics:
//
//	confkit.LogStartupValues(store, &logger)
//
// emits every effective key/value pair at debug level, ordinally sorted,
// when the "Log:StartupConfiguration" flag is enabled.
//
// Store initialization follows the builder pattern:
//
//	store, err := confkit.NewBuilder().
//	    WithDefaults(defaults).
//	    WithEnvPrefix("MYAPP_").
//	    WithFile("config.toml").
//	    Build()
//
// Default precedence (highest to lowest): command-line arguments,
// environment variables (MYAPP_SERVER_PORT), configuration file,
// registered defaults.
//
// Thread safety: all store operations are safe for concurrent use. The
// package-level accessors hold no state of their own.
package confkit
