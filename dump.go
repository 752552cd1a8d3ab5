// File: confkit/dump.go
package confkit

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// StartupLogKey is the well-known boolean flag that enables the startup
// configuration dump.
const StartupLogKey = "Log" + Separator + "StartupConfiguration"

// LogStartupValues emits every effective configuration key/value pair
// to the logger at debug level, sorted by key with ordinal comparison
// for reproducible output. It does nothing unless the StartupLogKey
// flag is enabled and debug logging is active, and never fails: a
// missing flag means disabled.
//
// Entries without a defined value (section keys, registered keys with
// no value) are skipped. Repeated calls against unchanged configuration
// produce identical output.
func LogStartupValues(src Source, logger *zerolog.Logger) {
	flag, found := src.Raw(StartupLogKey)
	if !found || !startupLogEnabled(flag) {
		return
	}

	// Skip snapshot construction entirely when nothing would be logged.
	if logger.GetLevel() > zerolog.DebugLevel || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}

	var defined []Entry
	for _, e := range src.All() {
		if e.Defined {
			defined = append(defined, e)
		}
	}
	if len(defined) == 0 {
		return
	}

	// Go's native string ordering is byte-wise, which is exactly the
	// ordinal comparison the output needs.
	sort.Slice(defined, func(i, j int) bool {
		return defined[i].Key < defined[j].Key
	})

	logger.Debug().Int("count", len(defined)).Msg("startup configuration begin")
	for _, e := range defined {
		logger.Debug().Str("key", e.Key).Str("value", e.Value).Msg("startup configuration")
	}
	logger.Debug().Msg("startup configuration end")
}

// startupLogEnabled reports whether the flag value turns the dump on.
// Only "1" and case-insensitive "true" enable it; everything else,
// including other single characters, is off.
func startupLogEnabled(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
