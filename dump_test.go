// File: confkit/dump_test.go
package confkit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dumpLine is one decoded zerolog output line.
type dumpLine struct {
	Message string `json:"message"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// captureDump runs LogStartupValues against src with a debug-enabled
// logger and returns the decoded output lines.
func captureDump(t *testing.T, src Source) []dumpLine {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	LogStartupValues(src, &logger)
	return decodeDump(t, buf.String())
}

func decodeDump(t *testing.T, out string) []dumpLine {
	t.Helper()
	var lines []dumpLine
	for _, raw := range strings.Split(strings.TrimSpace(out), "\n") {
		if raw == "" {
			continue
		}
		var line dumpLine
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLogStartupValuesGating(t *testing.T) {
	base := map[string]string{"Feature:Name": "X"}

	tests := []struct {
		name     string
		flag     string
		hasFlag  bool
		expected bool
	}{
		{"FlagAbsent", "", false, false},
		{"FlagFalse", "false", true, false},
		{"FlagZero", "0", true, false},
		{"FlagSingleCharT", "T", true, false},
		{"FlagYes", "yes", true, false},
		{"FlagTrue", "true", true, true},
		{"FlagTrueUpper", "TRUE", true, true},
		{"FlagOne", "1", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]string{}
			for k, v := range base {
				values[k] = v
			}
			if tt.hasFlag {
				values[StartupLogKey] = tt.flag
			}

			lines := captureDump(t, &mapSource{values: values})
			if tt.expected {
				assert.NotEmpty(t, lines)
			} else {
				assert.Empty(t, lines)
			}
		})
	}
}

func TestLogStartupValuesLevelGate(t *testing.T) {
	src := &mapSource{values: map[string]string{
		StartupLogKey:  "true",
		"Feature:Name": "X",
	}}

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	LogStartupValues(src, &logger)

	// Flag is on but debug is not active: the snapshot must not be logged.
	assert.Empty(t, buf.String())
	assert.Equal(t, 1, src.calls, "only the flag should have been read")
}

func TestLogStartupValuesOrdering(t *testing.T) {
	src := &mapSource{values: map[string]string{
		StartupLogKey: "1",
		"B:x":         "1",
		"A:y":         "2",
		"a:z":         "3",
	}}

	lines := captureDump(t, src)
	require.Len(t, lines, 6) // begin + 4 entries + end

	var keys []string
	for _, line := range lines[1 : len(lines)-1] {
		keys = append(keys, line.Key)
	}

	// Byte-wise ordinal order: uppercase precedes lowercase.
	assert.Equal(t, []string{"A:y", "B:x", StartupLogKey, "a:z"}, keys)
}

func TestLogStartupValuesNullFiltering(t *testing.T) {
	src := &mapSource{
		values: map[string]string{
			StartupLogKey:     "1",
			"Feature:Enabled": "true",
		},
		sections: []string{"Feature", "Log"},
	}

	lines := captureDump(t, src)
	require.Len(t, lines, 4) // begin + 2 entries + end

	for _, line := range lines {
		assert.NotEqual(t, "Feature", line.Key, "section keys without values must be filtered")
		assert.NotEqual(t, "Log", line.Key)
	}
}

func TestLogStartupValuesScenario(t *testing.T) {
	src := &mapSource{
		values: map[string]string{
			"Feature:Enabled": "true",
			"Feature:Name":    "X",
			StartupLogKey:     "1",
		},
		sections: []string{"Feature", "Log"},
	}

	lines := captureDump(t, src)
	require.Len(t, lines, 5)

	assert.Equal(t, "startup configuration begin", lines[0].Message)
	assert.Equal(t, "Feature:Enabled", lines[1].Key)
	assert.Equal(t, "true", lines[1].Value)
	assert.Equal(t, "Feature:Name", lines[2].Key)
	assert.Equal(t, "X", lines[2].Value)
	assert.Equal(t, StartupLogKey, lines[3].Key)
	assert.Equal(t, "1", lines[3].Value)
	assert.Equal(t, "startup configuration end", lines[4].Message)
}

func TestLogStartupValuesIdempotent(t *testing.T) {
	src := &mapSource{values: map[string]string{
		StartupLogKey: "true",
		"Server:Host": "localhost",
		"Server:Port": "8080",
	}}

	var first, second bytes.Buffer
	logger1 := zerolog.New(&first).Level(zerolog.DebugLevel)
	logger2 := zerolog.New(&second).Level(zerolog.DebugLevel)

	LogStartupValues(src, &logger1)
	LogStartupValues(src, &logger2)

	assert.Equal(t, first.String(), second.String())
	assert.NotEmpty(t, first.String())
}

func TestLogStartupValuesNoQualifyingEntries(t *testing.T) {
	// Flag enabled, debug active, but every entry lacks a value: the
	// dump emits nothing, not even the bracket pair.
	src := &mapSource{
		values:   map[string]string{StartupLogKey: "1"},
		sections: []string{"Feature"},
	}
	// Strip the flag's own entry by shadowing All with sections only:
	// the flag key itself still counts as a defined entry, so use a
	// source whose only defined entry is the flag and verify brackets
	// do appear for it, then one with nothing defined at all.
	lines := captureDump(t, src)
	require.Len(t, lines, 3) // begin + flag entry + end

	empty := &onlyFlagSource{}
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	LogStartupValues(empty, &logger)
	assert.Empty(t, buf.String())
}

// onlyFlagSource answers the flag lookup but enumerates no defined
// entries, modeling a provider whose snapshot filters differently from
// its indexer.
type onlyFlagSource struct{}

func (onlyFlagSource) Raw(key string) (string, bool) {
	if key == StartupLogKey {
		return "1", true
	}
	return "", false
}
func (onlyFlagSource) Value(key string) (any, bool) { return nil, false }
func (onlyFlagSource) Has(key string) bool          { return key == StartupLogKey }
func (onlyFlagSource) All() []Entry                 { return []Entry{{Key: "Feature"}} }

func TestLogStartupValuesAgainstStore(t *testing.T) {
	store := New()
	require.NoError(t, store.Register(StartupLogKey, "1"))
	require.NoError(t, store.Register("Feature:Enabled", true))
	require.NoError(t, store.Register("Feature:Name", "X"))
	require.NoError(t, store.Register("Feature:Unset", nil))

	lines := captureDump(t, store)
	require.Len(t, lines, 5) // begin + 3 defined entries + end

	var keys []string
	for _, line := range lines[1:4] {
		keys = append(keys, line.Key)
	}
	assert.Equal(t, []string{"Feature:Enabled", "Feature:Name", StartupLogKey}, keys)

	// Booleans render in canonical text form.
	assert.Equal(t, "true", lines[1].Value)
}
