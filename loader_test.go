// File: confkit/loader_test.go
package confkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOMLFile(t *testing.T) {
	path := writeTempConfig(t, "config.toml", `
[Server]
Host = "example.com"
Port = 9090

[Log]
StartupConfiguration = "1"
`)

	store := New()
	require.NoError(t, store.Register("Server:Host", "localhost"))
	require.NoError(t, store.Register("Server:Port", int64(8080)))
	require.NoError(t, store.Register("Log:StartupConfiguration", "0"))

	require.NoError(t, store.LoadFile(path))

	host, _ := store.Get("Server:Host")
	assert.Equal(t, "example.com", host)

	port, err := store.Int64("Server:Port")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), port)

	flag, found := store.Raw("Log:StartupConfiguration")
	assert.True(t, found)
	assert.Equal(t, "1", flag)
}

func TestLoadJSONFile(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
  "Server": {"Host": "json.example.com", "Port": 7070}
}`)

	store := New()
	require.NoError(t, store.Register("Server:Host", "localhost"))
	require.NoError(t, store.Register("Server:Port", int64(8080)))

	require.NoError(t, store.LoadFile(path))

	host, _ := store.Get("Server:Host")
	assert.Equal(t, "json.example.com", host)

	port, err := store.Int64("Server:Port")
	require.NoError(t, err)
	assert.Equal(t, int64(7070), port)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
Server:
  Host: yaml.example.com
  Port: 6060
`)

	store := New()
	require.NoError(t, store.Register("Server:Host", "localhost"))
	require.NoError(t, store.Register("Server:Port", int64(8080)))

	require.NoError(t, store.LoadFile(path))

	host, _ := store.Get("Server:Host")
	assert.Equal(t, "yaml.example.com", host)
}

func TestLoadFormatDetectionFromContent(t *testing.T) {
	// No recognized extension: content detection must kick in.
	path := writeTempConfig(t, "config.conf", `{"Server": {"Host": "detected"}}`)

	store := New()
	require.NoError(t, store.Register("Server:Host", "localhost"))
	require.NoError(t, store.LoadFile(path))

	host, _ := store.Get("Server:Host")
	assert.Equal(t, "detected", host)
}

func TestLoadFileNotFound(t *testing.T) {
	store := New()
	err := store.LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadFileDropsStaleValues(t *testing.T) {
	store := New()
	require.NoError(t, store.Register("A", "defA"))
	require.NoError(t, store.Register("B", "defB"))

	first := writeTempConfig(t, "first.toml", "A = \"a1\"\nB = \"b1\"\n")
	require.NoError(t, store.LoadFile(first))

	second := writeTempConfig(t, "second.toml", "A = \"a2\"\n")
	require.NoError(t, store.LoadFile(second))

	a, _ := store.Get("A")
	b, _ := store.Get("B")
	assert.Equal(t, "a2", a)
	assert.Equal(t, "defB", b, "value absent from the new file reverts to default")
}

func TestLoadEnv(t *testing.T) {
	store := New()
	require.NoError(t, store.Register("Server:Port", int64(8080)))
	require.NoError(t, store.Register("Server:Host", "localhost"))

	t.Setenv("CONFKITTEST_SERVER_PORT", "9999")

	require.NoError(t, store.LoadEnv("CONFKITTEST_"))

	port, err := store.Int64("Server:Port")
	require.NoError(t, err)
	assert.Equal(t, int64(9999), port)

	// Untouched key keeps its default
	host, _ := store.Get("Server:Host")
	assert.Equal(t, "localhost", host)
}

func TestLoadEnvWhitelist(t *testing.T) {
	store := NewWithOptions(LoadOptions{
		Origins:      []Origin{OriginEnv, OriginDefault},
		EnvPrefix:    "CONFKITWL_",
		EnvWhitelist: map[string]bool{"Allowed": true},
	})
	require.NoError(t, store.Register("Allowed", "def"))
	require.NoError(t, store.Register("Blocked", "def"))

	t.Setenv("CONFKITWL_ALLOWED", "yes")
	t.Setenv("CONFKITWL_BLOCKED", "no")

	require.NoError(t, store.Load("", nil))

	allowed, _ := store.Get("Allowed")
	blocked, _ := store.Get("Blocked")
	assert.Equal(t, "yes", allowed)
	assert.Equal(t, "def", blocked)
}

func TestLoadEnvCustomTransform(t *testing.T) {
	store := New()
	require.NoError(t, store.Register("Server:Port", int64(1)))

	t.Setenv("CUSTOM__Server__Port", "4242")

	opts := DefaultLoadOptions()
	opts.EnvTransform = func(key string) string {
		return "CUSTOM__" + stringsReplaceSep(key)
	}
	require.NoError(t, store.LoadWithOptions("", nil, opts))

	port, err := store.Int64("Server:Port")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), port)
}

// stringsReplaceSep swaps separators for double underscores, used by the
// custom transform test.
func stringsReplaceSep(key string) string {
	out := make([]byte, 0, len(key)+4)
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			out = append(out, '_', '_')
		} else {
			out = append(out, key[i])
		}
	}
	return string(out)
}

func TestLoadCLI(t *testing.T) {
	store := New()
	require.NoError(t, store.Register("Server:Port", int64(8080)))
	require.NoError(t, store.Register("Debug", false))
	require.NoError(t, store.Register("Name", "svc"))

	t.Run("EqualsForm", func(t *testing.T) {
		require.NoError(t, store.LoadCLI([]string{"--Server:Port=9001"}))
		port, err := store.Int64("Server:Port")
		require.NoError(t, err)
		assert.Equal(t, int64(9001), port)
	})

	t.Run("SpaceForm", func(t *testing.T) {
		require.NoError(t, store.LoadCLI([]string{"--Name", "renamed"}))
		name, _ := store.Get("Name")
		assert.Equal(t, "renamed", name)
	})

	t.Run("BareBooleanFlag", func(t *testing.T) {
		require.NoError(t, store.LoadCLI([]string{"--Debug"}))
		debug, err := store.Bool("Debug")
		require.NoError(t, err)
		assert.True(t, debug)
	})

	t.Run("InvalidSegment", func(t *testing.T) {
		err := store.LoadCLI([]string{"--Bad!Key=1"})
		assert.ErrorIs(t, err, ErrCLIParse)
	})
}

func TestLoadPrecedence(t *testing.T) {
	path := writeTempConfig(t, "config.toml", "Value = \"from-file\"\n")

	store := New()
	require.NoError(t, store.Register("Value", "default"))

	t.Setenv("CONFKITPREC_VALUE", "from-env")

	opts := DefaultLoadOptions()
	opts.EnvPrefix = "CONFKITPREC_"

	t.Run("CLIWins", func(t *testing.T) {
		require.NoError(t, store.LoadWithOptions(path, []string{"--Value=from-cli"}, opts))
		val, _ := store.Get("Value")
		assert.Equal(t, "from-cli", val)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		store.ResetOrigin(OriginCLI)
		val, _ := store.Get("Value")
		assert.Equal(t, "from-env", val)
	})

	t.Run("FileBeatsDefault", func(t *testing.T) {
		store.ResetOrigin(OriginEnv)
		val, _ := store.Get("Value")
		assert.Equal(t, "from-file", val)
	})
}

func TestDiscoverEnv(t *testing.T) {
	store := New()
	require.NoError(t, store.Register("Server:Host", "x"))
	require.NoError(t, store.Register("Server:Port", 1))

	t.Setenv("CONFKITDISC_SERVER_HOST", "found")

	discovered := store.DiscoverEnv("CONFKITDISC_")
	assert.Equal(t, map[string]string{"Server:Host": "CONFKITDISC_SERVER_HOST"}, discovered)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"3.14", 3.14},
		{`"quoted"`, "quoted"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), "parseValue(%q)", tt.in)
	}
}
