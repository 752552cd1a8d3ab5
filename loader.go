// File: confkit/loader.go
package confkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Origin identifies where a configuration value came from and defines
// load precedence.
type Origin string

const (
	// OriginDefault represents the registered default values.
	OriginDefault Origin = "default"
	// OriginFile represents values loaded from a configuration file.
	OriginFile Origin = "file"
	// OriginEnv represents values loaded from environment variables.
	OriginEnv Origin = "env"
	// OriginCLI represents values loaded from command-line arguments.
	OriginCLI Origin = "cli"
)

// EnvTransformFunc converts a configuration key to an environment
// variable name.
type EnvTransformFunc func(key string) string

// LoadOptions configures how configuration is loaded from multiple origins.
type LoadOptions struct {
	// Origins defines the precedence order (first = highest priority).
	// Default: [OriginCLI, OriginEnv, OriginFile, OriginDefault].
	Origins []Origin

	// EnvPrefix is prepended to environment variable names.
	// Example: "MYAPP_" transforms "Server:Port" to "MYAPP_SERVER_PORT".
	EnvPrefix string

	// EnvTransform customizes how keys map to environment variables.
	// If nil, the default transformation is used (separators to
	// underscores, uppercase).
	EnvTransform EnvTransformFunc

	// EnvWhitelist limits which keys are checked for env vars (nil = all).
	EnvWhitelist map[string]bool
}

// DefaultLoadOptions returns the standard load options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Origins: []Origin{OriginCLI, OriginEnv, OriginFile, OriginDefault},
	}
}

// Load reads configuration from a file and merges overrides from
// command-line arguments using the store's current options.
func (s *Store) Load(filePath string, args []string) error {
	s.mutex.RLock()
	opts := s.options
	s.mutex.RUnlock()
	return s.LoadWithOptions(filePath, args, opts)
}

// LoadWithOptions loads configuration from multiple origins with custom
// options. Origins are applied in reverse precedence order so higher
// priority origins layer on top.
func (s *Store) LoadWithOptions(filePath string, args []string, opts LoadOptions) error {
	s.mutex.Lock()
	s.options = opts
	s.mutex.Unlock()

	var loadErrors []error

	for i := len(opts.Origins) - 1; i >= 0; i-- {
		switch opts.Origins[i] {
		case OriginDefault:
			// Defaults are already in place from Register calls.
			continue

		case OriginFile:
			if filePath != "" {
				if err := s.loadFile(filePath); err != nil {
					if errors.Is(err, ErrConfigNotFound) {
						loadErrors = append(loadErrors, err)
					} else {
						return err // Fatal error
					}
				}
			}

		case OriginEnv:
			if err := s.loadEnv(opts); err != nil {
				loadErrors = append(loadErrors, err)
			}

		case OriginCLI:
			if len(args) > 0 {
				if err := s.loadCLI(args); err != nil {
					loadErrors = append(loadErrors, err)
				}
			}
		}
	}

	return errors.Join(loadErrors...)
}

// LoadEnv loads configuration values from environment variables.
func (s *Store) LoadEnv(prefix string) error {
	s.mutex.RLock()
	opts := s.options
	s.mutex.RUnlock()
	opts.EnvPrefix = prefix
	return s.loadEnv(opts)
}

// LoadCLI loads configuration values from command-line arguments.
func (s *Store) LoadCLI(args []string) error {
	return s.loadCLI(args)
}

// LoadFile loads configuration values from a TOML, JSON, or YAML file.
func (s *Store) LoadFile(filePath string) error {
	return s.loadFile(filePath)
}

// SetFileFormat pins the file format instead of relying on detection.
// Accepted values: "toml", "json", "yaml", "auto".
func (s *Store) SetFileFormat(format string) error {
	switch format {
	case "toml", "json", "yaml", "auto", "":
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.fileFormat = format
	return nil
}

// loadFile reads and parses a configuration file, then applies its
// values to registered keys under OriginFile.
func (s *Store) loadFile(path string) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	s.mutex.RLock()
	format := s.fileFormat
	s.mutex.RUnlock()

	if format == "" || format == "auto" {
		format = detectFileFormat(path)
		if format == "" {
			format = detectFormatFromContent(fileData)
		}
	}

	fileConfig := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(fileData, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(fileData))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&fileConfig); err != nil {
			return fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(fileData, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
	default:
		return fmt.Errorf("unable to determine config format for file '%s'", path)
	}

	flattened := flattenMap(fileConfig, "")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.filePath = path
	s.fileData = flattened

	for key, it := range s.items {
		if value, exists := flattened[key]; exists {
			if it.values == nil {
				it.values = make(map[Origin]any)
			}
			it.values[OriginFile] = value
		} else {
			// Key was not in the new file; drop any stale file value.
			delete(it.values, OriginFile)
		}
		it.currentValue = s.computeValue(it)
		s.items[key] = it
	}

	return nil
}

// loadEnv loads configuration from environment variables.
func (s *Store) loadEnv(opts LoadOptions) error {
	transform := opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(opts.EnvPrefix)
	}

	s.mutex.RLock()
	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	s.mutex.RUnlock()

	foundEnvVars := make(map[string]string)
	for _, key := range keys {
		if opts.EnvWhitelist != nil && !opts.EnvWhitelist[key] {
			continue
		}

		envVar := transform(key)
		if value, exists := os.LookupEnv(envVar); exists {
			if len(value) > MaxValueSize {
				return ErrValueSize
			}
			foundEnvVars[key] = value
		}
	}

	if len(foundEnvVars) == 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.envData = make(map[string]any, len(foundEnvVars))

	for key, value := range foundEnvVars {
		parsed := parseValue(value)
		if it, exists := s.items[key]; exists {
			if it.values == nil {
				it.values = make(map[Origin]any)
			}
			it.values[OriginEnv] = parsed
			it.currentValue = s.computeValue(it)
			s.items[key] = it
			s.envData[key] = parsed
		}
	}

	return nil
}

// loadCLI loads configuration from command-line arguments.
func (s *Store) loadCLI(args []string) error {
	parsedCLI, err := parseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCLIParse, err)
	}

	if len(parsedCLI) == 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cliData = parsedCLI

	for key, value := range parsedCLI {
		if it, exists := s.items[key]; exists {
			if it.values == nil {
				it.values = make(map[Origin]any)
			}
			it.values[OriginCLI] = value
			it.currentValue = s.computeValue(it)
			s.items[key] = it
		}
		// Ignore unregistered keys from CLI
	}

	return nil
}

// DiscoverEnv finds all environment variables matching registered keys
// and returns a map of key -> env var name for found variables.
func (s *Store) DiscoverEnv(prefix string) map[string]string {
	s.mutex.RLock()
	transform := s.options.EnvTransform
	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	s.mutex.RUnlock()

	if transform == nil {
		transform = defaultEnvTransform(prefix)
	}

	discovered := make(map[string]string)
	for _, key := range keys {
		envVar := transform(key)
		if _, exists := os.LookupEnv(envVar); exists {
			discovered[key] = envVar
		}
	}

	return discovered
}

// defaultEnvTransform creates the default environment variable
// transformer: separators to underscores, uppercase, optional prefix.
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(key string) string {
		env := strings.ReplaceAll(key, Separator, "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// parseValue attempts to parse a string into bool, int64, or float64,
// falling back to the string itself. Complex conversions are deferred
// to the mapstructure decode hooks.
func parseValue(s string) any {
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	// Remove quotes if present
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}

// parseArgs processes command-line arguments into a flat key/value map.
// Arguments take the form "--Section:Key=value", "--Section:Key value",
// or "--BooleanFlag".
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			i++ // Skip non-flag arguments
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			i++ // Skip "--" used as a separator
			continue
		}

		var key string
		var valueStr string

		if strings.Contains(argContent, "=") {
			parts := strings.SplitN(argContent, "=", 2)
			key = parts[0]
			valueStr = parts[1]
			i++
		} else {
			key = argContent
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true" // Bare flag
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if key == "" {
			continue
		}

		segments := strings.Split(key, Separator)
		for _, segment := range segments {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in key %q", segment, key)
			}
		}

		result[key] = parseValue(valueStr)
	}

	return result, nil
}

// detectFileFormat determines format from file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
func detectFormatFromContent(data []byte) string {
	// JSON first (strict format), then YAML (a JSON superset), TOML last.
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return ""
}
