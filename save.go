// File: confkit/save.go
package confkit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Save writes the current configuration to a TOML file atomically.
// Only registered keys are saved; keys without a value are skipped.
func (s *Store) Save(path string) error {
	s.mutex.RLock()

	nestedData := make(map[string]any)
	for key, it := range s.items {
		if it.currentValue != nil {
			setNestedValue(nestedData, key, it.currentValue)
		}
	}

	s.mutex.RUnlock()

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(nestedData); err != nil {
		return fmt.Errorf("failed to marshal config data to TOML: %w", err)
	}

	return atomicWriteFile(path, buf.Bytes())
}

// SaveOrigin writes the values held by a specific origin to a TOML file.
func (s *Store) SaveOrigin(path string, origin Origin) error {
	s.mutex.RLock()

	nestedData := make(map[string]any)
	for key, it := range s.items {
		if val, exists := it.values[origin]; exists {
			setNestedValue(nestedData, key, val)
		}
	}

	s.mutex.RUnlock()

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(nestedData); err != nil {
		return fmt.Errorf("failed to marshal %s origin data to TOML: %w", origin, err)
	}

	return atomicWriteFile(path, buf.Bytes())
}

// atomicWriteFile writes data via a temp file and rename so readers
// never observe a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
