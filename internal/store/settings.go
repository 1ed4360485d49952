// Package store persists display settings, the power-loss recovery record
// and the print history.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dwinhmi/internal/hmi"
)

// SettingsFile keeps hmi.Settings in a YAML file.
//
// Missing keys keep their defaults, so older files load after new settings
// are added.
type SettingsFile struct {
	path     string
	defaults hmi.Settings
}

// NewSettingsFile returns a store at path. defaults fill keys the file omits.
func NewSettingsFile(path string, defaults hmi.Settings) *SettingsFile {
	return &SettingsFile{path: path, defaults: defaults}
}

// Path returns the backing file.
func (f *SettingsFile) Path() string { return f.path }

// Load reads the file. A missing file is reported as an error wrapping
// os.ErrNotExist; callers fall back to defaults.
func (f *SettingsFile) Load() (hmi.Settings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return hmi.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	s := f.defaults
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return f.defaults, nil
		}
		return hmi.Settings{}, fmt.Errorf("parse settings %s: %w", f.path, err)
	}
	return s, nil
}

// Save writes the file atomically.
func (f *SettingsFile) Save(s hmi.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
