package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ukydev/fleet-live/internal/models"
)

// Preferences is the state that survives a restart.
type Preferences struct {
	SidebarCollapsed bool         `yaml:"sidebar_collapsed" bson:"sidebar_collapsed" json:"sidebarCollapsed"`
	DarkMode         bool         `yaml:"dark_mode" bson:"dark_mode" json:"darkMode"`
	User             *models.User `yaml:"user,omitempty" bson:"user,omitempty" json:"user,omitempty"`
}

// Persister loads and saves Preferences.
type Persister interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, prefs Preferences) error
}

// FilePersister keeps preferences in a YAML file.
type FilePersister struct {
	Path string
}

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

// Load reads the file. A missing file yields zero preferences.
func (f *FilePersister) Load(_ context.Context) (Preferences, error) {
	var prefs Preferences
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return prefs, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return prefs, nil
}

// Save writes the file atomically through a temporary sibling.
func (f *FilePersister) Save(_ context.Context, prefs Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preferences dir: %w", err)
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
