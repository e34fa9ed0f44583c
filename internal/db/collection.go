package db

import (
	"context"

	"github.com/ukydev/fleet-live/internal/store"
)

// PreferencesCollection defines the interface for preference document
// operations.
type PreferencesCollection interface {
	FindPreferences(ctx context.Context, profile string) (*store.Preferences, error)
	UpsertPreferences(ctx context.Context, profile string, prefs store.Preferences) error
}
