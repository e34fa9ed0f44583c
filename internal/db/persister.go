package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-live/internal/store"
)

// DefaultProfile keys the document when no profile is named.
const DefaultProfile = "default"

// Persister keeps store preferences in a document collection, one
// document per profile.
type Persister struct {
	Collection PreferencesCollection
	Profile    string
}

// NewPersister returns a Persister over coll.
func NewPersister(coll PreferencesCollection, profile string) *Persister {
	if profile == "" {
		profile = DefaultProfile
	}
	return &Persister{Collection: coll, Profile: profile}
}

// Load returns zero preferences when the profile has no document.
func (p *Persister) Load(ctx context.Context) (store.Preferences, error) {
	prefs, err := p.Collection.FindPreferences(ctx, p.Profile)
	if err != nil {
		return store.Preferences{}, fmt.Errorf("failed to load preferences %q: %w", p.Profile, err)
	}
	if prefs == nil {
		return store.Preferences{}, nil
	}
	return *prefs, nil
}

func (p *Persister) Save(ctx context.Context, prefs store.Preferences) error {
	if err := p.Collection.UpsertPreferences(ctx, p.Profile, prefs); err != nil {
		return fmt.Errorf("failed to save preferences %q: %w", p.Profile, err)
	}
	return nil
}

var _ store.Persister = (*Persister)(nil)
