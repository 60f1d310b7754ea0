// Package prefs remembers the team a user last selected. The calendar core
// never touches it; front ends receive a *Preferences at start-up, read the
// team once and write it back whenever the selection changes.
package prefs

import (
	"context"
	"errors"
	"fmt"

	appLog "shiftcal/internal/log"
	"shiftcal/internal/rotation"
)

// KeySelectedTeam is the only key the application stores.
const KeySelectedTeam = "selectedTeam"

// ErrNotFound is returned by Store.Get for a key that was never set.
var ErrNotFound = errors.New("prefs: key not found")

// Store is a small local key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open returns the store for backend ("file" or "sqlite") at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("prefs: unknown backend %q", backend)
	}
}

// Preferences is the typed view over a Store.
type Preferences struct {
	store Store
}

// New wraps store.
func New(store Store) *Preferences {
	return &Preferences{store: store}
}

// SelectedTeam returns the stored team, or fallback when nothing valid is
// stored. Read failures are logged and also yield fallback.
func (p *Preferences) SelectedTeam(ctx context.Context, fallback rotation.Team) rotation.Team {
	raw, err := p.store.Get(ctx, KeySelectedTeam)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			appLog.Error("prefs: read selected team failed", err)
		}
		return fallback
	}
	team, err := rotation.ParseTeam(raw)
	if err != nil {
		appLog.Info("prefs: ignoring stored team", "value", raw)
		return fallback
	}
	return team
}

// SetSelectedTeam persists team.
func (p *Preferences) SetSelectedTeam(ctx context.Context, team rotation.Team) error {
	if !team.Valid() {
		return rotation.ErrUnknownTeam
	}
	if err := p.store.Set(ctx, KeySelectedTeam, string(team)); err != nil {
		return fmt.Errorf("prefs: save selected team: %w", err)
	}
	appLog.Debug("prefs: selected team saved", "team", string(team))
	return nil
}

// Close releases the underlying store.
func (p *Preferences) Close() error {
	return p.store.Close()
}
