package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/rotation"
)

func openStores(t *testing.T) map[string]func() Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]func() Store{
		"file": func() Store {
			s, err := Open("file", filepath.Join(dir, "prefs.yaml"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func() Store {
			s, err := Open("sqlite", filepath.Join(dir, "prefs.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_GetSetPersist(t *testing.T) {
	ctx := context.Background()
	for name, open := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, KeySelectedTeam, "B"))
			require.NoError(t, s.Set(ctx, KeySelectedTeam, "C"))
			v, err := s.Get(ctx, KeySelectedTeam)
			require.NoError(t, err)
			assert.Equal(t, "C", v)
			require.NoError(t, s.Close())

			reopened := open()
			defer reopened.Close()
			v, err = reopened.Get(ctx, KeySelectedTeam)
			require.NoError(t, err)
			assert.Equal(t, "C", v)
		})
	}
}

func TestPreferences_ReadAtStartupWriteOnChange(t *testing.T) {
	ctx := context.Background()
	for name, open := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			p := New(open())
			assert.Equal(t, rotation.TeamA, p.SelectedTeam(ctx, rotation.TeamA))

			require.NoError(t, p.SetSelectedTeam(ctx, rotation.TeamD))
			require.NoError(t, p.Close())

			p = New(open())
			defer p.Close()
			assert.Equal(t, rotation.TeamD, p.SelectedTeam(ctx, rotation.TeamA))
		})
	}
}

func TestPreferences_RejectsUnknownTeam(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	p := New(s)

	assert.ErrorIs(t, p.SetSelectedTeam(context.Background(), rotation.Team("Z")), rotation.ErrUnknownTeam)
	_, err = s.Get(context.Background(), KeySelectedTeam)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreferences_GarbageFallsBack(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeySelectedTeam, "team-x"))

	assert.Equal(t, rotation.TeamB, New(s).SelectedTeam(ctx, rotation.TeamB))
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), KeySelectedTeam, "A"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selectedTeam: [A"), 0o600))
	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", "x")
	assert.EqualError(t, err, `prefs: unknown backend "redis"`)
}
