package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "shiftcal/internal/log"
)

// reloadDebounce collapses the burst of events an editor produces on save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the config at path whenever it changes on disk and hands the
// result to onChange. It blocks until ctx is done.
//
// The parent directory is watched rather than the file itself so that
// editors that save via rename keep being tracked. A file that fails to
// parse is logged and ignored; the previous config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	name := filepath.Clean(path)

	appLog.Debug("config watch started", "path", path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("config watch error", err, "path", path)

		case <-fire:
			fire = nil
			// Load would write defaults over a file that is mid-rename.
			if _, err := os.Stat(path); err != nil {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				appLog.Error("config reload failed; keeping previous config", err, "path", path)
				continue
			}
			appLog.Info("config reloaded", "path", path)
			onChange(cfg)
		}
	}
}
