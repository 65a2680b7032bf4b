package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("config")

const reloadDebounce = 200 * time.Millisecond

// Watch calls fn with the reloaded config whenever the file at path changes,
// until ctx is done. Invalid edits are logged and skipped. The parent
// directory is watched so editors that replace the file are still seen.
func Watch(ctx context.Context, path string, fn func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()
		var debounce *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.NewTimer(reloadDebounce)
				fire = debounce.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnf("CONFIG: watch %s: %v", abs, err)
			case <-fire:
				fire = nil
				cfg, err := Load(abs)
				if err != nil {
					log.Warnf("CONFIG: reload %s skipped: %v", abs, err)
					continue
				}
				log.Infof("CONFIG: reloaded %s", abs)
				fn(cfg)
			}
		}
	}()
	return nil
}
