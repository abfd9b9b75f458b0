package profile

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ssels.profile")

// Snapshot is a profile together with the generation it was installed at.
// Generations only grow; trees parsed under one generation must not be
// served under another.
type Snapshot struct {
	Profile    Profile
	Generation uint64
}

// Holder publishes the active profile to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder(p Profile) *Holder {
	h := &Holder{}
	h.current.Store(&Snapshot{Profile: p, Generation: 1})
	return h
}

// Current returns the active snapshot.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Replace installs p as the new active profile.
func (h *Holder) Replace(p Profile) *Snapshot {
	for {
		old := h.current.Load()
		next := &Snapshot{Profile: p, Generation: old.Generation + 1}
		if h.current.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Watch reloads the profile at path into h whenever the file is written or
// replaced, until ctx is done. Invalid files are logged and ignored, the
// previous profile stays active. onReload, if non-nil, runs after every
// successful reload.
func Watch(ctx context.Context, path string, h *Holder, onReload func(*Snapshot)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return err
	}

	target := filepath.Clean(path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				p, err := LoadFile(path)
				if err != nil {
					log.Errorf("ignoring profile change: %v", err)
					continue
				}
				snap := h.Replace(p)
				log.Infof("reloaded profile %q (generation %d)", p.Name, snap.Generation)
				if onReload != nil {
					onReload(snap)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Errorf("profile watcher: %v", err)
			}
		}
	}()
	return nil
}
