package searchpath

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch watches every registered directory and emits a plugin name on the
// returned channel whenever a file matching the naming convention appears,
// so a long-running host can attempt a deferred Load for plugins not
// present at startup. This is purely additive: Resolve remains synchronous
// and Watch never calls back into a Loader, so it cannot violate the
// single-threaded-cooperative model of CONCURRENCY & RESOURCE MODEL §5.
// Directories created after Watch starts are not retroactively observed —
// fsnotify watches existing paths only.
func (r *Resolver) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range r.searchDirs() {
		_ = watcher.Add(dir)
	}

	out := make(chan string)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name, ok := r.nameFromPath(ev.Name)
				if !ok {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// nameFromPath reverses Resolve's filename template to recover a plugin
// name from a path fsnotify reported.
func (r *Resolver) nameFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	prefix, suffix := splitPattern(r.pattern)
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, suffix) {
		return "", false
	}
	return base[len(prefix) : len(base)-len(suffix)], true
}
