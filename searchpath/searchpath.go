// Package searchpath implements the search-path resolver of COMPONENT
// DESIGN §4.6: mapping a plugin name to a candidate file under an ordered
// list of directories.
package searchpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the compile-time fallback search directory, generalized
// from the source's PLUGINDIR default.
const DefaultDir = "/usr/lib/featureloader/plugins"

// DefaultPattern is the default candidate filename template; %s is
// replaced with the plugin name. Generalizes the source's fixed
// "libstrongswan-<name>.so" convention to a configurable template so hosts
// on other platforms (or using the subprocess/interpreted module variants)
// can supply their own.
const DefaultPattern = "libstrongswan-%s.so"

// Resolver holds an ordered list of directories plus the filename template
// used to build a candidate path.
type Resolver struct {
	dirs       []string
	pattern    string
	defaultDir string
}

// New builds a Resolver with no registered directories yet. An empty
// pattern falls back to DefaultPattern. DefaultDir is not seeded into the
// search list here — it is consulted only as the final fallback, after
// every directory the caller registers (see Resolve), mirroring
// load_plugins()'s two-phase search in the source implementation: paths
// registered by the caller are tried first, the compile-time default only
// once none of them match.
func New(pattern string) *Resolver {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Resolver{pattern: pattern, defaultDir: DefaultDir}
}

// AddDir appends dir to the search list; earlier entries take priority, and
// every registered directory takes priority over the trailing default (see
// searchDirs).
func (r *Resolver) AddDir(dir string) {
	r.dirs = append(r.dirs, dir)
}

// searchDirs returns the registered directories followed by the fallback
// default directory, omitting the latter when unset (a Resolver built as a
// bare struct literal, as some tests do, has no default to fall back to).
func (r *Resolver) searchDirs() []string {
	dirs := append([]string(nil), r.dirs...)
	if r.defaultDir == "" {
		return dirs
	}
	return append(dirs, r.defaultDir)
}

// RegisterFamily appends <base>/<name-with-dashes-to-underscores>/.libs for
// every whitespace-separated plugin name in names, the helper COMPONENT
// DESIGN §4.6 names for registering a family of directories at once.
func (r *Resolver) RegisterFamily(base, names string) {
	for _, name := range strings.Fields(names) {
		r.AddDir(filepath.Join(base, strings.ReplaceAll(name, "-", "_"), ".libs"))
	}
}

// Resolve returns the first existing candidate file for name, checking
// every registered directory before falling back to DefaultDir, or "" if
// none of them contain it.
func (r *Resolver) Resolve(name string) string {
	candidate := fmt.Sprintf(r.pattern, name)
	for _, dir := range r.searchDirs() {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// splitPattern divides a "%s"-containing template into its prefix and
// suffix, used by Watch to recover a plugin name from a path fsnotify
// reports.
func splitPattern(pattern string) (prefix, suffix string) {
	i := strings.Index(pattern, "%s")
	if i < 0 {
		return pattern, ""
	}
	return pattern[:i], pattern[i+2:]
}
