// Package featureloader is the lifecycle controller of COMPONENT DESIGN
// §4.5: the public surface that assembles a running system from a plugin
// list, resolving feature dependencies and tearing everything down in
// strict reverse order. It owns the three collections of §3's global
// state — the module entry list, the feature registry, and the activation
// stack — behind a single instance constructed once per running system
// (DESIGN NOTES: no package-level singleton is needed).
package featureloader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GoCodeAlone/featureloader/feature"
	"github.com/GoCodeAlone/featureloader/module"
	"github.com/GoCodeAlone/featureloader/registry"
	"github.com/GoCodeAlone/featureloader/resolve"
	"github.com/GoCodeAlone/featureloader/searchpath"
)

// Loader is the single owning instance of the feature loader.
type Loader struct {
	entries []*registry.ModuleEntry
	byName  map[string]*registry.ModuleEntry

	reg      *registry.Registry
	stack    *registry.Stack
	resolver *resolve.Resolver
	metrics  *resolve.Metrics

	sources     []module.Source
	searchPaths *searchpath.Resolver

	loadedPlugins string
	log           *slog.Logger
}

// Option configures a Loader at construction time.
type Option func(*Loader)

// WithSource appends a module source; sources are tried in registration
// order for each token, the first to resolve the name wins.
func WithSource(s module.Source) Option {
	return func(l *Loader) { l.sources = append(l.sources, s) }
}

// WithSearchPath replaces the default search-path resolver.
func WithSearchPath(r *searchpath.Resolver) Option {
	return func(l *Loader) { l.searchPaths = r }
}

// WithLogger replaces the default slog.Logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New constructs a Loader. With no sources configured, Load can still
// activate static features added via AddStaticFeatures but every plugin
// list token will fail with module.ErrNotFound.
func New(opts ...Option) *Loader {
	l := &Loader{
		byName:      make(map[string]*registry.ModuleEntry),
		reg:         registry.New(),
		stack:       &registry.Stack{},
		metrics:     resolve.NewMetrics(),
		searchPaths: searchpath.New(""),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.resolver = resolve.New(l.reg, l.stack, l.metrics, l.log)
	return l
}

// Metrics exposes the resolver's private Prometheus registry for scraping.
func (l *Loader) Metrics() *resolve.Metrics { return l.metrics }

// AddStaticFeatures wraps descriptors in a synthetic static module entry
// and registers its features, without triggering a load.
func (l *Loader) AddStaticFeatures(name string, descriptors feature.Block, critical bool) {
	mod := module.NewStatic(name, descriptors, nil, nil)
	entry := &registry.ModuleEntry{Name: name, Module: mod, Critical: critical}
	l.appendEntry(entry)
	l.registerFeatures(entry)
}

func (l *Loader) appendEntry(e *registry.ModuleEntry) {
	l.entries = append(l.entries, e)
	l.byName[e.Name] = e
}

func (l *Loader) registerFeatures(e *registry.ModuleEntry) {
	for _, g := range e.Module.Features().Groups() {
		p := &registry.ProvidedFeature{
			Entry:      e,
			Context:    g.Context,
			Descriptor: g.Provide,
			Deps:       g.Deps,
		}
		e.Providers = append(e.Providers, p)
		l.reg.Put(p)
	}
}

// Load parses list, resolves and constructs each plugin not already
// present, runs the dependency resolver over every provided feature, then
// purges modules that contributed nothing. It returns false iff a critical
// module failed construction, a critical module contributed no loaded
// feature, or stats.Critical > 0 after resolution.
func (l *Loader) Load(list string) (bool, error) {
	tokens, err := Tokenize(list)
	if err != nil {
		return false, err
	}

	for _, tok := range tokens {
		if _, ok := l.byName[tok.Name]; ok {
			continue
		}
		entry, err := l.construct(tok)
		if err != nil {
			if tok.Critical {
				l.log.Warn("critical plugin failed construction, aborting load", "plugin", tok.Name, "error", err)
				return false, nil
			}
			l.log.Warn("plugin failed construction", "plugin", tok.Name, "error", err)
			continue
		}
		l.appendEntry(entry)
		l.registerFeatures(entry)
	}

	l.resolver.LoadFeatures(l.entries)

	success := l.resolver.Stats().Critical == 0
	for _, e := range l.entries {
		if e.Critical && !l.hasLoaded(e) {
			success = false
		}
	}

	l.purgePlugins()
	l.rebuildLoadedPlugins()
	return success, nil
}

// construct tries each registered source in order, resolving tok's file
// via the search-path resolver first.
func (l *Loader) construct(tok Token) (*registry.ModuleEntry, error) {
	path := l.searchPaths.Resolve(tok.Name)

	var lastErr error
	for _, src := range l.sources {
		mod, closer, err := src.Resolve(tok.Name, path)
		if err == nil {
			return &registry.ModuleEntry{Name: tok.Name, Module: mod, Closer: closer, Critical: tok.Critical}, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", module.ErrNotFound, tok.Name)
	}
	return nil, lastErr
}

func (l *Loader) hasLoaded(e *registry.ModuleEntry) bool {
	for _, p := range e.Providers {
		if p.Loaded {
			return true
		}
	}
	return false
}

func (l *Loader) isStaticWithoutFeatures(e *registry.ModuleEntry) bool {
	_, ok := e.Module.(*module.StaticModule)
	return ok && len(e.Providers) == 0
}

// purgePlugins removes any module entry whose providers are all failed or
// unexamined, unless it is a static-feature entry without a features
// interface — those are preserved regardless (§4.5, DESIGN NOTES).
func (l *Loader) purgePlugins() {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if l.hasLoaded(e) || l.isStaticWithoutFeatures(e) {
			kept = append(kept, e)
			continue
		}
		l.destroyEntry(e)
		delete(l.byName, e.Name)
	}
	l.entries = kept
}

func (l *Loader) destroyEntry(e *registry.ModuleEntry) {
	l.reg.Remove(e)
	e.Module.Destroy()
	if e.Closer != nil {
		_ = e.Closer.Close()
	}
}

// rebuildLoadedPlugins recomputes the cached loaded-plugins display
// string. Static-feature synthetic modules are listed only if they
// contributed a loaded feature, an asymmetry DESIGN NOTES calls out
// explicitly to preserve.
func (l *Loader) rebuildLoadedPlugins() {
	names := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if _, ok := e.Module.(*module.StaticModule); ok && !l.hasLoaded(e) {
			continue
		}
		names = append(names, e.Name)
	}
	l.loadedPlugins = strings.Join(names, " ")
}

// LoadedPlugins returns the cached space-separated list of loaded module
// names, or "" if Load has never run.
func (l *Loader) LoadedPlugins() string { return l.loadedPlugins }

// HasFeature reports whether some loaded feature matches f.
func (l *Loader) HasFeature(f feature.Descriptor) bool {
	return l.reg.GetMatchWhere(f, registry.Loaded) != nil
}

// Enumeration pairs a module name with the features it has loaded.
type Enumeration struct {
	Name     string
	Features []feature.Descriptor
}

// Enumerate returns (module, loaded-feature-list) pairs filtered to loaded
// features only.
func (l *Loader) Enumerate() []Enumeration {
	var out []Enumeration
	for _, e := range l.entries {
		var loaded []feature.Descriptor
		for _, p := range e.Providers {
			if p.Loaded {
				loaded = append(loaded, p.Descriptor)
			}
		}
		if len(loaded) > 0 {
			out = append(out, Enumeration{Name: e.Name, Features: loaded})
		}
	}
	return out
}

// Reload invokes Reload on every module whose name matches name (every
// module if name == ""), returning the count of successful reloads.
func (l *Loader) Reload(name string) int {
	n := 0
	for _, e := range l.entries {
		if name != "" && e.Name != name {
			continue
		}
		if r, ok := e.Module.(module.Reloader); ok && r.Reload() {
			n++
		}
	}
	return n
}

// Unload walks the activation stack front to back, unloading every feature
// and unregistering it, then destroys module entries in reverse insertion
// order, unregistering any residual features before destroying the module
// and releasing its library handle.
func (l *Loader) Unload() {
	items := append([]*registry.ProvidedFeature(nil), l.stack.Items()...)
	for _, p := range items {
		p.Entry.Module.Unload(p.Context, p.Descriptor)
		l.reg.RemoveProvider(p)
		l.stack.Remove(p)
		p.Entry.RemoveProvider(p)
	}

	for i := len(l.entries) - 1; i >= 0; i-- {
		l.destroyEntry(l.entries[i])
	}

	l.entries = nil
	l.byName = make(map[string]*registry.ModuleEntry)
	l.loadedPlugins = ""
	l.resolver.Reset()
}

// PluginStatus is a point-in-time snapshot of one module entry.
type PluginStatus struct {
	Name     string
	Critical bool
	Loaded   int
	Metadata map[string]string
}

// Snapshot returns a read-only view of every module entry's current state,
// for a status page or CLI. Adds no state of its own.
func (l *Loader) Snapshot() []PluginStatus {
	out := make([]PluginStatus, 0, len(l.entries))
	for _, e := range l.entries {
		var meta map[string]string
		if mp, ok := e.Module.(module.MetadataProvider); ok {
			meta = mp.Metadata()
		}
		out = append(out, PluginStatus{
			Name:     e.Name,
			Critical: e.Critical,
			Loaded:   l.loadedCount(e),
			Metadata: meta,
		})
	}
	return out
}

func (l *Loader) loadedCount(e *registry.ModuleEntry) int {
	n := 0
	for _, p := range e.Providers {
		if p.Loaded {
			n++
		}
	}
	return n
}

// Stats returns the resolver's accumulated failure statistics.
func (l *Loader) Stats() resolve.Stats { return l.resolver.Stats() }

// Status logs the loaded plugin list and failure statistics at level.
func (l *Loader) Status(ctx context.Context, level slog.Level) {
	stats := l.Stats()
	l.log.Log(ctx, level, "feature loader status",
		"loaded_plugins", l.loadedPlugins,
		"failed", stats.Failed,
		"depends", stats.Depends,
		"critical", stats.Critical,
	)
}
