// Package resolve implements the dependency resolver of COMPONENT DESIGN
// §4.4: the algorithm that drives load_provided/load_feature over a
// registry and activation stack owned by the caller.
package resolve

import (
	"log/slog"

	"github.com/GoCodeAlone/featureloader/feature"
	"github.com/GoCodeAlone/featureloader/registry"
)

// Stats accumulates the three counters §7's error taxonomy defines.
type Stats struct {
	Failed   int
	Depends  int
	Critical int
}

// Resolver drives feature activation over a registry and activation stack
// it does not own — both are constructed once by the lifecycle controller
// and shared across Load/Unload cycles.
type Resolver struct {
	reg     *registry.Registry
	stack   *registry.Stack
	metrics *Metrics
	log     *slog.Logger

	stats Stats
}

func New(reg *registry.Registry, stack *registry.Stack, metrics *Metrics, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{reg: reg, stack: stack, metrics: metrics, log: log}
}

// Stats returns the resolver's running totals.
func (r *Resolver) Stats() Stats { return r.stats }

// Reset zeroes the running stats — called after Unload, per the testable
// property that stats are zero once everything has been torn down.
func (r *Resolver) Reset() { r.stats = Stats{} }

// LoadFeatures is load_features(): it walks every entry's providers in
// emission order, entries in list order, invoking loadProvided on each.
func (r *Resolver) LoadFeatures(entries []*registry.ModuleEntry) {
	for _, e := range entries {
		for _, p := range e.Providers {
			r.loadProvided(p, 0)
		}
	}
}

// loadProvided is load_provided(p, level): the loop-safety gate. loading is
// set before recursion and cleared on return, the sole guard against
// infinite recursion through a dependency cycle.
func (r *Resolver) loadProvided(p *registry.ProvidedFeature, level int) {
	if p.Loaded || p.Failed {
		return
	}
	if p.Loading {
		r.log.Debug("dependency cycle detected, deferring to the ancestor call", "feature", p.Descriptor.Capability, "level", level)
		return
	}
	p.Loading = true
	r.loadFeature(p, level+1)
	p.Loading = false
}

// loadFeature is load_feature(p, level): resolve p's dependency suffix,
// then invoke its load callback.
func (r *Resolver) loadFeature(p *registry.ProvidedFeature, level int) {
	for _, d := range p.Deps {
		r.loadDependencyProviders(d, level)

		if r.reg.GetMatchWhere(d, registry.Loaded) != nil {
			continue
		}

		if d.Kind == feature.SDepend {
			r.log.Debug("soft dependency unmet, continuing", "feature", p.Descriptor.Capability, "dependency", d.Capability)
			continue
		}

		r.failDependency(p, d)
		return
	}

	if !p.Entry.Module.Load(p.Context, p.Descriptor) {
		r.failCallback(p)
		return
	}

	p.Loaded = true
	r.stack.Prepend(p)
	r.log.Debug("feature loaded", "feature", p.Descriptor.Capability, "plugin", p.Entry.Name, "level", level)
}

// loadDependencyProviders repeatedly searches the registry for loadable
// providers of d — first an exact match, then a fuzzy one — recursively
// loading every provider found, until neither search yields a result. One
// dependency may be fulfillable by several concrete providers (e.g. a
// generic database dependency); they are all loaded so a later feature
// needing a specific one is not starved by a merely-compatible one.
func (r *Resolver) loadDependencyProviders(d feature.Descriptor, level int) {
	for {
		rf := r.reg.GetExactWhere(d, registry.Loadable)
		if rf == nil {
			rf = r.reg.GetMatchWhere(d, registry.Loadable)
		}
		if rf == nil {
			return
		}
		for _, q := range rf.Providers {
			r.loadProvided(q, level)
		}
	}
}

func (r *Resolver) failDependency(p *registry.ProvidedFeature, d feature.Descriptor) {
	r.stats.Depends++
	p.Failed = true
	if p.Entry.Critical {
		r.stats.Critical++
		if r.metrics != nil {
			r.metrics.Critical.Inc()
		}
	}
	r.stats.Failed++
	if r.metrics != nil {
		r.metrics.Depends.Inc()
		r.metrics.Failed.Inc()
	}
	r.log.Warn("unmet dependency", "feature", p.Descriptor.Capability, "dependency", d.Capability, "critical", p.Entry.Critical, "plugin", p.Entry.Name)
}

// failCallback accounts a false return from the feature load callback
// identically to an unmet hard dependency, per §7.
func (r *Resolver) failCallback(p *registry.ProvidedFeature) {
	r.stats.Depends++
	p.Failed = true
	if p.Entry.Critical {
		r.stats.Critical++
		if r.metrics != nil {
			r.metrics.Critical.Inc()
		}
	}
	r.stats.Failed++
	if r.metrics != nil {
		r.metrics.Depends.Inc()
		r.metrics.Failed.Inc()
	}
	r.log.Warn("feature load callback returned false", "feature", p.Descriptor.Capability, "plugin", p.Entry.Name, "critical", p.Entry.Critical)
}
