// Package registry implements the feature registry and the activation
// stack of COMPONENT DESIGN §4.3 and §3's global state: module entries,
// provided features bound to them, and registered features grouping every
// provider whose PROVIDE descriptor is Equals.
package registry

import (
	"io"

	"github.com/GoCodeAlone/featureloader/feature"
	"github.com/GoCodeAlone/featureloader/module"
)

// ModuleEntry owns one constructed module: its live object, the library
// handle backing it (nil for static modules), whether its failure is fatal
// to the whole load, and the ordered list of features it contributed.
type ModuleEntry struct {
	Name      string
	Module    module.Module
	Closer    io.Closer
	Critical  bool
	Providers []*ProvidedFeature
}

// RemoveProvider drops p from e's provider list. p must belong to e.
func (e *ModuleEntry) RemoveProvider(p *ProvidedFeature) {
	for i, q := range e.Providers {
		if q == p {
			e.Providers = append(e.Providers[:i], e.Providers[i+1:]...)
			return
		}
	}
}

// ProvidedFeature is one PROVIDE instance bound to its owning module entry.
// Entry is a non-owning back-pointer — the entry owns its providers, never
// the other way around (DESIGN NOTES: "back-pointer from provided feature
// to module entry").
type ProvidedFeature struct {
	Entry      *ModuleEntry
	Context    *feature.Descriptor
	Descriptor feature.Descriptor
	Deps       []feature.Descriptor

	Loading bool
	Loaded  bool
	Failed  bool
}

// RegisteredFeature groups every ProvidedFeature, across all modules,
// whose PROVIDE descriptor is Equals to Key.
type RegisteredFeature struct {
	Key       feature.Descriptor
	Providers []*ProvidedFeature
}

// Registry is the feature registry. It is implemented as a flat slice
// scanned linearly rather than a true hash table keyed by Equals: Go maps
// cannot key on a predicate with wildcard leniency the way feature.Matches
// needs, and the plugin counts this loader targets make a linear scan over
// registered features (not over every provider) cheap. feature.Hash is
// still exposed and tested for consistency with feature.Equals, satisfying
// COMPONENT DESIGN §4.1's hash/equals contract even though this registry
// does not use it as a map key.
type Registry struct {
	features []*RegisteredFeature
}

func New() *Registry {
	return &Registry{}
}

// Put registers p under its descriptor's key, coalescing with any existing
// registered feature whose key Equals p's descriptor — DESIGN NOTES'
// open question on identical PROVIDE keys: they coalesce, and providers
// load in plugin-list order because Put appends rather than reorders.
func (r *Registry) Put(p *ProvidedFeature) *RegisteredFeature {
	if rf := r.GetExact(p.Descriptor); rf != nil {
		rf.Providers = append(rf.Providers, p)
		return rf
	}
	rf := &RegisteredFeature{Key: p.Descriptor, Providers: []*ProvidedFeature{p}}
	r.features = append(r.features, rf)
	return rf
}

// GetExact returns the registered feature whose key Equals key, or nil.
func (r *Registry) GetExact(key feature.Descriptor) *RegisteredFeature {
	for _, rf := range r.features {
		if feature.Equals(rf.Key, key) {
			return rf
		}
	}
	return nil
}

// GetExactWhere is GetExact filtered by an additional predicate over the
// registered feature's provider list — the resolver's loadable-equals
// search.
func (r *Registry) GetExactWhere(key feature.Descriptor, pred func([]*ProvidedFeature) bool) *RegisteredFeature {
	for _, rf := range r.features {
		if feature.Equals(rf.Key, key) && pred(rf.Providers) {
			return rf
		}
	}
	return nil
}

// GetMatchWhere scans for any registered feature whose key Matches key and
// whose provider list satisfies pred — the resolver's loaded-match and
// loadable-match searches.
func (r *Registry) GetMatchWhere(key feature.Descriptor, pred func([]*ProvidedFeature) bool) *RegisteredFeature {
	for _, rf := range r.features {
		if feature.Matches(rf.Key, key) && pred(rf.Providers) {
			return rf
		}
	}
	return nil
}

// Loaded reports whether any provider in providers has Loaded set — the
// loaded-match predicate.
func Loaded(providers []*ProvidedFeature) bool {
	for _, p := range providers {
		if p.Loaded {
			return true
		}
	}
	return false
}

// Loadable reports whether any provider in providers has all three status
// flags false — the loadable-equals/loadable-match predicate.
func Loadable(providers []*ProvidedFeature) bool {
	for _, p := range providers {
		if !p.Loading && !p.Loaded && !p.Failed {
			return true
		}
	}
	return false
}

// Remove unregisters every provider belonging to entry. A registered
// feature whose provider list becomes empty is dropped entirely;
// otherwise, if the removed provider's descriptor was the one the key
// pointed at, the key is re-pointed to the first remaining provider's
// descriptor (COMPONENT DESIGN §4.3).
func (r *Registry) Remove(entry *ModuleEntry) {
	removing := make(map[*ProvidedFeature]bool, len(entry.Providers))
	for _, p := range entry.Providers {
		removing[p] = true
	}

	kept := r.features[:0]
	for _, rf := range r.features {
		wasKeyOwner := false
		survivors := rf.Providers[:0]
		for _, p := range rf.Providers {
			if removing[p] {
				if feature.Equals(p.Descriptor, rf.Key) {
					wasKeyOwner = true
				}
				continue
			}
			survivors = append(survivors, p)
		}
		rf.Providers = survivors
		if len(rf.Providers) == 0 {
			continue
		}
		if wasKeyOwner {
			rf.Key = rf.Providers[0].Descriptor
		}
		kept = append(kept, rf)
	}
	r.features = kept
}

// RemoveProvider unregisters a single provider, used by unload (which
// removes providers one at a time in activation order rather than an
// entire entry at once).
func (r *Registry) RemoveProvider(p *ProvidedFeature) {
	for i, rf := range r.features {
		idx := -1
		for j, q := range rf.Providers {
			if q == p {
				idx = j
				break
			}
		}
		if idx < 0 {
			continue
		}
		wasKeyOwner := feature.Equals(p.Descriptor, rf.Key)
		rf.Providers = append(rf.Providers[:idx], rf.Providers[idx+1:]...)
		if len(rf.Providers) == 0 {
			r.features = append(r.features[:i], r.features[i+1:]...)
			return
		}
		if wasKeyOwner {
			rf.Key = rf.Providers[0].Descriptor
		}
		return
	}
}

// Len returns the number of distinct registered features — invariant 6
// (no two registered features share an Equals key) makes this a simple
// count rather than a set-cardinality computation.
func (r *Registry) Len() int { return len(r.features) }
