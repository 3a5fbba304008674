package registry

import (
	"testing"

	"github.com/GoCodeAlone/featureloader/feature"
)

func newEntry(name string) *ModuleEntry {
	return &ModuleEntry{Name: name}
}

func TestPutCoalescesEqualKeys(t *testing.T) {
	r := New()
	e1 := newEntry("m1")
	e2 := newEntry("m2")

	d := feature.Descriptor{Capability: "db", Params: map[string]string{"backend": "postgres"}}
	p1 := &ProvidedFeature{Entry: e1, Descriptor: d}
	p2 := &ProvidedFeature{Entry: e2, Descriptor: d}
	e1.Providers = append(e1.Providers, p1)
	e2.Providers = append(e2.Providers, p2)

	rf1 := r.Put(p1)
	rf2 := r.Put(p2)

	if rf1 != rf2 {
		t.Fatalf("two PROVIDEs with Equals keys must coalesce into one registered feature")
	}
	if len(rf1.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(rf1.Providers))
	}
	if r.Len() != 1 {
		t.Fatalf("invariant 6: expected exactly one registered feature, got %d", r.Len())
	}
}

func TestGetExactWhereLoadable(t *testing.T) {
	r := New()
	e := newEntry("m")
	d := feature.Descriptor{Capability: "cipher", Params: map[string]string{"alg": "aes"}}
	p := &ProvidedFeature{Entry: e, Descriptor: d}
	e.Providers = append(e.Providers, p)
	r.Put(p)

	if r.GetExactWhere(d, Loadable) == nil {
		t.Fatalf("an unexamined provider must be Loadable")
	}

	p.Loaded = true
	if r.GetExactWhere(d, Loadable) != nil {
		t.Fatalf("a loaded provider must not be Loadable")
	}
	if r.GetMatchWhere(d, Loaded) == nil {
		t.Fatalf("a loaded provider must satisfy the Loaded predicate")
	}
}

func TestGetMatchWhereWildcard(t *testing.T) {
	r := New()
	e := newEntry("m")
	generic := feature.Descriptor{Capability: "db", Params: map[string]string{"backend": feature.Wildcard}}
	p := &ProvidedFeature{Entry: e, Descriptor: generic}
	e.Providers = append(e.Providers, p)
	r.Put(p)

	want := feature.Descriptor{Capability: "db", Params: map[string]string{"backend": "postgres"}}
	if r.GetExactWhere(want, Loadable) != nil {
		t.Fatalf("a wildcard provider must not satisfy an exact-equals search against a concrete want")
	}
	if r.GetMatchWhere(want, Loadable) == nil {
		t.Fatalf("a wildcard provider must satisfy a fuzzy-match search")
	}
}

func TestRemoveEntryDropsEmptyRegisteredFeature(t *testing.T) {
	r := New()
	e := newEntry("m")
	d := feature.Descriptor{Capability: "x"}
	p := &ProvidedFeature{Entry: e, Descriptor: d}
	e.Providers = append(e.Providers, p)
	r.Put(p)

	if r.Len() != 1 {
		t.Fatalf("setup: expected one registered feature")
	}
	r.Remove(e)
	if r.Len() != 0 {
		t.Fatalf("invariant 3: registered feature must vanish once its last provider is removed")
	}
}

func TestRemoveRepointsKeyToSurvivor(t *testing.T) {
	r := New()
	e1 := newEntry("m1")
	e2 := newEntry("m2")
	d := feature.Descriptor{Capability: "x"}
	p1 := &ProvidedFeature{Entry: e1, Descriptor: d}
	p2 := &ProvidedFeature{Entry: e2, Descriptor: d}
	e1.Providers = append(e1.Providers, p1)
	e2.Providers = append(e2.Providers, p2)
	r.Put(p1)
	r.Put(p2)

	r.Remove(e1)
	if r.Len() != 1 {
		t.Fatalf("expected the registered feature to survive with its remaining provider")
	}
	rf := r.GetExact(d)
	if rf == nil {
		t.Fatalf("expected to still find the registered feature by its original key")
	}
	if len(rf.Providers) != 1 || rf.Providers[0] != p2 {
		t.Fatalf("expected only p2 to remain, got %v", rf.Providers)
	}
}

func TestRemoveProviderSingular(t *testing.T) {
	r := New()
	e := newEntry("m")
	d := feature.Descriptor{Capability: "x"}
	p1 := &ProvidedFeature{Entry: e, Descriptor: d}
	p2 := &ProvidedFeature{Entry: e, Descriptor: d}
	e.Providers = append(e.Providers, p1, p2)
	r.Put(p1)
	r.Put(p2)

	r.RemoveProvider(p1)
	rf := r.GetExact(d)
	if rf == nil || len(rf.Providers) != 1 || rf.Providers[0] != p2 {
		t.Fatalf("expected only p2 to remain after removing p1, got %v", rf)
	}
}

func TestStackFrontInsertionOrder(t *testing.T) {
	var s Stack
	p1 := &ProvidedFeature{Descriptor: feature.Descriptor{Capability: "first"}}
	p2 := &ProvidedFeature{Descriptor: feature.Descriptor{Capability: "second"}}
	p3 := &ProvidedFeature{Descriptor: feature.Descriptor{Capability: "third"}}

	s.Prepend(p1)
	s.Prepend(p2)
	s.Prepend(p3)

	items := s.Items()
	if items[0] != p3 || items[1] != p2 || items[2] != p1 {
		t.Fatalf("expected most-recently-activated first, got %v", items)
	}

	s.Remove(p2)
	items = s.Items()
	if len(items) != 2 || items[0] != p3 || items[1] != p1 {
		t.Fatalf("expected p2 removed cleanly, got %v", items)
	}
}
