package resolve

import (
	"testing"

	"github.com/GoCodeAlone/featureloader/feature"
	"github.com/GoCodeAlone/featureloader/module"
	"github.com/GoCodeAlone/featureloader/registry"
)

// buildHarness builds a registry + stack + resolver around a set of static
// modules, registers their features, and returns everything a scenario
// test needs to drive LoadFeatures and inspect the result.
type harness struct {
	reg      *registry.Registry
	stack    *registry.Stack
	resolver *Resolver
	entries  []*registry.ModuleEntry
	byName   map[string]*registry.ModuleEntry
}

func newModuleEntry(name string, critical bool, block feature.Block) *registry.ModuleEntry {
	mod := module.NewStatic(name, block, nil, nil)
	return &registry.ModuleEntry{Name: name, Module: mod, Critical: critical}
}

func buildHarness(t *testing.T, entries ...*registry.ModuleEntry) *harness {
	t.Helper()
	reg := registry.New()
	h := &harness{reg: reg, stack: &registry.Stack{}, entries: entries, byName: map[string]*registry.ModuleEntry{}}
	for _, e := range entries {
		h.byName[e.Name] = e
		for _, g := range e.Module.Features().Groups() {
			p := &registry.ProvidedFeature{Entry: e, Context: g.Context, Descriptor: g.Provide, Deps: g.Deps}
			e.Providers = append(e.Providers, p)
			reg.Put(p)
		}
	}
	h.resolver = New(reg, h.stack, nil, nil)
	return h
}

func providerFor(e *registry.ModuleEntry, capability string) *registry.ProvidedFeature {
	for _, p := range e.Providers {
		if p.Descriptor.Capability == capability {
			return p
		}
	}
	return nil
}

func stackCapabilities(stack *registry.Stack) []string {
	var out []string
	for _, p := range stack.Items() {
		out = append(out, p.Descriptor.Capability)
	}
	return out
}

func dep(kind feature.Kind, capability string) feature.Descriptor {
	return feature.Descriptor{Kind: kind, Capability: capability}
}

func provide(capability string, deps ...feature.Descriptor) feature.Block {
	block := feature.Block{{Kind: feature.Provide, Capability: capability}}
	block = append(block, deps...)
	return block
}

// Scenario 1: Linear chain. A->X(depends Y); B->Y(depends Z); C->Z.
func TestLinearChain(t *testing.T) {
	a := newModuleEntry("A", false, provide("X", dep(feature.Depends, "Y")))
	b := newModuleEntry("B", false, provide("Y", dep(feature.Depends, "Z")))
	c := newModuleEntry("C", false, provide("Z"))

	h := buildHarness(t, a, b, c)
	h.resolver.LoadFeatures(h.entries)

	for _, name := range []string{"X", "Y", "Z"} {
		var found *registry.ProvidedFeature
		for _, e := range h.entries {
			if p := providerFor(e, name); p != nil {
				found = p
			}
		}
		if found == nil || !found.Loaded {
			t.Fatalf("expected %s to be loaded", name)
		}
	}

	got := stackCapabilities(h.stack)
	want := []string{"X", "Y", "Z"}
	if len(got) != len(want) {
		t.Fatalf("expected stack front-to-back %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected stack front-to-back %v, got %v", want, got)
		}
	}

	if h.resolver.Stats() != (Stats{}) {
		t.Fatalf("expected zero stats for a fully-satisfiable chain, got %+v", h.resolver.Stats())
	}
}

// Scenario 2: Reverse declaration. Same modules, input order "C B A".
func TestReverseDeclaration(t *testing.T) {
	a := newModuleEntry("A", false, provide("X", dep(feature.Depends, "Y")))
	b := newModuleEntry("B", false, provide("Y", dep(feature.Depends, "Z")))
	c := newModuleEntry("C", false, provide("Z"))

	h := buildHarness(t, c, b, a)
	h.resolver.LoadFeatures(h.entries)

	got := stackCapabilities(h.stack)
	want := []string{"X", "Y", "Z"}
	if len(got) != len(want) {
		t.Fatalf("expected final stack front-to-back %v regardless of input order, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected final stack front-to-back %v, got %v", want, got)
		}
	}
}

// Scenario 3: Soft-only cycle. M->P(SDEPEND Q); N->Q(SDEPEND P).
func TestSoftOnlyCycle(t *testing.T) {
	m := newModuleEntry("M", false, provide("P", dep(feature.SDepend, "Q")))
	n := newModuleEntry("N", false, provide("Q", dep(feature.SDepend, "P")))

	h := buildHarness(t, m, n)
	h.resolver.LoadFeatures(h.entries)

	if !providerFor(m, "P").Loaded || !providerFor(n, "Q").Loaded {
		t.Fatalf("expected both P and Q to load despite the soft cycle")
	}
	if h.resolver.Stats() != (Stats{}) {
		t.Fatalf("expected no failure counters for a soft cycle, got %+v", h.resolver.Stats())
	}
}

// Scenario 4: Hard cycle. M->P(DEPENDS Q); N->Q(DEPENDS P).
func TestHardCycle(t *testing.T) {
	m := newModuleEntry("M", false, provide("P", dep(feature.Depends, "Q")))
	n := newModuleEntry("N", false, provide("Q", dep(feature.Depends, "P")))

	h := buildHarness(t, m, n)
	h.resolver.LoadFeatures(h.entries)

	if providerFor(m, "P").Loaded || providerFor(n, "Q").Loaded {
		t.Fatalf("expected neither P nor Q to load in a hard cycle")
	}
	stats := h.resolver.Stats()
	if stats.Failed != 2 || stats.Depends != 2 {
		t.Fatalf("expected stats.failed==2 and stats.depends==2, got %+v", stats)
	}
	if stats.Critical != 0 {
		t.Fatalf("expected no critical failures (no critical module involved), got %+v", stats)
	}
}

// Scenario 5: Critical failure. A and B!, where B! has an unmet hard
// dependency.
func TestCriticalFailure(t *testing.T) {
	a := newModuleEntry("A", false, provide("Anything"))
	bCritical := newModuleEntry("B", true, provide("NeedsMissing", dep(feature.Depends, "Missing")))

	h := buildHarness(t, a, bCritical)
	h.resolver.LoadFeatures(h.entries)

	if !providerFor(a, "Anything").Loaded {
		t.Fatalf("expected A's feature to remain loaded despite B's critical failure")
	}
	if providerFor(bCritical, "NeedsMissing").Loaded {
		t.Fatalf("expected B's feature to fail to load")
	}
	stats := h.resolver.Stats()
	if stats.Critical < 1 {
		t.Fatalf("expected stats.critical >= 1, got %+v", stats)
	}
}

// Scenario 6: Fuzzy vs exact. G provides a wildcard-discriminator feature;
// S provides a specific-discriminator feature; U depends on the specific
// discriminator and must be satisfied by S even though G also matches.
func TestFuzzyVsExact(t *testing.T) {
	generic := feature.Descriptor{Kind: feature.Provide, Capability: "db", Params: map[string]string{"backend": feature.Wildcard}}
	specific := feature.Descriptor{Kind: feature.Provide, Capability: "db", Params: map[string]string{"backend": "postgres"}}
	want := feature.Descriptor{Kind: feature.Depends, Capability: "db", Params: map[string]string{"backend": "postgres"}}

	g := &registry.ModuleEntry{Name: "G", Module: module.NewStatic("G", feature.Block{generic}, nil, nil)}
	s := &registry.ModuleEntry{Name: "S", Module: module.NewStatic("S", feature.Block{specific}, nil, nil)}
	u := &registry.ModuleEntry{Name: "U", Module: module.NewStatic("U", feature.Block{
		{Kind: feature.Provide, Capability: "U"}, want,
	}, nil, nil)}

	h := buildHarness(t, g, s, u)

	// Exact-equals search must prefer S: verify the registry's loadable-equals
	// path finds S directly rather than relying on fuzzy matching alone.
	rf := h.reg.GetExactWhere(want, registry.Loadable)
	if rf == nil {
		t.Fatalf("expected an exact-equals registered feature to exist before resolution")
	}

	h.resolver.LoadFeatures(h.entries)

	if !providerFor(g, "db").Loaded {
		t.Fatalf("expected G (wildcard provider) to remain loaded")
	}
	if !providerFor(s, "db").Loaded {
		t.Fatalf("expected S (specific provider) to remain loaded")
	}
	if !providerFor(u, "U").Loaded {
		t.Fatalf("expected U to load, satisfied by the exact match S")
	}
}

func TestDependencyCycleDoesNotCorruptLoadingFlag(t *testing.T) {
	m := newModuleEntry("M", false, provide("P", dep(feature.Depends, "Q")))
	n := newModuleEntry("N", false, provide("Q", dep(feature.Depends, "P")))
	h := buildHarness(t, m, n)
	h.resolver.LoadFeatures(h.entries)

	for _, e := range h.entries {
		for _, p := range e.Providers {
			if p.Loading {
				t.Fatalf("loading flag must be cleared on every return path, left set on %s", p.Descriptor.Capability)
			}
		}
	}
}

func TestMultipleProvidersForOneDependencyAllLoad(t *testing.T) {
	pg := &registry.ModuleEntry{Name: "pg", Module: module.NewStatic("pg", feature.Block{
		{Kind: feature.Provide, Capability: "db", Params: map[string]string{"backend": "postgres"}},
	}, nil, nil)}
	mysql := &registry.ModuleEntry{Name: "mysql", Module: module.NewStatic("mysql", feature.Block{
		{Kind: feature.Provide, Capability: "db", Params: map[string]string{"backend": "mysql"}},
	}, nil, nil)}
	consumer := &registry.ModuleEntry{Name: "consumer", Module: module.NewStatic("consumer", feature.Block{
		{Kind: feature.Provide, Capability: "app"},
		{Kind: feature.Depends, Capability: "db", Params: map[string]string{"backend": feature.Wildcard}},
	}, nil, nil)}

	h := buildHarness(t, pg, mysql, consumer)
	h.resolver.LoadFeatures(h.entries)

	if !providerFor(pg, "db").Loaded || !providerFor(mysql, "db").Loaded {
		t.Fatalf("expected both concrete db providers to load for a fuzzy dependency")
	}
	if !providerFor(consumer, "app").Loaded {
		t.Fatalf("expected the consumer's app feature to load")
	}
}
