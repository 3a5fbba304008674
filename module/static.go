package module

import (
	"io"

	"github.com/GoCodeAlone/featureloader/feature"
)

// StaticModule wraps a borrowed feature-descriptor array under a name, per
// COMPONENT DESIGN §4.2's static-set variant. Its Destroy releases only its
// own allocations — there is nothing else to release.
type StaticModule struct {
	name     string
	features feature.Block
	loadFn   func(ctx *feature.Descriptor, provide feature.Descriptor) bool
	unloadFn func(ctx *feature.Descriptor, provide feature.Descriptor)
}

// NewStatic builds a StaticModule. load/unload may be nil, in which case
// every feature loads unconditionally and unload is a no-op — the common
// case for add_static_features callers that only want their descriptors
// registered, not driven through a real callback.
func NewStatic(name string, features feature.Block, load func(ctx *feature.Descriptor, provide feature.Descriptor) bool, unload func(ctx *feature.Descriptor, provide feature.Descriptor)) *StaticModule {
	return &StaticModule{name: name, features: features, loadFn: load, unloadFn: unload}
}

func (m *StaticModule) Name() string            { return m.name }
func (m *StaticModule) Features() feature.Block { return m.features }

func (m *StaticModule) Load(ctx *feature.Descriptor, provide feature.Descriptor) bool {
	if m.loadFn == nil {
		return true
	}
	return m.loadFn(ctx, provide)
}

func (m *StaticModule) Unload(ctx *feature.Descriptor, provide feature.Descriptor) {
	if m.unloadFn != nil {
		m.unloadFn(ctx, provide)
	}
}

func (m *StaticModule) Destroy() {}

// StaticSource resolves names against a fixed, pre-registered set of
// StaticModules. It never consults path.
type StaticSource struct {
	modules map[string]*StaticModule
}

func NewStaticSource() *StaticSource {
	return &StaticSource{modules: make(map[string]*StaticModule)}
}

// Add registers m so a later Resolve(m.Name(), ...) returns it.
func (s *StaticSource) Add(m *StaticModule) {
	s.modules[m.name] = m
}

func (s *StaticSource) Resolve(name, _ string) (Module, io.Closer, error) {
	m, ok := s.modules[name]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return m, nopCloser{}, nil
}
