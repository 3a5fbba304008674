package module

import (
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"os"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/GoCodeAlone/featureloader/feature"
)

// AllowedImports is the sandbox allow-list for interpreted modules, a
// narrower cut of the teacher's dynamic.AllowedPackages restricted to what
// a feature's Load/Unload logic plausibly needs.
var AllowedImports = map[string]bool{
	"fmt":      true,
	"strings":  true,
	"strconv":  true,
	"errors":   true,
	"time":     true,
	"sort":     true,
	"context":  true,
	"math":     true,
	"sync":     true,
	"os":       false,
	"os/exec":  false,
	"syscall":  false,
	"unsafe":   false,
	"plugin":   false,
	"net":      false,
	"net/http": false,
}

// ValidateSource checks src's imports against AllowedImports without
// compiling it, mirroring the teacher's dynamic.ValidateSource use of
// go/parser's ImportsOnly mode.
func ValidateSource(src string) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrFailed, err)
	}
	for _, imp := range f.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if allowed, declared := AllowedImports[path]; !declared || !allowed {
			return fmt.Errorf("%w: import %q is not allowed in an interpreted module", ErrFailed, path)
		}
	}
	return nil
}

// interpretedModule adapts symbols extracted from a yaegi interpreter into
// the Module interface, following the teacher's safe-call-with-recover
// pattern for dynamic.DynamicComponent so a panicking interpreted callback
// cannot take the host process down with it.
type interpretedModule struct {
	name       string
	featuresFn func() []feature.Descriptor
	loadFn     func(*feature.Descriptor, feature.Descriptor) bool
	unloadFn   func(*feature.Descriptor, feature.Descriptor)
}

func (m *interpretedModule) Name() string { return m.name }

func (m *interpretedModule) Features() feature.Block {
	if m.featuresFn == nil {
		return nil
	}
	return feature.Block(m.safeFeatures())
}

func (m *interpretedModule) safeFeatures() (descs []feature.Descriptor) {
	defer func() {
		if r := recover(); r != nil {
			descs = nil
		}
	}()
	return m.featuresFn()
}

func (m *interpretedModule) Load(ctx *feature.Descriptor, provide feature.Descriptor) (ok bool) {
	if m.loadFn == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return m.loadFn(ctx, provide)
}

func (m *interpretedModule) Unload(ctx *feature.Descriptor, provide feature.Descriptor) {
	if m.unloadFn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	m.unloadFn(ctx, provide)
}

func (m *interpretedModule) Destroy() {}

// InterpretedSource evaluates a Go source file with a sandboxed yaegi
// interpreter instead of requiring a compiled shared object — a
// development/hot-reload variant supplementing the two module-source
// variants the loader mandates. The interpreted package must declare
// top-level functions Features() []feature.Descriptor, Load(*feature.Descriptor,
// feature.Descriptor) bool and Unload(*feature.Descriptor, feature.Descriptor);
// any of the three may be omitted.
type InterpretedSource struct{}

func NewInterpretedSource() *InterpretedSource { return &InterpretedSource{} }

func (s *InterpretedSource) Resolve(name, path string) (Module, io.Closer, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %v", ErrFailed, path, err)
	}
	if err := ValidateSource(string(src)); err != nil {
		return nil, nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	if _, err := i.Eval(string(src)); err != nil {
		return nil, nil, fmt.Errorf("%w: eval %s: %v", ErrFailed, path, err)
	}

	mod := &interpretedModule{name: name}
	mod.featuresFn, _ = lookupFunc[func() []feature.Descriptor](i, "Features")
	mod.loadFn, _ = lookupFunc[func(*feature.Descriptor, feature.Descriptor) bool](i, "Load")
	mod.unloadFn, _ = lookupFunc[func(*feature.Descriptor, feature.Descriptor)](i, "Unload")

	return mod, nopCloser{}, nil
}

// lookupFunc evaluates name in the interpreter's global scope and
// type-asserts it to T, returning ok=false (not an error) if the symbol is
// absent or of a different shape — matching the teacher's tolerant
// extractFunctions behavior.
func lookupFunc[T any](i *interp.Interpreter, name string) (T, bool) {
	var zero T
	v, err := i.Eval(name)
	if err != nil {
		return zero, false
	}
	fn, ok := v.Interface().(T)
	if !ok {
		return zero, false
	}
	return fn, true
}
