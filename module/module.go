// Package module defines the module ABI (COMPONENT DESIGN §4.2, EXTERNAL
// INTERFACES §6) and its source variants: a statically linked set, a
// natively dynamically-loaded shared object, a subprocess speaking the
// net/rpc plugin protocol, and a yaegi-interpreted source file.
package module

import (
	"errors"
	"io"

	"github.com/GoCodeAlone/featureloader/feature"
)

// ErrNotFound means no constructor symbol was found and no fallback file
// was given — recoverable by trying the next Source.
var ErrNotFound = errors.New("module: not found")

// ErrFailed means construction itself failed: integrity check, open
// failure, a nil constructor result, or a malformed ABI. Fatal for that
// module.
var ErrFailed = errors.New("module: construction failed")

// Module is the live object a constructor yields. Name and Features answer
// the two read-only queries; Load/Unload are the feature callback ABI,
// invoked once per PROVIDE the module contributed; Destroy releases the
// module's own allocations. Modules without a meaningful Load/Unload can
// leave them as no-ops (see StaticModule).
type Module interface {
	Name() string
	Features() feature.Block
	Load(ctx *feature.Descriptor, provide feature.Descriptor) bool
	Unload(ctx *feature.Descriptor, provide feature.Descriptor)
	Destroy()
}

// Reloader is an optional capability a Module may implement to support the
// lifecycle controller's reload operation.
type Reloader interface {
	Reload() bool
}

// MetadataProvider is an optional capability exposing diagnostic key/value
// data (transport, protocol version, session correlation ID, ...)
// for status/enumerate output. Participates in no invariant.
type MetadataProvider interface {
	Metadata() map[string]string
}

// Source locates and constructs the module named name. path is the file
// (or executable, or source file) the search-path resolver found for name,
// or "" if none exists — sources that only work from an on-disk file
// return ErrNotFound when path is empty. The returned io.Closer, if
// non-nil, releases the library/process handle after Destroy has run.
type Source interface {
	Resolve(name, path string) (Module, io.Closer, error)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
