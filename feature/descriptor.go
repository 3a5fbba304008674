// Package feature defines the feature descriptor value type and its two
// predicates, equals and matches, used throughout the loader to identify
// what a module provides, depends on, or registers.
package feature

import (
	"hash/fnv"
	"sort"
)

// Kind tags a descriptor with one of the five roles a module's feature
// block can declare.
type Kind int

const (
	Provide Kind = iota
	Depends
	SDepend
	Register
	Callback
)

func (k Kind) String() string {
	switch k {
	case Provide:
		return "PROVIDE"
	case Depends:
		return "DEPENDS"
	case SDepend:
		return "SDEPEND"
	case Register:
		return "REGISTER"
	case Callback:
		return "CALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Wildcard is the distinguished parameter value that matches any concrete
// value on the other side of a Matches comparison.
const Wildcard = "*"

// Descriptor is one entry of a feature block: a kind tag plus an opaque
// payload identifying the capability. The payload schema is intentionally
// unpinned per capability — Capability names the capability, Params carries
// whatever discriminating fields that capability needs (an algorithm name,
// a key size, a backend tag, ...).
type Descriptor struct {
	Kind       Kind
	Capability string
	Params     map[string]string
}

// Equals reports whether a and b are fully specified and identical — both
// the capability name and every parameter match exactly, with no wildcard
// leniency. Equals is used for registry identity.
func Equals(a, b Descriptor) bool {
	if a.Capability != b.Capability {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for k, v := range a.Params {
		bv, ok := b.Params[k]
		if !ok || bv != v {
			return false
		}
	}
	return true
}

// Matches reports whether provider satisfies want, honoring a wildcard
// parameter value on either side. A parameter named on only one side is
// satisfied only if that side's value is the wildcard. Matches is reflexive and symmetric but
// not transitive: a wildcard composes only one step. Equals implies
// Matches. Matches is used for dependency satisfaction.
func Matches(provider, want Descriptor) bool {
	if provider.Capability != want.Capability {
		return false
	}
	for k, wv := range want.Params {
		pv, ok := provider.Params[k]
		if !ok {
			if wv == Wildcard {
				continue
			}
			return false
		}
		if pv == Wildcard || wv == Wildcard || pv == wv {
			continue
		}
		return false
	}
	for k, pv := range provider.Params {
		if _, ok := want.Params[k]; !ok && pv != Wildcard {
			return false
		}
	}
	return true
}

// Hash returns a value consistent with Equals: Equals(a, b) implies
// Hash(a) == Hash(b). It ignores Kind, matching Equals/Matches' treatment
// of the descriptor as a pure capability payload.
func Hash(d Descriptor) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(d.Capability))

	keys := make([]string, 0, len(d.Params))
	for k := range d.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(d.Params[k]))
	}
	return h.Sum64()
}
