// Package integrity provides the optional integrity collaborator of
// EXTERNAL INTERFACES §6: checks run before a native module's shared
// object is opened and before its constructor symbol is invoked.
package integrity

// Checker is the integrity collaborator. Any false return causes
// construction of that module to fail. A nil Checker means no integrity
// verification is performed — the same as the source's optional collaborator
// being absent.
type Checker interface {
	CheckFile(name, path string) bool
	CheckSegment(name, symbol string) bool
}
