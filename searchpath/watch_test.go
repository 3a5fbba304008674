package searchpath

import "testing"

func TestNameFromPathRecoversPluginName(t *testing.T) {
	r := &Resolver{pattern: DefaultPattern}
	name, ok := r.nameFromPath("/plugins/libstrongswan-gmp.so")
	if !ok {
		t.Fatalf("expected a match")
	}
	if name != "gmp" {
		t.Fatalf("expected %q, got %q", "gmp", name)
	}
}

func TestNameFromPathRejectsNonMatchingFile(t *testing.T) {
	r := &Resolver{pattern: DefaultPattern}
	if _, ok := r.nameFromPath("/plugins/README.md"); ok {
		t.Fatalf("expected no match for an unrelated file")
	}
}

func TestNameFromPathCustomPattern(t *testing.T) {
	r := &Resolver{pattern: "%s.module"}
	name, ok := r.nameFromPath("/plugins/worker.module")
	if !ok || name != "worker" {
		t.Fatalf("expected (%q, true), got (%q, %v)", "worker", name, ok)
	}
}
