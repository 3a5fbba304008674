package module

import (
	"errors"
	"testing"
)

func TestHandshakeConfigIsStable(t *testing.T) {
	if Handshake.MagicCookieKey != "FEATURELOADER_PLUGIN" {
		t.Fatalf("unexpected magic cookie key %q", Handshake.MagicCookieKey)
	}
	if Handshake.MagicCookieValue != "featureloader-v1" {
		t.Fatalf("unexpected magic cookie value %q", Handshake.MagicCookieValue)
	}
	if Handshake.ProtocolVersion != 1 {
		t.Fatalf("unexpected protocol version %d", Handshake.ProtocolVersion)
	}
}

func TestRpcClientMetadataReportsTransport(t *testing.T) {
	c := &rpcClient{name: "remote"}
	meta := c.Metadata()
	if meta["transport"] != "net/rpc" {
		t.Fatalf("expected transport net/rpc, got %q", meta["transport"])
	}
}

func TestRpcClientNameCachesAfterFirstLookup(t *testing.T) {
	c := &rpcClient{name: "cached"}
	if got := c.Name(); got != "cached" {
		t.Fatalf("expected a pre-set name to short-circuit the RPC call, got %q", got)
	}
}

func TestProcessSourceRequiresPath(t *testing.T) {
	s := NewProcessSource(nil)
	_, _, err := s.Resolve("worker", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when no executable path is available, got %v", err)
	}
}
