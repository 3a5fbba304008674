package module

import (
	"fmt"
	"io"
	"net/rpc"
	"os/exec"

	goplugin "github.com/GoCodeAlone/go-plugin"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/google/uuid"

	"github.com/GoCodeAlone/featureloader/feature"
)

// Handshake is the shared handshake configuration between the loader and a
// subprocess module. Both sides must use identical values, mirroring the
// teacher's external-plugin handshake constants.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FEATURELOADER_PLUGIN",
	MagicCookieValue: "featureloader-v1",
}

// rpcPlugin bridges the Module ABI across go-plugin's classic net/rpc
// transport. Unlike the teacher's gRPC-based external plugin package, this
// avoids a generated protobuf stub: a standalone library has no build-time
// codegen step, so net/rpc's reflection-based dispatch is the better fit.
type rpcPlugin struct{ Impl Module }

func (p *rpcPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *rpcPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

// FeaturesReply wraps a feature.Block for net/rpc's gob codec.
type FeaturesReply struct{ Block feature.Block }

// CallbackArgs carries the feature callback ABI's context and PROVIDE
// descriptor across the process boundary.
type CallbackArgs struct {
	Context *feature.Descriptor
	Provide feature.Descriptor
}

type rpcServer struct{ impl Module }

func (s *rpcServer) Name(_ struct{}, reply *string) error {
	*reply = s.impl.Name()
	return nil
}

func (s *rpcServer) Features(_ struct{}, reply *FeaturesReply) error {
	reply.Block = s.impl.Features()
	return nil
}

func (s *rpcServer) Load(args CallbackArgs, reply *bool) error {
	*reply = s.impl.Load(args.Context, args.Provide)
	return nil
}

func (s *rpcServer) Unload(args CallbackArgs, _ *struct{}) error {
	s.impl.Unload(args.Context, args.Provide)
	return nil
}

// Reload delegates to the wrapped module's Reload if it implements the
// optional Reloader capability, otherwise it is a no-op reporting failure.
func (s *rpcServer) Reload(_ struct{}, reply *bool) error {
	if r, ok := s.impl.(Reloader); ok {
		*reply = r.Reload()
		return nil
	}
	*reply = false
	return nil
}

func (s *rpcServer) Destroy(_ struct{}, _ *struct{}) error {
	s.impl.Destroy()
	return nil
}

// rpcClient is the host-side Module implementation that delegates every
// call to the child process over net/rpc.
type rpcClient struct {
	client    *rpc.Client
	name      string
	sessionID string
}

func (c *rpcClient) Name() string {
	if c.name != "" {
		return c.name
	}
	var reply string
	if err := c.client.Call("Plugin.Name", struct{}{}, &reply); err == nil {
		c.name = reply
	}
	return c.name
}

func (c *rpcClient) Features() feature.Block {
	var reply FeaturesReply
	if err := c.client.Call("Plugin.Features", struct{}{}, &reply); err != nil {
		return nil
	}
	return reply.Block
}

func (c *rpcClient) Load(ctx *feature.Descriptor, provide feature.Descriptor) bool {
	var reply bool
	_ = c.client.Call("Plugin.Load", CallbackArgs{Context: ctx, Provide: provide}, &reply)
	return reply
}

func (c *rpcClient) Unload(ctx *feature.Descriptor, provide feature.Descriptor) {
	_ = c.client.Call("Plugin.Unload", CallbackArgs{Context: ctx, Provide: provide}, &struct{}{})
}

func (c *rpcClient) Destroy() {
	_ = c.client.Call("Plugin.Destroy", struct{}{}, &struct{}{})
}

// Reload implements the optional Reloader capability by forwarding the call
// across the process boundary.
func (c *rpcClient) Reload() bool {
	var reply bool
	_ = c.client.Call("Plugin.Reload", struct{}{}, &reply)
	return reply
}

// processHandle is the Module's library handle: killing the child process
// stands in for releasing a dynamic library handle.
type processHandle struct {
	client *goplugin.Client
}

func (h *processHandle) Close() error {
	h.client.Kill()
	return nil
}

// ProcessSource is the supplementary subprocess module variant: the module
// runs in a child process launched from a resolved executable, performing
// the go-plugin handshake and serving the Module ABI over net/rpc.
type ProcessSource struct {
	Logger hclog.Logger
}

func NewProcessSource(logger hclog.Logger) *ProcessSource {
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{Name: "featureloader", Level: hclog.Warn})
	}
	return &ProcessSource{Logger: logger}
}

func (s *ProcessSource) Resolve(name, path string) (Module, io.Closer, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	sessionID := uuid.NewString()
	logger := s.Logger.With("plugin", name, "session", sessionID)

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          map[string]goplugin.Plugin{"module": &rpcPlugin{}},
		Cmd:              exec.Command(path),
		Logger:           logger,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	protoClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrFailed, name, err)
	}

	raw, err := protoClient.Dispense("module")
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("%w: dispense %s: %v", ErrFailed, name, err)
	}

	mod, ok := raw.(*rpcClient)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("%w: %s has an unexpected ABI", ErrFailed, name)
	}
	mod.sessionID = sessionID

	return mod, &processHandle{client: client}, nil
}

// Metadata reports the subprocess's transport and correlation ID, for status
// output and cross-referencing the child process's own log lines (each
// tagged with the same session ID by ProcessSource.Resolve).
func (c *rpcClient) Metadata() map[string]string {
	return map[string]string{
		"transport":        "net/rpc",
		"protocol_version": "1",
		"session":          c.sessionID,
	}
}
