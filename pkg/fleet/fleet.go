// Package fleet manages a fleet of external MCP worker processes: the
// per-server connection lifecycle, the schema cache in front of tool
// discovery, and the tool invocation engine. The Fleet facade composes these
// behind a single API surface and re-broadcasts their events.
package fleet

import (
	"context"
	"log/slog"

	"github.com/txn2/mcp-fleet/pkg/events"
	"github.com/txn2/mcp-fleet/pkg/protocol"
	"github.com/txn2/mcp-fleet/pkg/registry"
	"github.com/txn2/mcp-fleet/pkg/worker"
)

// Fleet is the public API surface over the connection manager, schema cache,
// and invocation engine.
type Fleet struct {
	registry registry.Lookup
	manager  *Manager
	cache    *SchemaCache
	invoker  *invoker
	bus      *events.Bus
	log      *slog.Logger
}

// Option configures a Fleet.
type Option func(*options)

type options struct {
	dialer protocol.Dialer
	bus    *events.Bus
	log    *slog.Logger
}

// WithDialer overrides the connection dialer. The default launches worker
// subprocesses over stdio.
func WithDialer(d protocol.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithBus supplies an external event bus.
func WithBus(b *events.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithLogger sets the logger for all components.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New creates a Fleet over the given registry lookup.
func New(lookup registry.Lookup, opts ...Option) *Fleet {
	o := options{
		dialer: &protocol.StdioDialer{ClientName: "mcp-fleet"},
		bus:    events.NewBus(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	manager := NewManager(lookup, o.dialer, o.bus, o.log)
	cache := NewSchemaCache(manager)

	// Stale schemas must never survive a lost connection: every transition
	// into disconnected or error drops the server's cache entry.
	o.bus.Subscribe(events.Handlers{
		ConnectionStatusChanged: func(e events.ConnectionStatusChanged) {
			if e.Status == worker.StatusDisconnected || e.Status == worker.StatusError {
				cache.Invalidate(e.Server)
			}
		},
	})

	return &Fleet{
		registry: lookup,
		manager:  manager,
		cache:    cache,
		invoker:  &invoker{manager: manager, bus: o.bus, log: o.log},
		bus:      o.bus,
		log:      o.log,
	}
}

// Registry returns the lookup the fleet resolves configurations through.
func (f *Fleet) Registry() registry.Lookup {
	return f.registry
}

// Subscribe registers event handlers and returns an unsubscribe function.
func (f *Fleet) Subscribe(h events.Handlers) func() {
	return f.bus.Subscribe(h)
}

// Connect establishes a connection to the named server.
func (f *Fleet) Connect(ctx context.Context, name string) error {
	return f.manager.Connect(ctx, name)
}

// Disconnect tears down the named connection.
func (f *Fleet) Disconnect(ctx context.Context, name string) error {
	return f.manager.Disconnect(ctx, name)
}

// DisconnectAll tears down every tracked connection, isolating failures.
func (f *Fleet) DisconnectAll(ctx context.Context) {
	f.manager.DisconnectAll(ctx)
}

// AutoConnect dials every registered server whose config enables
// auto-connect. Attempts run concurrently and failures are isolated; the
// call returns once every attempt has settled.
func (f *Fleet) AutoConnect(ctx context.Context) {
	f.manager.ConnectAll(ctx, registry.ServerConfig.ShouldAutoConnect)
}

// ConnectAll dials every registered server regardless of its auto-connect
// setting.
func (f *Fleet) ConnectAll(ctx context.Context) {
	f.manager.ConnectAll(ctx, nil)
}

// Status returns the connection status for name. Unknown names report
// disconnected.
func (f *Fleet) Status(name string) worker.Status {
	return f.manager.Status(name)
}

// Connected returns the names of all currently connected servers, sorted.
func (f *Fleet) Connected() []string {
	return f.manager.Connected()
}

// ListTools returns the tool definitions exposed by the named server,
// served from the schema cache when populated.
func (f *Fleet) ListTools(ctx context.Context, name string) ([]worker.ToolDefinition, error) {
	return f.cache.ListTools(ctx, name)
}

// ToolSchema returns the definition of one tool on the named server.
func (f *Fleet) ToolSchema(ctx context.Context, name, tool string) (worker.ToolDefinition, bool, error) {
	return f.cache.ToolSchema(ctx, name, tool)
}

// InvalidateSchema drops the cached tool definitions for name without
// touching connection state.
func (f *Fleet) InvalidateSchema(name string) {
	f.cache.Invalidate(name)
}

// CallTool invokes a tool on the named server, delivering stream updates to
// onUpdate when supplied.
func (f *Fleet) CallTool(ctx context.Context, name, tool string, args map[string]any, onUpdate UpdateFunc) (*worker.ToolCallResult, error) {
	return f.invoker.CallTool(ctx, name, tool, args, onUpdate)
}

// Close disconnects every server.
func (f *Fleet) Close(ctx context.Context) {
	f.manager.DisconnectAll(ctx)
}
