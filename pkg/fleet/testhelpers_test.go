package fleet

import (
	"context"
	"sync"

	"github.com/txn2/mcp-fleet/pkg/events"
	"github.com/txn2/mcp-fleet/pkg/protocol"
	"github.com/txn2/mcp-fleet/pkg/registry"
	"github.com/txn2/mcp-fleet/pkg/worker"
)

// fakeConn is a scriptable protocol.Conn for tests.
type fakeConn struct {
	mu sync.Mutex

	// handshakeGate, when non-nil, blocks Handshake until the channel is
	// closed, letting tests hold a server in the connecting state.
	handshakeGate chan struct{}
	handshakeErr  error

	tools     []worker.ToolDefinition
	listErr   error
	listCalls int

	envelope  *protocol.Envelope
	callErr   error
	callCalls int
	lastTool  string
	lastArgs  map[string]any

	closeErr error
	closed   bool
}

func (c *fakeConn) Handshake(ctx context.Context) error {
	c.mu.Lock()
	gate := c.handshakeGate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.handshakeErr
}

func (c *fakeConn) ListTools(_ context.Context) ([]worker.ToolDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.tools, nil
}

func (c *fakeConn) CallTool(_ context.Context, name string, args map[string]any) (*protocol.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callCalls++
	c.lastTool = name
	c.lastArgs = args
	if c.callErr != nil {
		return nil, c.callErr
	}
	return c.envelope, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) listCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

func (c *fakeConn) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out fakeConns keyed by launch command.
type fakeDialer struct {
	mu         sync.Mutex
	conns      map[string]*fakeConn
	startErr   error
	startCalls int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(map[string]*fakeConn)}
}

func (d *fakeDialer) Start(_ context.Context, spec protocol.Spec) (protocol.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.startCalls++
	if d.startErr != nil {
		return nil, d.startErr
	}
	c, ok := d.conns[spec.Command]
	if !ok {
		c = &fakeConn{}
		d.conns[spec.Command] = c
	}
	return c, nil
}

func (d *fakeDialer) startCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startCalls
}

// conn registers (or returns) the fake connection for a command.
func (d *fakeDialer) conn(command string) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.conns[command]
	if !ok {
		c = &fakeConn{}
		d.conns[command] = c
	}
	return c
}

// statusRecorder collects connection status events.
type statusRecorder struct {
	mu     sync.Mutex
	events []events.ConnectionStatusChanged
}

func (r *statusRecorder) handlers() events.Handlers {
	return events.Handlers{
		ConnectionStatusChanged: func(e events.ConnectionStatusChanged) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		},
	}
}

func (r *statusRecorder) all() []events.ConnectionStatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.ConnectionStatusChanged, len(r.events))
	copy(out, r.events)
	return out
}

func (r *statusRecorder) statuses(server string) []worker.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []worker.Status
	for _, e := range r.events {
		if e.Server == server {
			out = append(out, e.Status)
		}
	}
	return out
}

// newTestFleet wires a Fleet over a fake dialer with one registered server
// per entry of servers (name -> command).
func newTestFleet(servers map[string]string) (*Fleet, *fakeDialer, *statusRecorder) {
	store := registry.NewStore()
	for name, command := range servers {
		_ = store.Set(name, registry.ServerConfig{Command: command})
	}

	dialer := newFakeDialer()
	rec := &statusRecorder{}
	f := New(store, WithDialer(dialer))
	f.Subscribe(rec.handlers())
	return f, dialer, rec
}
