package fleet

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/txn2/mcp-fleet/pkg/events"
	"github.com/txn2/mcp-fleet/pkg/metrics"
	"github.com/txn2/mcp-fleet/pkg/protocol"
	"github.com/txn2/mcp-fleet/pkg/registry"
	"github.com/txn2/mcp-fleet/pkg/worker"
)

// conn is one entry of the live-connection table. The manager is the sole
// writer; readers obtain the protocol handle through resolve.
type conn struct {
	name   string
	config registry.ServerConfig
	status worker.Status
	link   protocol.Conn
}

// lastEmit records the most recent status event per server, used to suppress
// duplicate emissions. An event is a duplicate only when both the status and
// the error value match the previous one.
type lastEmit struct {
	status worker.Status
	err    error
}

// Manager owns the per-server connection state machine. It is the only
// component allowed to transition connection status, and the live-connection
// table is its exclusively-owned shared state.
type Manager struct {
	mu    sync.Mutex
	conns map[string]*conn
	seen  map[string]lastEmit

	lookup registry.Lookup
	dialer protocol.Dialer
	bus    *events.Bus
	log    *slog.Logger
}

// NewManager creates a lifecycle manager over the given registry lookup and
// dialer, publishing transitions on bus.
func NewManager(lookup registry.Lookup, dialer protocol.Dialer, bus *events.Bus, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		conns:  make(map[string]*conn),
		seen:   make(map[string]lastEmit),
		lookup: lookup,
		dialer: dialer,
		bus:    bus,
		log:    log,
	}
}

// Connect establishes a connection to the named server. A connect on a name
// that is already connecting or connected is a no-op. Leftover records in a
// terminal state are torn down first so the attempt starts clean. Failed
// attempts are not retained.
func (m *Manager) Connect(ctx context.Context, name string) error {
	m.mu.Lock()
	for {
		existing, ok := m.conns[name]
		if !ok {
			break
		}
		switch existing.status {
		case worker.StatusConnecting, worker.StatusConnected:
			m.mu.Unlock()
			m.log.Warn("connect ignored, already active",
				"server", name, "status", existing.status)
			return nil
		default:
			// Leftover record in a terminal state: tear it down before
			// re-entering connecting, then recheck the table.
			delete(m.conns, name)
			link := existing.link
			m.mu.Unlock()
			if link != nil {
				_ = link.Close()
			}
			m.mu.Lock()
		}
	}

	cfg, ok := m.lookup.Get(name)
	if !ok {
		m.mu.Unlock()
		err := &ServerNotFoundError{Server: name}
		m.emit(name, worker.StatusError, err)
		metrics.ConnectAttemptsTotal.WithLabelValues(name, metrics.OutcomeError).Inc()
		return err
	}

	c := &conn{name: name, config: cfg, status: worker.StatusConnecting}
	m.conns[name] = c
	m.mu.Unlock()
	m.emit(name, worker.StatusConnecting, nil)

	link, err := m.dialer.Start(ctx, protocol.Spec{
		Command: cfg.Command,
		Args:    cfg.Args,
		Env:     cfg.Env,
		Dir:     cfg.WorkingDir,
	})
	if err != nil {
		lerr := &LaunchError{Server: name, Err: err}
		m.removeIf(name, c)
		m.emit(name, worker.StatusError, lerr)
		metrics.ConnectAttemptsTotal.WithLabelValues(name, metrics.OutcomeError).Inc()
		return lerr
	}

	if err := link.Handshake(ctx); err != nil {
		_ = link.Close() // best effort
		herr := &HandshakeError{Server: name, Err: err}
		m.removeIf(name, c)
		m.emit(name, worker.StatusError, herr)
		metrics.ConnectAttemptsTotal.WithLabelValues(name, metrics.OutcomeError).Inc()
		return herr
	}

	m.mu.Lock()
	current, ok := m.conns[name]
	if !ok || current != c {
		// The record was torn down while the handshake was in flight.
		m.mu.Unlock()
		_ = link.Close()
		return &NotConnectedError{Server: name, Status: worker.StatusDisconnected}
	}
	c.status = worker.StatusConnected
	c.link = link
	m.mu.Unlock()

	m.emit(name, worker.StatusConnected, nil)
	metrics.ConnectAttemptsTotal.WithLabelValues(name, metrics.OutcomeOK).Inc()
	metrics.ConnectionsActive.Inc()
	return nil
}

// Disconnect tears down the named connection. Disconnecting an unknown name
// is a no-op that emits nothing. A close failure is reported through the
// status event and returned, but the record is removed regardless.
func (m *Manager) Disconnect(_ context.Context, name string) error {
	m.mu.Lock()
	c, ok := m.conns[name]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	wasConnected := c.status == worker.StatusConnected
	link := c.link
	delete(m.conns, name)
	m.mu.Unlock()

	if wasConnected {
		metrics.ConnectionsActive.Dec()
	}

	if link != nil {
		if err := link.Close(); err != nil {
			m.emit(name, worker.StatusError, err)
			return err
		}
	}
	m.emit(name, worker.StatusDisconnected, nil)
	return nil
}

// DisconnectAll tears down every tracked connection. Disconnects run
// independently; one server's failure is logged and never aborts the others.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.mu.Lock()
	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := m.Disconnect(ctx, name); err != nil {
				m.log.Error("disconnect failed", "server", name, "error", err)
			}
		}(name)
	}
	wg.Wait()
}

// ConnectAll dials every server the filter accepts, concurrently. Individual
// failures are logged and isolated; the call returns once every attempt has
// settled.
func (m *Manager) ConnectAll(ctx context.Context, filter func(registry.ServerConfig) bool) {
	var wg sync.WaitGroup
	for name, cfg := range m.lookup.All() {
		if filter != nil && !filter(cfg) {
			continue
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := m.Connect(ctx, name); err != nil {
				m.log.Error("connect failed", "server", name, "error", err)
			}
		}(name)
	}
	wg.Wait()
}

// Status returns the connection status for name. Unknown names report
// disconnected; absence and disconnection are observably equivalent.
func (m *Manager) Status(name string) worker.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.conns[name]; ok {
		return c.status
	}
	return worker.StatusDisconnected
}

// Connected returns the names of all currently connected servers, sorted.
func (m *Manager) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.conns))
	for name, c := range m.conns {
		if c.status == worker.StatusConnected {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// resolve returns the live protocol handle for name. An absent record fails
// with ServerNotFound; a record without a usable handle fails with
// NotConnected.
func (m *Manager) resolve(name string) (protocol.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conns[name]
	if !ok {
		return nil, &ServerNotFoundError{Server: name}
	}
	if c.link == nil || c.status != worker.StatusConnected {
		return nil, &NotConnectedError{Server: name, Status: c.status}
	}
	return c.link, nil
}

// removeIf drops the table entry for name if it is still the given record,
// leaving any record installed by a newer attempt untouched.
func (m *Manager) removeIf(name string, c *conn) {
	m.mu.Lock()
	if current, ok := m.conns[name]; ok && current == c {
		delete(m.conns, name)
	}
	m.mu.Unlock()
}

// emit publishes a status transition, suppressing an event whose status and
// error both equal the previously emitted pair. Publication happens outside
// the table lock so subscribers may call back into the manager.
func (m *Manager) emit(name string, status worker.Status, err error) {
	m.mu.Lock()
	prev, seen := m.seen[name]
	if seen && prev.status == status && prev.err == err {
		m.mu.Unlock()
		return
	}
	m.seen[name] = lastEmit{status: status, err: err}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.PublishStatus(events.ConnectionStatusChanged{
			Server: name,
			Status: status,
			Err:    err,
		})
	}
}
