// Package events distributes connection and tool-call events to subscribers.
// Delivery is synchronous: an event is handed to every registered handler
// before the publishing operation continues, so subscribers observe every
// transition in order with nothing buffered or dropped.
package events

import (
	"sync"

	"github.com/txn2/mcp-fleet/pkg/worker"
)

// ConnectionStatusChanged reports a lifecycle transition for one server.
type ConnectionStatusChanged struct {
	Server string
	Status worker.Status

	// Err carries the failure that caused the transition, if any.
	Err error
}

// ToolCallStart is emitted before a tool call is issued.
type ToolCallStart struct {
	Server string
	Tool   string
	CallID string
	Args   map[string]any
}

// ToolCallUpdate carries one stream update of an in-flight tool call.
type ToolCallUpdate struct {
	Server string
	Tool   string
	CallID string
	Update worker.StreamUpdate
}

// ToolCallEnd is emitted once a tool call settles successfully.
type ToolCallEnd struct {
	Server string
	Tool   string
	CallID string
	Result worker.ToolCallResult
}

// Handlers bundles the callbacks a subscriber is interested in. Nil fields
// are skipped.
type Handlers struct {
	ConnectionStatusChanged func(ConnectionStatusChanged)
	ToolCallStart           func(ToolCallStart)
	ToolCallUpdate          func(ToolCallUpdate)
	ToolCallEnd             func(ToolCallEnd)
}

// Bus fans events out to registered subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]Handlers
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handlers)}
}

// Subscribe registers handlers and returns a function that removes them.
func (b *Bus) Subscribe(h Handlers) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// PublishStatus delivers a connection status event to all subscribers.
func (b *Bus) PublishStatus(e ConnectionStatusChanged) {
	for _, h := range b.snapshot() {
		if h.ConnectionStatusChanged != nil {
			h.ConnectionStatusChanged(e)
		}
	}
}

// PublishToolCallStart delivers a tool-call start event to all subscribers.
func (b *Bus) PublishToolCallStart(e ToolCallStart) {
	for _, h := range b.snapshot() {
		if h.ToolCallStart != nil {
			h.ToolCallStart(e)
		}
	}
}

// PublishToolCallUpdate delivers a stream update event to all subscribers.
func (b *Bus) PublishToolCallUpdate(e ToolCallUpdate) {
	for _, h := range b.snapshot() {
		if h.ToolCallUpdate != nil {
			h.ToolCallUpdate(e)
		}
	}
}

// PublishToolCallEnd delivers a tool-call end event to all subscribers.
func (b *Bus) PublishToolCallEnd(e ToolCallEnd) {
	for _, h := range b.snapshot() {
		if h.ToolCallEnd != nil {
			h.ToolCallEnd(e)
		}
	}
}

// snapshot copies the subscriber set so handlers run without holding the
// bus lock and may subscribe or unsubscribe reentrantly.
func (b *Bus) snapshot() []Handlers {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handlers, 0, len(b.subs))
	for _, h := range b.subs {
		out = append(out, h)
	}
	return out
}
