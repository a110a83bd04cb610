package fleet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/mcp-fleet/pkg/events"
	"github.com/txn2/mcp-fleet/pkg/metrics"
	"github.com/txn2/mcp-fleet/pkg/protocol"
	"github.com/txn2/mcp-fleet/pkg/worker"
)

// UpdateFunc receives stream updates for one tool call.
type UpdateFunc func(worker.StreamUpdate)

// invoker issues tool calls against established connections and normalizes
// their results. It never writes to the connection table.
type invoker struct {
	manager *Manager
	bus     *events.Bus
	log     *slog.Logger
}

// CallTool invokes a named tool on a server. A tool_start update always
// precedes the call, and exactly one final update follows it after the call
// settles: tool_end carrying the normalized result on success, error
// carrying the failure message otherwise. A worker result flagged IsError
// yields both the normalized result and a ToolCallError.
func (v *invoker) CallTool(ctx context.Context, server, tool string, args map[string]any, onUpdate UpdateFunc) (*worker.ToolCallResult, error) {
	if args == nil {
		args = make(map[string]any)
	}
	callID := uuid.NewString()

	v.deliver(server, tool, callID, onUpdate, worker.StreamUpdate{
		Kind:    worker.UpdateToolStart,
		Content: map[string]any{"tool": tool, "server": server},
	})
	if v.bus != nil {
		v.bus.PublishToolCallStart(events.ToolCallStart{
			Server: server, Tool: tool, CallID: callID, Args: args,
		})
	}

	result, err := v.call(ctx, server, tool, args)
	if err != nil {
		v.deliver(server, tool, callID, onUpdate, worker.StreamUpdate{
			Kind:    worker.UpdateError,
			Content: err.Error(),
			IsFinal: true,
		})
		metrics.ToolCallsTotal.WithLabelValues(server, metrics.OutcomeError).Inc()
		return result, err
	}

	v.deliver(server, tool, callID, onUpdate, worker.StreamUpdate{
		Kind:    worker.UpdateToolEnd,
		Content: *result,
		IsFinal: true,
	})
	if v.bus != nil {
		v.bus.PublishToolCallEnd(events.ToolCallEnd{
			Server: server, Tool: tool, CallID: callID, Result: *result,
		})
	}
	metrics.ToolCallsTotal.WithLabelValues(server, metrics.OutcomeOK).Inc()
	return result, nil
}

// call resolves the connection, performs the remote invocation, and applies
// result normalization. Transport failures that are not already a recognized
// failure kind are wrapped into a ToolCallError; recognized failures pass
// through unchanged.
func (v *invoker) call(ctx context.Context, server, tool string, args map[string]any) (*worker.ToolCallResult, error) {
	link, err := v.manager.resolve(server)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	envelope, err := link.CallTool(ctx, tool, args)
	metrics.ToolCallDuration.WithLabelValues(server).Observe(time.Since(start).Seconds())
	if err != nil {
		if recognized(err) {
			return nil, err
		}
		return nil, &ToolCallError{Server: server, Tool: tool, Err: err}
	}

	result := normalize(envelope)
	if result.IsError {
		// The worker produced a result but flagged it as an error. Callers
		// get both the normalized result and the failure.
		return result, &ToolCallError{Server: server, Tool: tool, Message: result.Error}
	}
	return result, nil
}

// deliver hands an update to the per-call callback and the bus.
func (v *invoker) deliver(server, tool, callID string, onUpdate UpdateFunc, update worker.StreamUpdate) {
	if onUpdate != nil {
		onUpdate(update)
	}
	if v.bus != nil {
		v.bus.PublishToolCallUpdate(events.ToolCallUpdate{
			Server: server, Tool: tool, CallID: callID, Update: update,
		})
	}
}

// normalize converts a raw response envelope into a ToolCallResult. The
// worker is not trusted to return a well-formed envelope: a nil envelope or
// missing fields degrade to zero values rather than failing the call.
func normalize(envelope *protocol.Envelope) *worker.ToolCallResult {
	result := &worker.ToolCallResult{Success: true}
	if envelope == nil {
		return result
	}

	result.IsError = envelope.IsError
	result.Success = !envelope.IsError
	if len(envelope.Content) > 0 {
		result.Content = make([]worker.ContentBlock, len(envelope.Content))
		copy(result.Content, envelope.Content)
	}
	if envelope.IsError {
		result.Error = errorText(envelope.Content)
	}
	return result
}

// errorText joins the text content of an error envelope into a message.
func errorText(blocks []worker.ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "\n")
}

// recognized reports whether err already carries one of the fleet failure
// kinds, so it is never double-wrapped.
func recognized(err error) bool {
	return errors.Is(err, ErrServerNotFound) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrProcessLaunch) ||
		errors.Is(err, ErrHandshake) ||
		errors.Is(err, ErrToolCall) ||
		errors.Is(err, ErrDiscovery)
}
