// Package worker provides shared types describing worker servers, their
// tools, and tool-call results. This package has zero internal dependencies
// to avoid import cycles between the connection core, the event bus, and the
// protocol layer that all exchange these values.
package worker

// Status describes the connection state of a worker server.
type Status string

const (
	// StatusConnecting means a connection attempt is in flight.
	StatusConnecting Status = "connecting"

	// StatusConnected means the server completed its handshake and is usable.
	StatusConnected Status = "connected"

	// StatusDisconnected means the server is not connected. Unknown server
	// names report this status as well.
	StatusDisconnected Status = "disconnected"

	// StatusError means the last lifecycle operation on the server failed.
	StatusError Status = "error"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ToolDefinition describes a single tool exposed by a worker server.
// Definitions are immutable once fetched; they are refreshed only by a full
// re-discovery against the server.
type ToolDefinition struct {
	Name        string
	Description string

	// InputSchema is the tool's argument schema, carried opaquely. The
	// manager performs no validation against it.
	InputSchema any

	// Memoizable reports whether the tool declares itself side-effect free,
	// making its results safe to cache by callers.
	Memoizable bool
}

// ContentBlock is one entry of a tool result's content sequence.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// ToolCallResult is the normalized outcome of a tool invocation.
// Success is always the negation of IsError.
type ToolCallResult struct {
	Success bool           `json:"success"`
	IsError bool           `json:"isError"`
	Content []ContentBlock `json:"content,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// UpdateKind tags a StreamUpdate.
type UpdateKind string

const (
	UpdateToolStart UpdateKind = "tool_start"
	UpdateToolEnd   UpdateKind = "tool_end"
	UpdateText      UpdateKind = "text"
	UpdateError     UpdateKind = "error"
	UpdateUsage     UpdateKind = "usage"
	UpdateMetadata  UpdateKind = "metadata"
)

// StreamUpdate is an incremental progress notification delivered during a
// tool call. At most one update per call carries IsFinal, and it is always
// the last one delivered.
type StreamUpdate struct {
	Kind    UpdateKind
	Content any
	IsFinal bool
}
