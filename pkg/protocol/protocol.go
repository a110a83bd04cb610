// Package protocol defines the capability the connection core uses to talk
// to a worker server, and implements it over the official MCP Go SDK with a
// subprocess stdio transport. The core never touches the wire format; it
// only constructs connections, drives the handshake, and issues discovery
// and tool calls through the interfaces here.
package protocol

import (
	"context"

	"github.com/txn2/mcp-fleet/pkg/worker"
)

// Spec describes how to launch a worker server process.
type Spec struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
}

// Dialer constructs connections from launch specifications. Start may fail
// when the process cannot be launched; it does not perform the protocol
// handshake.
type Dialer interface {
	Start(ctx context.Context, spec Spec) (Conn, error)
}

// Conn is an opaque handle to one worker server. The connection manager owns
// handles exclusively; no other component mutates them.
type Conn interface {
	// Handshake performs the initial protocol exchange. The connection is
	// unusable until Handshake succeeds.
	Handshake(ctx context.Context) error

	// ListTools returns the server's tool descriptors in the order the
	// server reported them.
	ListTools(ctx context.Context) ([]worker.ToolDefinition, error)

	// CallTool invokes a named tool and returns the raw response envelope.
	CallTool(ctx context.Context, name string, args map[string]any) (*Envelope, error)

	// Close tears down the session and reaps the worker process.
	Close() error
}

// Envelope is the loosely-typed response of a tool call as received from the
// worker. Remote workers are not trusted to return a well-formed result, so
// unknown content shapes degrade to blocks with only a type, never an error.
type Envelope struct {
	IsError bool
	Content []worker.ContentBlock
}
