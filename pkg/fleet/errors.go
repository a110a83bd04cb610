package fleet

import (
	"errors"
	"fmt"

	"github.com/txn2/mcp-fleet/pkg/worker"
)

// Failure kind sentinels. Typed errors below match these through errors.Is,
// so callers can branch on the kind without losing the carried context.
var (
	// ErrServerNotFound means the name is unknown to the registry or has
	// never been connected.
	ErrServerNotFound = errors.New("server not found")

	// ErrNotConnected means the server is known but has no usable
	// connection right now.
	ErrNotConnected = errors.New("server not connected")

	// ErrProcessLaunch means the worker subprocess could not start.
	ErrProcessLaunch = errors.New("process launch failed")

	// ErrHandshake means protocol negotiation failed after launch.
	ErrHandshake = errors.New("handshake failed")

	// ErrToolCall means remote tool execution reported an error or the call
	// itself errored.
	ErrToolCall = errors.New("tool call failed")

	// ErrDiscovery means the remote tool listing failed.
	ErrDiscovery = errors.New("tool discovery failed")
)

// ServerNotFoundError reports an operation against an unknown server name.
type ServerNotFoundError struct {
	Server string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("server %q not found", e.Server)
}

func (e *ServerNotFoundError) Is(target error) bool {
	return target == ErrServerNotFound
}

// NotConnectedError reports an operation against a server that is known but
// not currently usable.
type NotConnectedError struct {
	Server string
	Status worker.Status
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("server %q not connected (status %s)", e.Server, e.Status)
}

func (e *NotConnectedError) Is(target error) bool {
	return target == ErrNotConnected
}

// LaunchError reports a worker subprocess that could not be started.
type LaunchError struct {
	Server string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching server %q: %v", e.Server, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool {
	return target == ErrProcessLaunch
}

// HandshakeError reports a failed protocol negotiation.
type HandshakeError struct {
	Server string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake with server %q: %v", e.Server, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func (e *HandshakeError) Is(target error) bool {
	return target == ErrHandshake
}

// ToolCallError reports a failed tool invocation. Message carries the
// server-reported error payload when the worker returned an error result;
// Err carries the transport cause when the call itself failed.
type ToolCallError struct {
	Server  string
	Tool    string
	Message string
	Err     error
}

func (e *ToolCallError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tool %q on server %q: %s", e.Tool, e.Server, e.Message)
	}
	return fmt.Sprintf("tool %q on server %q: %v", e.Tool, e.Server, e.Err)
}

func (e *ToolCallError) Unwrap() error { return e.Err }

func (e *ToolCallError) Is(target error) bool {
	return target == ErrToolCall
}

// DiscoveryError reports a failed remote tool listing.
type DiscoveryError struct {
	Server string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("listing tools on server %q: %v", e.Server, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool {
	return target == ErrDiscovery
}
