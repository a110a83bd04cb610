package protocol

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-fleet/pkg/worker"
)

// ErrNoSession is returned when an operation is attempted on a connection
// whose handshake has not completed.
var ErrNoSession = errors.New("no active session")

// StdioDialer launches worker servers as child processes and speaks MCP
// over their stdin/stdout pipes.
type StdioDialer struct {
	// ClientName and ClientVersion identify this host in the handshake.
	// Empty values fall back to mcp-fleet defaults.
	ClientName    string
	ClientVersion string
}

// Start validates the launch spec and builds the command and client for the
// worker. The process itself is spawned during Handshake, when the transport
// is first connected.
func (d *StdioDialer) Start(ctx context.Context, spec Spec) (Conn, error) {
	if spec.Command == "" {
		return nil, errors.New("empty command")
	}
	if _, err := exec.LookPath(spec.Command); err != nil {
		return nil, fmt.Errorf("locating command %q: %w", spec.Command, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, version := d.ClientName, d.ClientVersion
	if name == "" {
		name = "mcp-fleet"
	}
	if version == "" {
		version = "dev"
	}

	return &stdioConn{
		cmd:    buildCommand(spec),
		client: mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, nil),
	}, nil
}

// buildCommand assembles the exec.Cmd for a launch spec. The child inherits
// the host environment with spec entries layered on top.
func buildCommand(spec Spec) *exec.Cmd {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), envSlice(spec.Env)...)
	}
	return cmd
}

// envSlice converts an env map to KEY=VALUE form.
func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// stdioConn is a single worker connection over a subprocess stdio transport.
type stdioConn struct {
	cmd     *exec.Cmd
	client  *mcp.Client
	session *mcp.ClientSession
}

func (c *stdioConn) Handshake(ctx context.Context) error {
	session, err := c.client.Connect(ctx, &mcp.CommandTransport{Command: c.cmd}, nil)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	c.session = session
	return nil
}

func (c *stdioConn) ListTools(ctx context.Context) ([]worker.ToolDefinition, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}

	var defs []worker.ToolDefinition
	cursor := ""
	for {
		result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("tools/list: %w", err)
		}
		for _, tool := range result.Tools {
			defs = append(defs, toolDefinition(tool))
		}
		if result.NextCursor == "" {
			return defs, nil
		}
		cursor = result.NextCursor
	}
}

func (c *stdioConn) CallTool(ctx context.Context, name string, args map[string]any) (*Envelope, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	return &Envelope{
		IsError: result.IsError,
		Content: contentBlocks(result.Content),
	}, nil
}

func (c *stdioConn) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

// toolDefinition converts an SDK tool descriptor.
func toolDefinition(tool *mcp.Tool) worker.ToolDefinition {
	def := worker.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
	}
	if tool.Annotations != nil {
		def.Memoizable = tool.Annotations.ReadOnlyHint && tool.Annotations.IdempotentHint
	}
	return def
}

// contentBlocks converts SDK content to the loose block representation.
// Content of a kind we do not model keeps only its discriminator so a
// misbehaving worker cannot fail the call.
func contentBlocks(content []mcp.Content) []worker.ContentBlock {
	blocks := make([]worker.ContentBlock, 0, len(content))
	for _, c := range content {
		switch tc := c.(type) {
		case *mcp.TextContent:
			blocks = append(blocks, worker.ContentBlock{Type: "text", Text: tc.Text})
		case *mcp.ImageContent:
			blocks = append(blocks, worker.ContentBlock{Type: "image", MIMEType: tc.MIMEType})
		case *mcp.AudioContent:
			blocks = append(blocks, worker.ContentBlock{Type: "audio", MIMEType: tc.MIMEType})
		case *mcp.EmbeddedResource:
			block := worker.ContentBlock{Type: "resource"}
			if tc.Resource != nil {
				block.Text = tc.Resource.Text
				block.MIMEType = tc.Resource.MIMEType
			}
			blocks = append(blocks, block)
		default:
			blocks = append(blocks, worker.ContentBlock{Type: "unknown"})
		}
	}
	return blocks
}
