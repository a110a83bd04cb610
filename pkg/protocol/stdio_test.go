package protocol

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioDialer_StartRejectsEmptyCommand(t *testing.T) {
	d := &StdioDialer{}
	_, err := d.Start(context.Background(), Spec{})
	require.Error(t, err)
}

func TestStdioDialer_StartRejectsMissingBinary(t *testing.T) {
	d := &StdioDialer{}
	_, err := d.Start(context.Background(), Spec{Command: "mcp-fleet-no-such-binary"})
	require.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	cmd := buildCommand(Spec{
		Command: "echo",
		Args:    []string{"ok"},
		Env:     map[string]string{"WORKER_MODE": "test"},
		Dir:     "/tmp",
	})

	assert.Equal(t, []string{"ok"}, cmd.Args[1:])
	assert.Equal(t, "/tmp", cmd.Dir)
	assert.Contains(t, cmd.Env, "WORKER_MODE=test")
	assert.Greater(t, len(cmd.Env), 1, "spec env is layered over the host environment")
}

func TestBuildCommand_NoEnvInheritsHost(t *testing.T) {
	cmd := buildCommand(Spec{Command: "echo"})
	assert.Nil(t, cmd.Env, "nil Env means the child inherits the host environment")
}

func TestToolDefinition_AnnotationMapping(t *testing.T) {
	plain := toolDefinition(&mcp.Tool{Name: "t1", Description: "demo"})
	assert.Equal(t, "t1", plain.Name)
	assert.False(t, plain.Memoizable)

	memo := toolDefinition(&mcp.Tool{
		Name: "t2",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	})
	assert.True(t, memo.Memoizable)

	writes := toolDefinition(&mcp.Tool{
		Name:        "t3",
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	})
	assert.False(t, writes.Memoizable)
}

func TestContentBlocks(t *testing.T) {
	blocks := contentBlocks([]mcp.Content{
		&mcp.TextContent{Text: "hello"},
		&mcp.ImageContent{MIMEType: "image/png"},
		&mcp.AudioContent{MIMEType: "audio/wav"},
		&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{
			Text:     "embedded",
			MIMEType: "text/plain",
		}},
	})

	require.Len(t, blocks, 4)
	assert.Equal(t, "text", blocks[0].Type)
	assert.Equal(t, "hello", blocks[0].Text)
	assert.Equal(t, "image", blocks[1].Type)
	assert.Equal(t, "image/png", blocks[1].MIMEType)
	assert.Equal(t, "audio", blocks[2].Type)
	assert.Equal(t, "resource", blocks[3].Type)
	assert.Equal(t, "embedded", blocks[3].Text)
}

func TestContentBlocks_EmptyResource(t *testing.T) {
	blocks := contentBlocks([]mcp.Content{&mcp.EmbeddedResource{}})
	require.Len(t, blocks, 1)
	assert.Equal(t, "resource", blocks[0].Type)
	assert.Empty(t, blocks[0].Text)
}
