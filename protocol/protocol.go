// Package protocol builds the MCP server that the HTTP transports front.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-mcp-auth/gate"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Info names the server in the MCP initialize handshake.
type Info struct {
	Name    string
	Version string
}

type tool struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

type options struct {
	tools []tool
	hooks *server.Hooks
}

type Option func(*options)

// WithTool registers an additional tool.
func WithTool(t mcp.Tool, handler server.ToolHandlerFunc) Option {
	return func(o *options) {
		o.tools = append(o.tools, tool{tool: t, handler: handler})
	}
}

// WithHooks attaches session lifecycle hooks to the server.
func WithHooks(hooks *server.Hooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// New builds an MCP server with the whoami tool and any tools given as options.
func New(info Info, opts ...Option) *server.MCPServer {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	serverOptions := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if o.hooks != nil {
		serverOptions = append(serverOptions, server.WithHooks(o.hooks))
	}
	s := server.NewMCPServer(info.Name, info.Version, serverOptions...)

	s.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Report the credential the caller authenticated with"),
	), handleWhoAmI)

	for _, t := range o.tools {
		s.AddTool(t.tool, t.handler)
	}
	return s
}

type whoAmI struct {
	Credential string     `json:"credential"`
	ClientID   string     `json:"client_id,omitempty"`
	Scope      string     `json:"scope,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func handleWhoAmI(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := gate.FromContext(ctx)
	if !ok {
		id = gate.Identity{Kind: gate.CredentialAnonymous}
	}

	resp := whoAmI{
		Credential: id.Kind.String(),
		ClientID:   id.ClientID,
		Scope:      id.Scope,
	}
	if !id.ExpiresAt.IsZero() {
		resp.ExpiresAt = &id.ExpiresAt
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal identity: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
