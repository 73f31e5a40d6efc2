package protocol_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-mcp-auth/gate"
	"github.com/jrsteele09/go-mcp-auth/protocol"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

var testInfo = protocol.Info{Name: "test", Version: "0.0.1"}

type rpcResponse struct {
	ID     int `json:"id"`
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	} `json:"result"`
}

func call(t *testing.T, ctx context.Context, h *server.MCPServer, msg string) rpcResponse {
	t.Helper()
	resp := h.HandleMessage(ctx, json.RawMessage(msg))
	require.NotNil(t, resp)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out rpcResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestInitializeReportsServerInfo(t *testing.T) {
	h := protocol.New(testInfo)
	out := call(t, context.Background(), h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`)
	require.Equal(t, 1, out.ID)
	require.Equal(t, "test", out.Result.ServerInfo.Name)
}

func TestToolsListIncludesWhoAmIAndExtraTools(t *testing.T) {
	extra := protocol.WithTool(mcp.NewTool("echo", mcp.WithDescription("echo")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("echo"), nil
		})
	h := protocol.New(testInfo, extra)

	out := call(t, context.Background(), h, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	var names []string
	for _, tool := range out.Result.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"whoami", "echo"}, names)
}

func TestWhoAmIReportsIdentityFromContext(t *testing.T) {
	h := protocol.New(testInfo)
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := gate.NewContext(context.Background(), gate.Identity{
		Kind:      gate.CredentialAccessToken,
		ClientID:  "c1",
		Scope:     "read",
		ExpiresAt: expires,
	})

	out := call(t, ctx, h, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"whoami","arguments":{}}}`)
	require.Len(t, out.Result.Content, 1)
	require.JSONEq(t, `{"credential":"access_token","client_id":"c1","scope":"read","expires_at":"2026-01-01T00:00:00Z"}`, out.Result.Content[0].Text)
}

func TestWhoAmIWithoutIdentityIsAnonymous(t *testing.T) {
	h := protocol.New(testInfo)
	out := call(t, context.Background(), h, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"whoami","arguments":{}}}`)
	require.Len(t, out.Result.Content, 1)
	require.JSONEq(t, `{"credential":"anonymous"}`, out.Result.Content[0].Text)
}

func TestNotificationHasNoResponse(t *testing.T) {
	h := protocol.New(testInfo)
	require.Nil(t, h.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
}

type fakeSession struct {
	id            string
	notifications chan mcp.JSONRPCNotification
}

func (f *fakeSession) Initialize()       {}
func (f *fakeSession) Initialized() bool { return true }
func (f *fakeSession) SessionID() string { return f.id }
func (f *fakeSession) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return f.notifications
}

func TestHooksSeeSessionLifecycle(t *testing.T) {
	var registered, unregistered []string
	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(func(_ context.Context, s server.ClientSession) {
		registered = append(registered, s.SessionID())
	})
	hooks.AddOnUnregisterSession(func(_ context.Context, s server.ClientSession) {
		unregistered = append(unregistered, s.SessionID())
	})
	h := protocol.New(testInfo, protocol.WithHooks(hooks))

	session := &fakeSession{id: "s1", notifications: make(chan mcp.JSONRPCNotification, 1)}
	require.NoError(t, h.RegisterSession(context.Background(), session))
	h.UnregisterSession(context.Background(), "s1")

	require.Equal(t, []string{"s1"}, registered)
	require.Equal(t, []string{"s1"}, unregistered)
}
