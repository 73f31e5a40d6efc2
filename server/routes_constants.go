package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 Routes
	RouteAuthorize = "/authorize"
	RouteToken     = "/token"
	RouteRegister  = "/register"

	// Discovery Routes
	RouteWellKnownAuthorizationServer = "/.well-known/oauth-authorization-server"
	RouteWellKnownProtectedResource   = "/.well-known/oauth-protected-resource"

	// Protocol Routes
	RouteStream   = "/sse"      // long-lived event stream
	RouteMessages = "/messages" // follow-up messages for a stream session
	RouteRPC      = "/mcp"      // single-shot request/response

	RouteHealth = "/health"
)

const (
	headerSessionID        = "Mcp-Session-Id"
	querySessionID         = "sessionId"
	headerAccept           = "Accept"
	headerCacheControl     = "Cache-Control"
	headerContentType      = "Content-Type"
	contentTypeJSON        = "application/json"
	contentTypeEventStream = "text/event-stream"
)
