package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jrsteele09/go-mcp-auth/auth"
	"github.com/jrsteele09/go-mcp-auth/clients"
	"github.com/jrsteele09/go-mcp-auth/clients/inmemory"
	"github.com/jrsteele09/go-mcp-auth/gate"
	"github.com/jrsteele09/go-mcp-auth/internal/config"
	"github.com/jrsteele09/go-mcp-auth/internal/sweeper"
	"github.com/jrsteele09/go-mcp-auth/protocol"
	"github.com/jrsteele09/go-mcp-auth/sessions"
	"github.com/jrsteele09/go-mcp-auth/token"
	"github.com/jrsteele09/go-mcp-auth/token/refresh"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

const (
	defaultPingInterval = 25 * time.Second
	serverVersion       = "1.0.0"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	handler http.HandlerFunc
	routes  []string
	config  config.Config
	baseURL string

	clients       *clients.Registry
	auth          *auth.AuthorizationService
	codes         *auth.CodeStore
	tokens        *token.Manager
	refreshTokens *refresh.Manager
	gate          *gate.Gate
	sessions      *sessions.Registry
	sweeper       *sweeper.Sweeper

	mcp *mcpserver.MCPServer
	sse *mcpserver.SSEServer
	rpc *mcpserver.StreamableHTTPServer

	protocolOptions []protocol.Option
	pingInterval    time.Duration
	nowTime         func() time.Time
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithNowTime sets the clock shared by every store (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithProtocolOptions configures the MCP server behind the transports,
// for example to register additional tools.
func WithProtocolOptions(opts ...protocol.Option) Option {
	return func(s *Server) {
		s.protocolOptions = append(s.protocolOptions, opts...)
	}
}

// WithPingInterval sets how often open event streams receive a keep-alive ping.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		s.pingInterval = d
	}
}

func New(cfg config.Config, options ...Option) (*Server, error) {
	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		baseURL:      cfg.GetBaseURL(),
		pingInterval: defaultPingInterval,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.clients = clients.NewRegistry(inmemory.New(), clients.WithNowTime(s.nowTime))
	s.codes = auth.NewCodeStore(cfg, auth.WithCodeNowFunc(s.nowTime))
	s.tokens = token.New(
		token.WithNowFunc(s.nowTime),
		token.WithTokenExpiry(cfg.GetDefaultAccessTokenExpiry()),
		token.WithTokenLength(cfg.GetAccessTokenLength()),
	)
	s.refreshTokens = refresh.NewManager(cfg, refresh.WithNowFunc(s.nowTime))

	authService, err := auth.NewAuthorizationService(auth.Deps{
		Clients:       s.clients,
		Codes:         s.codes,
		Tokens:        s.tokens,
		RefreshTokens: s.refreshTokens,
	}, cfg, auth.WithNowTime(s.nowTime), auth.WithRequirePKCE(cfg.GetRequirePKCE()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization service: %w", err)
	}
	s.auth = authService

	s.gate = gate.New(s.tokens,
		gate.WithStaticSecret(cfg.GetStaticSecret()),
		gate.WithStaticSecretScope(cfg.GetDefaultScope()),
		gate.WithStaticSecretExpiry(cfg.GetStaticSecretIdentityExpiry()),
		gate.WithResourceMetadataURL(s.baseURL+RouteWellKnownProtectedResource),
		gate.WithNowFunc(s.nowTime),
	)
	s.sessions = sessions.NewRegistry(
		sessions.WithMaxAge(cfg.GetMaxSessionAge()),
		sessions.WithNowFunc(s.nowTime),
	)

	s.initProtocol(cfg)

	s.sweeper = sweeper.New(cfg.GetSweepInterval())
	s.sweeper.Register("sessions", s.sessions.Sweep)
	s.sweeper.Register("access_tokens", s.tokens.Sweep)
	s.sweeper.Register("refresh_tokens", s.refreshTokens.Sweep)
	s.sweeper.Register("authorization_codes", s.codes.Sweep)

	if err := s.bootstrapClients(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] failed to bootstrap clients: %w", err)
	}

	s.initRoutes()
	s.handler = ChainMiddleware(s.mux.ServeHTTP, s.RecoverMiddleware, s.LoggingMiddleware, s.CorsMiddleware)
	s.logRoutes()

	if !s.gate.Enforced() {
		log.Warn().Msg("no static secret configured: protocol endpoints accept unauthenticated requests")
	}
	return s, nil
}

// initProtocol builds the MCP server and the two transports in front of it.
// Stream sessions of the SSE server are mirrored into the session registry
// through the register/unregister hooks.
func (s *Server) initProtocol(cfg config.Config) {
	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(s.openStreamSession)
	hooks.AddOnUnregisterSession(s.closeStreamSession)

	protocolOptions := append(slices.Clone(s.protocolOptions), protocol.WithHooks(hooks))
	s.mcp = protocol.New(protocol.Info{Name: cfg.GetAppName(), Version: serverVersion}, protocolOptions...)

	s.sse = mcpserver.NewSSEServer(s.mcp,
		mcpserver.WithBaseURL(s.baseURL),
		mcpserver.WithSSEEndpoint(RouteStream),
		mcpserver.WithMessageEndpoint(RouteMessages),
		mcpserver.WithKeepAlive(true),
		mcpserver.WithKeepAliveInterval(s.pingInterval),
	)
	s.rpc = mcpserver.NewStreamableHTTPServer(s.mcp,
		mcpserver.WithStateLess(true),
	)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler(w, r)
}

// Sweeper returns the expiry sweeper covering every store of the server.
// The caller owns its lifecycle.
func (s *Server) Sweeper() *sweeper.Sweeper {
	return s.sweeper
}

// Clients returns the client registry.
func (s *Server) Clients() *clients.Registry {
	return s.clients
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
