package server

import (
	"fmt"

	"github.com/jrsteele09/go-mcp-auth/clients"
	"github.com/jrsteele09/go-mcp-auth/internal/config"
)

// bootstrapClients registers the first-party public client so the server is
// usable before any dynamic registration.
func (s *Server) bootstrapClients(cfg config.EnvConfig) error {
	clientID := cfg.GetBootstrapClientID()
	if clientID == "" {
		return nil
	}
	_, err := s.clients.Register(clients.RegisterParams{
		ClientID:     clientID,
		Name:         cfg.GetAppName(),
		RedirectURIs: cfg.GetBootstrapRedirectURIs(),
	})
	if err != nil {
		return fmt.Errorf("[bootstrapClients] %w", err)
	}
	return nil
}
