package clients

import (
	"fmt"
	"slices"
	"time"

	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// RegisterParams describes a client registration.
type RegisterParams struct {
	ClientID     string
	Name         string
	RedirectURIs []string
	Secret       string // Optional. A client registered with a secret is confidential.
}

// Registry validates authorization requests against the registered clients.
type Registry struct {
	repo    Repo
	nowTime func() time.Time
}

// RegistryOption defines a function type to modify the Registry instance.
type RegistryOption func(*Registry)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

func NewRegistry(repo Repo, options ...RegistryOption) *Registry {
	r := &Registry{
		repo:    repo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Register upserts a client keyed by its ID. Registering an existing ID
// replaces the previous record.
func (r *Registry) Register(params RegisterParams) (Client, error) {
	client := Client{
		ID:           params.ClientID,
		Name:         params.Name,
		RedirectURIs: slices.Clone(params.RedirectURIs),
		CreatedAt:    r.nowTime(),
	}

	if params.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Secret), bcrypt.DefaultCost)
		if err != nil {
			return Client{}, fmt.Errorf("[Registry.Register] hash client secret: %w", err)
		}
		client.SecretHash = string(hash)
	}

	if err := r.repo.Upsert(client); err != nil {
		return Client{}, fmt.Errorf("[Registry.Register] upsert client: %w", err)
	}

	log.Info().
		Str("client_id", client.ID).
		Str("client_name", client.Name).
		Str("client_type", string(client.Type())).
		Strs("redirect_uris", client.RedirectURIs).
		Msg("client registered")

	return client, nil
}

// Validate returns the client for clientID. When redirectURI is not empty it
// must be one of the client's registered redirect URIs.
func (r *Registry) Validate(clientID, redirectURI string) (Client, error) {
	client, err := r.repo.Get(clientID)
	if err != nil {
		return Client{}, fmt.Errorf("%w: %s", autherrors.ErrInvalidClient, clientID)
	}
	if redirectURI != "" && !client.HasRedirectURI(redirectURI) {
		return Client{}, fmt.Errorf("%w: %s not registered for client %s", autherrors.ErrInvalidRedirectURI, redirectURI, clientID)
	}
	return client, nil
}

// AuthenticateSecret checks the secret presented by a confidential client.
// Public clients authenticate with PKCE instead and must not send a secret.
func (r *Registry) AuthenticateSecret(clientID, secret string) error {
	client, err := r.repo.Get(clientID)
	if err != nil {
		return fmt.Errorf("%w: %s", autherrors.ErrInvalidClient, clientID)
	}
	if client.IsPublic() {
		if secret != "" {
			return fmt.Errorf("%w: public clients must not provide client_secret", autherrors.ErrInvalidClientSecret)
		}
		return nil
	}
	if secret == "" {
		return fmt.Errorf("%w: client_secret is required for confidential clients", autherrors.ErrInvalidClientSecret)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		return autherrors.ErrInvalidClientSecret
	}
	return nil
}

// List returns all registered clients ordered by ID.
func (r *Registry) List() ([]Client, error) {
	return r.repo.List()
}
