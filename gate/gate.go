// Package gate authenticates requests to the protocol endpoints.
package gate

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/token"
	"github.com/rs/zerolog/log"
)

const (
	defaultStaticSecretExpiry = 24 * time.Hour
	defaultStaticSecretScope  = "read write"
)

// TokenValidator looks up issued access tokens.
type TokenValidator interface {
	Validate(value string) (token.AccessToken, error)
}

// Gate maps a request to an Identity. Bearer values are checked against the
// issued access tokens first and the static secret second.
type Gate struct {
	tokens              TokenValidator
	staticSecret        string
	staticSecretScope   string
	staticSecretExpiry  time.Duration
	resourceMetadataURL string
	nowFunc             func() time.Time
}

type Option func(*Gate)

// WithStaticSecret configures the shared secret. An empty secret leaves the
// gate open to unauthenticated requests.
func WithStaticSecret(secret string) Option {
	return func(g *Gate) {
		g.staticSecret = secret
	}
}

func WithStaticSecretScope(scope string) Option {
	return func(g *Gate) {
		g.staticSecretScope = scope
	}
}

func WithStaticSecretExpiry(expiry time.Duration) Option {
	return func(g *Gate) {
		g.staticSecretExpiry = expiry
	}
}

// WithResourceMetadataURL sets the URL advertised in WWW-Authenticate challenges.
func WithResourceMetadataURL(url string) Option {
	return func(g *Gate) {
		g.resourceMetadataURL = url
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(g *Gate) {
		g.nowFunc = now
	}
}

func New(tokens TokenValidator, options ...Option) *Gate {
	g := &Gate{
		tokens:             tokens,
		staticSecretScope:  defaultStaticSecretScope,
		staticSecretExpiry: defaultStaticSecretExpiry,
		nowFunc:            time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Enforced reports whether unauthenticated requests are rejected, which is
// the case exactly when a static secret is configured.
func (g *Gate) Enforced() bool {
	return g.staticSecret != ""
}

// Authenticate resolves the bearer credential on r. It returns
// ErrUnauthenticated when no credential matches.
func (g *Gate) Authenticate(r *http.Request) (Identity, error) {
	value, ok := BearerToken(r)
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing bearer credential", autherrors.ErrUnauthenticated)
	}

	at, err := g.tokens.Validate(value)
	if err == nil {
		return Identity{
			Kind:      CredentialAccessToken,
			ClientID:  at.ClientID,
			Scope:     at.Scope,
			ExpiresAt: at.ExpiresAt(),
		}, nil
	}

	if g.Enforced() && subtle.ConstantTimeCompare([]byte(value), []byte(g.staticSecret)) == 1 {
		return Identity{
			Kind:      CredentialStaticSecret,
			Scope:     g.staticSecretScope,
			ExpiresAt: g.nowFunc().Add(g.staticSecretExpiry),
		}, nil
	}

	return Identity{}, fmt.Errorf("%w: %w", autherrors.ErrUnauthenticated, err)
}

// Require attaches the caller's Identity to the request context. When the
// gate is enforced unauthenticated requests get a 401, otherwise they pass
// through with an anonymous identity.
func (g *Gate) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r)
		if err != nil {
			if g.Enforced() {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected by gate")
				g.challenge(w)
				return
			}
			id = Identity{Kind: CredentialAnonymous}
		}
		next(w, r.WithContext(NewContext(r.Context(), id)))
	}
}

func (g *Gate) challenge(w http.ResponseWriter) {
	challenge := "Bearer"
	if g.resourceMetadataURL != "" {
		challenge = fmt.Sprintf(`Bearer resource_metadata="%s"`, g.resourceMetadataURL)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "invalid_token",
		"error_description": "missing, invalid or expired bearer credential",
	})
}

// BearerToken extracts the credential from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
