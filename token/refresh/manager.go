package refresh

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-mcp-auth/internal/config"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/internal/store"
	"github.com/jrsteele09/go-mcp-auth/internal/utils"
)

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	tokens  store.Store[StoredRefreshToken]
	config  config.OAuthConfig
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

func WithStore(s store.Store[StoredRefreshToken]) ManagerOption {
	return func(m *Manager) {
		m.tokens = s
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(cfg config.OAuthConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.tokens == nil {
		m.tokens = store.NewMemory[StoredRefreshToken]()
	}
	return m
}

// Create generates a new refresh token and stores it
func (m *Manager) Create(clientID, scope string) (string, error) {
	tokenStr, err := utils.RandomHex(m.config.GetRefreshTokenLength())
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	m.tokens.Put(tokenStr, StoredRefreshToken{
		Token:    tokenStr,
		ClientID: clientID,
		Scope:    scope,
		Iat:      m.nowFunc(),
	})
	return tokenStr, nil
}

// Redeem consumes a refresh token. The token is removed whatever the outcome,
// so a refresh token can be presented at most once. When clientID is not
// empty it must match the client the token was issued to.
func (m *Manager) Redeem(token, clientID string) (StoredRefreshToken, error) {
	rt, ok := m.tokens.Take(token)
	if !ok {
		return StoredRefreshToken{}, autherrors.ErrInvalidRefreshToken
	}
	if m.IsExpired(rt) {
		return StoredRefreshToken{}, autherrors.ErrRefreshTokenExpired
	}
	if clientID != "" && clientID != rt.ClientID {
		return StoredRefreshToken{}, fmt.Errorf("%w: issued to a different client", autherrors.ErrInvalidRefreshToken)
	}
	return rt, nil
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt StoredRefreshToken) bool {
	return !m.nowFunc().Before(rt.Iat.Add(m.config.GetDefaultRefreshTokenExpiry()))
}

// Sweep removes expired refresh tokens and returns how many were removed.
func (m *Manager) Sweep() int {
	return len(m.tokens.DeleteFunc(func(_ string, rt StoredRefreshToken) bool {
		return m.IsExpired(rt)
	}))
}

// Len returns the number of stored refresh tokens.
func (m *Manager) Len() int {
	return m.tokens.Len()
}
