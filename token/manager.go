package token

import (
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/internal/store"
	"github.com/jrsteele09/go-mcp-auth/internal/utils"
	"github.com/jrsteele09/go-mcp-auth/oauth2"
	"github.com/rs/zerolog/log"
)

const (
	defaultTokenLength       = 32
	defaultAccessTokenExpiry = time.Hour
	tokenIDLogLength         = 8
)

// Manager issues and validates opaque access tokens.
type Manager struct {
	tokens            store.Store[AccessToken]
	tokenLength       int
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithStore(s store.Store[AccessToken]) ManagerOption {
	return func(m *Manager) {
		m.tokens = s
	}
}

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

func WithTokenLength(length int) ManagerOption {
	return func(m *Manager) {
		m.tokenLength = length
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(options ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range options {
		opt(m)
	}

	if m.tokens == nil {
		m.tokens = store.NewMemory[AccessToken]()
	}
	if m.tokenLength < defaultTokenLength {
		m.tokenLength = defaultTokenLength
	}
	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Issue mints and stores a new access token for clientID.
func (m *Manager) Issue(clientID, scope string) (AccessToken, error) {
	value, err := utils.RandomHex(m.tokenLength)
	if err != nil {
		return AccessToken{}, fmt.Errorf("[Manager.Issue] %w", err)
	}

	t := AccessToken{
		Value:     value,
		TokenType: oauth2.BearerTokenType,
		ClientID:  clientID,
		Scope:     scope,
		ExpiresIn: int(m.accessTokenExpiry / time.Second),
		CreatedAt: m.nowFunc(),
	}
	m.tokens.Put(value, t)

	log.Info().
		Str("client_id", clientID).
		Str("token_prefix", utils.Prefix(value, tokenIDLogLength)).
		Int("expires_in", t.ExpiresIn).
		Msg("access token issued")
	return t, nil
}

// Validate returns the stored token for value. An expired token is evicted
// and reported as ErrTokenExpired.
func (m *Manager) Validate(value string) (AccessToken, error) {
	t, ok := m.tokens.Get(value)
	if !ok {
		return AccessToken{}, autherrors.ErrInvalidToken
	}
	if t.Expired(m.nowFunc()) {
		m.tokens.Delete(value)
		return AccessToken{}, autherrors.ErrTokenExpired
	}
	return t, nil
}

// Sweep removes every expired token and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.nowFunc()
	return len(m.tokens.DeleteFunc(func(_ string, t AccessToken) bool {
		return t.Expired(now)
	}))
}

// Len returns the number of stored tokens, expired or not.
func (m *Manager) Len() int {
	return m.tokens.Len()
}
