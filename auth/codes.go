package auth

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-mcp-auth/internal/config"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/internal/store"
	"github.com/jrsteele09/go-mcp-auth/internal/utils"
	"github.com/jrsteele09/go-mcp-auth/oauth2"
)

// AuthorizationCode is a short-lived, single-use grant minted by Authorize
// and redeemed by Token.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	RedirectURI         string // exact URI used at issuance
	RedirectURIGiven    bool   // redirect_uri was present in the authorization request
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod oauth2.CodeMethodType
	UserID              string
	ExpiresAt           time.Time
}

// Expired reports whether the code can no longer be redeemed at now.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CodeStore holds outstanding authorization codes.
type CodeStore struct {
	codes   store.Store[AuthorizationCode]
	ttl     time.Duration
	length  int
	nowFunc func() time.Time
}

type CodeStoreOption func(*CodeStore)

func WithCodeStore(s store.Store[AuthorizationCode]) CodeStoreOption {
	return func(cs *CodeStore) {
		cs.codes = s
	}
}

func WithCodeNowFunc(now func() time.Time) CodeStoreOption {
	return func(cs *CodeStore) {
		cs.nowFunc = now
	}
}

func NewCodeStore(cfg config.OAuthConfig, options ...CodeStoreOption) *CodeStore {
	cs := &CodeStore{
		ttl:     cfg.GetAuthCodeTimeout(),
		length:  cfg.GetCodeGenerationLength(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(cs)
	}
	if cs.codes == nil {
		cs.codes = store.NewMemory[AuthorizationCode]()
	}
	return cs
}

// Issue assigns a fresh random code and expiry to ac and stores it.
func (cs *CodeStore) Issue(ac AuthorizationCode) (AuthorizationCode, error) {
	code, err := utils.RandomHex(cs.length)
	if err != nil {
		return AuthorizationCode{}, fmt.Errorf("[CodeStore.Issue] %w", err)
	}
	ac.Code = code
	ac.ExpiresAt = cs.nowFunc().Add(cs.ttl)
	cs.codes.Put(code, ac)
	return ac, nil
}

// Redeem removes code from the store and returns it if it has not expired.
// The code is consumed whether or not redemption succeeds.
func (cs *CodeStore) Redeem(code string) (AuthorizationCode, error) {
	ac, ok := cs.codes.Take(code)
	if !ok {
		return AuthorizationCode{}, autherrors.ErrInvalidAuthorizationCode
	}
	if ac.Expired(cs.nowFunc()) {
		return AuthorizationCode{}, autherrors.ErrAuthorizationCodeExpired
	}
	return ac, nil
}

// Sweep removes expired codes and returns how many were removed.
func (cs *CodeStore) Sweep() int {
	now := cs.nowFunc()
	return len(cs.codes.DeleteFunc(func(_ string, ac AuthorizationCode) bool {
		return ac.Expired(now)
	}))
}

func (cs *CodeStore) Len() int {
	return cs.codes.Len()
}
