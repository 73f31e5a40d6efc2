package gate

import (
	"context"
	"time"
)

// CredentialKind records which credential established an Identity.
type CredentialKind int

const (
	// CredentialAnonymous is used when no credential was presented and the
	// gate is not enforced.
	CredentialAnonymous CredentialKind = iota
	// CredentialAccessToken is an access token issued by the token endpoint.
	CredentialAccessToken
	// CredentialStaticSecret is the process-wide shared secret.
	CredentialStaticSecret
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialAccessToken:
		return "access_token"
	case CredentialStaticSecret:
		return "static_secret"
	default:
		return "anonymous"
	}
}

// Identity is the result of authenticating a request.
type Identity struct {
	Kind      CredentialKind
	ClientID  string // empty unless Kind is CredentialAccessToken
	Scope     string
	ExpiresAt time.Time // zero for anonymous identities
}

// Authenticated reports whether a credential backs the identity.
func (i Identity) Authenticated() bool {
	return i.Kind != CredentialAnonymous
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached by Require.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
