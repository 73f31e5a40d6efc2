package token

import "time"

// AccessToken is an issued bearer credential. The Value is an opaque random
// string; everything else is server-side metadata.
type AccessToken struct {
	Value     string
	TokenType string
	ClientID  string
	Scope     string
	ExpiresIn int // seconds
	CreatedAt time.Time
}

// ExpiresAt is CreatedAt plus ExpiresIn.
func (t AccessToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Expired reports whether the token is no longer valid at now.
func (t AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}
