package errors

import (
	"errors"
	"fmt"
)

// Common error types for the authorization gateway
var (
	// Client errors
	ErrInvalidClient            = errors.New("invalid client")
	ErrInvalidClientSecret      = errors.New("invalid client secret")
	ErrInvalidRedirectURI       = errors.New("invalid redirect URI")
	ErrUnsupportedResponseType  = errors.New("unsupported response type")
	ErrUnsupportedGrantType     = errors.New("unsupported grant type")
	ErrInvalidCodeChallenge     = errors.New("invalid code challenge")
	ErrInvalidAuthorizationCode = errors.New("invalid authorization code")
	ErrAuthorizationCodeExpired = errors.New("authorization code expired")
	ErrInvalidGrant             = errors.New("invalid grant")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrRefreshTokenExpired      = errors.New("refresh token expired")
	ErrSessionNotFound          = errors.New("session not found")

	// Authentication errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Kind groups errors by how the caller is expected to react to them.
type Kind int

const (
	// KindInternal is an unexpected fault, surfaced as 500.
	KindInternal Kind = iota
	// KindClient is invalid input from the caller, surfaced as 4xx and never retried.
	KindClient
	// KindAuth is a missing, invalid or expired bearer credential.
	KindAuth
	// KindTransient is a malformed request body; safe to retry once the input is fixed.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Classify maps err onto the error taxonomy. Unknown errors are internal.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired):
		return KindAuth
	case errors.Is(err, ErrInvalidRequest):
		return KindTransient
	case errors.Is(err, ErrInvalidClient),
		errors.Is(err, ErrInvalidClientSecret),
		errors.Is(err, ErrInvalidRedirectURI),
		errors.Is(err, ErrUnsupportedResponseType),
		errors.Is(err, ErrUnsupportedGrantType),
		errors.Is(err, ErrInvalidCodeChallenge),
		errors.Is(err, ErrInvalidAuthorizationCode),
		errors.Is(err, ErrAuthorizationCodeExpired),
		errors.Is(err, ErrInvalidGrant),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrRefreshTokenExpired),
		errors.Is(err, ErrSessionNotFound):
		return KindClient
	}
	return KindInternal
}

// OAuthCode returns the machine readable "error" value for err as used in
// OAuth2 error responses (RFC 6749 section 5.2).
func OAuthCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidClient), errors.Is(err, ErrInvalidClientSecret):
		return "invalid_client"
	case errors.Is(err, ErrInvalidRedirectURI):
		return "invalid_redirect_uri"
	case errors.Is(err, ErrUnsupportedResponseType):
		return "unsupported_response_type"
	case errors.Is(err, ErrUnsupportedGrantType):
		return "unsupported_grant_type"
	case errors.Is(err, ErrInvalidCodeChallenge),
		errors.Is(err, ErrInvalidAuthorizationCode),
		errors.Is(err, ErrAuthorizationCodeExpired),
		errors.Is(err, ErrInvalidGrant),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrRefreshTokenExpired):
		return "invalid_grant"
	case errors.Is(err, ErrSessionNotFound):
		return "invalid_session"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return "invalid_token"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	}
	return "server_error"
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
