package auth

import (
	"fmt"
	"net/url"

	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/oauth2"
)

// Validator holds the request-shape checks for the authorize and token
// endpoints. Checks that need stored state live on AuthorizationService.
type Validator struct {
	requirePKCE bool
}

// NewValidator creates a new Validator instance
func NewValidator(requirePKCE bool) *Validator {
	return &Validator{requirePKCE: requirePKCE}
}

// ValidateAuthorizationRequest checks response_type and the PKCE parameters.
// A challenge without a method defaults the method to S256.
func (v *Validator) ValidateAuthorizationRequest(params *oauth2.AuthorizationParameters) error {
	if params.ResponseType != oauth2.CodeResponseType {
		return fmt.Errorf("%w: %q", autherrors.ErrUnsupportedResponseType, params.ResponseType)
	}
	if params.CodeChallenge != "" && params.CodeChallengeMethod == "" {
		params.CodeChallengeMethod = oauth2.CodeMethodTypeS256
	}
	return v.ValidatePKCE(params.CodeChallenge, params.CodeChallengeMethod)
}

// ValidatePKCE validates PKCE (Proof Key for Code Exchange) parameters
func (v *Validator) ValidatePKCE(codeChallenge string, method oauth2.CodeMethodType) error {
	if codeChallenge == "" {
		if v.requirePKCE {
			return fmt.Errorf("%w: PKCE required, code_challenge must be provided", autherrors.ErrInvalidRequest)
		}
		if method != "" {
			return fmt.Errorf("%w: code_challenge_method provided without code_challenge", autherrors.ErrInvalidRequest)
		}
		return nil
	}

	if method != oauth2.CodeMethodTypeS256 && method != oauth2.CodeMethodTypePlain {
		return fmt.Errorf("%w: code_challenge_method must be 'S256' or 'plain'", autherrors.ErrInvalidRequest)
	}
	return nil
}

// ValidateTokenRequest checks that the fields required by the grant type are present.
func (v *Validator) ValidateTokenRequest(req oauth2.TokenRequest) error {
	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		if req.Code == "" {
			return fmt.Errorf("%w: code is required", autherrors.ErrInvalidRequest)
		}
	case oauth2.RefreshTokenGrant:
		if req.RefreshToken == "" {
			return fmt.Errorf("%w: refresh_token is required", autherrors.ErrInvalidRequest)
		}
	case "":
		return fmt.Errorf("%w: grant_type is required", autherrors.ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: %q", autherrors.ErrUnsupportedGrantType, req.GrantType)
	}
	return nil
}

// ValidateRedirectURI checks that uri is an absolute http(s) URI without a
// fragment, as required for registered redirect URIs.
func ValidateRedirectURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: %s", autherrors.ErrInvalidRedirectURI, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use http or https", autherrors.ErrInvalidRedirectURI, uri)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q must be absolute", autherrors.ErrInvalidRedirectURI, uri)
	}
	if u.Fragment != "" {
		return fmt.Errorf("%w: %q must not contain a fragment", autherrors.ErrInvalidRedirectURI, uri)
	}
	return nil
}
