package auth

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-mcp-auth/clients"
	"github.com/jrsteele09/go-mcp-auth/internal/config"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/internal/utils"
	"github.com/jrsteele09/go-mcp-auth/oauth2"
	"github.com/jrsteele09/go-mcp-auth/token"
	"github.com/jrsteele09/go-mcp-auth/token/refresh"
	"github.com/rs/zerolog/log"
)

const codeLogLength = 8

// Deps holds the stores the AuthorizationService reads and writes.
type Deps struct {
	Clients       *clients.Registry // Registered OAuth2 clients
	Codes         *CodeStore        // Outstanding authorization codes
	Tokens        *token.Manager    // Issued access tokens
	RefreshTokens *refresh.Manager  // Issued refresh tokens
}

// AuthorizationService implements the authorize and token steps of the
// authorization code grant.
type AuthorizationService struct {
	deps         Deps
	validator    *Validator
	defaultScope string
	nowTime      func() time.Time // nowTime function (injectable for testing)
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithRequirePKCE rejects authorization requests that carry no code_challenge.
func WithRequirePKCE(required bool) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.validator = NewValidator(required)
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(deps Deps, cfg config.OAuthConfig, options ...AuthorizationServiceOption) (*AuthorizationService, error) {
	if deps.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients registry is required")
	}
	if deps.Codes == nil {
		return nil, errors.New("[NewAuthorizationService] Codes store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewAuthorizationService] Tokens manager is required")
	}
	if deps.RefreshTokens == nil {
		return nil, errors.New("[NewAuthorizationService] RefreshTokens manager is required")
	}

	as := &AuthorizationService{
		deps:         deps,
		validator:    NewValidator(false),
		defaultScope: cfg.GetDefaultScope(),
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// Authorize validates an authorization request, mints a code and returns the
// URL the user agent is redirected to. Consent is granted automatically.
func (as *AuthorizationService) Authorize(params oauth2.AuthorizationParameters) (string, error) {
	client, err := as.deps.Clients.Validate(params.ClientID, params.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("[Authorize] %w", err)
	}

	redirectURIGiven := params.RedirectURI != ""
	if !redirectURIGiven {
		if len(client.RedirectURIs) != 1 {
			return "", fmt.Errorf("[Authorize] %w: redirect_uri is required", autherrors.ErrInvalidRedirectURI)
		}
		params.RedirectURI = client.RedirectURIs[0]
	}

	if err := as.validator.ValidateAuthorizationRequest(&params); err != nil {
		return "", fmt.Errorf("[Authorize] %w", err)
	}

	scope := params.Scope
	if scope == "" {
		scope = as.defaultScope
	}

	ac, err := as.deps.Codes.Issue(AuthorizationCode{
		ClientID:            client.ID,
		RedirectURI:         params.RedirectURI,
		RedirectURIGiven:    redirectURIGiven,
		Scope:               scope,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
	})
	if err != nil {
		return "", fmt.Errorf("[Authorize] %w", err)
	}

	redirectURL, err := codeRedirectURL(params.RedirectURI, ac.Code, params.State)
	if err != nil {
		return "", fmt.Errorf("[Authorize] %w", err)
	}

	log.Info().
		Str("client_id", client.ID).
		Str("code_prefix", utils.Prefix(ac.Code, codeLogLength)).
		Bool("pkce", ac.CodeChallenge != "").
		Msg("authorization code issued")
	return redirectURL, nil
}

// Token handles the OAuth 2.0 token request.
func (as *AuthorizationService) Token(req oauth2.TokenRequest) (oauth2.TokenResponse, error) {
	if err := as.validator.ValidateTokenRequest(req); err != nil {
		return oauth2.TokenResponse{}, fmt.Errorf("[AuthorizationService.Token] %w", err)
	}

	var (
		resp oauth2.TokenResponse
		err  error
	)
	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		resp, err = as.exchangeCode(req)
	case oauth2.RefreshTokenGrant:
		resp, err = as.exchangeRefreshToken(req)
	}
	if err != nil {
		log.Warn().
			Str("client_id", req.ClientID).
			Str("grant_type", string(req.GrantType)).
			Err(err).
			Msg("token request rejected")
		return oauth2.TokenResponse{}, fmt.Errorf("[AuthorizationService.Token] %w", err)
	}
	return resp, nil
}

func (as *AuthorizationService) exchangeCode(req oauth2.TokenRequest) (oauth2.TokenResponse, error) {
	ac, err := as.deps.Codes.Redeem(req.Code)
	if err != nil {
		return oauth2.TokenResponse{}, err
	}

	if req.ClientID != ac.ClientID {
		return oauth2.TokenResponse{}, fmt.Errorf("%w: client_id does not match the authorization code", autherrors.ErrInvalidGrant)
	}
	// redirect_uri is only required when the authorization request carried one
	if (ac.RedirectURIGiven || req.RedirectURI != "") && req.RedirectURI != ac.RedirectURI {
		return oauth2.TokenResponse{}, fmt.Errorf("%w: redirect_uri does not match the authorization code", autherrors.ErrInvalidGrant)
	}

	if ac.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return oauth2.TokenResponse{}, fmt.Errorf("%w: code_verifier is required", autherrors.ErrInvalidCodeChallenge)
		}
		if !VerifyPKCE(req.CodeVerifier, ac.CodeChallenge, ac.CodeChallengeMethod) {
			return oauth2.TokenResponse{}, fmt.Errorf("%w: code_verifier does not match", autherrors.ErrInvalidCodeChallenge)
		}
	}

	if err := as.deps.Clients.AuthenticateSecret(ac.ClientID, req.ClientSecret); err != nil {
		return oauth2.TokenResponse{}, err
	}

	return as.issueTokens(ac.ClientID, ac.Scope)
}

func (as *AuthorizationService) exchangeRefreshToken(req oauth2.TokenRequest) (oauth2.TokenResponse, error) {
	rt, err := as.deps.RefreshTokens.Redeem(req.RefreshToken, req.ClientID)
	if err != nil {
		return oauth2.TokenResponse{}, err
	}

	if err := as.deps.Clients.AuthenticateSecret(rt.ClientID, req.ClientSecret); err != nil {
		return oauth2.TokenResponse{}, err
	}

	return as.issueTokens(rt.ClientID, rt.Scope)
}

func (as *AuthorizationService) issueTokens(clientID, scope string) (oauth2.TokenResponse, error) {
	at, err := as.deps.Tokens.Issue(clientID, scope)
	if err != nil {
		return oauth2.TokenResponse{}, err
	}
	rt, err := as.deps.RefreshTokens.Create(clientID, scope)
	if err != nil {
		return oauth2.TokenResponse{}, err
	}
	return oauth2.TokenResponse{
		AccessToken:  at.Value,
		TokenType:    at.TokenType,
		ExpiresIn:    at.ExpiresIn,
		RefreshToken: rt,
		Scope:        at.Scope,
	}, nil
}

// codeRedirectURL appends code and state to redirectURI, keeping any query
// the registered URI already carries.
func codeRedirectURL(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: %s", autherrors.ErrInvalidRedirectURI, err)
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
