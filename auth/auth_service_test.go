package auth_test

import (
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-mcp-auth/auth"
	"github.com/jrsteele09/go-mcp-auth/clients"
	"github.com/jrsteele09/go-mcp-auth/clients/inmemory"
	"github.com/jrsteele09/go-mcp-auth/internal/config"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/oauth2"
	"github.com/jrsteele09/go-mcp-auth/token"
	"github.com/jrsteele09/go-mcp-auth/token/refresh"
	"github.com/stretchr/testify/require"
)

const (
	testClientID      = "c1"
	testRedirectURI   = "https://a/cb"
	testState         = "xyz123"
	testCodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	testCodeVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testSecret        = "s3cret"
	confidentialID    = "conf"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

// testFixture holds all test dependencies
type testFixture struct {
	clock    *clock
	registry *clients.Registry
	codes    *auth.CodeStore
	tokens   *token.Manager
	service  *auth.AuthorizationService
}

func setupTestFixture(t *testing.T, options ...auth.AuthorizationServiceOption) *testFixture {
	t.Helper()

	c := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	cfg := config.OAuth{}

	registry := clients.NewRegistry(inmemory.New(), clients.WithNowTime(c.Now))
	_, err := registry.Register(clients.RegisterParams{ClientID: testClientID, Name: "test", RedirectURIs: []string{testRedirectURI}})
	require.NoError(t, err)
	_, err = registry.Register(clients.RegisterParams{ClientID: confidentialID, Secret: testSecret, RedirectURIs: []string{testRedirectURI}})
	require.NoError(t, err)

	codes := auth.NewCodeStore(cfg, auth.WithCodeNowFunc(c.Now))
	tokens := token.New(token.WithNowFunc(c.Now), token.WithTokenExpiry(time.Hour))
	refreshTokens := refresh.NewManager(cfg, refresh.WithNowFunc(c.Now))

	service, err := auth.NewAuthorizationService(auth.Deps{
		Clients:       registry,
		Codes:         codes,
		Tokens:        tokens,
		RefreshTokens: refreshTokens,
	}, cfg, append([]auth.AuthorizationServiceOption{auth.WithNowTime(c.Now)}, options...)...)
	require.NoError(t, err)

	return &testFixture{clock: c, registry: registry, codes: codes, tokens: tokens, service: service}
}

func authorizeParams() oauth2.AuthorizationParameters {
	return oauth2.AuthorizationParameters{
		ClientID:            testClientID,
		ResponseType:        oauth2.CodeResponseType,
		RedirectURI:         testRedirectURI,
		Scope:               "read",
		State:               testState,
		CodeChallenge:       testCodeChallenge,
		CodeChallengeMethod: oauth2.CodeMethodTypeS256,
	}
}

func codeRequest(code string) oauth2.TokenRequest {
	return oauth2.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		ClientID:     testClientID,
		Code:         code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: testCodeVerifier,
	}
}

// authorize runs the authorize step and returns the code from the redirect.
func (f *testFixture) authorize(t *testing.T, params oauth2.AuthorizationParameters) (string, url.Values) {
	t.Helper()
	redirect, err := f.service.Authorize(params)
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()
	require.NotEmpty(t, q.Get("code"))
	return q.Get("code"), q
}

func TestNewAuthorizationService_RequiresDeps(t *testing.T) {
	_, err := auth.NewAuthorizationService(auth.Deps{}, config.OAuth{})
	require.Error(t, err)
}

func TestAuthorize_RedirectCarriesCodeAndState(t *testing.T) {
	f := setupTestFixture(t)

	redirect, err := f.service.Authorize(authorizeParams())
	require.NoError(t, err)
	require.Contains(t, redirect, "state=xyz123")

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "https", u.Scheme)
	require.Equal(t, "a", u.Host)
	require.Equal(t, "/cb", u.Path)
	require.Len(t, u.Query().Get("code"), 64)
	require.Equal(t, 1, f.codes.Len())
}

func TestAuthorize_StateIsEchoedVerbatim(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.State = "a b&c=d/é"

	_, q := f.authorize(t, params)
	require.Equal(t, "a b&c=d/é", q.Get("state"))
}

func TestAuthorize_NoStateOmitsParameter(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.State = ""

	_, q := f.authorize(t, params)
	_, present := q["state"]
	require.False(t, present)
}

func TestAuthorize_KeepsExistingRedirectQuery(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.registry.Register(clients.RegisterParams{ClientID: "q", RedirectURIs: []string{"https://a/cb?tenant=7"}})
	require.NoError(t, err)

	params := authorizeParams()
	params.ClientID = "q"
	params.RedirectURI = "https://a/cb?tenant=7"
	_, q := f.authorize(t, params)
	require.Equal(t, "7", q.Get("tenant"))
}

func TestAuthorize_ClientRedirectBinding(t *testing.T) {
	f := setupTestFixture(t)

	params := authorizeParams()
	params.RedirectURI = "https://b/cb"
	_, err := f.service.Authorize(params)
	require.ErrorIs(t, err, autherrors.ErrInvalidRedirectURI)
	require.Equal(t, 0, f.codes.Len())

	params.RedirectURI = testRedirectURI
	_, err = f.service.Authorize(params)
	require.NoError(t, err)
}

func TestAuthorize_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *oauth2.AuthorizationParameters)
		want   error
	}{
		{"unknown client", func(p *oauth2.AuthorizationParameters) { p.ClientID = "nobody" }, autherrors.ErrInvalidClient},
		{"token response type", func(p *oauth2.AuthorizationParameters) { p.ResponseType = "token" }, autherrors.ErrUnsupportedResponseType},
		{"unknown challenge method", func(p *oauth2.AuthorizationParameters) { p.CodeChallengeMethod = "S512" }, autherrors.ErrInvalidRequest},
		{"method without challenge", func(p *oauth2.AuthorizationParameters) { p.CodeChallenge = "" }, autherrors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			params := authorizeParams()
			tt.modify(&params)
			_, err := f.service.Authorize(params)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorize_ChallengeMethodDefaultsToS256(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.CodeChallengeMethod = ""

	code, _ := f.authorize(t, params)
	resp, err := f.service.Token(codeRequest(code))
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
}

func TestAuthorize_RequirePKCE(t *testing.T) {
	f := setupTestFixture(t, auth.WithRequirePKCE(true))
	params := authorizeParams()
	params.CodeChallenge = ""
	params.CodeChallengeMethod = ""

	_, err := f.service.Authorize(params)
	require.ErrorIs(t, err, autherrors.ErrInvalidRequest)
}

func TestAuthorize_DefaultsScopeAndRedirect(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.Scope = ""
	params.RedirectURI = ""

	code, _ := f.authorize(t, params)
	resp, err := f.service.Token(codeRequest(code))
	require.NoError(t, err)
	require.Equal(t, "read write", resp.Scope)
}

func TestToken_RedirectURIOptionalWhenOmittedAtAuthorize(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.RedirectURI = ""

	code, _ := f.authorize(t, params)
	req := codeRequest(code)
	req.RedirectURI = ""
	_, err := f.service.Token(req)
	require.NoError(t, err)

	// A redirect_uri sent anyway must still match the one the code was issued for
	code, _ = f.authorize(t, params)
	req = codeRequest(code)
	req.RedirectURI = "https://b/cb"
	_, err = f.service.Token(req)
	require.ErrorIs(t, err, autherrors.ErrInvalidGrant)
}

func TestToken_AuthorizationCodeGrant(t *testing.T) {
	f := setupTestFixture(t)
	code, _ := f.authorize(t, authorizeParams())

	resp, err := f.service.Token(codeRequest(code))
	require.NoError(t, err)
	require.Equal(t, oauth2.BearerTokenType, resp.TokenType)
	require.Equal(t, 3600, resp.ExpiresIn)
	require.Equal(t, "read", resp.Scope)
	require.Len(t, resp.AccessToken, 64)
	require.NotEmpty(t, resp.RefreshToken)

	at, err := f.tokens.Validate(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testClientID, at.ClientID)
}

func TestToken_CodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	code, _ := f.authorize(t, authorizeParams())

	_, err := f.service.Token(codeRequest(code))
	require.NoError(t, err)

	_, err = f.service.Token(codeRequest(code))
	require.ErrorIs(t, err, autherrors.ErrInvalidAuthorizationCode)
	require.Equal(t, "invalid_grant", autherrors.OAuthCode(err))
}

func TestToken_ConcurrentRedemptionOnlyOneWins(t *testing.T) {
	f := setupTestFixture(t)
	code, _ := f.authorize(t, authorizeParams())

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Token(codeRequest(code)); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestToken_ExpiredCode(t *testing.T) {
	f := setupTestFixture(t)
	code, _ := f.authorize(t, authorizeParams())

	f.clock.now = f.clock.now.Add(601 * time.Second)
	_, err := f.service.Token(codeRequest(code))
	require.ErrorIs(t, err, autherrors.ErrAuthorizationCodeExpired)

	// The failed attempt consumed the code
	require.Equal(t, 0, f.codes.Len())
}

func TestToken_CodeValidJustBeforeExpiry(t *testing.T) {
	f := setupTestFixture(t)
	code, _ := f.authorize(t, authorizeParams())

	f.clock.now = f.clock.now.Add(599 * time.Second)
	_, err := f.service.Token(codeRequest(code))
	require.NoError(t, err)
}

func TestToken_BindingAndPKCEFailures(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *oauth2.TokenRequest)
		want   error
	}{
		{"different client", func(r *oauth2.TokenRequest) { r.ClientID = confidentialID }, autherrors.ErrInvalidGrant},
		{"missing client", func(r *oauth2.TokenRequest) { r.ClientID = "" }, autherrors.ErrInvalidGrant},
		{"different redirect", func(r *oauth2.TokenRequest) { r.RedirectURI = "https://b/cb" }, autherrors.ErrInvalidGrant},
		{"missing redirect", func(r *oauth2.TokenRequest) { r.RedirectURI = "" }, autherrors.ErrInvalidGrant},
		{"missing verifier", func(r *oauth2.TokenRequest) { r.CodeVerifier = "" }, autherrors.ErrInvalidCodeChallenge},
		{"wrong verifier", func(r *oauth2.TokenRequest) { r.CodeVerifier = "not-the-verifier" }, autherrors.ErrInvalidCodeChallenge},
		{"unknown code", func(r *oauth2.TokenRequest) { r.Code = "deadbeef" }, autherrors.ErrInvalidAuthorizationCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			code, _ := f.authorize(t, authorizeParams())

			req := codeRequest(code)
			tt.modify(&req)
			_, err := f.service.Token(req)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, "invalid_grant", autherrors.OAuthCode(err))
			require.Equal(t, 0, f.tokens.Len())
		})
	}
}

func TestToken_NoChallengeNeedsNoVerifier(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.CodeChallenge = ""
	params.CodeChallengeMethod = ""
	code, _ := f.authorize(t, params)

	req := codeRequest(code)
	req.CodeVerifier = ""
	_, err := f.service.Token(req)
	require.NoError(t, err)
}

func TestToken_ConfidentialClientSecret(t *testing.T) {
	f := setupTestFixture(t)
	params := authorizeParams()
	params.ClientID = confidentialID

	code, _ := f.authorize(t, params)
	req := codeRequest(code)
	req.ClientID = confidentialID
	_, err := f.service.Token(req)
	require.ErrorIs(t, err, autherrors.ErrInvalidClientSecret)
	require.Equal(t, "invalid_client", autherrors.OAuthCode(err))

	code, _ = f.authorize(t, params)
	req = codeRequest(code)
	req.ClientID = confidentialID
	req.ClientSecret = testSecret
	_, err = f.service.Token(req)
	require.NoError(t, err)
}

func TestToken_RefreshTokenGrantRotates(t *testing.T) {
	f := setupTestFixture(t)
	code, _ := f.authorize(t, authorizeParams())
	first, err := f.service.Token(codeRequest(code))
	require.NoError(t, err)

	second, err := f.service.Token(oauth2.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		ClientID:     testClientID,
		RefreshToken: first.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, "read", second.Scope)

	// The presented refresh token was consumed
	_, err = f.service.Token(oauth2.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		ClientID:     testClientID,
		RefreshToken: first.RefreshToken,
	})
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)
	require.Equal(t, "invalid_grant", autherrors.OAuthCode(err))
}

func TestToken_RefreshTokenIsValidated(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.service.Token(oauth2.TokenRequest{
		GrantType:    oauth2.RefreshTokenGrant,
		ClientID:     testClientID,
		RefreshToken: "made-up",
	})
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)
	require.Equal(t, 0, f.tokens.Len())
}

func TestToken_RequestShape(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Token(oauth2.TokenRequest{GrantType: "client_credentials", ClientID: testClientID})
	require.ErrorIs(t, err, autherrors.ErrUnsupportedGrantType)
	require.Equal(t, "unsupported_grant_type", autherrors.OAuthCode(err))

	_, err = f.service.Token(oauth2.TokenRequest{GrantType: oauth2.AuthorizationCodeGrant, ClientID: testClientID})
	require.ErrorIs(t, err, autherrors.ErrInvalidRequest)

	_, err = f.service.Token(oauth2.TokenRequest{GrantType: oauth2.RefreshTokenGrant})
	require.ErrorIs(t, err, autherrors.ErrInvalidRequest)

	_, err = f.service.Token(oauth2.TokenRequest{})
	require.ErrorIs(t, err, autherrors.ErrInvalidRequest)
}
