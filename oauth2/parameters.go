package oauth2

// AuthorizationParameters holds parameters for the OAuth2 authorization request.
// These are received as query parameters at the /authorize endpoint.
type AuthorizationParameters struct {
	// ClientID identifies the application requesting authorization.
	// Validated against: the client registry
	ClientID string

	// ResponseType specifies what the authorization endpoint should return.
	// Only "code" is supported.
	ResponseType ResponseType

	// RedirectURI is where the authorization response will be sent.
	// Security: Must exactly match a pre-registered URI to prevent open redirects
	RedirectURI string

	// Scope specifies the permissions being requested.
	// Example: "read write"
	Scope string

	// State is an opaque value used by the client to maintain state between request and callback.
	// The server never interprets it and echoes it back verbatim in the redirect.
	State string

	// CodeChallenge is the PKCE challenge derived from code_verifier.
	// Example: BASE64URL(SHA256(code_verifier))
	CodeChallenge string

	// CodeChallengeMethod specifies how code_challenge was derived.
	// Default: "S256" when a challenge is present and no method is given
	CodeChallengeMethod CodeMethodType
}

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the request body sent to the /token endpoint,
// either form encoded or JSON.
type TokenRequest struct {
	// GrantType selects the exchange: "authorization_code" or "refresh_token".
	GrantType GrantType `json:"grant_type"`

	// ClientID identifies the OAuth2 client making the request.
	ClientID string `json:"client_id"`

	// ClientSecret is the secret credential for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string `json:"client_secret"`

	// Code is the authorization code received from the authorization endpoint.
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string `json:"code"`

	// RedirectURI must equal the redirect_uri used at the authorization endpoint.
	RedirectURI string `json:"redirect_uri"`

	// CodeVerifier is the PKCE code verifier that matches the code_challenge.
	CodeVerifier string `json:"code_verifier"`

	// RefreshToken is used to obtain new access tokens without re-authorization.
	RefreshToken string `json:"refresh_token"`
}
