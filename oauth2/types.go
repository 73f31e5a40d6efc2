package oauth2

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow, the only flow supported.
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
// Used to prevent authorization code interception attacks (especially for public clients).
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier)) without padding
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain means no hashing, code_verifier sent directly.
	// Client sends: code_challenge = code_verifier (plaintext)
	// Server validates: provided code_verifier == stored code_challenge
	CodeMethodTypePlain CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, redirect_uri, code_verifier (if PKCE)
	// Returns: access_token and refresh_token
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id
	// Returns: new access_token and a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// BearerTokenType is the token_type of every access token issued.
const BearerTokenType = "Bearer"
