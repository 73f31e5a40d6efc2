package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the opaque bearer credential used to access the protocol endpoints.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "Bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 3600 (for one hour)
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is an opaque, single-use token used to obtain new access tokens.
	// Usage: Send to /token endpoint with grant_type=refresh_token
	// Security: Rotates on each use
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "read write"
	Scope string `json:"scope"`
}
