package clients

import (
	"slices"
	"time"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Registered with a secret
	ClientTypePublic       ClientType = "public"       // No secret, relies on PKCE
)

// Client is a registered OAuth2 client. Clients are immutable once stored;
// re-registering the same ID replaces the whole record.
type Client struct {
	ID           string    `json:"client_id"`
	Name         string    `json:"client_name"`
	SecretHash   string    `json:"-"` // bcrypt hash, empty for public clients
	RedirectURIs []string  `json:"redirect_uris"`
	CreatedAt    time.Time `json:"created_at"`
}

// Type returns whether the client is public or confidential
func (c Client) Type() ClientType {
	if c.SecretHash == "" {
		return ClientTypePublic
	}
	return ClientTypeConfidential
}

// IsPublic returns true if the client is a public client
func (c Client) IsPublic() bool {
	return c.Type() == ClientTypePublic
}

// HasRedirectURI reports whether uri is an exact member of the client's allow-list
func (c Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}
