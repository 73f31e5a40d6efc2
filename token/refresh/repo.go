package refresh

import (
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string). All other fields are
// server-side metadata used for validation and token refresh operations.
type StoredRefreshToken struct {
	Token    string    // The actual random token string (sent to client)
	ClientID string    // Server-side metadata
	Scope    string    // Server-side metadata (original scope for token refresh)
	Iat      time.Time // Server-side metadata (issued at time)
}
