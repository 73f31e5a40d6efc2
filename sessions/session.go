package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-mcp-auth/gate"
)

// ErrTransportClosed is returned by a Transport whose stream has ended.
var ErrTransportClosed = errors.New("transport closed")

// Transport delivers inbound protocol messages to one live stream.
type Transport interface {
	// Deliver hands payload to the stream. It must not block on the stream's
	// writer, and returns ErrTransportClosed once the stream has ended.
	Deliver(ctx context.Context, payload []byte) error
	// Close terminates the stream. Calling Close more than once is allowed.
	Close() error
}

// Session binds a streaming connection to its transport.
// Sessions live for at most the registry's max age, active or not.
type Session struct {
	ID        string        // Unique session identifier (UUID)
	Transport Transport     // Live transport for the stream
	Identity  gate.Identity // Identity that opened the stream
	CreatedAt time.Time     // When the stream was opened
}

// Expired reports whether the session is older than maxAge at now.
func (s Session) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CreatedAt) > maxAge
}
