package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-mcp-auth/gate"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/internal/store"
	"github.com/rs/zerolog/log"
)

const defaultMaxAge = 30 * time.Minute

// Registry tracks the live streaming sessions.
type Registry struct {
	sessions store.Store[Session]
	maxAge   time.Duration
	nowFunc  func() time.Time
}

type RegistryOption func(*Registry)

func WithStore(s store.Store[Session]) RegistryOption {
	return func(r *Registry) {
		r.sessions = s
	}
}

// WithMaxAge sets how long a session may live after it was opened.
func WithMaxAge(maxAge time.Duration) RegistryOption {
	return func(r *Registry) {
		r.maxAge = maxAge
	}
}

func WithNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		maxAge:  defaultMaxAge,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.sessions == nil {
		r.sessions = store.NewMemory[Session]()
	}
	return r
}

// Open registers transport under id. The caller generates id with enough
// entropy that it cannot be guessed.
func (r *Registry) Open(id string, transport Transport, identity gate.Identity) Session {
	s := Session{
		ID:        id,
		Transport: transport,
		Identity:  identity,
		CreatedAt: r.nowFunc(),
	}
	r.sessions.Put(id, s)

	log.Info().
		Str("session_id", id).
		Str("credential", identity.Kind.String()).
		Str("client_id", identity.ClientID).
		Msg("session opened")
	return s
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (Session, bool) {
	return r.sessions.Get(id)
}

// Route forwards payload to the transport of session id. A session whose
// stream has already ended is removed and reported as not found.
func (r *Registry) Route(ctx context.Context, id string, payload []byte) error {
	s, ok := r.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", autherrors.ErrSessionNotFound, id)
	}
	err := s.Transport.Deliver(ctx, payload)
	if errors.Is(err, ErrTransportClosed) {
		r.Close(id)
		return fmt.Errorf("%w: %s is closing", autherrors.ErrSessionNotFound, id)
	}
	return autherrors.Wrapf(err, "[Registry.Route] deliver to session %s", id)
}

// Close removes session id. Closing an unknown session is a no-op.
func (r *Registry) Close(id string) {
	if r.sessions.Delete(id) {
		log.Info().Str("session_id", id).Msg("session closed")
	}
}

// Sweep evicts sessions older than the max age, closes their transports and
// returns how many were evicted.
func (r *Registry) Sweep() int {
	now := r.nowFunc()
	evicted := r.sessions.DeleteFunc(func(_ string, s Session) bool {
		return s.Expired(now, r.maxAge)
	})
	for id, s := range evicted {
		if err := s.Transport.Close(); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("closing evicted session")
		}
		log.Info().Str("session_id", id).Msg("session evicted")
	}
	return len(evicted)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}
