package sessions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-mcp-auth/gate"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/sessions"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	delivered [][]byte
	closed    int
	err       error
}

func (f *fakeTransport) Deliver(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, payload)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newRegistry() (*sessions.Registry, *clock) {
	c := &clock{now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	return sessions.NewRegistry(sessions.WithNowFunc(c.Now)), c
}

func TestRouteDeliversToOpenSession(t *testing.T) {
	r, _ := newRegistry()
	tr := &fakeTransport{}
	r.Open("s1", tr, gate.Identity{})

	require.NoError(t, r.Route(context.Background(), "s1", []byte(`{"jsonrpc":"2.0"}`)))
	require.Equal(t, [][]byte{[]byte(`{"jsonrpc":"2.0"}`)}, tr.delivered)
}

func TestRouteAfterCloseIsNotFound(t *testing.T) {
	r, _ := newRegistry()
	tr := &fakeTransport{}
	r.Open("s1", tr, gate.Identity{})
	r.Close("s1")

	err := r.Route(context.Background(), "s1", []byte("x"))
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
	require.Equal(t, autherrors.KindClient, autherrors.Classify(err))
	require.Empty(t, tr.delivered)

	// Closing twice is harmless
	r.Close("s1")
	require.Equal(t, 0, r.Len())
}

func TestRouteUnknownSession(t *testing.T) {
	r, _ := newRegistry()
	err := r.Route(context.Background(), "never", []byte("x"))
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
}

func TestRouteDeliveryFailureIsInternal(t *testing.T) {
	r, _ := newRegistry()
	r.Open("s1", &fakeTransport{err: errors.New("stream gone")}, gate.Identity{})

	err := r.Route(context.Background(), "s1", []byte("x"))
	require.Error(t, err)
	require.NotErrorIs(t, err, autherrors.ErrSessionNotFound)
	require.Equal(t, autherrors.KindInternal, autherrors.Classify(err))
}

func TestRouteToEndedStreamIsNotFound(t *testing.T) {
	r, _ := newRegistry()
	r.Open("s1", &fakeTransport{err: sessions.ErrTransportClosed}, gate.Identity{})

	err := r.Route(context.Background(), "s1", []byte("x"))
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
	require.Equal(t, autherrors.KindClient, autherrors.Classify(err))
	require.Equal(t, "invalid_session", autherrors.OAuthCode(err))

	// The dead session is dropped
	_, ok := r.Get("s1")
	require.False(t, ok)
}

func TestOpenRecordsIdentity(t *testing.T) {
	r, c := newRegistry()
	id := gate.Identity{Kind: gate.CredentialAccessToken, ClientID: "c1"}
	r.Open("s1", &fakeTransport{}, id)

	s, ok := r.Get("s1")
	require.True(t, ok)
	require.Equal(t, id, s.Identity)
	require.Equal(t, c.now, s.CreatedAt)
}

func TestSweepEvictsByAgeNotActivity(t *testing.T) {
	r, c := newRegistry()
	old := &fakeTransport{}
	r.Open("old", old, gate.Identity{})

	c.now = c.now.Add(20 * time.Minute)
	young := &fakeTransport{}
	r.Open("young", young, gate.Identity{})

	// Activity does not extend the session
	c.now = c.now.Add(10*time.Minute + time.Second)
	require.NoError(t, r.Route(context.Background(), "old", []byte("x")))

	require.Equal(t, 1, r.Sweep())
	require.Equal(t, 1, old.closed)
	require.Equal(t, 0, young.closed)

	_, ok := r.Get("old")
	require.False(t, ok)
	require.Equal(t, 1, r.Len())
}

func TestSweepEmptyRegistry(t *testing.T) {
	r, _ := newRegistry()
	require.Equal(t, 0, r.Sweep())
}
