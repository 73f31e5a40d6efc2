package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-mcp-auth/gate"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/sessions"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// streamKey carries the stream being opened from Stream into the session hooks.
type streamKey struct{}

// sseStream is the session transport of one event stream served by the SSE
// server. Delivered messages go through the SSE message handler, which
// queues the responses onto the stream.
type sseStream struct {
	id       string
	identity gate.Identity
	header   http.Header
	messages http.Handler
	ctx      context.Context
	cancel   context.CancelFunc
}

var _ sessions.Transport = (*sseStream)(nil)

func (s *Server) newStream(ctx context.Context, cancel context.CancelFunc, identity gate.Identity, header http.Header) *sseStream {
	return &sseStream{
		identity: identity,
		header:   header,
		messages: s.sse.MessageHandler(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Deliver processes payload under the identity that opened the stream.
func (t *sseStream) Deliver(ctx context.Context, payload []byte) error {
	if t.ctx.Err() != nil {
		return sessions.ErrTransportClosed
	}

	target := RouteMessages + "?" + url.Values{querySessionID: {t.id}}.Encode()
	req, err := http.NewRequestWithContext(gate.NewContext(ctx, t.identity), http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)

	rec := &deliveryRecorder{header: make(http.Header), status: http.StatusOK}
	t.messages.ServeHTTP(rec, req)

	switch rec.status {
	case http.StatusOK, http.StatusAccepted:
		return nil
	case http.StatusBadRequest, http.StatusNotFound:
		// The body was validated upstream, so the SSE server has dropped the session.
		return sessions.ErrTransportClosed
	}
	return fmt.Errorf("%w: message handler returned %d: %s", autherrors.ErrInternal, rec.status, strings.TrimSpace(rec.body.String()))
}

// Close ends the event stream. The SSE server then unregisters the session.
func (t *sseStream) Close() error {
	t.cancel()
	return nil
}

func withStream(ctx context.Context, stream *sseStream) context.Context {
	return context.WithValue(ctx, streamKey{}, stream)
}

func streamFromContext(ctx context.Context) (*sseStream, bool) {
	stream, ok := ctx.Value(streamKey{}).(*sseStream)
	return stream, ok
}

// openStreamSession runs when the SSE server registers a session, before the
// endpoint event is written.
func (s *Server) openStreamSession(ctx context.Context, session mcpserver.ClientSession) {
	stream, ok := streamFromContext(ctx)
	if !ok {
		return
	}
	stream.id = session.SessionID()
	stream.header.Set(headerSessionID, stream.id)
	s.sessions.Open(stream.id, stream, stream.identity)
}

func (s *Server) closeStreamSession(_ context.Context, session mcpserver.ClientSession) {
	s.sessions.Close(session.SessionID())
}

// deliveryRecorder captures the outcome of an in-process message delivery.
type deliveryRecorder struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (d *deliveryRecorder) Header() http.Header {
	return d.header
}

func (d *deliveryRecorder) WriteHeader(code int) {
	if d.wroteHeader {
		return
	}
	d.status = code
	d.wroteHeader = true
}

func (d *deliveryRecorder) Write(b []byte) (int, error) {
	d.WriteHeader(http.StatusOK)
	return d.body.Write(b)
}
