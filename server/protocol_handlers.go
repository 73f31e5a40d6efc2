package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/go-mcp-auth/gate"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
)

// Stream opens an event stream session on the SSE server. The first event
// names the URL that follow-up messages are posted to; responses arrive as
// message events.
func (s *Server) Stream() http.HandlerFunc {
	handler := s.sse.SSEHandler()
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := gate.FromContext(r.Context())

		// Cancelling ctx ends the stream, which is how the sweeper evicts it.
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		stream := s.newStream(ctx, cancel, identity, w.Header())
		handler.ServeHTTP(w, r.WithContext(withStream(ctx, stream)))
	}
}

// StreamMessage routes a message to an open stream session. The session id
// is the capability, so no bearer credential is required.
func (s *Server) StreamMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(headerSessionID)
		if sessionID == "" {
			sessionID = r.URL.Query().Get(querySessionID)
		}
		if sessionID == "" {
			writeError(w, fmt.Errorf("%w: missing session id", autherrors.ErrSessionNotFound), http.StatusBadRequest)
			return
		}
		if _, ok := s.sessions.Get(sessionID); !ok {
			writeError(w, fmt.Errorf("%w: %s", autherrors.ErrSessionNotFound, sessionID), http.StatusBadRequest)
			return
		}

		payload, err := readJSONBody(w, r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}

		if err := s.sessions.Route(r.Context(), sessionID, payload); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, autherrors.ErrSessionNotFound) {
				status = http.StatusBadRequest
			}
			writeError(w, err, status)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// RPC serves single-shot JSON-RPC exchanges on the stateless streamable
// HTTP server. Notifications get 202, requests a 200 JSON response.
func (s *Server) RPC() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := readJSONBody(w, r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(payload))
		r.Header.Set(headerContentType, contentTypeJSON)
		if r.Header.Get(headerAccept) == "" {
			r.Header.Set(headerAccept, contentTypeJSON+", "+contentTypeEventStream)
		}
		s.rpc.ServeHTTP(w, r)
	}
}

func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %s", autherrors.ErrInvalidRequest, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", autherrors.ErrInvalidRequest)
	}
	return body, nil
}
