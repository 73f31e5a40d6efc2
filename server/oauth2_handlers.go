package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-mcp-auth/auth"
	"github.com/jrsteele09/go-mcp-auth/clients"
	autherrors "github.com/jrsteele09/go-mcp-auth/internal/errors"
	"github.com/jrsteele09/go-mcp-auth/internal/utils"
	"github.com/jrsteele09/go-mcp-auth/oauth2"
	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes       = 1 << 20
	clientSecretLength = 32

	authMethodNone       = "none"
	authMethodSecretPost = "client_secret_post"
)

// Authorize validates the authorization request and redirects back to the
// client with a fresh code. Consent is granted automatically.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := oauth2.AuthorizationParameters{
			ClientID:            q.Get("client_id"),
			ResponseType:        oauth2.ResponseType(q.Get("response_type")),
			RedirectURI:         q.Get("redirect_uri"),
			Scope:               q.Get("scope"),
			State:               q.Get("state"),
			CodeChallenge:       q.Get("code_challenge"),
			CodeChallengeMethod: oauth2.CodeMethodType(q.Get("code_challenge_method")),
		}

		redirectURL, err := s.auth.Authorize(params)
		if err != nil {
			status := http.StatusBadRequest
			if autherrors.Classify(err) == autherrors.KindInternal {
				status = http.StatusInternalServerError
			}
			writeError(w, err, status)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// Token exchanges an authorization code or refresh token for tokens. The
// body may be form encoded or JSON.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerCacheControl, "no-store")
		w.Header().Set("Pragma", "no-cache")

		tokenReq, err := parseTokenRequest(w, r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}

		tokenResponse, err := s.auth.Token(tokenReq)
		if err != nil {
			writeError(w, err, tokenErrorStatus(err))
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

func parseTokenRequest(w http.ResponseWriter, r *http.Request) (oauth2.TokenRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req oauth2.TokenRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(headerContentType))
	if mediaType == contentTypeJSON {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("%w: malformed JSON body: %s", autherrors.ErrInvalidRequest, err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("%w: malformed form body: %s", autherrors.ErrInvalidRequest, err)
		}
		req = oauth2.TokenRequest{
			GrantType:    oauth2.GrantType(r.PostForm.Get("grant_type")),
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
			Code:         r.PostForm.Get("code"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			CodeVerifier: r.PostForm.Get("code_verifier"),
			RefreshToken: r.PostForm.Get("refresh_token"),
		}
	}

	// client_secret_basic
	if id, secret, ok := r.BasicAuth(); ok {
		if req.ClientID == "" {
			req.ClientID = id
		}
		if req.ClientSecret == "" && id == req.ClientID {
			req.ClientSecret = secret
		}
	}
	return req, nil
}

// tokenErrorStatus follows RFC 6749 section 5.2: failed client
// authentication is a 401, every other grant error a 400.
func tokenErrorStatus(err error) int {
	if autherrors.Classify(err) == autherrors.KindInternal {
		return http.StatusInternalServerError
	}
	if autherrors.OAuthCode(err) == "invalid_client" {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

type registrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

type registrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
}

// Register implements dynamic client registration (RFC 7591). A client
// secret is issued only for client_secret_post clients.
func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var req registrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "malformed JSON body", http.StatusBadRequest)
			return
		}

		if len(req.RedirectURIs) == 0 {
			writeJSONError(w, "invalid_redirect_uri", "at least one redirect_uri is required", http.StatusBadRequest)
			return
		}
		for _, uri := range req.RedirectURIs {
			if err := auth.ValidateRedirectURI(uri); err != nil {
				writeError(w, err, http.StatusBadRequest)
				return
			}
		}

		params := clients.RegisterParams{
			ClientID:     uuid.NewString(),
			Name:         req.ClientName,
			RedirectURIs: req.RedirectURIs,
		}
		switch req.TokenEndpointAuthMethod {
		case "", authMethodNone:
			req.TokenEndpointAuthMethod = authMethodNone
		case authMethodSecretPost:
			secret, err := utils.RandomHex(clientSecretLength)
			if err != nil {
				writeError(w, err, http.StatusInternalServerError)
				return
			}
			params.Secret = secret
		default:
			writeJSONError(w, "invalid_client_metadata", "unsupported token_endpoint_auth_method", http.StatusBadRequest)
			return
		}

		client, err := s.clients.Register(params)
		if err != nil {
			writeError(w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, registrationResponse{
			ClientID:                client.ID,
			ClientSecret:            params.Secret,
			ClientIDIssuedAt:        client.CreatedAt.Unix(),
			ClientName:              client.Name,
			RedirectURIs:            client.RedirectURIs,
			TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
			GrantTypes:              []string{string(oauth2.AuthorizationCodeGrant), string(oauth2.RefreshTokenGrant)},
			ResponseTypes:           []string{string(oauth2.CodeResponseType)},
		})
	}
}

// WellKnownAuthorizationServer serves the authorization server metadata
// (RFC 8414), extended with the protocol endpoint URLs.
func (s *Server) WellKnownAuthorizationServer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.baseURL

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteAuthorize,
			"token_endpoint":         baseURL + RouteToken,
			"registration_endpoint":  baseURL + RouteRegister,

			"response_types_supported": []string{string(oauth2.CodeResponseType)},
			"response_modes_supported": []string{"query"},
			"grant_types_supported": []string{
				string(oauth2.AuthorizationCodeGrant),
				string(oauth2.RefreshTokenGrant),
			},
			"token_endpoint_auth_methods_supported": []string{
				authMethodNone,       // For public clients with PKCE
				authMethodSecretPost, // Credentials in POST body
			},
			"code_challenge_methods_supported": []string{
				string(oauth2.CodeMethodTypeS256),
				string(oauth2.CodeMethodTypePlain),
			},
			"scopes_supported": s.config.GetSupportedScopes(),

			// Protocol endpoints
			"stream_endpoint":  baseURL + RouteStream,
			"message_endpoint": baseURL + RouteMessages,
			"rpc_endpoint":     baseURL + RouteRPC,
		}

		w.Header().Set(headerCacheControl, "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, resp)
	}
}

// WellKnownProtectedResource serves the protected resource metadata (RFC 9728).
func (s *Server) WellKnownProtectedResource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"resource":                 s.baseURL,
			"authorization_servers":    []string{s.baseURL},
			"scopes_supported":         s.config.GetSupportedScopes(),
			"bearer_methods_supported": []string{"header"},
		}
		w.Header().Set(headerCacheControl, "public, max-age=3600")
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

// writeError writes err as an OAuth2 error response. Internal errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, err error, status int) {
	code := autherrors.OAuthCode(err)
	description := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		code, description = "server_error", "internal error"
	}
	writeJSONError(w, code, description, status)
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
