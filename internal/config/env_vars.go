package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar                  = "PORT"
	appNameVar                  = "APP_NAME"
	envVar                      = "ENV"
	baseURLVar                  = "BASE_URL"
	staticSecretVar             = "MCP_AUTH_TOKEN"
	logLevelVar                 = "LOG_LEVEL"
	bootstrapClientIDVar        = "BOOTSTRAP_CLIENT_ID"
	bootstrapRedirectURIsVar    = "BOOTSTRAP_REDIRECT_URIS"
	defaultBootstrapClientID    = "mcp-first-party"
	defaultInspectorCallbackURI = "http://localhost:6274/oauth/callback"
)

// EnvVars reads process configuration from the environment. Non-empty
// override fields win over the environment.
type EnvVars struct {
	port         string
	baseURL      string
	staticSecret string
	env          string
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.port
	if port == "" {
		port = GetEnv(portEnvVar, "8080")
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MCP Auth")
}

func (e EnvVars) GetEnv() string {
	if e.env != "" {
		return e.env
	}
	return GetEnv(envVar, "DEV")
}

// GetBaseURL returns the public base URL of the server (e.g., "https://mcp.example.com").
// Used to build the absolute URLs in the discovery documents.
func (e EnvVars) GetBaseURL() string {
	baseURL := e.baseURL
	if baseURL == "" {
		baseURL = GetEnv(baseURLVar, "http://localhost:8080")
	}
	return strings.TrimSuffix(baseURL, "/")
}

// GetStaticSecret returns the shared bearer secret, empty when none is configured.
func (e EnvVars) GetStaticSecret() string {
	if e.staticSecret != "" {
		return e.staticSecret
	}
	return os.Getenv(staticSecretVar)
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetBootstrapClientID() string {
	return GetEnv(bootstrapClientIDVar, defaultBootstrapClientID)
}

// GetBootstrapRedirectURIs returns the redirect allow-list of the first-party client.
func (e EnvVars) GetBootstrapRedirectURIs() []string {
	raw := os.Getenv(bootstrapRedirectURIsVar)
	if raw == "" {
		return []string{e.GetBaseURL() + "/callback", defaultInspectorCallbackURI}
	}
	var uris []string
	for _, uri := range strings.Split(raw, ",") {
		if uri = strings.TrimSpace(uri); uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
