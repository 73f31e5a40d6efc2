package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetStaticSecret() string
	GetLogLevel() string
	GetBootstrapClientID() string
	GetBootstrapRedirectURIs() []string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
	GetExposedHeaders() string
}

type SecurityConfig interface {
	GetRequirePKCE() bool
	GetMaxSessionAge() time.Duration
	GetSweepInterval() time.Duration
	GetStaticSecretIdentityExpiry() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
}

// Option overrides a value that would otherwise come from the environment,
// typically from a command line flag.
type Option func(*mainConfig)

func WithPort(port string) Option {
	return func(c *mainConfig) { c.EnvVars.port = port }
}

func WithBaseURL(baseURL string) Option {
	return func(c *mainConfig) { c.EnvVars.baseURL = baseURL }
}

func WithStaticSecret(secret string) Option {
	return func(c *mainConfig) { c.EnvVars.staticSecret = secret }
}

func WithEnv(env string) Option {
	return func(c *mainConfig) { c.EnvVars.env = env }
}

func New(options ...Option) Config {
	c := &mainConfig{}
	for _, opt := range options {
		opt(c)
	}
	return *c
}
