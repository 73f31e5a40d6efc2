package config

import (
	"strings"
	"time"
)

const accessTokenTTLVar = "ACCESS_TOKEN_TTL"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetCodeGenerationLength() int
	GetAccessTokenLength() int
	GetRefreshTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
	GetSupportedScopes() []string
	GetDefaultScope() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetCodeGenerationLength() int {
	return 32
}

func (OAuth) GetAccessTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (OAuth) GetRefreshTokenLength() int {
	return 32
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	if d, err := time.ParseDuration(GetEnv(accessTokenTTLVar, "")); err == nil && d > 0 {
		return d
	}
	return 1 * time.Hour
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (OAuth) GetSupportedScopes() []string {
	return []string{"read", "write"}
}

func (o OAuth) GetDefaultScope() string {
	return strings.Join(o.GetSupportedScopes(), " ")
}
