package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/jrsteele09/go-mcp-auth/oauth2"
)

// VerifyPKCE checks a code_verifier against the code_challenge recorded at
// authorization time (RFC 7636 section 4.6). Unknown methods never verify.
func VerifyPKCE(verifier, challenge string, method oauth2.CodeMethodType) bool {
	switch method {
	case oauth2.CodeMethodTypeS256:
		return S256Challenge(verifier) == challenge
	case oauth2.CodeMethodTypePlain:
		return verifier == challenge
	}
	return false
}

// S256Challenge derives the S256 code_challenge for verifier.
func S256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
