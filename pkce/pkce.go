// Package pkce implements the Proof Key for Code Exchange checks
// (RFC 7636) used by the token endpoint. PKCE prevents authorization
// code interception: the client that started the flow proves it also
// finishes it by presenting the verifier behind the challenge it sent
// to the authorization endpoint.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Challenge transform methods.
const (
	MethodPlain = "plain"
	MethodS256  = "S256"
)

// Verify reports whether verifier matches challenge under the given
// method. "plain" compares byte-for-byte; "S256" compares the
// base64url-encoded (unpadded) SHA-256 digest of the verifier. Any
// other method value, including the empty string, is treated as S256.
func Verify(verifier, challenge, method string) bool {
	if method == MethodPlain {
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	}
	hash := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// ChallengeS256 returns the S256 challenge for a verifier.
func ChallengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewVerifier generates a fresh random code verifier
// (32 random bytes, 43 base64url characters per RFC 7636).
func NewVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
