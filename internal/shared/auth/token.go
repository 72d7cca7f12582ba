package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ExtractBearerToken extracts the bearer token from the Authorization header.
// It handles the "Bearer " prefix and returns an empty string if no token is
// present.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return ExtractBearerTokenFromHeader(r.Header.Get("Authorization"))
}

// ExtractBearerTokenFromHeader extracts the bearer token from an
// Authorization header value.
//
// Example:
//
//	token := ExtractBearerTokenFromHeader("Bearer s3cr3t")
func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	const bearerPrefix = "Bearer "
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}

	// Also handle lowercase "bearer" for flexibility
	const bearerPrefixLower = "bearer "
	if strings.HasPrefix(strings.ToLower(header), bearerPrefixLower) {
		return strings.TrimSpace(header[len(bearerPrefixLower):])
	}

	return ""
}

// SecretEqual reports whether a presented secret matches the configured one.
// The comparison is constant time so the match position cannot leak through
// response latency. An empty configured secret never matches anything:
// endpoints gated on it stay closed until the operator sets a value.
func SecretEqual(configured, presented string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
