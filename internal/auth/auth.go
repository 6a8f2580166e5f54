package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dvcrn/ollama-proxy/internal/config"
)

// TokenExpiryBuffer is how long before expiry a bearer token counts as expiring.
const TokenExpiryBuffer = 5 * time.Minute

// Apply sets the credential header the reasoning provider expects. Azure
// accepts either a resource key in "api-key" or an Entra ID access token as
// a bearer token; OpenAI only takes bearer tokens.
func Apply(req *http.Request, provider, key string) {
	if provider == config.ProviderAzure && !IsBearerToken(key) {
		req.Header.Set("api-key", key)
		return
	}
	req.Header.Set("Authorization", "Bearer "+key)
}

// IsBearerToken reports whether key looks like a JWT access token.
func IsBearerToken(key string) bool {
	_, ok := decodeClaims(key)
	return ok
}

type claims struct {
	ExpiresAt int64 `json:"exp"`
}

// TokenExpiry returns the exp claim of a JWT access token. ok is false for
// keys that are not JWTs or carry no expiry.
func TokenExpiry(key string) (expiresAt time.Time, ok bool) {
	c, ok := decodeClaims(key)
	if !ok || c.ExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(c.ExpiresAt, 0), true
}

// TokenExpired checks if the token is expired or will expire soon
func TokenExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt.Add(-TokenExpiryBuffer))
}

func decodeClaims(key string) (claims, bool) {
	if !strings.HasPrefix(key, "eyJ") {
		return claims{}, false
	}
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return claims{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return claims{}, false
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return claims{}, false
	}
	return c, true
}
