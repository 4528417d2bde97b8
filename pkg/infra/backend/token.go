package backend

import (
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

const profileClaim = "https://api.openai.com/profile"

// TokenInfo is what can be read from an access token without verifying it
type TokenInfo struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now
func (x *TokenInfo) Expired(now time.Time) bool {
	return !x.ExpiresAt.IsZero() && now.After(x.ExpiresAt)
}

// InspectToken decodes a JWT access token. The signature is not verified: the backend does that.
// ok is false for opaque tokens issued by proxies.
func InspectToken(raw string) (*TokenInfo, bool) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if strings.Count(raw, ".") != 2 {
		return nil, false
	}

	token, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return nil, false
	}

	info := &TokenInfo{
		Subject:   token.Subject(),
		IssuedAt:  token.IssuedAt(),
		ExpiresAt: token.Expiration(),
	}

	if v, ok := token.Get(profileClaim); ok {
		if profile, ok := v.(map[string]any); ok {
			if email, ok := profile["email"].(string); ok {
				info.Email = email
			}
		}
	}

	return info, true
}
