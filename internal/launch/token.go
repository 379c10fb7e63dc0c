package launch

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the fields of a session token the launcher reads.
type SessionClaims struct {
	XUID    string
	Expires time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c SessionClaims) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

/**
 * Read the claims of a JWT session token without verifying it
 * @param {string} token - Access token passed to the game
 * @returns {SessionClaims, bool} ok is false for opaque tokens ("0", offline play)
 */
func InspectToken(token string) (SessionClaims, bool) {
	var c SessionClaims
	if strings.Count(token, ".") != 2 {
		return c, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return c, false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return c, false
	}
	if x, ok := claims["xuid"].(string); ok {
		c.XUID = x
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.Expires = exp.Time
	}
	return c, true
}
