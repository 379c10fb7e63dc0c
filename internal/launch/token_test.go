package launch

import (
	"testing"
	"time"

	"craft-keeper/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{"xuid": "2535405290", "exp": exp.Unix()})

	c, ok := InspectToken(tok)
	require.True(t, ok)
	assert.Equal(t, "2535405290", c.XUID)
	assert.True(t, c.Expires.Equal(exp))
	assert.True(t, c.Expired(time.Now()))

	_, ok = InspectToken("0")
	assert.False(t, ok)
	_, ok = InspectToken("a.b.c")
	assert.False(t, ok)

	c, ok = InspectToken(signedToken(t, jwt.MapClaims{"sub": "x"}))
	require.True(t, ok)
	assert.Empty(t, c.XUID)
	assert.False(t, c.Expired(time.Now()))
}

func TestBuildTakesXUIDFromToken(t *testing.T) {
	desc := modernDescriptor()
	desc.Arguments.Game = append(desc.Arguments.Game, models.Argument{Value: []string{"--xuid", "${auth_xuid}"}})
	b := NewBuilder(t.TempDir(), "craft-keeper", "1.0")

	tok := signedToken(t, jwt.MapClaims{"xuid": "42"})
	spec, err := b.Build(desc, testPlan(), linux, Options{AccessToken: tok})
	require.NoError(t, err)
	assert.Equal(t, []string{"--xuid", "42"}, spec.GameArgs[len(spec.GameArgs)-2:])

	// an explicit value wins
	spec, err = b.Build(desc, testPlan(), linux, Options{AccessToken: tok, XUID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "7", spec.GameArgs[len(spec.GameArgs)-1])
}
