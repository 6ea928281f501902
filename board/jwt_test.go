package board

import (
	"testing"

	"github.com/go-playground/assert/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestParseByJwtUnverified(t *testing.T) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub":  "alice",
		"role": "admin",
	})
	// signed with a key this client does not know.
	// the claims still parse because nothing here verifies.
	byJwtStr, err := token.SignedString([]byte("server-side-secret"))
	assert.Equal(t, nil, err)

	byJwt, err := ParseByJwtUnverified(byJwtStr)
	assert.Equal(t, nil, err)
	assert.Equal(t, "alice", byJwt.Username)
	assert.Equal(t, "admin", byJwt.Role)
	assert.Equal(t, true, byJwt.IsAdmin())
}

func TestParseByJwtUnverifiedMissingClaims(t *testing.T) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub": "guest",
	})
	byJwtStr, err := token.SignedString([]byte("server-side-secret"))
	assert.Equal(t, nil, err)

	byJwt, err := ParseByJwtUnverified(byJwtStr)
	assert.Equal(t, nil, err)
	assert.Equal(t, "guest", byJwt.Username)
	assert.Equal(t, "", byJwt.Role)
	assert.Equal(t, false, byJwt.IsAdmin())
}

func TestParseByJwtUnverifiedBadToken(t *testing.T) {
	_, err := ParseByJwtUnverified("not-a-jwt")
	assert.NotEqual(t, nil, err)
}
