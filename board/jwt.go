package board

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

type ByJwt struct {
	Username string
	Role     string
}

func (self *ByJwt) IsAdmin() bool {
	return self.Role == "admin"
}

// ParseByJwtUnverified extracts the display claims from a board
// credential without verifying the signature. This is a ui
// convenience only. The server re-verifies the token on every
// authenticated request, so nothing here is a security boundary.
func ParseByJwtUnverified(byJwt string) (*ByJwt, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(byJwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	parsed := &ByJwt{}

	if username, ok := claims["sub"].(string); ok {
		parsed.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		parsed.Role = role
	}

	return parsed, nil
}
