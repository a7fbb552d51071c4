package oauth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity claims read from the id_token.
type Claims struct {
	Name              string
	PreferredUsername string
}

// DisplayName prefers the name claim, then preferred_username.
func (c Claims) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.PreferredUsername != "":
		return c.PreferredUsername
	default:
		return "Unknown"
	}
}

// ParseIDToken extracts identity claims without verifying the signature.
// The token came straight from the token endpoint over TLS and is used for
// display only.
func ParseIDToken(idToken string) (Claims, error) {
	if idToken == "" {
		return Claims{}, nil
	}
	tok, _, err := jwt.NewParser().ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("parse id_token: %w", err)
	}
	mc, _ := tok.Claims.(jwt.MapClaims)
	name, _ := mc["name"].(string)
	upn, _ := mc["preferred_username"].(string)
	return Claims{Name: name, PreferredUsername: upn}, nil
}
