package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminToken is a signed, short-lived JWT authorizing operator access to
// destructive administrative endpoints. There is exactly one scope here:
// there are no customer accounts or roles in this service, so the claim
// set is deliberately thinner than a general-purpose access token.
type AdminToken struct {
	Token string
	Exp   time.Time
}

// NewAdminToken issues an HS256 JWT with scope "admin" and the given TTL.
func NewAdminToken(secret string, ttlMin int) (AdminToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"scope": "admin",
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AdminToken{}, err
	}
	return AdminToken{Token: signed, Exp: exp}, nil
}

// ParseAdminToken validates raw against secret and returns the parsed token.
func ParseAdminToken(secret, raw string) (*jwt.Token, error) {
	return jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
}
