package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that fail signature or claim
// validation.
var ErrInvalidToken = errors.New("invalid token")

// Gateway resolves a caller token to a stable user id.
type Gateway interface {
	ResolveCaller(ctx context.Context, token string) (string, error)
}

// JWTGateway validates HS256 tokens issued by the auth service and reads the
// user id from the subject claim.
type JWTGateway struct {
	secret []byte
}

// NewJWTGateway constructs a JWTGateway.
func NewJWTGateway(secret string) *JWTGateway {
	return &JWTGateway{secret: []byte(secret)}
}

// ResolveCaller parses and verifies the token and returns the user id.
func (g *JWTGateway) ResolveCaller(ctx context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
