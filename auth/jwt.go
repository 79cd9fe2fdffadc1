package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/tripweave/tripweave-core/errors"
)

// Claims are the token claims the library cares about. The subject is the
// user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ValidateToken parses an HS256 token string into the caller's identity.
func ValidateToken(tokenString, secret string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Unauthenticated("unexpected token signing method")
			}
			return []byte(secret), nil
		})
	if err != nil || !token.Valid {
		return Identity{}, errors.Unauthenticated("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return Identity{}, errors.Unauthenticated("token carries no user ID")
	}

	return Identity{ID: claims.Subject, Email: claims.Email}, nil
}
