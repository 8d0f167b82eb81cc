// Package auth issues and checks the HS256 access tokens that bind an API
// caller to one sending identity.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "mailproof"

// Claims carries the registered claims plus the identity the caller may
// sign as.
type Claims struct {
	jwt.RegisteredClaims
	Identity string `json:"identity"`
}

func GenerateToken(identity string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Identity: identity,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetIdentityFromToken validates tokenString and returns its identity.
// Expired tokens yield common.ErrTokenExpired, any other failure
// common.ErrInvalidToken.
func GetIdentityFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Identity == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Identity, nil
}
