// Package auth issues and validates the HS256 JWTs used for sessions and
// for anti-forgery (CSRF) checks on mutating requests.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
)

// Token kinds. A session token authenticates the caller; a CSRF token must
// additionally accompany every mutating request and is bound to the same
// user. The two are never interchangeable.
const (
	KindSession = "session"
	KindCSRF    = "csrf"
)

// Claims carries the registered claims plus the user id and the token kind.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
	Kind   string
}

// GenerateToken mints a token of the given kind for userID.
func GenerateToken(userID, kind string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
		Kind:   kind,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken validates tokenString and returns the user id it was
// minted for. A valid token of the wrong kind is rejected.
func GetUserIDFromToken(tokenString, kind string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid || claims.Kind != kind {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
