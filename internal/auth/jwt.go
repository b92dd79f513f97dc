package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"little-stars/internal/domain"
)

type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewAccessToken signs an HS256 token for the student. sessionID becomes the
// jti claim and ties the token to its server-side session record.
func NewAccessToken(secret, issuer string, ttl time.Duration, userID string, role domain.Role, sessionID string) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("jwt secret is required")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	return parse(secret, tokenString)
}

// ParseTokenAllowExpired checks the signature but not exp, so that a client
// holding an expired token can still end its session.
func ParseTokenAllowExpired(secret, tokenString string) (*Claims, error) {
	return parse(secret, tokenString, jwt.WithoutClaimsValidation())
}

func parse(secret, tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ExpiryUnverified reads the exp claim without checking the signature. Clients
// use it to drop a stored token that has certainly expired; it must never be
// used to authorize anything. ok is false for opaque (non-JWT) tokens and for
// tokens without exp.
func ExpiryUnverified(tokenString string) (exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
