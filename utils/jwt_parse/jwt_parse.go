package jwt_parse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken      = errors.New("no authorization token")
	ErrInvalidAuthScheme = errors.New("invalid authorization format")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	if len(authHeader) > 7 && strings.ToLower(authHeader[:7]) == "bearer " {
		return strings.TrimSpace(authHeader[7:]), nil
	}
	return "", ErrInvalidAuthScheme
}

// ParseClaims validates an HMAC-signed token and returns its claims.
func ParseClaims(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Subject returns user_id, falling back to sub.
func Subject(claims jwt.MapClaims) string {
	if v, ok := claims["user_id"].(string); ok && v != "" {
		return v
	}
	sub, _ := claims.GetSubject()
	return sub
}

// IssueToken signs an HS256 token for subject with the given role.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
