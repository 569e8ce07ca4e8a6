// internal/auth/token.go
// Client-side bearer token inspection. The client never verifies the
// signature (it has no secret); it only extracts the identity claims it
// needs and refuses to connect with an expired or unreadable token.

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrTokenExpired  = errors.New("auth: token is expired")
	ErrMissingUserID = errors.New("auth: token carries no user id")
)

// TokenClaims is the subset of claims the chat session needs.
type TokenClaims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// InspectToken parses a bearer token without verifying the signature and
// returns its claims. Expired tokens are rejected so a session never
// dials the transport with a credential the server will refuse.
func InspectToken(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("auth: failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("auth: unexpected claims type")
	}

	out := &TokenClaims{
		Username: getStringClaim(claims, "username"),
	}

	// user_id may be a string or a number depending on the issuer
	switch v := claims["user_id"].(type) {
	case string:
		out.UserID = v
	case float64:
		out.UserID = strconv.FormatInt(int64(v), 10)
	}
	if out.UserID == "" {
		out.UserID = getStringClaim(claims, "sub")
	}
	if out.UserID == "" {
		return nil, ErrMissingUserID
	}

	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
		if time.Now().After(out.ExpiresAt) {
			return nil, ErrTokenExpired
		}
	}

	return out, nil
}

func getStringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
