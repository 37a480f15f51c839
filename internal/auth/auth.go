// Package auth maps a connection's bearer credential to a stable user identity.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is what the rest of the server trusts for a connection's lifetime.
type Identity struct {
	UserID string
	Email  string
}

// Resolver verifies a bearer credential.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Claims are the fields read from a Supabase access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens signed with a shared secret.
type JWTResolver struct {
	secretKey []byte
	leeway    time.Duration
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{
		secretKey: []byte(secret),
		leeway:    5 * time.Second,
	}
}

func (r *JWTResolver) Resolve(_ context.Context, tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secretKey, nil
	}, jwt.WithLeeway(r.leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// TokenFromRequest reads the credential from the "token" query parameter or
// an "Authorization: Bearer" header. Browsers cannot set headers on a
// websocket handshake, so the query parameter is checked first.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
