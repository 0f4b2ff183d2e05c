package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingToken is returned when a token is required but none was supplied.
var ErrMissingToken = errors.New("missing token")

// Claims is the subset of identity-provider claims the gateway relies on.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT verification settings.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Required bool
}

// Enabled reports whether tokens can be verified at all.
func (c *JWTConfig) Enabled() bool {
	return c != nil && len(c.Secret) > 0
}

// Identity is who the handshake token says the connection belongs to.
type Identity struct {
	UserID string
	Name   string
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Authenticate resolves the identity for a handshake token.
// With verification disabled it returns a zero Identity and no error.
// An empty token is accepted unless cfg.Required is set.
func Authenticate(cfg *JWTConfig, tokenString string) (Identity, error) {
	if !cfg.Enabled() {
		return Identity{}, nil
	}
	if tokenString == "" {
		if cfg.Required {
			return Identity{}, ErrMissingToken
		}
		return Identity{}, nil
	}

	claims, err := ValidateToken(cfg, tokenString)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.Subject, Name: claims.Name}, nil
}
