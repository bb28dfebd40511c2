// Package auth issues and verifies the JWTs that authenticate both HTTP
// requests and gateway connections.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired reports an otherwise valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid reports any other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Principal is the authenticated identity attached to a request or
// connection after token verification.
type Principal struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	secret   []byte
	validity time.Duration
}

// NewTokenService creates a token service with a symmetric secret.
func NewTokenService(secret []byte, validity time.Duration) *TokenService {
	return &TokenService{secret: secret, validity: validity}
}

// Issue mints a signed token for the principal.
func (s *TokenService) Issue(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   p.UserID,
		Username: p.Username,
		IsAdmin:  p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
			Issuer:    "serenity",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a token and returns the principal it carries. Expired tokens
// yield ErrTokenExpired; every other failure yields ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return Principal{}, ErrTokenInvalid
	}

	return Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}, nil
}
