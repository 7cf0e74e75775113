// Package service mints and verifies the bearer tokens used by every protected route
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired is returned for a well-signed token whose exp has passed.
	// The message is part of the wire contract: clients prompt for re-login on it.
	ErrTokenExpired = errors.New("jwt expired")
	// ErrTokenInvalid covers bad signatures, malformed tokens and missing claims
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims are the identity fields embedded in a session token
type Claims struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret []byte
	expiry time.Duration
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, expiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Expiry returns the lifetime given to newly minted tokens
func (tg *TokenGenerator) Expiry() time.Duration {
	return tg.expiry
}

// GenerateToken mints a signed token for the given identity
//
// Every token gets its own jti so that a single session can be revoked
// without touching the others.
func (tg *TokenGenerator) GenerateToken(userID int, email, name, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:    userID,
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tg.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tg.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies signature and expiry and returns the embedded claims
func (tg *TokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tg.secret, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.ID <= 0 || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}

	return claims, nil
}

// ParseUnverified decodes the claims segment of a token without checking the
// header or the signature
//
// Only for holders that received the token from a trusted login call.
func ParseUnverified(tokenString string) (*Claims, error) {
	segments := strings.Split(tokenString, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("%w: token must have three segments", ErrTokenInvalid)
	}

	payload, err := jwt.NewParser().DecodeSegment(segments[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode token payload: %w", err)
	}

	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	return claims, nil
}
