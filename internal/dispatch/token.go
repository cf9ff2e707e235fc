package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/config"
)

// Token validation errors
var (
	ErrInvalidToken = errors.New("dispatch token is invalid")
	ErrExpiredToken = errors.New("dispatch token has expired")
)

const dispatchTokenType = "dispatch"

// TokenService mints and verifies the short-lived HMAC tokens that
// authenticate calls to the internal worker endpoint.
type TokenService struct {
	signingKey []byte
	lifetime   time.Duration
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration
}

type dispatchClaims struct {
	JobID     uuid.UUID `json:"jid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

// NewTokenService creates a token service from the dispatch configuration.
func NewTokenService(cfg config.DispatchConfig) (*TokenService, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("dispatch secret must be at least 32 characters")
	}
	lifetime := time.Duration(cfg.TokenLifetimeSeconds) * time.Second
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	return &TokenService{
		signingKey: []byte(cfg.Secret),
		lifetime:   lifetime,
		timeFunc:   time.Now,
		clockSkew:  30 * time.Second,
	}, nil
}

// Mint creates a signed token authorizing one dispatch of the given job.
func (s *TokenService) Mint(_ context.Context, jobID uuid.UUID) (string, error) {
	now := s.timeFunc()
	claims := dispatchClaims{
		JobID:     jobID,
		TokenType: dispatchTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   jobID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign dispatch token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature, lifetime, and type, and returns the
// job ID it was minted for.
func (s *TokenService) Verify(_ context.Context, tokenString string) (uuid.UUID, error) {
	now := s.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&dispatchClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*dispatchClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.TokenType != dispatchTokenType {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.JobID == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return claims.JobID, nil
}
