package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSignature = errors.New("invalid token")
	ErrExpired          = errors.New("token expired")
)

// TokenManager issues and validates HMAC-signed JWTs carrying an account
// id as the subject. Secret and algorithm are fixed for its lifetime.
type TokenManager struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, algorithm string, defaultTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if defaultTTL <= 0 {
		return nil, errors.New("default token ttl must be positive")
	}

	return &TokenManager{
		secret:     []byte(secret),
		method:     method,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// Issue signs a token for subject that expires ttl from now. A ttl of zero
// or less produces a token that is already expired.
func (m *TokenManager) Issue(subject string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (m *TokenManager) IssueDefault(subject string) (string, error) {
	return m.Issue(subject, m.defaultTTL)
}

// Validate returns the subject of a token signed by this manager.
// It fails with ErrExpired once the expiration instant has been reached and
// with ErrInvalidSignature for anything else that does not verify.
func (m *TokenManager) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrExpired
	}
	if err != nil {
		return "", ErrInvalidSignature
	}
	if claims.Subject == "" {
		return "", ErrInvalidSignature
	}
	return claims.Subject, nil
}
