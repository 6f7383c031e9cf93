package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthReason tells log readers why a token was rejected. Clients never see it.
type AuthReason string

const (
	ReasonMalformed      AuthReason = "malformed"
	ReasonBadSignature   AuthReason = "bad_signature"
	ReasonExpired        AuthReason = "expired"
	ReasonMissingSubject AuthReason = "missing_subject"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// AuthError is returned by Verify for every rejected token.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token rejected (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TokenManager issues and verifies HMAC-signed access tokens whose subject is a user id.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager accepts HS256, HS384 or HS512.
func NewTokenManager(secret, algorithm string, ttl time.Duration) (*TokenManager, error) {
	method, ok := jwt.GetSigningMethod(strings.ToUpper(algorithm)).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &TokenManager{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests to simulate expiry.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Issue signs a token for userID with the configured TTL.
func (m *TokenManager) Issue(userID uuid.UUID) (string, error) {
	return m.IssueWithTTL(userID, m.ttl)
}

// IssueWithTTL signs a token that expires ttl from now. A ttl <= 0 yields a
// token that is already expired.
func (m *TokenManager) IssueWithTTL(userID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl < 0 {
		ttl = 0
	}
	now := m.now()

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(m.method, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verify checks signature and expiry and returns the subject user id.
// Every failure is an *AuthError.
func (m *TokenManager) Verify(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return uuid.Nil, &AuthError{Reason: classify(err), Err: err}
	}

	if claims.Subject == "" {
		return uuid.Nil, &AuthError{Reason: ReasonMissingSubject}
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, &AuthError{Reason: ReasonMalformed, Err: err}
	}

	return userID, nil
}

func classify(err error) AuthReason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
