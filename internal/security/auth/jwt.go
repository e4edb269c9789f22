package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by an access token. The jti (RegisteredClaims.ID) is the
// handle the token store tracks for revocation.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates bearer tokens
type TokenManager struct {
	key    []byte
	issuer string
}

// NewTokenManager creates a token manager using an HS256 signing key
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{
		key:    []byte(secret),
		issuer: issuer,
	}
}

// Generate issues a signed token bound to the user, valid for ttl.
// It returns the signed token and its jti.
func (tm *TokenManager) Generate(userID, email string, ttl time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tm.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.key)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, jti, nil
}

// Validate parses and verifies a token string
func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.key, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ExtractToken pulls the bearer token out of an Authorization header
func ExtractToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("malformed authorization header")
	}
	return parts[1], nil
}
