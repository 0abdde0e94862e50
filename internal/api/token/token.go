package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-accounts/config"
	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

// Claims is the claim set carried by issued access tokens. The subject
// registered claim holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec issues and verifies signed, expiring bearer tokens bound to a user
// ID. The signing secret, algorithm (HS256, fixed) and default TTL are set
// once at construction and never change.
type Codec struct {
	secretKey  []byte
	defaultTTL time.Duration
	issuer     string
}

func NewCodec(cfg config.AuthConfig) *Codec {
	return &Codec{
		secretKey:  []byte(cfg.SecretKey),
		defaultTTL: time.Duration(cfg.TokenExpireMinutes) * time.Minute,
		issuer:     cfg.Issuer,
	}
}

// DefaultTTL returns the configured token lifetime.
func (c *Codec) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Issue signs a token whose subject is userID, expiring after ttl. The ttl
// is taken as given, so a zero or negative value mints an already-expired
// token; callers wanting the configured lifetime pass DefaultTTL.
func (c *Codec) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the user ID from its
// subject claim. Signature mismatch, malformed encoding and expiry all map
// to types.ErrInvalidToken; a missing or non-UUID subject maps to
// types.ErrMissingSubject.
func (c *Codec) Verify(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secretKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", types.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return uuid.Nil, types.ErrInvalidToken
	}

	if claims.Subject == "" {
		return uuid.Nil, types.ErrMissingSubject
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", types.ErrMissingSubject, claims.Subject)
	}
	return userID, nil
}
