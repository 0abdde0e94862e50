package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-accounts/config"
	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

func newTestCodec() *Codec {
	return NewCodec(config.AuthConfig{
		SecretKey:          "test-secret-key-that-is-long-enough-000",
		TokenExpireMinutes: 30,
		Issuer:             "go-user-accounts-test",
	})
}

func TestCodec_IssueVerify_RoundTrip(t *testing.T) {
	codec := newTestCodec()
	userID := uuid.New()

	tok, err := codec.Issue(userID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	subject, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)
}

func TestCodec_Issue_DefaultTTL(t *testing.T) {
	codec := newTestCodec()
	assert.Equal(t, 30*time.Minute, codec.DefaultTTL())

	tok, err := codec.Issue(uuid.New(), codec.DefaultTTL())
	require.NoError(t, err)
	_, err = codec.Verify(tok)
	assert.NoError(t, err)
}

func TestCodec_Issue_TTLTakenAsGiven(t *testing.T) {
	codec := newTestCodec()

	// No silent fallback: a zero ttl mints a token that is already expired.
	tok, err := codec.Issue(uuid.New(), 0)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidToken))
}

func TestCodec_Verify_Expired(t *testing.T) {
	codec := newTestCodec()

	tok, err := codec.Issue(uuid.New(), -1*time.Second)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidToken))
}

func TestCodec_Verify_WrongSecret(t *testing.T) {
	codec := newTestCodec()
	other := NewCodec(config.AuthConfig{
		SecretKey:          "another-secret-key-that-is-long-enough",
		TokenExpireMinutes: 30,
	})

	tok, err := other.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidToken))
}

func TestCodec_Verify_Malformed(t *testing.T) {
	codec := newTestCodec()

	_, err := codec.Verify("not.a.jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidToken))
}

func TestCodec_Verify_Tampered(t *testing.T) {
	codec := newTestCodec()

	tok, err := codec.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	_, err = codec.Verify(strings.Join(parts, "."))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidToken))
}

func TestCodec_Verify_MissingSubject(t *testing.T) {
	codec := newTestCodec()

	// Token signed with the right secret but no subject claim.
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.secretKey)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingSubject))
}

func TestCodec_Verify_NonUUIDSubject(t *testing.T) {
	codec := newTestCodec()

	claims := jwt.RegisteredClaims{
		Subject:   "definitely-not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.secretKey)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingSubject))
}
