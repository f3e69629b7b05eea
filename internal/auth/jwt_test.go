package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuePair_BothTokensVerifyToSameSubject(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, 24*time.Hour)

	pair, err := m.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := m.Verify(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := m.Verify(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, "user-1", access.Subject)
	assert.Equal(t, "ann@x.com", access.Email)
	assert.Equal(t, access.Subject, refresh.Subject)
	assert.Equal(t, access.Email, refresh.Email)

	// refresh outlives access
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
}

func TestIssuePair_ConsecutivePairsDiffer(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, 24*time.Hour)

	first, err := m.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)
	second, err := m.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", -time.Second, -time.Second)

	pair, err := m.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)

	_, err = m.Verify(pair.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, "token_expired", Reason(err))
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewManager("right-secret", time.Hour, time.Hour)
	verifier := NewManager("wrong-secret", time.Hour, time.Hour)

	pair, err := issuer.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)

	_, err = verifier.Verify(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, "token_invalid", Reason(err))
}

func TestVerify_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	t.Parallel()

	issuer := NewManager("right-secret", -time.Second, -time.Second)
	verifier := NewManager("wrong-secret", time.Hour, time.Hour)

	pair, err := issuer.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)

	_, err = verifier.Verify(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Tampered(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, time.Hour)
	pair, err := m.IssuePair("user-1", "ann@x.com")
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)

	// swap the payload for another token's payload, keeping the original signature
	other, err := m.IssuePair("user-2", "bob@x.com")
	require.NoError(t, err)
	parts[1] = strings.Split(other.AccessToken, ".")[1]

	_, err = m.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m := NewManager("k", time.Hour, time.Hour)

	for _, raw := range []string{"", "not.a.jwt", "garbage"} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, "input %q", raw)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	m := NewManager("k", time.Hour, time.Hour)

	claims := Claims{
		Email: "ann@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_MissingSubject(t *testing.T) {
	t.Parallel()

	m := NewManager("k", time.Hour, time.Hour)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
