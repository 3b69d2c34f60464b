package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkoch/verleihsystem/internal/apperr"
)

var testSecret = []byte("test-jwt-secret")

func TestSignAndParse_RoundTrip(t *testing.T) {
	t.Parallel()

	roles := []string{"Administrator", "Lehrer"}
	perms := []string{"all"}
	expiresAt := time.Now().Add(TTL)

	claims := New(42, "marie", roles, perms, expiresAt)
	token, err := Sign(claims, testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := Parse(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, uint(42), parsed.UserID())
	assert.Equal(t, "marie", parsed.Username)
	assert.Equal(t, "Administrator", parsed.Role, "primary role is the head of the role list")
	assert.Equal(t, roles, parsed.Roles)
	assert.Equal(t, perms, parsed.Permissions)
	assert.NotEmpty(t, parsed.ID)
	require.NotNil(t, parsed.ExpiresAt)
	assert.WithinDuration(t, expiresAt, parsed.ExpiresAt.Time, time.Second)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	claims := New(1, "bob", []string{"Lehrer"}, nil, time.Now().Add(-time.Minute))
	token, err := Sign(claims, testSecret)
	require.NoError(t, err)

	parsed, err := Parse(token, testSecret)
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestParse_TamperedSignature(t *testing.T) {
	t.Parallel()

	claims := New(1, "bob", []string{"Lehrer"}, nil, time.Now().Add(TTL))
	token, err := Sign(claims, testSecret)
	require.NoError(t, err)

	parsed, err := Parse(token, []byte("a-different-secret"))
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	parsed, err = Parse(token+"x", testSecret)
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	parsed, err := Parse("not-a-token", testSecret)
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestNew_NoRoles(t *testing.T) {
	t.Parallel()

	claims := New(7, "nora", nil, nil, time.Now().Add(TTL))
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.Roles)
}
