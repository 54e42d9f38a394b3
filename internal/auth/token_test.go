package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merako/storefront/internal/domain/user"
)

func newTestTokens(now time.Time, ttl time.Duration) *Tokens {
	t := NewTokens([]byte("test-secret"), ttl)
	t.now = func() time.Time { return now }
	return t
}

func userPrincipal(id int64) *user.Principal {
	return &user.Principal{Role: user.RoleUser, User: &user.User{ID: id}}
}

func TestIssueAndParse_RoundTrip(t *testing.T) {
	tokens := newTestTokens(time.Now(), time.Hour)

	signed, err := tokens.Issue(userPrincipal(42))
	require.NoError(t, err)

	role, id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, role)
	assert.Equal(t, int64(42), id)
}

func TestIssueAndParse_AdminRole(t *testing.T) {
	tokens := newTestTokens(time.Now(), time.Hour)

	signed, err := tokens.Issue(&user.Principal{Role: user.RoleAdmin, Admin: &user.Admin{ID: 7}})
	require.NoError(t, err)

	role, id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, role)
	assert.Equal(t, int64(7), id)
}

func TestParse_Expired(t *testing.T) {
	issued := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	tokens := newTestTokens(issued, time.Hour)

	signed, err := tokens.Issue(userPrincipal(1))
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, _, err = tokens.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_WrongSecret(t *testing.T) {
	tokens := newTestTokens(time.Now(), time.Hour)
	signed, err := tokens.Issue(userPrincipal(1))
	require.NoError(t, err)

	other := NewTokens([]byte("other-secret"), time.Hour)
	_, _, err = other.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	tokens := newTestTokens(time.Now(), time.Hour)

	_, _, err := tokens.Parse("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
