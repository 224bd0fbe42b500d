package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-manager/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	user := &domain.User{ID: "u-1", Username: "alice", Role: domain.UserRoleAdmin}

	token, exp, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, domain.UserRoleAdmin, claims.Role)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken(&domain.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", 1)
	issued := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, exp, err := tm.GenerateToken(&domain.User{ID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Minute), exp)

	_, err = tm.ParseToken(token)
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenManager_DistinctTokenIDs(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	user := &domain.User{ID: "u-1"}

	first, _, err := tm.GenerateToken(user)
	require.NoError(t, err)
	second, _, err := tm.GenerateToken(user)
	require.NoError(t, err)

	a, err := tm.ParseToken(first)
	require.NoError(t, err)
	b, err := tm.ParseToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Issuer, a.Issuer)
}
