package auth

import (
	"testing"
	"time"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "battery staple"), ErrInvalidCredentials)
}

func TestManagerIssueAndParse(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	user := models.User{ID: "u-1", Email: "ada@example.com", Role: models.RoleAdmin}
	token, err := m.Issue(user)
	require.NoError(t, err)

	s, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID)
	assert.Equal(t, "ada@example.com", s.Email)
	assert.True(t, s.IsAdmin())
	assert.NotEmpty(t, s.ID)
}

func TestManagerRejectsForeignAndExpiredTokens(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewManager("other", time.Hour)
	require.NoError(t, err)

	token, err := other.Issue(models.User{ID: "u-1", Role: models.RoleUser})
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := m.Issue(models.User{ID: "u-1", Role: models.RoleUser})
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagerRevokeAndPrune(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue(models.User{ID: "u-1", Role: models.RoleUser})
	require.NoError(t, err)
	s, err := m.Parse(token)
	require.NoError(t, err)

	m.Revoke(*s)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Equal(t, 0, m.PruneRevoked())
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, m.PruneRevoked())
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
}
