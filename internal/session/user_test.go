package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_StartsAnonymous(t *testing.T) {
	u := testUser()

	token, ok := u.Token()
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Empty(t, credentialHeader(u))
	assert.NotEmpty(t, u.ID)
}

func TestUser_Authenticate(t *testing.T) {
	u := testUser()
	require.NoError(t, u.Authenticate("tok123"))

	token, ok := u.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok123", token)
	assert.Equal(t, "session tok123", credentialHeader(u))
}

func TestUser_AuthenticateOnce(t *testing.T) {
	u := testUser()
	require.NoError(t, u.Authenticate("first"))

	err := u.Authenticate("second")
	assert.True(t, errors.Is(err, ErrAlreadyAuthenticated))

	token, _ := u.Token()
	assert.Equal(t, "first", token)
}

func TestUser_AuthenticateRejectsEmptyToken(t *testing.T) {
	u := testUser()
	assert.ErrorIs(t, u.Authenticate(""), ErrEmptyToken)
	_, ok := u.Token()
	assert.False(t, ok)
}

func TestUser_IDsAreUnique(t *testing.T) {
	assert.NotEqual(t, testUser().ID, testUser().ID)
}
