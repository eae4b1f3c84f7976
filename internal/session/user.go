package session

import (
	"github.com/google/uuid"

	"github.com/wesleyorama2/shopload/internal/identity"
)

// User is one simulated shopper. It starts anonymous and becomes
// authenticated exactly once, when login hands it a token.
//
// A User belongs to a single session and is not safe for concurrent use.
type User struct {
	ID      string
	Profile identity.Profile

	token string
}

// NewUser creates an anonymous user with a fresh id.
func NewUser(profile identity.Profile) *User {
	return &User{ID: uuid.NewString(), Profile: profile}
}

// Authenticate moves the user to the authenticated state.
func (u *User) Authenticate(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if u.token != "" {
		return ErrAlreadyAuthenticated
	}
	u.token = token
	return nil
}

// Token returns the session token and whether the user is authenticated.
func (u *User) Token() (string, bool) {
	return u.token, u.token != ""
}

// credentialHeader returns the Authorization value for the user's current
// state, or "" when anonymous.
func credentialHeader(u *User) string {
	token, ok := u.Token()
	if !ok {
		return ""
	}
	return "session " + token
}
