package session

import (
	"errors"
	"fmt"
)

// Protocol violations. Each aborts the session.
var (
	ErrMissingSessionCookie = errors.New("login response has no Set-Cookie header")
	ErrProductNotFound      = errors.New("no product matches the requested name")
	ErrEmptyCatalog         = errors.New("product catalog is empty")
	ErrMissingField         = errors.New("response is missing a required field")
	ErrAlreadyAuthenticated = errors.New("user is already authenticated")
	ErrEmptyToken           = errors.New("session token is empty")
)

// StepError is the failure of one script step against one backend.
type StepError struct {
	Step   string
	Target string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s on %s: %v", e.Step, e.Target, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
