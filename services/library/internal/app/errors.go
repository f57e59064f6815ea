package app

import (
	"errors"
	"fmt"
)

// Error kinds. Classify with errors.Is(err, ErrNotFound).
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error carries a message that is safe to show to clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

var (
	// ErrInvalidCredentials is shared by unknown user and wrong password so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Msg: "incorrect email or password"}
	ErrInvalidToken       = &Error{Kind: ErrUnauthenticated, Msg: "invalid or expired token"}
	ErrMissingToken       = &Error{Kind: ErrUnauthenticated, Msg: "missing bearer token"}

	ErrEmailAndPasswordRequired = &Error{Kind: ErrValidation, Msg: "email and password required"}
	ErrEmailAlreadyExists       = &Error{Kind: ErrConflict, Msg: "email already registered"}

	ErrBookNotFound  = &Error{Kind: ErrNotFound, Msg: "book not found"}
	ErrVocabNotFound = &Error{Kind: ErrNotFound, Msg: "vocabulary entry not found"}
	ErrNoteNotFound  = &Error{Kind: ErrNotFound, Msg: "note not found"}
	ErrBookBusy      = &Error{Kind: ErrConflict, Msg: "book is being modified concurrently, retry the request"}
)

// PublicMessage returns the client-facing message of err, or "" when err
// does not carry one.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return ""
}
