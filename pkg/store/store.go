package store

import (
	"context"
	"errors"
	"time"

	"readshelf/pkg/domain"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when a user row would duplicate an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWriteConflict is returned when an aggregate kept changing underneath a write.
	ErrWriteConflict = errors.New("concurrent write conflict")
)

// BookMutator changes a loaded book in place. It may run more than once
// when a concurrent writer wins the race, so it must only depend on its input.
type BookMutator func(*domain.Book) error

// Store defines persistence operations for users and books.
// Book operations are always scoped to an owner.
type Store interface {
	// users
	SaveUser(ctx context.Context, u domain.User) error
	HasUserEmail(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// books
	CreateBook(ctx context.Context, b domain.Book) error
	ListBooksByOwner(ctx context.Context, ownerID string) ([]domain.Book, error)
	GetOwnedBook(ctx context.Context, ownerID, bookID string) (domain.Book, bool, error)
	UpdateOwnedBook(ctx context.Context, ownerID, bookID string, mutate BookMutator) (domain.Book, error)
	DeleteOwnedBook(ctx context.Context, ownerID, bookID string) (bool, error)
}

// SessionStore issues and resolves bearer tokens.
type SessionStore interface {
	NewSession(userID string) (string, time.Time, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// UserSessionRevoker is an optional capability that revokes all sessions
// issued for a user before a cutoff time.
type UserSessionRevoker interface {
	RevokeUserSessions(userID string, since time.Time) error
}
