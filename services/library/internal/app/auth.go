package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readshelf/internal/util"
	"readshelf/pkg/auth"
	"readshelf/pkg/domain"
	"readshelf/pkg/store"
)

// Session is an issued bearer token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// SignUp registers a new user.
func (a *App) SignUp(ctx context.Context, email, password string) (domain.User, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, ErrEmailAndPasswordRequired
	}
	if err := auth.ValidateEmail(email); err != nil {
		return domain.User{}, validationError("%s", err.Error())
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, validationError("%s", err.Error())
	}
	exists, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := a.now()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(ctx, user); err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, store.ErrEmailTaken) {
			return domain.User{}, ErrEmailAlreadyExists
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(ctx context.Context, email, password string) (Session, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrEmailAndPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return Session{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	token, expiresAt, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken resolves a bearer token to its user id.
func (a *App) VerifyToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		if err != nil && !errors.Is(err, store.ErrTokenRevoked) {
			util.LoggerFromContext(ctx).Debug("token rejected", "err", err)
		}
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Logout revokes token until it expires.
func (a *App) Logout(token string) error {
	if err := a.sessions.DeleteSession(token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Me returns the user behind an authenticated id.
func (a *App) Me(ctx context.Context, userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidToken
	}
	return user, nil
}

// ChangePassword replaces the password hash and revokes every token issued
// before the change.
func (a *App) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return validationError("old and new password required")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return validationError("%s", err.Error())
	}
	if oldPassword == newPassword {
		return validationError("new password must differ from the old password")
	}
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrInvalidToken
	}
	if !auth.CheckPassword(oldPassword, user.PasswordHash) {
		return validationError("old password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := a.now()
	user.PasswordHash = hash
	user.UpdatedAt = now
	if err := a.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if revoker, ok := a.sessions.(store.UserSessionRevoker); ok {
		if err := revoker.RevokeUserSessions(user.ID, now); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return nil
}
