package app

import (
	"context"
	"testing"
	"time"
)

func TestSignUpNormalizesAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.app.SignUp(ctx, "  Reader@Example.COM ", "correct-horse")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Fatalf("expected hashed password")
	}

	_, err = env.app.SignUp(ctx, "READER@example.com", "another-password")
	assertKind(t, err, ErrConflict)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", "password-123"},
		{"missing password", "a@example.com", ""},
		{"malformed email", "not-an-email", "password-123"},
		{"display name", "Reader <a@example.com>", "password-123"},
		{"short password", "a@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.app.SignUp(ctx, tc.email, tc.password)
			assertKind(t, err, ErrValidation)
		})
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.app.Login(ctx, " OWNER@example.com", "password-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" || session.User.ID != env.userID {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", session.ExpiresAt)
	}
	userID, err := env.app.VerifyToken(ctx, session.Token)
	if err != nil || userID != env.userID {
		t.Fatalf("verify token: userID=%q err=%v", userID, err)
	}
	me, err := env.app.Me(ctx, userID)
	if err != nil || me.Email != "owner@example.com" {
		t.Fatalf("me: %+v err=%v", me, err)
	}
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, wrongPassword := env.app.Login(ctx, "owner@example.com", "wrong-password")
	_, unknownUser := env.app.Login(ctx, "ghost@example.com", "password-1")
	assertKind(t, wrongPassword, ErrUnauthenticated)
	assertKind(t, unknownUser, ErrUnauthenticated)
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("expected identical messages, got %q and %q", wrongPassword, unknownUser)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	for _, token := range []string{"", "   ", "abc.def.ghi"} {
		_, err := env.app.VerifyToken(context.Background(), token)
		assertKind(t, err, ErrUnauthenticated)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session, err := env.app.Login(ctx, "owner@example.com", "password-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := env.app.Logout(session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = env.app.VerifyToken(ctx, session.Token)
	assertKind(t, err, ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.app.Login(ctx, "owner@example.com", "password-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	assertKind(t, env.app.ChangePassword(ctx, env.userID, "", "new-password"), ErrValidation)
	assertKind(t, env.app.ChangePassword(ctx, env.userID, "password-1", "short"), ErrValidation)
	assertKind(t, env.app.ChangePassword(ctx, env.userID, "password-1", "password-1"), ErrValidation)
	assertKind(t, env.app.ChangePassword(ctx, env.userID, "wrong-password", "new-password"), ErrValidation)

	// Move the clock past the token's issue second so the cutoff covers it.
	changedAt := time.Now().UTC().Add(2 * time.Second)
	env.app.now = func() time.Time { return changedAt }
	if err := env.app.ChangePassword(ctx, env.userID, "password-1", "new-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	_, err = env.app.VerifyToken(ctx, session.Token)
	assertKind(t, err, ErrUnauthenticated)

	_, err = env.app.Login(ctx, "owner@example.com", "password-1")
	assertKind(t, err, ErrUnauthenticated)
	if _, err := env.app.Login(ctx, "owner@example.com", "new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
