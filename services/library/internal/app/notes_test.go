package app

import (
	"context"
	"testing"
	"time"
)

func TestNotesLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bookID := env.upload(t, env.userID, "notes.pdf")

	createdAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	env.app.now = func() time.Time { return createdAt }
	note, err := env.app.AddNote(ctx, env.userID, bookID, " Chapter 1 ", " The hero leaves home. ")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if note.Title != "Chapter 1" || note.Content != "The hero leaves home." || !note.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected note: %+v", note)
	}
	second, err := env.app.AddNote(ctx, env.userID, bookID, "Chapter 2", "Trouble.")
	if err != nil {
		t.Fatalf("add second note: %v", err)
	}

	env.app.now = func() time.Time { return createdAt.Add(time.Hour) }
	updated, err := env.app.UpdateNote(ctx, env.userID, bookID, note.ID, NotePatch{Content: strPtr("The hero returns.")})
	if err != nil {
		t.Fatalf("update note: %v", err)
	}
	if updated.Title != "Chapter 1" || updated.Content != "The hero returns." || !updated.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected updated note: %+v", updated)
	}

	notes, err := env.app.ListNotes(ctx, env.userID, bookID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 2 || notes[0].ID != note.ID || notes[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %+v", notes)
	}

	if err := env.app.DeleteNote(ctx, env.userID, bookID, note.ID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	notes, err = env.app.ListNotes(ctx, env.userID, bookID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != second.ID {
		t.Fatalf("expected only the second note, got %+v", notes)
	}
}

func TestNotesValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bookID := env.upload(t, env.userID, "notes.pdf")
	note, err := env.app.AddNote(ctx, env.userID, bookID, "title", "content")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	missing := "00000000-0000-4000-8000-000000000000"

	_, err = env.app.AddNote(ctx, env.userID, bookID, "", "content")
	assertKind(t, err, ErrValidation)
	_, err = env.app.AddNote(ctx, env.userID, bookID, "title", " ")
	assertKind(t, err, ErrValidation)
	_, err = env.app.UpdateNote(ctx, env.userID, bookID, note.ID, NotePatch{})
	assertKind(t, err, ErrValidation)
	_, err = env.app.UpdateNote(ctx, env.userID, bookID, missing, NotePatch{Title: strPtr("x")})
	assertKind(t, err, ErrNotFound)
	_, err = env.app.ListNotes(ctx, env.otherUser, bookID)
	assertKind(t, err, ErrNotFound)
	assertKind(t, env.app.DeleteNote(ctx, env.userID, bookID, "nope"), ErrValidation)
	assertKind(t, env.app.DeleteNote(ctx, env.userID, bookID, missing), ErrNotFound)
}
