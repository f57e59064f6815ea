package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"readshelf/pkg/domain"
)

func strPtr(s string) *string { return &s }

func TestVocabularyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bookID := env.upload(t, env.userID, "words.pdf")

	list, err := env.app.AddVocab(ctx, env.userID, bookID, "  ubiquitous ", " present everywhere ")
	if err != nil {
		t.Fatalf("add vocab: %v", err)
	}
	if len(list) != 1 || list[0].Word != "ubiquitous" || list[0].Definition != "present everywhere" {
		t.Fatalf("unexpected vocabulary: %+v", list)
	}
	list, err = env.app.AddVocab(ctx, env.userID, bookID, "laconic", "using few words")
	if err != nil {
		t.Fatalf("add second vocab: %v", err)
	}
	first, second := list[0], list[1]

	updated, err := env.app.UpdateVocab(ctx, env.userID, bookID, first.ID, VocabPatch{Word: strPtr("omnipresent")})
	if err != nil {
		t.Fatalf("update vocab: %v", err)
	}
	want := domain.VocabEntry{ID: first.ID, Word: "omnipresent", Definition: "present everywhere"}
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Fatalf("updated entry mismatch (-want +got):\n%s", diff)
	}

	if err := env.app.DeleteVocab(ctx, env.userID, bookID, first.ID); err != nil {
		t.Fatalf("delete vocab: %v", err)
	}
	remaining, err := env.app.ListVocab(ctx, env.userID, bookID)
	if err != nil {
		t.Fatalf("list vocab: %v", err)
	}
	if diff := cmp.Diff([]domain.VocabEntry{second}, remaining); diff != "" {
		t.Fatalf("remaining vocabulary mismatch (-want +got):\n%s", diff)
	}
}

func TestVocabularyValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bookID := env.upload(t, env.userID, "words.pdf")
	list, err := env.app.AddVocab(ctx, env.userID, bookID, "word", "definition")
	if err != nil {
		t.Fatalf("add vocab: %v", err)
	}
	entryID := list[0].ID
	missing := "00000000-0000-4000-8000-000000000000"

	_, err = env.app.AddVocab(ctx, env.userID, bookID, "  ", "definition")
	assertKind(t, err, ErrValidation)
	_, err = env.app.AddVocab(ctx, env.userID, bookID, "word", "")
	assertKind(t, err, ErrValidation)
	_, err = env.app.UpdateVocab(ctx, env.userID, bookID, entryID, VocabPatch{})
	assertKind(t, err, ErrValidation)
	_, err = env.app.UpdateVocab(ctx, env.userID, bookID, entryID, VocabPatch{Definition: strPtr(" ")})
	assertKind(t, err, ErrValidation)
	_, err = env.app.UpdateVocab(ctx, env.userID, bookID, "bad-id", VocabPatch{Word: strPtr("x")})
	assertKind(t, err, ErrValidation)
	_, err = env.app.UpdateVocab(ctx, env.userID, bookID, missing, VocabPatch{Word: strPtr("x")})
	assertKind(t, err, ErrNotFound)
	assertKind(t, env.app.DeleteVocab(ctx, env.userID, bookID, missing), ErrNotFound)
	assertKind(t, env.app.DeleteVocab(ctx, env.otherUser, bookID, entryID), ErrNotFound)

	remaining, err := env.app.ListVocab(ctx, env.userID, bookID)
	if err != nil {
		t.Fatalf("list vocab: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Word != "word" {
		t.Fatalf("expected failed calls to leave vocabulary untouched, got %+v", remaining)
	}
}

func TestConcurrentAddVocabKeepsEveryEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bookID := env.upload(t, env.userID, "busy.pdf")

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.app.AddVocab(ctx, env.userID, bookID, fmt.Sprintf("word-%d", i), "definition")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add: %v", err)
		}
	}

	list, err := env.app.ListVocab(ctx, env.userID, bookID)
	if err != nil {
		t.Fatalf("list vocab: %v", err)
	}
	if len(list) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(list))
	}
	seen := make(map[string]bool)
	for _, entry := range list {
		if seen[entry.ID] {
			t.Fatalf("duplicate entry id %s", entry.ID)
		}
		seen[entry.ID] = true
	}
}
