package app

import (
	"context"
	"slices"

	"readshelf/internal/util"
	"readshelf/pkg/domain"
)

// NotePatch holds the fields of a partial note update; nil means unchanged.
type NotePatch struct {
	Title   *string
	Content *string
}

// ListNotes returns the notes of an owned book in insertion order.
func (a *App) ListNotes(ctx context.Context, userID, bookID string) ([]domain.Note, error) {
	book, err := a.GetBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return book.Notes, nil
}

// AddNote appends a note stamped with the current time.
func (a *App) AddNote(ctx context.Context, userID, bookID, title, content string) (domain.Note, error) {
	if err := validateID("book", bookID); err != nil {
		return domain.Note{}, err
	}
	title, err := trimRequired("title", title)
	if err != nil {
		return domain.Note{}, err
	}
	content, err = trimRequired("content", content)
	if err != nil {
		return domain.Note{}, err
	}
	note := domain.Note{ID: util.NewID(), Title: title, Content: content, CreatedAt: a.now()}
	if _, err := a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		b.Notes = append(b.Notes, note)
		return nil
	}); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// UpdateNote changes the supplied fields of one note; createdAt is kept.
func (a *App) UpdateNote(ctx context.Context, userID, bookID, noteID string, patch NotePatch) (domain.Note, error) {
	if err := validateID("book", bookID); err != nil {
		return domain.Note{}, err
	}
	if err := validateID("note", noteID); err != nil {
		return domain.Note{}, err
	}
	if patch.Title == nil && patch.Content == nil {
		return domain.Note{}, validationError("title or content required")
	}
	var title, content string
	var err error
	if patch.Title != nil {
		if title, err = trimRequired("title", *patch.Title); err != nil {
			return domain.Note{}, err
		}
	}
	if patch.Content != nil {
		if content, err = trimRequired("content", *patch.Content); err != nil {
			return domain.Note{}, err
		}
	}

	var updated domain.Note
	_, err = a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		i := b.FindNote(noteID)
		if i < 0 {
			return ErrNoteNotFound
		}
		if patch.Title != nil {
			b.Notes[i].Title = title
		}
		if patch.Content != nil {
			b.Notes[i].Content = content
		}
		updated = b.Notes[i]
		return nil
	})
	if err != nil {
		return domain.Note{}, err
	}
	return updated, nil
}

// DeleteNote removes one note.
func (a *App) DeleteNote(ctx context.Context, userID, bookID, noteID string) error {
	if err := validateID("book", bookID); err != nil {
		return err
	}
	if err := validateID("note", noteID); err != nil {
		return err
	}
	_, err := a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		i := b.FindNote(noteID)
		if i < 0 {
			return ErrNoteNotFound
		}
		b.Notes = slices.Delete(b.Notes, i, i+1)
		return nil
	})
	return err
}
