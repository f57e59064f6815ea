package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"readshelf/internal/util"
	"readshelf/pkg/domain"
	"readshelf/pkg/events"
	"readshelf/pkg/store"
)

// ListBooks returns the user's books, newest first.
func (a *App) ListBooks(ctx context.Context, userID string) ([]domain.Book, error) {
	books, err := a.store.ListBooksByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook returns one owned book.
func (a *App) GetBook(ctx context.Context, userID, bookID string) (domain.Book, error) {
	if err := validateID("book", bookID); err != nil {
		return domain.Book{}, err
	}
	return a.ownedBook(ctx, userID, bookID)
}

// UpdateProgress sets the current page of an owned book.
func (a *App) UpdateProgress(ctx context.Context, userID, bookID string, page int) (domain.Progress, error) {
	if err := validateID("book", bookID); err != nil {
		return domain.Progress{}, err
	}
	if page < 0 {
		return domain.Progress{}, validationError("page must be a non-negative integer")
	}
	book, err := a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		if b.TotalPages > 0 && page > b.TotalPages {
			return validationError("page must not exceed total pages (%d)", b.TotalPages)
		}
		b.CurrentPage = page
		return nil
	})
	if err != nil {
		return domain.Progress{}, err
	}
	return book.Progress(), nil
}

// DeleteBook removes the stored file and then the book record. The record is
// kept when the file cannot be removed.
func (a *App) DeleteBook(ctx context.Context, userID, bookID string) error {
	if err := validateID("book", bookID); err != nil {
		return err
	}
	book, err := a.ownedBook(ctx, userID, bookID)
	if err != nil {
		return err
	}
	if key := strings.TrimSpace(book.File.StorageID); key != "" {
		if err := a.objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete book file: %w", err)
		}
	}
	deleted, err := a.store.DeleteOwnedBook(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if !deleted {
		return ErrBookNotFound
	}
	util.LoggerFromContext(ctx).Info("book deleted", "book_id", bookID, "user_id", userID)
	a.publish(ctx, events.Event{
		Type:       events.TypeBookDeleted,
		BookID:     book.ID,
		OwnerID:    book.OwnerID,
		Title:      book.Title,
		StorageKey: book.File.StorageID,
	})
	return nil
}

// DownloadURL returns a short-lived link to the book file and its original name.
func (a *App) DownloadURL(ctx context.Context, userID, bookID string) (string, string, error) {
	if err := validateID("book", bookID); err != nil {
		return "", "", err
	}
	book, err := a.ownedBook(ctx, userID, bookID)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(book.File.StorageID) == "" {
		return "", "", fmt.Errorf("book %s has no storage key", book.ID)
	}
	url, err := a.objects.PresignGet(ctx, book.File.StorageID, a.presignExpiry, book.OriginalFilename)
	if err != nil {
		return "", "", fmt.Errorf("presign download: %w", err)
	}
	return url, book.OriginalFilename, nil
}

func (a *App) ownedBook(ctx context.Context, userID, bookID string) (domain.Book, error) {
	book, ok, err := a.store.GetOwnedBook(ctx, userID, bookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// updateBook applies mutate to an owned book through the store's versioned
// read-modify-write and maps store failures to app errors.
func (a *App) updateBook(ctx context.Context, userID, bookID string, mutate store.BookMutator) (domain.Book, error) {
	book, err := a.store.UpdateOwnedBook(ctx, userID, bookID, mutate)
	if err == nil {
		return book, nil
	}
	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		return domain.Book{}, appErr
	case errors.Is(err, store.ErrNotFound):
		return domain.Book{}, ErrBookNotFound
	case errors.Is(err, store.ErrWriteConflict):
		util.LoggerFromContext(ctx).Warn("book write conflict", "book_id", bookID)
		return domain.Book{}, ErrBookBusy
	default:
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
}

func validateID(kind, id string) error {
	if !util.ValidID(id) {
		return validationError("invalid %s id", kind)
	}
	return nil
}

// trimRequired trims value and reports a validation error naming field when
// nothing is left.
func trimRequired(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", validationError("%s is required", field)
	}
	return value, nil
}
