package app

import (
	"context"
	"slices"

	"readshelf/internal/util"
	"readshelf/pkg/domain"
)

// VocabPatch holds the fields of a partial vocabulary update; nil means unchanged.
type VocabPatch struct {
	Word       *string
	Definition *string
}

// ListVocab returns the vocabulary of an owned book in insertion order.
func (a *App) ListVocab(ctx context.Context, userID, bookID string) ([]domain.VocabEntry, error) {
	book, err := a.GetBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return book.Vocabulary, nil
}

// AddVocab appends an entry and returns the updated vocabulary.
func (a *App) AddVocab(ctx context.Context, userID, bookID, word, definition string) ([]domain.VocabEntry, error) {
	if err := validateID("book", bookID); err != nil {
		return nil, err
	}
	word, err := trimRequired("word", word)
	if err != nil {
		return nil, err
	}
	definition, err = trimRequired("definition", definition)
	if err != nil {
		return nil, err
	}
	entry := domain.VocabEntry{ID: util.NewID(), Word: word, Definition: definition}
	book, err := a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		b.Vocabulary = append(b.Vocabulary, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book.Vocabulary, nil
}

// UpdateVocab changes the supplied fields of one entry.
func (a *App) UpdateVocab(ctx context.Context, userID, bookID, vocabID string, patch VocabPatch) (domain.VocabEntry, error) {
	if err := validateID("book", bookID); err != nil {
		return domain.VocabEntry{}, err
	}
	if err := validateID("vocabulary", vocabID); err != nil {
		return domain.VocabEntry{}, err
	}
	if patch.Word == nil && patch.Definition == nil {
		return domain.VocabEntry{}, validationError("word or definition required")
	}
	var word, definition string
	var err error
	if patch.Word != nil {
		if word, err = trimRequired("word", *patch.Word); err != nil {
			return domain.VocabEntry{}, err
		}
	}
	if patch.Definition != nil {
		if definition, err = trimRequired("definition", *patch.Definition); err != nil {
			return domain.VocabEntry{}, err
		}
	}

	var updated domain.VocabEntry
	_, err = a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		i := b.FindVocab(vocabID)
		if i < 0 {
			return ErrVocabNotFound
		}
		if patch.Word != nil {
			b.Vocabulary[i].Word = word
		}
		if patch.Definition != nil {
			b.Vocabulary[i].Definition = definition
		}
		updated = b.Vocabulary[i]
		return nil
	})
	if err != nil {
		return domain.VocabEntry{}, err
	}
	return updated, nil
}

// DeleteVocab removes one entry, leaving its siblings in order.
func (a *App) DeleteVocab(ctx context.Context, userID, bookID, vocabID string) error {
	if err := validateID("book", bookID); err != nil {
		return err
	}
	if err := validateID("vocabulary", vocabID); err != nil {
		return err
	}
	_, err := a.updateBook(ctx, userID, bookID, func(b *domain.Book) error {
		i := b.FindVocab(vocabID)
		if i < 0 {
			return ErrVocabNotFound
		}
		b.Vocabulary = slices.Delete(b.Vocabulary, i, i+1)
		return nil
	})
	return err
}
