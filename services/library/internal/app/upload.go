package app

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"readshelf/internal/util"
	"readshelf/pkg/domain"
	"readshelf/pkg/events"
)

const pdfContentType = "application/pdf"

// UploadInput describes an incoming book file. Size is the declared length,
// or a non-positive value when unknown.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Title       string
}

// UploadBook stores a PDF and creates the owning book record.
func (a *App) UploadBook(ctx context.Context, userID string, in UploadInput) (domain.Book, error) {
	filename := filepath.Base(strings.TrimSpace(strings.ReplaceAll(in.Filename, "\\", "/")))
	if filename == "" || filename == "." || filename == "/" || in.Body == nil {
		return domain.Book{}, validationError("file is required")
	}
	if !isPDF(filename, in.ContentType) {
		return domain.Book{}, validationError("only PDF files are accepted")
	}
	if in.Size > a.maxUploadBytes {
		return domain.Book{}, a.tooLarge()
	}

	tmp, err := os.CreateTemp(a.tempDir, "upload-*.pdf")
	if err != nil {
		return domain.Book{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, io.LimitReader(in.Body, a.maxUploadBytes+1))
	if err != nil {
		return domain.Book{}, fmt.Errorf("buffer upload: %w", err)
	}
	if size > a.maxUploadBytes {
		return domain.Book{}, a.tooLarge()
	}
	if size == 0 {
		return domain.Book{}, validationError("file is empty")
	}
	if err := tmp.Sync(); err != nil {
		return domain.Book{}, fmt.Errorf("flush temp file: %w", err)
	}

	logger := util.LoggerFromContext(ctx)
	bookID := util.NewID()
	key := buildStorageKey(a.storagePrefix, userID, bookID, filename)

	var totalPages int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.countPages(tmp.Name())
		if err != nil {
			logger.Warn("page count failed, defaulting to 0", "book_id", bookID, "err", err)
			n = 0
		}
		totalPages = n
		return nil
	})
	g.Go(func() error {
		f, err := os.Open(tmp.Name())
		if err != nil {
			return err
		}
		defer f.Close()
		return a.objects.Put(gctx, key, f, size, pdfContentType)
	})
	if err := g.Wait(); err != nil {
		return domain.Book{}, fmt.Errorf("store book file: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = titleFromName(filename)
	}
	now := a.now()
	book := domain.Book{
		ID:      bookID,
		OwnerID: userID,
		Title:   title,
		File: domain.FileReference{
			URL:       a.objects.URL(key),
			StorageID: key,
		},
		OriginalFilename: filename,
		SizeBytes:        size,
		TotalPages:       totalPages,
		CurrentPage:      0,
		Vocabulary:       []domain.VocabEntry{},
		Notes:            []domain.Note{},
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
	if err := a.store.CreateBook(ctx, book); err != nil {
		if delErr := a.objects.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.Error("orphaned book file", "key", key, "err", delErr)
		}
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	logger.Info("book uploaded", "book_id", book.ID, "user_id", userID, "pages", totalPages, "bytes", size)
	a.publish(ctx, events.Event{
		Type:       events.TypeBookUploaded,
		BookID:     book.ID,
		OwnerID:    userID,
		Title:      book.Title,
		StorageKey: key,
	})
	return book, nil
}

func (a *App) tooLarge() error {
	return validationError("file exceeds the %d MiB limit", a.maxUploadBytes>>20)
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.EqualFold(mediaType, pdfContentType)
}

func titleFromName(name string) string {
	base := filepath.Base(name)
	title := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if title == "" {
		return "Untitled"
	}
	return title
}

func buildStorageKey(prefix, ownerID, bookID, filename string) string {
	name := sanitizeFilename(filepath.Base(filename))
	if strings.Trim(strings.TrimSuffix(name, filepath.Ext(name)), ".") == "" {
		name = "book.pdf"
	}
	return path.Join(prefix, ownerID, bookID, name)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
