package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"readshelf/pkg/domain"
)

const migrateLockID int64 = 73217321

// SQLitePrefix marks a database URL that should be opened with the SQLite driver.
const SQLitePrefix = "sqlite:"

const defaultMaxWriteAttempts = 8

type GormStoreOptions struct {
	MaxWriteAttempts int
}

type GormStoreOption func(*GormStoreOptions)

// WithMaxWriteAttempts bounds how often a conflicting aggregate write is retried.
func WithMaxWriteAttempts(n int) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.MaxWriteAttempts = n
	}
}

// GormStore implements Store using GORM + Postgres (or SQLite for single-node use).
type GormStore struct {
	db               *gorm.DB
	maxWriteAttempts int
}

// NewGormStore opens the DB and runs auto-migrations.
// A dsn starting with "sqlite:" opens a SQLite file instead of Postgres.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	if opts.MaxWriteAttempts <= 0 {
		opts.MaxWriteAttempts = defaultMaxWriteAttempts
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{Logger: gormLog, TranslateError: true}

	var db *gorm.DB
	if path, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, errors.New("sqlite path is required")
		}
		var err error
		db, err = gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		// One connection serializes writers; sqlite has no row locks.
		sqlDB.SetMaxOpenConns(1)
		if err := migrate(db); err != nil {
			return nil, err
		}
	} else {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := withMigrationLock(db, migrate); err != nil {
			return nil, err
		}
	}
	return &GormStore{db: db, maxWriteAttempts: opts.MaxWriteAttempts}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveUser registers or updates a user. A different user holding the same
// email yields ErrEmailTaken.
func (s *GormStore) SaveUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "updated_at"}),
	}).Create(&model).Error
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateBook inserts a new book row.
func (s *GormStore) CreateBook(ctx context.Context, b domain.Book) error {
	model, err := bookToModel(b)
	if err != nil {
		return err
	}
	if model.Version <= 0 {
		model.Version = 1
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// ListBooksByOwner returns the owner's books, newest first.
func (s *GormStore) ListBooksByOwner(ctx context.Context, ownerID string) ([]domain.Book, error) {
	var models []BookModel
	if err := ownedBooks(s.db.WithContext(ctx), ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		book, err := bookFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, book)
	}
	return res, nil
}

// GetOwnedBook retrieves a book only when it belongs to ownerID.
func (s *GormStore) GetOwnedBook(ctx context.Context, ownerID, bookID string) (domain.Book, bool, error) {
	model, ok, err := findOwnedBook(s.db.WithContext(ctx), ownerID, bookID, false)
	if err != nil || !ok {
		return domain.Book{}, ok, err
	}
	book, err := bookFromModel(model)
	if err != nil {
		return domain.Book{}, false, err
	}
	return book, true, nil
}

// UpdateOwnedBook runs a read-modify-write of one owned book. The row is
// locked for the transaction and written back only if its version is
// unchanged; a version miss reloads and re-applies mutate.
func (s *GormStore) UpdateOwnedBook(ctx context.Context, ownerID, bookID string, mutate BookMutator) (domain.Book, error) {
	for attempt := 1; attempt <= s.maxWriteAttempts; attempt++ {
		var updated domain.Book
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			model, ok, err := findOwnedBook(tx, ownerID, bookID, true)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotFound
			}
			book, err := bookFromModel(model)
			if err != nil {
				return err
			}
			if err := mutate(&book); err != nil {
				return err
			}
			book.UpdatedAt = time.Now().UTC()
			if err := swapBook(tx, ownerID, model.Version, book); err != nil {
				return err
			}
			book.Version = model.Version + 1
			updated = book
			return nil
		})
		if errors.Is(err, ErrWriteConflict) {
			if waitErr := backoff(ctx, attempt); waitErr != nil {
				return domain.Book{}, waitErr
			}
			continue
		}
		if err != nil {
			return domain.Book{}, err
		}
		return updated, nil
	}
	return domain.Book{}, ErrWriteConflict
}

// DeleteOwnedBook removes the book row when it belongs to ownerID.
func (s *GormStore) DeleteOwnedBook(ctx context.Context, ownerID, bookID string) (bool, error) {
	res := ownedBook(s.db.WithContext(ctx), ownerID, bookID).Delete(&BookModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ownedBooks is the only entry point for book queries: every book read or
// write is filtered by owner.
func ownedBooks(db *gorm.DB, ownerID string) *gorm.DB {
	return db.Model(&BookModel{}).Where("owner_id = ?", ownerID)
}

func ownedBook(db *gorm.DB, ownerID, bookID string) *gorm.DB {
	return ownedBooks(db, ownerID).Where("id = ?", bookID)
}

func findOwnedBook(db *gorm.DB, ownerID, bookID string, forUpdate bool) (BookModel, bool, error) {
	query := ownedBook(db, ownerID, bookID)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model BookModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BookModel{}, false, nil
		}
		return BookModel{}, false, err
	}
	return model, true, nil
}

// swapBook writes the mutable book fields if the stored version still equals
// expectedVersion, bumping the version. A miss is reported as ErrWriteConflict.
func swapBook(db *gorm.DB, ownerID string, expectedVersion int64, b domain.Book) error {
	vocab, err := json.Marshal(vocabToRecords(b.Vocabulary))
	if err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	notes, err := json.Marshal(notesToRecords(b.Notes))
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	res := ownedBook(db, ownerID, b.ID).
		Where("version = ?", expectedVersion).
		Updates(map[string]any{
			"title":        b.Title,
			"current_page": b.CurrentPage,
			"vocabulary":   datatypes.JSON(vocab),
			"notes":        datatypes.JSON(notes),
			"version":      gorm.Expr("version + 1"),
			"updated_at":   b.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWriteConflict
	}
	return nil
}

func backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * 5 * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) (BookModel, error) {
	vocab, err := json.Marshal(vocabToRecords(b.Vocabulary))
	if err != nil {
		return BookModel{}, fmt.Errorf("encode vocabulary: %w", err)
	}
	notes, err := json.Marshal(notesToRecords(b.Notes))
	if err != nil {
		return BookModel{}, fmt.Errorf("encode notes: %w", err)
	}
	return BookModel{
		ID:               b.ID,
		OwnerID:          b.OwnerID,
		Title:            b.Title,
		FileURL:          b.File.URL,
		StorageKey:       b.File.StorageID,
		OriginalFilename: b.OriginalFilename,
		SizeBytes:        b.SizeBytes,
		TotalPages:       b.TotalPages,
		CurrentPage:      b.CurrentPage,
		Vocabulary:       vocab,
		Notes:            notes,
		Version:          b.Version,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}, nil
}

func bookFromModel(m BookModel) (domain.Book, error) {
	var vocab []vocabRecord
	if len(m.Vocabulary) > 0 {
		if err := json.Unmarshal(m.Vocabulary, &vocab); err != nil {
			return domain.Book{}, fmt.Errorf("decode vocabulary of book %s: %w", m.ID, err)
		}
	}
	var notes []noteRecord
	if len(m.Notes) > 0 {
		if err := json.Unmarshal(m.Notes, &notes); err != nil {
			return domain.Book{}, fmt.Errorf("decode notes of book %s: %w", m.ID, err)
		}
	}
	return domain.Book{
		ID:      m.ID,
		OwnerID: m.OwnerID,
		Title:   m.Title,
		File: domain.FileReference{
			URL:       m.FileURL,
			StorageID: m.StorageKey,
		},
		OriginalFilename: m.OriginalFilename,
		SizeBytes:        m.SizeBytes,
		TotalPages:       m.TotalPages,
		CurrentPage:      m.CurrentPage,
		Vocabulary:       vocabFromRecords(vocab),
		Notes:            notesFromRecords(notes),
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

func vocabToRecords(entries []domain.VocabEntry) []vocabRecord {
	out := make([]vocabRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, vocabRecord{ID: e.ID, Word: e.Word, Definition: e.Definition})
	}
	return out
}

func vocabFromRecords(records []vocabRecord) []domain.VocabEntry {
	out := make([]domain.VocabEntry, 0, len(records))
	for _, r := range records {
		out = append(out, domain.VocabEntry{ID: r.ID, Word: r.Word, Definition: r.Definition})
	}
	return out
}

func notesToRecords(notes []domain.Note) []noteRecord {
	out := make([]noteRecord, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteRecord{ID: n.ID, Title: n.Title, Content: n.Content, CreatedAt: n.CreatedAt})
	}
	return out
}

func notesFromRecords(records []noteRecord) []domain.Note {
	out := make([]domain.Note, 0, len(records))
	for _, r := range records {
		out = append(out, domain.Note{ID: r.ID, Title: r.Title, Content: r.Content, CreatedAt: r.CreatedAt})
	}
	return out
}
