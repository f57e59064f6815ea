package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"readshelf/internal/util"
	"readshelf/pkg/events"
	"readshelf/pkg/pdfmeta"
	"readshelf/pkg/storage"
	"readshelf/pkg/store"
)

const (
	// DefaultMaxUploadBytes is the upload ceiling (15 MiB).
	DefaultMaxUploadBytes int64 = 15 << 20
	DefaultStoragePrefix        = "ebooks"
	defaultPresignExpiry        = 15 * time.Minute
	publishTimeout              = 5 * time.Second
)

// Config holds runtime dependencies of the library application.
// Store, Sessions and Objects are opened once by the caller and shared.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
	Objects  storage.ObjectStore
	Events   events.Publisher

	StoragePrefix  string
	MaxUploadBytes int64
	TempDir        string
	PresignExpiry  time.Duration
	// PageCounter defaults to pdfmeta.CountPages.
	PageCounter func(path string) (int, error)
}

// App implements accounts, uploads and the owner-scoped book aggregate.
type App struct {
	store    store.Store
	sessions store.SessionStore
	objects  storage.ObjectStore
	events   events.Publisher

	storagePrefix  string
	maxUploadBytes int64
	tempDir        string
	presignExpiry  time.Duration
	countPages     func(path string) (int, error)
	now            func() time.Time
}

// New validates the configuration and builds the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store is required")
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.StoragePrefix), "/")
	if prefix == "" {
		prefix = DefaultStoragePrefix
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	presign := cfg.PresignExpiry
	if presign <= 0 {
		presign = defaultPresignExpiry
	}
	counter := cfg.PageCounter
	if counter == nil {
		counter = pdfmeta.CountPages
	}
	return &App{
		store:          cfg.Store,
		sessions:       cfg.Sessions,
		objects:        cfg.Objects,
		events:         publisher,
		storagePrefix:  prefix,
		maxUploadBytes: maxUpload,
		tempDir:        cfg.TempDir,
		presignExpiry:  presign,
		countPages:     counter,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUploadBytes
}

// publish emits ev without failing the caller; the request may already be done.
func (a *App) publish(ctx context.Context, ev events.Event) {
	ev.ID = util.NewID()
	ev.OccurredAt = a.now()
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := a.events.Publish(pubCtx, ev); err != nil {
		util.LoggerFromContext(ctx).Warn("publish event failed", "type", ev.Type, "book_id", ev.BookID, "err", err)
	}
}
