// Package events publishes book lifecycle notifications.
package events

import (
	"context"
	"time"
)

const (
	TypeBookUploaded = "book.uploaded"
	TypeBookDeleted  = "book.deleted"
)

// Event is the payload emitted for a book lifecycle change.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BookID     string    `json:"bookId"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title,omitempty"`
	StorageKey string    `json:"storageKey,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
