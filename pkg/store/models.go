package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// BookModel stores the book aggregate in one row; vocabulary and notes are
// JSON arrays so they are read and written together with their parent.
type BookModel struct {
	ID               string         `gorm:"primaryKey"`
	OwnerID          string         `gorm:"not null;index:idx_book_owner_created,priority:1"`
	Title            string         `gorm:"not null"`
	FileURL          string         `gorm:"not null"`
	StorageKey       string         `gorm:"not null"`
	OriginalFilename string         `gorm:"not null"`
	SizeBytes        int64          `gorm:"not null"`
	TotalPages       int            `gorm:"not null;default:0"`
	CurrentPage      int            `gorm:"not null;default:0"`
	Vocabulary       datatypes.JSON `gorm:"type:jsonb"`
	Notes            datatypes.JSON `gorm:"type:jsonb"`
	Version          int64          `gorm:"not null;default:1"`
	CreatedAt        time.Time      `gorm:"not null;index:idx_book_owner_created,priority:2"`
	UpdatedAt        time.Time      `gorm:"not null"`
}

type vocabRecord struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

type noteRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
