package domain

import (
	"math"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FileReference points at the stored PDF binary.
type FileReference struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

type Book struct {
	ID               string        `json:"id"`
	OwnerID          string        `json:"ownerId"`
	Title            string        `json:"title"`
	File             FileReference `json:"file"`
	OriginalFilename string        `json:"originalFilename"`
	SizeBytes        int64         `json:"sizeBytes"`
	TotalPages       int           `json:"totalPages"`
	CurrentPage      int           `json:"currentPage"`
	Vocabulary       []VocabEntry  `json:"vocabulary"`
	Notes            []Note        `json:"notes"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Version          int64         `json:"-"`
}

type VocabEntry struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Progress is the reading position of a book as reported to clients.
type Progress struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Percent     int `json:"percent"`
}

// ProgressPercentage rounds currentPage/totalPages to a whole percent.
// Books without a known page count always report 0.
func ProgressPercentage(currentPage, totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	return int(math.Round(float64(currentPage) / float64(totalPages) * 100))
}

// Progress returns the book's current reading position.
func (b Book) Progress() Progress {
	return Progress{
		CurrentPage: b.CurrentPage,
		TotalPages:  b.TotalPages,
		Percent:     ProgressPercentage(b.CurrentPage, b.TotalPages),
	}
}

// FindVocab returns the index of the vocabulary entry with id, or -1.
func (b Book) FindVocab(id string) int {
	for i, entry := range b.Vocabulary {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

// FindNote returns the index of the note with id, or -1.
func (b Book) FindNote(id string) int {
	for i, note := range b.Notes {
		if note.ID == id {
			return i
		}
	}
	return -1
}
