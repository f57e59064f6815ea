// Package pdfmeta reads document metadata from PDF files.
package pdfmeta

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// ErrNoPages is returned when a document parses but reports no pages.
var ErrNoPages = errors.New("pdf has no pages")

// CountPages returns the page count of the PDF at path. Malformed input that
// makes the parser panic is reported as an error.
func CountPages(path string) (n int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat pdf: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	n = reader.NumPage()
	if n <= 0 {
		return 0, ErrNoPages
	}
	return n, nil
}
