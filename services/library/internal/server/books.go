package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"readshelf/pkg/domain"
	"readshelf/services/library/internal/app"
)

// multipartSlack covers multipart framing and the title field on top of the
// file itself.
const multipartSlack = 1 << 20

type bookResponse struct {
	domain.Book
	ProgressPercentage int `json:"progressPercentage"`
}

type listBooksResponse struct {
	Items []bookResponse `json:"items"`
	Count int            `json:"count"`
}

type downloadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type progressRequest struct {
	Page *int `json:"page"`
}

type vocabRequest struct {
	Word       *string `json:"word"`
	Definition *string `json:"definition"`
}

type noteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func toBookResponse(b domain.Book) bookResponse {
	return bookResponse{Book: b, ProgressPercentage: b.Progress().Percent}
}

func (s *Server) handleUploadBook(w http.ResponseWriter, r *http.Request, c caller) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	maxBytes := s.app.MaxUploadBytes()
	if r.ContentLength > maxBytes+multipartSlack {
		writeError(w, http.StatusBadRequest, uploadTooLarge(maxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, uploadTooLarge(maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	book, err := s.app.UploadBook(r.Context(), c.userID, app.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Title:       r.FormValue("title"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookResponse(book))
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request, c caller) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	books, err := s.app.ListBooks(r.Context(), c.userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	items := make([]bookResponse, 0, len(books))
	for _, b := range books {
		items = append(items, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, listBooksResponse{Items: items, Count: len(items)})
}

// handleBookRoutes dispatches everything below /books/.
func (s *Server) handleBookRoutes(w http.ResponseWriter, r *http.Request, c caller) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/books/"), "/")
	if path == "" {
		notFound(w)
		return
	}
	parts := strings.Split(path, "/")
	bookID := parts[0]

	switch len(parts) {
	case 1:
		s.handleBook(w, r, c, bookID)
	case 2:
		switch parts[1] {
		case "download":
			s.handleDownload(w, r, c, bookID)
		case "progress":
			s.handleProgress(w, r, c, bookID)
		case "vocab":
			s.handleVocabList(w, r, c, bookID)
		case "notes":
			s.handleNoteList(w, r, c, bookID)
		default:
			notFound(w)
		}
	case 3:
		switch parts[1] {
		case "vocab":
			s.handleVocabItem(w, r, c, bookID, parts[2])
		case "notes":
			s.handleNoteItem(w, r, c, bookID, parts[2])
		default:
			notFound(w)
		}
	default:
		notFound(w)
	}
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request, c caller, bookID string) {
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(r.Context(), c.userID, bookID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookResponse(book))
	case http.MethodDelete:
		if err := s.app.DeleteBook(r.Context(), c.userID, bookID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "book deleted")
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, c caller, bookID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	url, filename, err := s.app.DownloadURL(r.Context(), c.userID, bookID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{URL: url, Filename: filename})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, c caller, bookID string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, http.MethodPatch)
		return
	}
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Page == nil {
		writeError(w, http.StatusBadRequest, "page is required")
		return
	}
	progress, err := s.app.UpdateProgress(r.Context(), c.userID, bookID, *req.Page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleVocabList(w http.ResponseWriter, r *http.Request, c caller, bookID string) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.app.ListVocab(r.Context(), c.userID, bookID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req vocabRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries, err := s.app.AddVocab(r.Context(), c.userID, bookID, deref(req.Word), deref(req.Definition))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entries)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleVocabItem(w http.ResponseWriter, r *http.Request, c caller, bookID, vocabID string) {
	switch r.Method {
	case http.MethodPatch:
		var req vocabRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		entry, err := s.app.UpdateVocab(r.Context(), c.userID, bookID, vocabID, app.VocabPatch{
			Word:       req.Word,
			Definition: req.Definition,
		})
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if err := s.app.DeleteVocab(r.Context(), c.userID, bookID, vocabID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "vocabulary entry deleted")
	default:
		methodNotAllowed(w, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) handleNoteList(w http.ResponseWriter, r *http.Request, c caller, bookID string) {
	switch r.Method {
	case http.MethodGet:
		notes, err := s.app.ListNotes(r.Context(), c.userID, bookID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, notes)
	case http.MethodPost:
		var req noteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		note, err := s.app.AddNote(r.Context(), c.userID, bookID, deref(req.Title), deref(req.Content))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, note)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleNoteItem(w http.ResponseWriter, r *http.Request, c caller, bookID, noteID string) {
	switch r.Method {
	case http.MethodPatch:
		var req noteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		note, err := s.app.UpdateNote(r.Context(), c.userID, bookID, noteID, app.NotePatch{
			Title:   req.Title,
			Content: req.Content,
		})
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	case http.MethodDelete:
		if err := s.app.DeleteNote(r.Context(), c.userID, bookID, noteID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "note deleted")
	default:
		methodNotAllowed(w, http.MethodPatch, http.MethodDelete)
	}
}

func uploadTooLarge(maxBytes int64) string {
	return fmt.Sprintf("file exceeds the %d MiB limit", maxBytes>>20)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
