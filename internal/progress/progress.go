package progress

import (
	"errors"
	"math"
	"time"

	"booktrack/internal/status"
)

var (
	// ErrNotFound is returned when no progress record exists for a book/owner pair.
	ErrNotFound = errors.New("reading progress not found")
	// ErrDuplicate is returned when a second record is created for the same pair.
	ErrDuplicate = errors.New("reading progress already exists for this book")
	// ErrNotFinished is returned when a rating is applied to a book that is not finished.
	ErrNotFinished = errors.New("only finished books can be rated")
	// ErrInvalidPages is returned when totalPages < 1 or currentPage < 0.
	ErrInvalidPages = errors.New("total pages must be at least 1 and current page must not be negative")
	// ErrInvalidRating is returned when a rating is outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Record is one user's reading progress for one book. At most one record
// exists per (BookID, OwnerID); the database enforces this with a unique
// index. JSON tags keep the wire format of the original API.
type Record struct {
	ID              string        `json:"id"`
	BookID          string        `json:"livroId"`
	OwnerID         string        `json:"usuarioId"`
	CurrentPage     int           `json:"paginaAtual"`
	TotalPages      int           `json:"totalPaginas"`
	PercentComplete int           `json:"percentualConcluido"`
	Note            string        `json:"comentario,omitempty"`
	ReadingStatus   status.Status `json:"statusLeitura"`
	Rating          *int          `json:"nota,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"dataAtualizacao"`
}

// New builds an unsaved record. A currentPage beyond totalPages is clamped
// silently, matching the source UI; negative pages and a zero page count
// are rejected.
func New(bookID, ownerID string, currentPage, totalPages int, note string) (*Record, error) {
	r := &Record{
		BookID:  bookID,
		OwnerID: ownerID,
	}
	if err := r.SetPages(currentPage, totalPages, note); err != nil {
		return nil, err
	}
	return r, nil
}

// SetPages updates the page fields and note, recomputing the derived
// percentage and reading status. The percentage is never written directly
// by callers; this is the only place it changes.
func (r *Record) SetPages(currentPage, totalPages int, note string) error {
	if totalPages < 1 || currentPage < 0 {
		return ErrInvalidPages
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}
	r.CurrentPage = currentPage
	r.TotalPages = totalPages
	r.Note = note
	r.PercentComplete = percent(currentPage, totalPages)
	r.ReadingStatus = status.Derive(currentPage, totalPages)
	r.UpdatedAt = time.Now()
	return nil
}

// SetReadingStatus overrides the reading status without touching the page
// fields. Used by the explicit status endpoint.
func (r *Record) SetReadingStatus(s status.Status) {
	r.ReadingStatus = s
	r.UpdatedAt = time.Now()
}

// SetRating stores a rating. Only finished books can be rated.
func (r *Record) SetRating(rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if r.ReadingStatus != status.Finished {
		return ErrNotFinished
	}
	r.Rating = &rating
	r.UpdatedAt = time.Now()
	return nil
}

func percent(currentPage, totalPages int) int {
	p := int(math.Round(float64(currentPage) / float64(totalPages) * 100))
	if p > 100 {
		p = 100
	}
	return p
}
