package progress

import (
	"context"
	"errors"
	"time"

	"booktrack/internal/book"
	"booktrack/internal/status"
)

// BookDirectory is the slice of book storage the progress service needs.
// book.Repository satisfies it.
type BookDirectory interface {
	GetByID(ctx context.Context, id string) (*book.Book, error)
	CountByStatus(ctx context.Context, ownerID string) (map[status.Status]int, error)
}

// Service orchestrates progress records and book statuses so the two
// views stay consistent.
type Service struct {
	repo  Repository
	books BookDirectory
}

func NewService(repo Repository, books BookDirectory) *Service {
	return &Service{repo: repo, books: books}
}

// assertOwner loads a book and verifies it belongs to ownerID.
func (s *Service) assertOwner(ctx context.Context, bookID, ownerID string) (*book.Book, error) {
	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, book.ErrForbidden
	}
	return b, nil
}

// UpdateInput carries a progress update from the caller.
type UpdateInput struct {
	CurrentPage int
	TotalPages  int
	Note        string
}

// Get returns the caller's progress for one book.
func (s *Service) Get(ctx context.Context, bookID, ownerID string) (*Record, error) {
	return s.repo.GetByBookAndOwner(ctx, bookID, ownerID)
}

// ListByOwner returns all of the caller's progress records.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// CreateOrUpdate applies a progress update, creating the record on first
// use. The book's status is re-derived from the page position and written
// in the same transaction. Applying the same input twice yields the same
// stored state.
func (s *Service) CreateOrUpdate(ctx context.Context, bookID, ownerID string, in UpdateInput) (*Record, error) {
	if _, err := s.assertOwner(ctx, bookID, ownerID); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByBookAndOwner(ctx, bookID, ownerID)
	switch {
	case errors.Is(err, ErrNotFound):
		rec, err = New(bookID, ownerID, in.CurrentPage, in.TotalPages, in.Note)
		if err != nil {
			return nil, err
		}
		if err := s.repo.CreateWithBookStatus(ctx, rec, rec.ReadingStatus); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := rec.SetPages(in.CurrentPage, in.TotalPages, in.Note); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateWithBookStatus(ctx, rec, rec.ReadingStatus); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// InitProgress creates the page-zero record that accompanies a book
// created with a known page count.
func (s *Service) InitProgress(ctx context.Context, bookID, ownerID string, totalPages int) error {
	rec, err := New(bookID, ownerID, 0, totalPages, "")
	if err != nil {
		return err
	}
	return s.repo.CreateWithBookStatus(ctx, rec, rec.ReadingStatus)
}

// SetBookStatus applies an explicit status change to the book and, when a
// progress record exists, mirrors it there. Unknown tokens fail before
// anything is written.
func (s *Service) SetBookStatus(ctx context.Context, bookID, ownerID, requested string) (*book.Book, error) {
	st, err := status.Parse(requested)
	if err != nil {
		return nil, err
	}
	b, err := s.assertOwner(ctx, bookID, ownerID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.repo.SetReadingStatus(ctx, bookID, ownerID, st, now); err != nil {
		return nil, err
	}
	// Mirror what the store does: the change timestamp moves only when
	// the status actually changed.
	if b.Status != st {
		b.LastStatusChangeAt = now
	}
	b.Status = st
	b.UpdatedAt = now
	return b, nil
}

// Rate stores a rating for a finished book. When the caller never tracked
// pages, a record is fabricated at 100% using the book's page count
// (defaulting to a single page), so a book can be rated directly.
func (s *Service) Rate(ctx context.Context, bookID, ownerID string, rating int) (*Record, error) {
	rec, err := s.repo.GetByBookAndOwner(ctx, bookID, ownerID)
	switch {
	case errors.Is(err, ErrNotFound):
		b, err := s.assertOwner(ctx, bookID, ownerID)
		if err != nil {
			return nil, err
		}
		total := 1
		if b.PageCount != nil && *b.PageCount >= 1 {
			total = *b.PageCount
		}
		rec, err = New(bookID, ownerID, total, total, "")
		if err != nil {
			return nil, err
		}
		if err := rec.SetRating(rating); err != nil {
			return nil, err
		}
		if err := s.repo.CreateWithBookStatus(ctx, rec, status.Finished); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := rec.SetRating(rating); err != nil {
			return nil, err
		}
		if err := s.repo.Update(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Remove deletes the caller's progress for a book and resets the book to
// want-to-read. Reports whether a record existed; a missing record is not
// an error.
func (s *Service) Remove(ctx context.Context, bookID, ownerID string) (bool, error) {
	return s.repo.DeleteAndResetBook(ctx, bookID, ownerID)
}

// AverageRating returns the mean rating of a book across all owners, or
// nil when it has no ratings.
func (s *Service) AverageRating(ctx context.Context, bookID string) (*float64, error) {
	return s.repo.AverageRating(ctx, bookID)
}

// StatusBreakdown counts books per status. JSON keys follow the original
// statistics payload.
type StatusBreakdown struct {
	WantToRead int `json:"queroLer"`
	Reading    int `json:"emLeitura"`
	Finished   int `json:"concluido"`
}

// Stats is the per-user reading summary.
type Stats struct {
	TotalBooks     int             `json:"totalLivros"`
	ByStatus       StatusBreakdown `json:"statusLeitura"`
	TotalPagesRead int             `json:"totalPaginasLidas"`
}

// Statistics aggregates the owner's books by status and sums pages read
// across their progress records.
func (s *Service) Statistics(ctx context.Context, ownerID string) (*Stats, error) {
	counts, err := s.books.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	pages, err := s.repo.SumPagesRead(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		ByStatus: StatusBreakdown{
			WantToRead: counts[status.WantToRead],
			Reading:    counts[status.Reading],
			Finished:   counts[status.Finished],
		},
		TotalPagesRead: pages,
	}
	st.TotalBooks = st.ByStatus.WantToRead + st.ByStatus.Reading + st.ByStatus.Finished
	return st, nil
}
