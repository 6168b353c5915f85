package book

import (
	"context"
	"errors"

	"booktrack/internal/status"
)

// ErrEmptySearchTerm is returned when a search is requested without a term.
var ErrEmptySearchTerm = errors.New("search term is required")

// ProgressInitializer creates the initial progress record for a freshly
// created book. Implemented by the progress service; an interface here
// keeps the dependency one-way.
type ProgressInitializer interface {
	InitProgress(ctx context.Context, bookID, ownerID string, totalPages int) error
}

// Service provides book business logic. All operations are scoped to the
// owning user.
type Service struct {
	repo     Repository
	progress ProgressInitializer
}

func NewService(repo Repository, progress ProgressInitializer) *Service {
	return &Service{repo: repo, progress: progress}
}

// AssertOwner loads a book and verifies it belongs to ownerID.
func (s *Service) AssertOwner(ctx context.Context, bookID, ownerID string) (*Book, error) {
	b, err := s.repo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return b, nil
}

// Create stores a new book for ownerID. New books always start as
// want-to-read. When a page count is supplied, an initial progress record
// at page zero is created alongside the book.
func (s *Service) Create(ctx context.Context, b *Book, ownerID string) (*Book, error) {
	b.OwnerID = ownerID
	b.Status = status.WantToRead
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	if b.PageCount != nil && *b.PageCount >= 1 {
		if err := s.progress.InitProgress(ctx, b.ID, ownerID, *b.PageCount); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, bookID, ownerID string) (*Book, error) {
	return s.AssertOwner(ctx, bookID, ownerID)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Book, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Search finds the owner's books whose title or author contains term,
// case-insensitively.
func (s *Service) Search(ctx context.Context, ownerID, term string) ([]Book, error) {
	if term == "" {
		return nil, ErrEmptySearchTerm
	}
	return s.repo.Search(ctx, ownerID, term)
}

// Update replaces the editable fields of a book. The reading status is
// not touched here; status changes go through the status endpoint so the
// progress record stays in sync.
func (s *Service) Update(ctx context.Context, bookID, ownerID string, in UpdateInput) (*Book, error) {
	b, err := s.AssertOwner(ctx, bookID, ownerID)
	if err != nil {
		return nil, err
	}
	b.Title = in.Title
	b.Author = in.Author
	b.Genre = in.Genre
	b.PublicationYear = in.PublicationYear
	b.Description = in.Description
	if in.CoverURL != nil {
		b.CoverURL = in.CoverURL
	}
	if in.PageCount != nil {
		b.PageCount = in.PageCount
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CountByStatus groups the owner's books by status.
func (s *Service) CountByStatus(ctx context.Context, ownerID string) (map[status.Status]int, error) {
	return s.repo.CountByStatus(ctx, ownerID)
}

// Delete removes a book after an ownership check. Progress records are
// deleted in the same transaction as the book row.
func (s *Service) Delete(ctx context.Context, bookID, ownerID string) error {
	if _, err := s.AssertOwner(ctx, bookID, ownerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, bookID)
}

// UpdateInput carries the editable book fields.
type UpdateInput struct {
	Title           string
	Author          string
	Genre           string
	PublicationYear *int
	Description     string
	CoverURL        *string
	PageCount       *int
}
