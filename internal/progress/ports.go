package progress

import (
	"context"
	"time"

	"booktrack/internal/status"
)

// Repository defines the contract for progress storage. The methods that
// touch both the progress row and the book row do so in one transaction,
// so the two status views can never diverge on a partial failure.
type Repository interface {
	// GetByBookAndOwner returns ErrNotFound when no record exists.
	GetByBookAndOwner(ctx context.Context, bookID, ownerID string) (*Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
	// CreateWithBookStatus inserts the record and writes the owning book's
	// status atomically. A concurrent insert for the same (book, owner)
	// pair surfaces as ErrDuplicate via the unique index.
	CreateWithBookStatus(ctx context.Context, rec *Record, bookStatus status.Status) error
	// UpdateWithBookStatus saves the record and writes the owning book's
	// status atomically.
	UpdateWithBookStatus(ctx context.Context, rec *Record, bookStatus status.Status) error
	// Update saves record fields without touching the book row.
	Update(ctx context.Context, rec *Record) error
	// SetReadingStatus writes the status on the book and, when a record
	// exists, on the record, atomically. A missing record is not an error.
	SetReadingStatus(ctx context.Context, bookID, ownerID string, s status.Status, at time.Time) error
	// DeleteAndResetBook removes the record and resets the book to
	// want-to-read. Reports whether a record existed.
	DeleteAndResetBook(ctx context.Context, bookID, ownerID string) (bool, error)
	SumPagesRead(ctx context.Context, ownerID string) (int, error)
	// AverageRating returns the mean of all ratings for a book across
	// owners, or nil when nobody has rated it.
	AverageRating(ctx context.Context, bookID string) (*float64, error)
}
