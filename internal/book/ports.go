package book

import (
	"context"

	"booktrack/internal/status"
)

// Repository defines the contract for book storage.
type Repository interface {
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id string) (*Book, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Book, error)
	Search(ctx context.Context, ownerID, term string) ([]Book, error)
	Update(ctx context.Context, b *Book) error
	// Delete removes the book and all of its progress records in one
	// transaction. Returns ErrNotFound when the book does not exist.
	Delete(ctx context.Context, id string) error
	// CountByStatus groups the owner's books by status. Statuses with no
	// books are absent from the map.
	CountByStatus(ctx context.Context, ownerID string) (map[status.Status]int, error)
}
