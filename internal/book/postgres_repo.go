package book

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"booktrack/internal/status"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const bookColumns = `id, owner_id, title, author, genre, publication_year, COALESCE(description, ''),
	cover_url, page_count, status, last_status_change_at, created_at, updated_at`

func scanBook(row pgx.Row, b *Book) error {
	return row.Scan(
		&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Genre, &b.PublicationYear, &b.Description,
		&b.CoverURL, &b.PageCount, &b.Status, &b.LastStatusChangeAt, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const insertSQL = `
		INSERT INTO books (id, owner_id, title, author, genre, publication_year, description,
			cover_url, page_count, status, last_status_change_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), NOW())
		RETURNING last_status_change_at, created_at, updated_at
	`
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return r.db.QueryRow(ctx, insertSQL,
		b.ID, b.OwnerID, b.Title, b.Author, b.Genre, b.PublicationYear, b.Description,
		b.CoverURL, b.PageCount, b.Status,
	).Scan(&b.LastStatusChangeAt, &b.CreatedAt, &b.UpdatedAt)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*Book, error) {
	const getSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	var b Book
	if err := scanBook(r.db.QueryRow(ctx, getSQL, id), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, ownerID string) ([]Book, error) {
	const listSQL = `SELECT ` + bookColumns + ` FROM books WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, listSQL, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *PostgresRepo) Search(ctx context.Context, ownerID, term string) ([]Book, error) {
	const searchSQL = `
		SELECT ` + bookColumns + `
		FROM books
		WHERE owner_id = $1 AND (title ILIKE '%' || $2 || '%' OR author ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, searchSQL, ownerID, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func collectBooks(rows pgx.Rows) ([]Book, error) {
	var books []Book
	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	const updateSQL = `
		UPDATE books
		SET title = $2, author = $3, genre = $4, publication_year = $5, description = $6,
			cover_url = $7, page_count = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, updateSQL,
		b.ID, b.Title, b.Author, b.Genre, b.PublicationYear, b.Description, b.CoverURL, b.PageCount,
	).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes the book and its progress records atomically.
func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reading_progress WHERE book_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, ownerID string) (map[status.Status]int, error) {
	const countSQL = `SELECT status, COUNT(*) FROM books WHERE owner_id = $1 GROUP BY status`
	rows, err := r.db.Query(ctx, countSQL, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[status.Status]int)
	for rows.Next() {
		var s status.Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}
