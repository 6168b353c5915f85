package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"booktrack/internal/status"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const recordColumns = `id, book_id, owner_id, current_page, total_pages, percent_complete,
	COALESCE(note, ''), reading_status, rating, created_at, updated_at`

func scanRecord(row pgx.Row, rec *Record) error {
	return row.Scan(
		&rec.ID, &rec.BookID, &rec.OwnerID, &rec.CurrentPage, &rec.TotalPages, &rec.PercentComplete,
		&rec.Note, &rec.ReadingStatus, &rec.Rating, &rec.CreatedAt, &rec.UpdatedAt,
	)
}

func (r *PostgresRepo) GetByBookAndOwner(ctx context.Context, bookID, ownerID string) (*Record, error) {
	const getSQL = `SELECT ` + recordColumns + ` FROM reading_progress WHERE book_id = $1 AND owner_id = $2`
	var rec Record
	if err := scanRecord(r.db.QueryRow(ctx, getSQL, bookID, ownerID), &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	const listSQL = `SELECT ` + recordColumns + ` FROM reading_progress WHERE owner_id = $1 ORDER BY updated_at DESC`
	rows, err := r.db.Query(ctx, listSQL, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepo) CreateWithBookStatus(ctx context.Context, rec *Record, bookStatus status.Status) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO reading_progress (id, book_id, owner_id, current_page, total_pages,
			percent_complete, note, reading_status, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	err = tx.QueryRow(ctx, insertSQL,
		rec.ID, rec.BookID, rec.OwnerID, rec.CurrentPage, rec.TotalPages,
		rec.PercentComplete, rec.Note, rec.ReadingStatus, rec.Rating,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}

	if err := setBookStatusTx(ctx, tx, rec.BookID, bookStatus, rec.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepo) UpdateWithBookStatus(ctx context.Context, rec *Record, bookStatus status.Status) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := updateRecordTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := setBookStatusTx(ctx, tx, rec.BookID, bookStatus, rec.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepo) Update(ctx context.Context, rec *Record) error {
	return updateRecordTx(ctx, r.db, rec)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func updateRecordTx(ctx context.Context, q querier, rec *Record) error {
	const updateSQL = `
		UPDATE reading_progress
		SET current_page = $2, total_pages = $3, percent_complete = $4, note = $5,
			reading_status = $6, rating = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := q.QueryRow(ctx, updateSQL,
		rec.ID, rec.CurrentPage, rec.TotalPages, rec.PercentComplete, rec.Note,
		rec.ReadingStatus, rec.Rating,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func setBookStatusTx(ctx context.Context, tx pgx.Tx, bookID string, s status.Status, at time.Time) error {
	const setSQL = `
		UPDATE books
		SET status = $2,
			last_status_change_at = CASE WHEN status = $2 THEN last_status_change_at ELSE $3 END,
			updated_at = $3
		WHERE id = $1
	`
	_, err := tx.Exec(ctx, setSQL, bookID, s, at)
	return err
}

func (r *PostgresRepo) SetReadingStatus(ctx context.Context, bookID, ownerID string, s status.Status, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := setBookStatusTx(ctx, tx, bookID, s, at); err != nil {
		return err
	}
	// No progress record is fine; the book alone carries the status then.
	const mirrorSQL = `
		UPDATE reading_progress SET reading_status = $3, updated_at = $4
		WHERE book_id = $1 AND owner_id = $2
	`
	if _, err := tx.Exec(ctx, mirrorSQL, bookID, ownerID, s, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepo) DeleteAndResetBook(ctx context.Context, bookID, ownerID string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM reading_progress WHERE book_id = $1 AND owner_id = $2`, bookID, ownerID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := setBookStatusTx(ctx, tx, bookID, status.WantToRead, time.Now()); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *PostgresRepo) SumPagesRead(ctx context.Context, ownerID string) (int, error) {
	const sumSQL = `SELECT COALESCE(SUM(current_page), 0) FROM reading_progress WHERE owner_id = $1`
	var total int
	if err := r.db.QueryRow(ctx, sumSQL, ownerID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PostgresRepo) AverageRating(ctx context.Context, bookID string) (*float64, error) {
	const avgSQL = `SELECT AVG(rating)::FLOAT FROM reading_progress WHERE book_id = $1 AND rating IS NOT NULL`
	var average *float64
	if err := r.db.QueryRow(ctx, avgSQL, bookID).Scan(&average); err != nil {
		return nil, err
	}
	return average, nil
}
