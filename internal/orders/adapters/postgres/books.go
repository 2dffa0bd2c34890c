package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/jackc/pgx/v5"
)

type bookRepository struct {
	db   querier
	inTx bool
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	return r.get(ctx, id, `SELECT id, name, price, count FROM books WHERE id = $1`)
}

func (r *bookRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Book, error) {
	if !r.inTx {
		return r.GetByID(ctx, id)
	}
	return r.get(ctx, id, `SELECT id, name, price, count FROM books WHERE id = $1 FOR UPDATE`)
}

func (r *bookRepository) get(ctx context.Context, id int64, query string) (*domain.Book, error) {
	var book domain.Book
	err := r.db.QueryRow(ctx, query, id).Scan(
		&book.ID,
		&book.Name,
		&book.Price,
		&book.Count,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewBookError(id, domain.ErrBookNotFound)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}

	return &book, nil
}

func (r *bookRepository) Save(ctx context.Context, book domain.Book) error {
	query := `
		UPDATE books
		SET name = $1, price = $2, count = $3, updated_at = now()
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, book.Name, book.Price, book.Count, book.ID)
	if err != nil {
		if pgErrorCode(err) == pgCheckViolation {
			return domain.NewBookError(book.ID, domain.ErrInsufficientStock)
		}
		return fmt.Errorf("update book: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewBookError(book.ID, domain.ErrBookNotFound)
	}

	return nil
}
