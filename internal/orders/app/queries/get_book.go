package queries

import (
	"context"
	"fmt"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

var ErrInvalidBookID = fmt.Errorf("%w: book id must be positive", domain.ErrClientInput)

// GetBookQuery reads the current price and stock of one book.
type GetBookQuery struct {
	BookID int64
}

type GetBookQueryHandler struct {
	books ports.BookRepository
}

func NewGetBookQueryHandler(books ports.BookRepository) *GetBookQueryHandler {
	return &GetBookQueryHandler{books: books}
}

func (h *GetBookQueryHandler) Handle(ctx context.Context, query GetBookQuery) (*domain.Book, error) {
	if query.BookID <= 0 {
		return nil, ErrInvalidBookID
	}
	return h.books.GetByID(ctx, query.BookID)
}
