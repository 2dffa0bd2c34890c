package memory

import (
	"context"

	"github.com/dejobratic/bookstore/internal/orders/domain"
)

type bookRepository struct {
	view
}

func (r *bookRepository) GetByID(_ context.Context, id int64) (*domain.Book, error) {
	var book domain.Book
	err := r.read(func(st *state) error {
		found, ok := st.books[id]
		if !ok {
			return domain.NewBookError(id, domain.ErrBookNotFound)
		}
		book = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetForUpdate is GetByID; inside WithinTx the store lock already excludes other writers.
func (r *bookRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Book, error) {
	return r.GetByID(ctx, id)
}

// Save inserts or replaces a book. A zero id is assigned the next free id.
func (r *bookRepository) Save(_ context.Context, book domain.Book) error {
	if book.Count < 0 {
		return domain.NewBookError(book.ID, domain.ErrInsufficientStock)
	}
	return r.write(func(st *state) error {
		if book.ID == 0 {
			book.ID = st.nextBookID
		}
		if book.ID >= st.nextBookID {
			st.nextBookID = book.ID + 1
		}
		st.books[book.ID] = book
		return nil
	})
}
