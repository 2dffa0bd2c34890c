package memory

import (
	"maps"

	"github.com/dejobratic/bookstore/internal/orders/domain"
)

type state struct {
	books      map[int64]domain.Book
	orders     map[string]orderRecord
	nextBookID int64
}

type orderRecord struct {
	order domain.Order
	items []itemRecord
}

type itemRecord struct {
	bookID   int64
	quantity int64
}

func newState() *state {
	return &state{
		books:      make(map[int64]domain.Book),
		orders:     make(map[string]orderRecord),
		nextBookID: 1,
	}
}

// clone copies the maps. Records are values and item slices are never
// mutated after insert, so sharing them is safe.
func (s *state) clone() *state {
	return &state{
		books:      maps.Clone(s.books),
		orders:     maps.Clone(s.orders),
		nextBookID: s.nextBookID,
	}
}

// hydrate joins the order with the current book rows.
func (s *state) hydrate(rec orderRecord) domain.Order {
	order := rec.order
	order.Items = make([]domain.OrderItem, 0, len(rec.items))
	for _, item := range rec.items {
		book := s.books[item.bookID]
		order.Items = append(order.Items, domain.OrderItem{
			BookID:    item.bookID,
			BookName:  book.Name,
			UnitPrice: book.Price,
			Quantity:  item.quantity,
		})
	}
	return order
}
