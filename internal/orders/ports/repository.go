package ports

import (
	"context"

	"github.com/dejobratic/bookstore/internal/orders/domain"
)

// BookRepository exposes the inventory operations the order workflow needs.
type BookRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	// GetForUpdate reads a book and, inside a transaction, locks it until commit.
	GetForUpdate(ctx context.Context, id int64) (*domain.Book, error)
	Save(ctx context.Context, book domain.Book) error
}

// OrderRepository persists orders together with their items.
type OrderRepository interface {
	// Create stores the order header and all of its items as one unit.
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetForUpdate reads an order and, inside a transaction, serializes other
	// writers of the same order until commit.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	// Save updates the mutable order fields: status, invoice id and pay url.
	Save(ctx context.Context, order domain.Order) error
}

// Store groups repositories that can take part in a single transaction.
type Store interface {
	Books() BookRepository
	Orders() OrderRepository
	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
