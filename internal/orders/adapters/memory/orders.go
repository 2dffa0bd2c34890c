package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/domain"
)

type orderRepository struct {
	view
}

func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	return r.write(func(st *state) error {
		if _, exists := st.orders[order.ID]; exists {
			return fmt.Errorf("insert order: duplicate id %s", order.ID)
		}

		items := make([]itemRecord, 0, len(order.Items))
		for _, item := range order.Items {
			if _, ok := st.books[item.BookID]; !ok {
				return domain.NewBookError(item.BookID, domain.ErrBookNotFound)
			}
			if item.Quantity <= 0 {
				return domain.NewBookError(item.BookID, domain.ErrInvalidQuantity)
			}
			items = append(items, itemRecord{bookID: item.BookID, quantity: item.Quantity})
		}

		header := order
		header.Items = nil
		st.orders[order.ID] = orderRecord{order: header, items: items}
		return nil
	})
}

func (r *orderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.read(func(st *state) error {
		rec, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = st.hydrate(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepository) Save(_ context.Context, order domain.Order) error {
	return r.write(func(st *state) error {
		rec, ok := st.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if order.InvoiceID != nil {
			for id, other := range st.orders {
				if id != order.ID && other.order.InvoiceID != nil && *other.order.InvoiceID == *order.InvoiceID {
					return fmt.Errorf("order %s: %w", order.ID, domain.ErrInvoiceInUse)
				}
			}
		}
		rec.order.Status = order.Status
		rec.order.InvoiceID = order.InvoiceID
		rec.order.PayURL = order.PayURL
		rec.order.UpdatedAt = time.Now().UTC()
		st.orders[order.ID] = rec
		return nil
	})
}
