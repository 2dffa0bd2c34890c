package queries

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

var ErrMissingOrderID = fmt.Errorf("%w: order_id is required", domain.ErrClientInput)

// GetOrderQuery represents a request to retrieve an order by its ID.
type GetOrderQuery struct {
	OrderID string
}

// GetOrderQueryHandler executes GetOrderQuery and returns the order with its items.
type GetOrderQueryHandler struct {
	orders ports.OrderRepository
}

func NewGetOrderQueryHandler(orders ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{orders: orders}
}

// Handle executes the query. The full price of the returned order is computed
// from the current book prices.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	return h.orders.GetByID(ctx, strings.TrimSpace(query.OrderID))
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return ErrMissingOrderID
	}
	return nil
}
