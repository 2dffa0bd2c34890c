package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
	"github.com/google/uuid"
)

type CreateOrderCommand struct {
	OwnerID string
	Items   []domain.RequestedItem
	// WebhookURL is where the payment provider reports status changes.
	WebhookURL string
}

// CreateOrderResult is the persisted order together with the basket sent to
// the payment provider and the hosted payment page.
type CreateOrderResult struct {
	Order  domain.Order
	Basket []domain.BasketItem
	PayURL string
}

type CreateOrderHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error)
}

type CreateOrderCommandHandler struct {
	store   ports.Store
	gateway ports.PaymentGateway
	events  ports.EventBus
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time
}

func NewCreateOrderCommandHandler(
	store ports.Store,
	gateway ports.PaymentGateway,
	events ports.EventBus,
	logger *slog.Logger,
) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{
		store:   store,
		gateway: gateway,
		events:  events,
		logger:  logger,
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle validates the basket against inventory item by item in caller order
// (missing book, then stock, then quantity), persists the order with its
// items atomically and requests an invoice for it. Stock is left untouched
// until the payment is confirmed.
//
// When the invoice request fails the order stays persisted in the created
// state without an invoice and the gateway error is returned.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	now := h.now()
	order := domain.Order{
		ID:        h.newID(),
		OwnerID:   cmd.OwnerID,
		Status:    domain.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     make([]domain.OrderItem, 0, len(cmd.Items)),
	}
	for _, item := range cmd.Items {
		order.Items = append(order.Items, domain.OrderItem{BookID: item.BookID, Quantity: item.Quantity})
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	err := h.store.WithinTx(ctx, func(tx ports.Store) error {
		for i, item := range order.Items {
			book, err := tx.Books().GetByID(ctx, item.BookID)
			if err != nil {
				return err
			}
			if err := domain.CheckItem(*book, item.Quantity); err != nil {
				return err
			}
			order.Items[i].BookName = book.Name
			order.Items[i].UnitPrice = book.Price
		}
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	invoice, err := h.gateway.CreateInvoice(ctx, ports.InvoiceRequest{
		Amount:     order.FullPrice(),
		Reference:  order.ID,
		Basket:     order.Basket(),
		WebhookURL: cmd.WebhookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}

	order.AttachInvoice(invoice.ID, invoice.PayURL, h.now())
	if err := h.store.Orders().Save(ctx, order); err != nil {
		return nil, fmt.Errorf("store invoice for order %s: %w", order.ID, err)
	}

	if err := h.events.PublishOrderCreated(ctx, order.ID); err != nil {
		h.logger.WarnContext(ctx, "failed to publish order created event",
			"order_id", order.ID,
			"error", err,
		)
	}

	return &CreateOrderResult{
		Order:  order,
		Basket: order.Basket(),
		PayURL: invoice.PayURL,
	}, nil
}
