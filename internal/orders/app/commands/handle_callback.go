package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

type HandlePaymentCallbackCommand struct {
	// Signature is the base64 X-Sign header value.
	Signature string
	// Body is the raw request body exactly as received.
	Body []byte
}

// CallbackResult describes what a verified callback did to its order.
type CallbackResult struct {
	OrderID        string
	PreviousStatus domain.OrderStatus
	Status         domain.OrderStatus
	// StockDeducted is set only for the first success callback of an order.
	StockDeducted bool
	UnitsDeducted int64
	// FailureReason is set when a success callback could not be fulfilled
	// because stock ran out after the order was placed.
	FailureReason string
}

// Duplicate reports whether the callback repeated an already applied success.
func (r CallbackResult) Duplicate() bool {
	return r.PreviousStatus == domain.StatusSuccess && r.Status == domain.StatusSuccess
}

type PaymentCallbackHandler interface {
	Handle(ctx context.Context, cmd HandlePaymentCallbackCommand) (*CallbackResult, error)
}

type HandlePaymentCallbackCommandHandler struct {
	store    ports.Store
	verifier ports.SignatureVerifier
	events   ports.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandlePaymentCallbackCommandHandler(
	store ports.Store,
	verifier ports.SignatureVerifier,
	events ports.EventBus,
	logger *slog.Logger,
) *HandlePaymentCallbackCommandHandler {
	return &HandlePaymentCallbackCommandHandler{
		store:    store,
		verifier: verifier,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle authenticates the callback, then applies the reported status to the
// referenced order. Stock is deducted once, on the first success status.
//
// The order row is locked for the whole transition so concurrent deliveries
// of the same callback serialize and only one of them sees the order unpaid.
func (h *HandlePaymentCallbackCommandHandler) Handle(ctx context.Context, cmd HandlePaymentCallbackCommand) (*CallbackResult, error) {
	if err := h.verifier.Verify(ctx, cmd.Body, cmd.Signature); err != nil {
		return nil, err
	}

	callback, err := domain.ParsePaymentCallback(cmd.Body)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{OrderID: callback.Reference, Status: callback.OrderStatus()}

	err = h.store.WithinTx(ctx, func(tx ports.Store) error {
		order, err := tx.Orders().GetForUpdate(ctx, callback.Reference)
		if err != nil {
			return err
		}
		if !order.HasInvoice() || *order.InvoiceID != callback.InvoiceID {
			return fmt.Errorf("%w: order %s", domain.ErrInvoiceMismatch, order.ID)
		}

		result.PreviousStatus = order.Status

		if callback.IsSuccess() && !order.IsPaid() {
			units, err := deductStock(ctx, tx.Books(), order.Items)
			if err != nil {
				return err
			}
			result.StockDeducted = true
			result.UnitsDeducted = units
		}

		order.Status = callback.OrderStatus()
		order.UpdatedAt = h.now()
		return tx.Orders().Save(ctx, *order)
	})

	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		// The payment went through but the books are gone. The order keeps
		// its previous status and the callback is still acknowledged.
		result.Status = result.PreviousStatus
		result.FailureReason = err.Error()
		h.publishFailed(ctx, result.OrderID, result.FailureReason)
		return result, nil
	case err != nil:
		return nil, err
	}

	switch {
	case result.StockDeducted:
		if err := h.events.PublishOrderPaid(ctx, result.OrderID); err != nil {
			h.logger.WarnContext(ctx, "failed to publish order paid event",
				"order_id", result.OrderID,
				"error", err,
			)
		}
	case callback.IsFailure() && result.PreviousStatus != result.Status:
		h.publishFailed(ctx, result.OrderID, "payment "+callback.Status)
	}

	return result, nil
}

func (h *HandlePaymentCallbackCommandHandler) publishFailed(ctx context.Context, orderID, reason string) {
	if err := h.events.PublishOrderFailed(ctx, orderID, reason); err != nil {
		h.logger.WarnContext(ctx, "failed to publish order failed event",
			"order_id", orderID,
			"error", err,
		)
	}
}

// deductStock removes every item's quantity from its book. Books are locked
// in ascending id order so callbacks for different orders sharing books
// cannot deadlock each other.
func deductStock(ctx context.Context, books ports.BookRepository, items []domain.OrderItem) (int64, error) {
	quantities := make(map[int64]int64, len(items))
	for _, item := range items {
		quantities[item.BookID] += item.Quantity
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var units int64
	for _, id := range ids {
		book, err := books.GetForUpdate(ctx, id)
		if err != nil {
			return 0, err
		}
		if err := book.Deduct(quantities[id]); err != nil {
			return 0, err
		}
		if err := books.Save(ctx, *book); err != nil {
			return 0, err
		}
		units += quantities[id]
	}
	return units, nil
}
