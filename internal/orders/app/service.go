package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/bookstore/internal/orders/app/commands"
	"github.com/dejobratic/bookstore/internal/orders/app/queries"
	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/metrics"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

// Service bundles the order and payment use cases exposed by the API.
type Service struct {
	idemStore       ports.IdempotencyStore
	createOrder     commands.CreateOrderHandler
	handleCallback  commands.PaymentCallbackHandler
	getOrderHandler *queries.GetOrderQueryHandler
	getBookHandler  *queries.GetBookQueryHandler
}

// Dependencies lists the collaborators NewService wires together.
type Dependencies struct {
	Store       ports.Store
	Gateway     ports.PaymentGateway
	Verifier    ports.SignatureVerifier
	Events      ports.EventBus
	Idempotency ports.IdempotencyStore
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// NewService wires required dependencies. Both commands are wrapped in their
// observable decorators.
func NewService(deps Dependencies) *Service {
	createOrder := commands.NewCreateOrderCommandHandler(deps.Store, deps.Gateway, deps.Events, deps.Logger)
	handleCallback := commands.NewHandlePaymentCallbackCommandHandler(deps.Store, deps.Verifier, deps.Events, deps.Logger)

	return &Service{
		idemStore:       deps.Idempotency,
		createOrder:     commands.NewObservableCreateOrderHandler(createOrder, deps.Logger, deps.Metrics),
		handleCallback:  commands.NewObservablePaymentCallbackHandler(handleCallback, deps.Logger, deps.Metrics),
		getOrderHandler: queries.NewGetOrderQueryHandler(deps.Store.Orders()),
		getBookHandler:  queries.NewGetBookQueryHandler(deps.Store.Books()),
	}
}

// CreateOrderInput captures the payload for creating an order.
type CreateOrderInput struct {
	OwnerID    string
	Books      []domain.RequestedItem
	WebhookURL string
}

// CreateOrder validates the basket, persists the order and requests an invoice for it.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*commands.CreateOrderResult, error) {
	return s.createOrder.Handle(ctx, commands.CreateOrderCommand{
		OwnerID:    input.OwnerID,
		Items:      input.Books,
		WebhookURL: input.WebhookURL,
	})
}

// HandlePaymentCallback applies a signed payment provider callback.
func (s *Service) HandlePaymentCallback(ctx context.Context, signature string, body []byte) (*commands.CallbackResult, error) {
	return s.handleCallback.Handle(ctx, commands.HandlePaymentCallbackCommand{
		Signature: signature,
		Body:      body,
	})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// GetBook retrieves the current stock and price of a book.
func (s *Service) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	return s.getBookHandler.Handle(ctx, queries.GetBookQuery{BookID: id})
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
