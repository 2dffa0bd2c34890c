package commands_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dejobratic/bookstore/internal/orders/adapters/memory"
	"github.com/dejobratic/bookstore/internal/orders/app/commands"
	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

const validSignature = "valid-signature"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockGateway struct {
	mu        sync.Mutex
	requests  []ports.InvoiceRequest
	err       error
	invoiceID string
}

func (m *mockGateway) CreateInvoice(_ context.Context, req ports.InvoiceRequest) (ports.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return ports.Invoice{}, m.err
	}
	id := "inv-" + req.Reference
	if m.invoiceID != "" {
		id = m.invoiceID
	}
	return ports.Invoice{
		ID:     id,
		PayURL: "https://pay.example.com/" + req.Reference,
	}, nil
}

type mockVerifier struct {
	err error
}

func (m *mockVerifier) Verify(_ context.Context, _ []byte, signature string) error {
	if m.err != nil {
		return m.err
	}
	if signature != validSignature {
		return domain.ErrSignatureMismatch
	}
	return nil
}

type recordedEvent struct {
	name    string
	orderID string
	reason  string
}

type mockEventBus struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (m *mockEventBus) record(e recordedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockEventBus) PublishOrderCreated(_ context.Context, orderID string) error {
	return m.record(recordedEvent{name: "created", orderID: orderID})
}

func (m *mockEventBus) PublishOrderPaid(_ context.Context, orderID string) error {
	return m.record(recordedEvent{name: "paid", orderID: orderID})
}

func (m *mockEventBus) PublishOrderFailed(_ context.Context, orderID string, reason string) error {
	return m.record(recordedEvent{name: "failed", orderID: orderID, reason: reason})
}

func (m *mockEventBus) named(name string) []recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recordedEvent
	for _, e := range m.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store    *memory.Store
	gateway  *mockGateway
	verifier *mockVerifier
	events   *mockEventBus
	create   *commands.CreateOrderCommandHandler
	callback *commands.HandlePaymentCallbackCommandHandler
}

func newFixture(t *testing.T, books ...domain.Book) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		gateway:  &mockGateway{},
		verifier: &mockVerifier{},
		events:   &mockEventBus{},
	}
	for _, book := range books {
		if err := f.store.Books().Save(context.Background(), book); err != nil {
			t.Fatalf("failed to seed book: %v", err)
		}
	}

	f.create = commands.NewCreateOrderCommandHandler(f.store, f.gateway, f.events, discardLogger)
	var seq int
	commands.SetOrderIDGenerator(f.create, func() string {
		seq++
		return fmt.Sprintf("order-%d", seq)
	})
	f.callback = commands.NewHandlePaymentCallbackCommandHandler(f.store, f.verifier, f.events, discardLogger)
	return f
}

func (f *fixture) placeOrder(t *testing.T, items ...domain.RequestedItem) *commands.CreateOrderResult {
	t.Helper()
	result, err := f.create.Handle(context.Background(), commands.CreateOrderCommand{
		OwnerID:    "user-1",
		Items:      items,
		WebhookURL: "https://shop.example.com/v1/payments/callback",
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return result
}

func (f *fixture) bookCount(t *testing.T, id int64) int64 {
	t.Helper()
	book, err := f.store.Books().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load book %d: %v", id, err)
	}
	return book.Count
}

func (f *fixture) order(t *testing.T, id string) *domain.Order {
	t.Helper()
	order, err := f.store.Orders().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load order %s: %v", id, err)
	}
	return order
}

func callbackBody(invoiceID, status, reference string, amount int64) []byte {
	return fmt.Appendf(nil,
		`{"invoiceId":%q,"status":%q,"amount":%d,"ccy":980,"reference":%q}`,
		invoiceID, status, amount, reference,
	)
}
