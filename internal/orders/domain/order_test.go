package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/domain"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   domain.Order
		wantErr error
	}{
		{
			name: "valid order",
			order: domain.Order{
				ID:      "test-id",
				OwnerID: "user-1",
				Status:  domain.StatusCreated,
				Items:   []domain.OrderItem{{BookID: 1, Quantity: 2}},
			},
		},
		{
			name: "missing owner",
			order: domain.Order{
				ID:    "test-id",
				Items: []domain.OrderItem{{BookID: 1, Quantity: 2}},
			},
			wantErr: domain.ErrMissingOwner,
		},
		{
			name: "whitespace only owner",
			order: domain.Order{
				ID:      "test-id",
				OwnerID: "   ",
				Items:   []domain.OrderItem{{BookID: 1, Quantity: 2}},
			},
			wantErr: domain.ErrMissingOwner,
		},
		{
			name: "empty basket",
			order: domain.Order{
				ID:      "test-id",
				OwnerID: "user-1",
			},
			wantErr: domain.ErrEmptyBasket,
		},
		{
			name: "item quantities are left to CheckItem",
			order: domain.Order{
				ID:      "test-id",
				OwnerID: "user-1",
				Items:   []domain.OrderItem{{BookID: 1, Quantity: 0}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Order.Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckItem(t *testing.T) {
	book := domain.Book{ID: 4, Name: "Kobzar", Price: 500, Count: 3}

	tests := []struct {
		name     string
		quantity int64
		wantErr  error
	}{
		{"within stock", 3, nil},
		{"over stock", 4, domain.ErrInsufficientStock},
		{"zero quantity", 0, domain.ErrInvalidQuantity},
		{"negative quantity", -2, domain.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.CheckItem(book, tt.quantity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckItem() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				var bookErr *domain.BookError
				if !errors.As(err, &bookErr) || bookErr.BookID != 4 {
					t.Errorf("expected BookError for book 4, got %v", err)
				}
			}
		})
	}
}

func TestOrderFullPrice(t *testing.T) {
	order := domain.Order{
		Items: []domain.OrderItem{
			{BookID: 1, BookName: "Kobzar", UnitPrice: 500, Quantity: 2},
			{BookID: 2, BookName: "Zakhar Berkut", UnitPrice: 350, Quantity: 1},
		},
	}

	if got := order.FullPrice(); got != 1350 {
		t.Errorf("FullPrice() = %d, want 1350", got)
	}

	if got := order.FullPrice(); got != 1350 {
		t.Errorf("second FullPrice() = %d, want 1350", got)
	}

	if got := (domain.Order{}).FullPrice(); got != 0 {
		t.Errorf("FullPrice() of empty order = %d, want 0", got)
	}
}

func TestOrderBasket(t *testing.T) {
	order := domain.Order{
		Items: []domain.OrderItem{
			{BookID: 7, BookName: "Tiger Trappers", UnitPrice: 300, Quantity: 3},
			{BookID: 1, BookName: "Kobzar", UnitPrice: 500, Quantity: 1},
		},
	}

	basket := order.Basket()
	if len(basket) != 2 {
		t.Fatalf("expected 2 basket entries, got %d", len(basket))
	}

	want := []domain.BasketItem{
		{Name: "Tiger Trappers", Qty: 3, Sum: 900, Unit: domain.BasketUnit},
		{Name: "Kobzar", Qty: 1, Sum: 500, Unit: domain.BasketUnit},
	}
	for i := range want {
		if basket[i] != want[i] {
			t.Errorf("basket[%d] = %+v, want %+v", i, basket[i], want[i])
		}
	}
}

func TestOrderAttachInvoice(t *testing.T) {
	order := domain.Order{ID: "order-1", Status: domain.StatusCreated}
	if order.HasInvoice() {
		t.Fatal("new order should not have an invoice")
	}

	now := time.Now().UTC()
	order.AttachInvoice("inv-1", "https://pay.example.com/inv-1", now)

	if !order.HasInvoice() {
		t.Fatal("expected invoice to be attached")
	}
	if *order.InvoiceID != "inv-1" {
		t.Errorf("expected invoice id inv-1, got %s", *order.InvoiceID)
	}
	if *order.PayURL != "https://pay.example.com/inv-1" {
		t.Errorf("unexpected pay url %s", *order.PayURL)
	}
	if !order.UpdatedAt.Equal(now) {
		t.Error("expected updated_at to be set")
	}
}

func TestOrderInfo(t *testing.T) {
	order := domain.Order{
		ID:      "order-1",
		OwnerID: "user-1",
		Status:  domain.StatusSuccess,
		Items:   []domain.OrderItem{{BookID: 1, BookName: "Kobzar", UnitPrice: 500, Quantity: 2}},
	}

	info := order.Info()
	if info.FullPrice != 1000 {
		t.Errorf("expected full price 1000, got %d", info.FullPrice)
	}
	if len(info.Books) != 1 || info.Books[0].BookID != 1 {
		t.Errorf("unexpected books %+v", info.Books)
	}
	if !order.IsPaid() {
		t.Error("expected success order to be paid")
	}

	if (domain.Order{}).Info().Books == nil {
		t.Error("expected empty books slice, got nil")
	}
}

func TestBookDeduct(t *testing.T) {
	tests := []struct {
		name      string
		count     int64
		quantity  int64
		wantErr   error
		wantCount int64
	}{
		{"deducts within stock", 10, 2, nil, 8},
		{"deducts entire stock", 2, 2, nil, 0},
		{"rejects overdraw", 2, 5, domain.ErrInsufficientStock, 2},
		{"rejects zero quantity", 2, 0, domain.ErrInvalidQuantity, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := domain.Book{ID: 3, Name: "Forest Song", Price: 200, Count: tt.count}
			err := book.Deduct(tt.quantity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Deduct() error = %v, want %v", err, tt.wantErr)
			}
			if book.Count != tt.wantCount {
				t.Errorf("expected count %d, got %d", tt.wantCount, book.Count)
			}
			if err != nil {
				var bookErr *domain.BookError
				if !errors.As(err, &bookErr) || bookErr.BookID != 3 {
					t.Errorf("expected BookError for book 3, got %v", err)
				}
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"empty basket is client input", domain.ErrEmptyBasket, domain.ErrClientInput},
		{"invalid quantity is business rule", domain.ErrInvalidQuantity, domain.ErrBusinessRule},
		{"insufficient stock is business rule", domain.NewBookError(1, domain.ErrInsufficientStock), domain.ErrBusinessRule},
		{"missing book is not found", domain.NewBookError(1, domain.ErrBookNotFound), domain.ErrNotFound},
		{"missing order is not found", domain.ErrOrderNotFound, domain.ErrNotFound},
		{"gateway failure", domain.GatewayError("create invoice", errors.New("boom")), domain.ErrGateway},
		{"reused invoice is gateway", domain.ErrInvoiceInUse, domain.ErrGateway},
		{"signature mismatch is callback", domain.ErrSignatureMismatch, domain.ErrCallback},
		{"invoice mismatch is callback", domain.ErrInvoiceMismatch, domain.ErrCallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("expected %v to be %v", tt.err, tt.kind)
			}
		})
	}
}
