package ports

import (
	"context"

	"github.com/dejobratic/bookstore/internal/orders/domain"
)

// InvoiceRequest is what the payment provider needs to host a payment page.
type InvoiceRequest struct {
	Amount     int64
	Reference  string
	Basket     []domain.BasketItem
	WebhookURL string
}

// Invoice identifies the provider-side payment created for an order.
type Invoice struct {
	ID     string
	PayURL string
}

// PaymentGateway creates hosted invoices with the payment provider.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
}

// SignatureVerifier authenticates webhook bodies against the provider signing key.
type SignatureVerifier interface {
	Verify(ctx context.Context, body []byte, signature string) error
}
