package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PaymentCallback is the status update the payment provider posts to the webhook.
type PaymentCallback struct {
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Ccy       int    `json:"ccy"`
	Reference string `json:"reference"`
}

// wireCallback keeps pointer fields so missing keys can be told apart from zero values.
type wireCallback struct {
	InvoiceID *string `json:"invoiceId"`
	Status    *string `json:"status"`
	Amount    *int64  `json:"amount"`
	Ccy       *int    `json:"ccy"`
	Reference *string `json:"reference"`
}

// ParsePaymentCallback decodes a verified webhook body. Every field is
// required; unknown fields sent by the provider are ignored.
func ParsePaymentCallback(body []byte) (PaymentCallback, error) {
	var wire wireCallback
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&wire); err != nil {
		return PaymentCallback{}, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	var missing []string
	if wire.InvoiceID == nil || *wire.InvoiceID == "" {
		missing = append(missing, "invoiceId")
	}
	if wire.Status == nil || *wire.Status == "" {
		missing = append(missing, "status")
	}
	if wire.Amount == nil {
		missing = append(missing, "amount")
	}
	if wire.Ccy == nil {
		missing = append(missing, "ccy")
	}
	if wire.Reference == nil || *wire.Reference == "" {
		missing = append(missing, "reference")
	}
	if len(missing) > 0 {
		return PaymentCallback{}, fmt.Errorf("%w: missing %s", ErrMalformedCallback, strings.Join(missing, ", "))
	}

	return PaymentCallback{
		InvoiceID: *wire.InvoiceID,
		Status:    *wire.Status,
		Amount:    *wire.Amount,
		Ccy:       *wire.Ccy,
		Reference: *wire.Reference,
	}, nil
}

// OrderStatus returns the reported status as an order status.
func (c PaymentCallback) OrderStatus() OrderStatus {
	return OrderStatus(c.Status)
}

// IsSuccess reports whether the provider reports a completed payment.
func (c PaymentCallback) IsSuccess() bool {
	return c.OrderStatus() == StatusSuccess
}

// IsFailure reports whether the provider reports a terminal unsuccessful payment.
func (c PaymentCallback) IsFailure() bool {
	switch c.Status {
	case "failure", "expired", "reversed":
		return true
	default:
		return false
	}
}
