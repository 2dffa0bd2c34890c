package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of these so
// callers can branch on the kind with errors.Is.
var (
	ErrClientInput  = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrBusinessRule = errors.New("business rule violation")
	ErrGateway      = errors.New("payment gateway error")
	ErrCallback     = errors.New("callback rejected")
)

var (
	ErrEmptyBasket       = fmt.Errorf("%w: basket must contain at least one book", ErrClientInput)
	ErrMissingOwner      = fmt.Errorf("%w: order owner is required", ErrClientInput)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be more than 0", ErrBusinessRule)
	ErrInsufficientStock = fmt.Errorf("%w: not enough books in stock", ErrBusinessRule)
	ErrBookNotFound      = fmt.Errorf("book %w", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)

	// ErrInvoiceInUse means the provider handed out an invoice id already
	// attached to another order.
	ErrInvoiceInUse = fmt.Errorf("%w: invoice already attached to another order", ErrGateway)

	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrCallback)
	ErrMalformedCallback = fmt.Errorf("%w: malformed payload", ErrCallback)
	ErrInvoiceMismatch   = fmt.Errorf("%w: invoiceId mismatch", ErrCallback)
)

// BookError ties a book-scoped failure to the offending book id.
type BookError struct {
	BookID int64
	Err    error
}

func (e *BookError) Error() string {
	return fmt.Sprintf("book %d: %v", e.BookID, e.Err)
}

func (e *BookError) Unwrap() error {
	return e.Err
}

// NewBookError wraps err with the id of the book it refers to.
func NewBookError(bookID int64, err error) error {
	return &BookError{BookID: bookID, Err: err}
}

// GatewayError wraps a failed call to the payment provider.
func GatewayError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGateway, op, err)
}
