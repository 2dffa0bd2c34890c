package domain

import (
	"strings"
	"time"
)

// OrderStatus is the payment status of an order. Besides the two values the
// service sets itself, it stores whatever status the payment provider reports.
type OrderStatus string

const (
	StatusCreated OrderStatus = "created"
	StatusSuccess OrderStatus = "success"
)

// BasketUnit is the unit label sent to the payment provider for every line.
const BasketUnit = "pcs"

// Order is a purchase of one or more books by a single owner.
type Order struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Status    OrderStatus `json:"status"`
	InvoiceID *string     `json:"invoice_id"`
	PayURL    *string     `json:"pay_url"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `json:"books"`
}

// OrderItem is a single basket line. BookName and UnitPrice are read from the
// current book row whenever the order is loaded.
type OrderItem struct {
	BookID    int64  `json:"book_id"`
	BookName  string `json:"book_name"`
	UnitPrice int64  `json:"-"`
	Quantity  int64  `json:"quantity"`
}

// Sum is the line total.
func (i OrderItem) Sum() int64 {
	return i.UnitPrice * i.Quantity
}

// BasketItem is the provider-facing representation of an order line.
type BasketItem struct {
	Name string `json:"name"`
	Qty  int64  `json:"qty"`
	Sum  int64  `json:"sum"`
	Unit string `json:"unit"`
}

// RequestedItem is one entry of a basket submitted by a client.
type RequestedItem struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"quantity"`
}

// FullPrice sums price*quantity over the current items.
func (o Order) FullPrice() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Sum()
	}
	return total
}

// Basket returns the provider basket in item order.
func (o Order) Basket() []BasketItem {
	basket := make([]BasketItem, 0, len(o.Items))
	for _, item := range o.Items {
		basket = append(basket, BasketItem{
			Name: item.BookName,
			Qty:  item.Quantity,
			Sum:  item.Sum(),
			Unit: BasketUnit,
		})
	}
	return basket
}

// IsPaid reports whether a successful payment has already been applied.
func (o Order) IsPaid() bool {
	return o.Status == StatusSuccess
}

// HasInvoice reports whether the payment provider accepted the order.
func (o Order) HasInvoice() bool {
	return o.InvoiceID != nil && *o.InvoiceID != ""
}

// AttachInvoice records the provider identifiers returned for this order.
func (o *Order) AttachInvoice(invoiceID, payURL string, at time.Time) {
	o.InvoiceID = &invoiceID
	o.PayURL = &payURL
	o.UpdatedAt = at
}

// Validate checks the order header. Items are checked against inventory one
// by one in CheckItem.
func (o Order) Validate() error {
	if strings.TrimSpace(o.OwnerID) == "" {
		return ErrMissingOwner
	}
	if len(o.Items) == 0 {
		return ErrEmptyBasket
	}
	return nil
}

// CheckItem validates a requested quantity against the book it refers to.
// Stock is checked before the quantity itself.
func CheckItem(book Book, quantity int64) error {
	if !book.InStock(quantity) {
		return NewBookError(book.ID, ErrInsufficientStock)
	}
	if quantity <= 0 {
		return NewBookError(book.ID, ErrInvalidQuantity)
	}
	return nil
}

// OrderInfo is the read model returned to API clients.
type OrderInfo struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"user_id"`
	Books     []OrderItem `json:"books"`
	Status    OrderStatus `json:"status"`
	FullPrice int64       `json:"full_price"`
	CreatedAt time.Time   `json:"created_at"`
	InvoiceID *string     `json:"invoice_id"`
	PayURL    *string     `json:"pay_url"`
}

// Info builds the client-facing view of the order.
func (o Order) Info() OrderInfo {
	books := o.Items
	if books == nil {
		books = []OrderItem{}
	}
	return OrderInfo{
		ID:        o.ID,
		OwnerID:   o.OwnerID,
		Books:     books,
		Status:    o.Status,
		FullPrice: o.FullPrice(),
		CreatedAt: o.CreatedAt,
		InvoiceID: o.InvoiceID,
		PayURL:    o.PayURL,
	}
}
