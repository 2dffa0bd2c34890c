package domain

// Book is the inventory record an order line refers to. Price is an integer
// amount in minor currency units.
type Book struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Count int64  `json:"count"`
}

// InStock reports whether quantity copies can currently be sold.
func (b Book) InStock(quantity int64) bool {
	return b.Count >= quantity
}

// Deduct removes quantity copies from stock. It never lets Count go negative.
func (b *Book) Deduct(quantity int64) error {
	if quantity <= 0 {
		return NewBookError(b.ID, ErrInvalidQuantity)
	}
	if !b.InStock(quantity) {
		return NewBookError(b.ID, ErrInsufficientStock)
	}
	b.Count -= quantity
	return nil
}
