package commands

// SetOrderIDGenerator replaces the order id source so tests can address orders directly.
func SetOrderIDGenerator(h *CreateOrderCommandHandler, newID func() string) {
	h.newID = newID
}
