package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/adapters/memory"
	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

func seedBook(t *testing.T, store *memory.Store, book domain.Book) {
	t.Helper()
	if err := store.Books().Save(context.Background(), book); err != nil {
		t.Fatalf("failed to seed book: %v", err)
	}
}

func TestStoreCreateAndGetOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedBook(t, store, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 10})
	seedBook(t, store, domain.Book{ID: 2, Name: "Forest Song", Price: 200, Count: 3})

	order := domain.Order{
		ID:        "order-1",
		OwnerID:   "user-1",
		Status:    domain.StatusCreated,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Items: []domain.OrderItem{
			{BookID: 2, Quantity: 1},
			{BookID: 1, Quantity: 2},
		},
	}

	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	got, err := store.Orders().GetByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}

	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].BookID != 2 || got.Items[1].BookID != 1 {
		t.Errorf("expected items in insertion order, got %+v", got.Items)
	}
	if got.Items[1].BookName != "Kobzar" || got.Items[1].UnitPrice != 500 {
		t.Errorf("expected item to be joined with book, got %+v", got.Items[1])
	}
	if got.FullPrice() != 1200 {
		t.Errorf("expected full price 1200, got %d", got.FullPrice())
	}

	t.Run("full price follows current book price", func(t *testing.T) {
		seedBook(t, store, domain.Book{ID: 1, Name: "Kobzar", Price: 600, Count: 10})

		got, err := store.Orders().GetByID(ctx, "order-1")
		if err != nil {
			t.Fatalf("failed to get order: %v", err)
		}
		if got.FullPrice() != 1400 {
			t.Errorf("expected full price 1400, got %d", got.FullPrice())
		}
	})
}

func TestStoreGetOrder_NotFound(t *testing.T) {
	store := memory.NewStore()

	_, err := store.Orders().GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestStoreCreateOrder_UnknownBook(t *testing.T) {
	store := memory.NewStore()

	err := store.Orders().Create(context.Background(), domain.Order{
		ID:    "order-1",
		Items: []domain.OrderItem{{BookID: 42, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got %v", err)
	}
}

func TestStoreWithinTx(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		store := memory.NewStore()
		ctx := context.Background()
		seedBook(t, store, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 10})

		err := store.WithinTx(ctx, func(tx ports.Store) error {
			book, err := tx.Books().GetForUpdate(ctx, 1)
			if err != nil {
				return err
			}
			if err := book.Deduct(4); err != nil {
				return err
			}
			return tx.Books().Save(ctx, *book)
		})
		if err != nil {
			t.Fatalf("expected commit, got %v", err)
		}

		book, _ := store.Books().GetByID(ctx, 1)
		if book.Count != 6 {
			t.Errorf("expected count 6, got %d", book.Count)
		}
	})

	t.Run("rolls back every write when fn fails", func(t *testing.T) {
		store := memory.NewStore()
		ctx := context.Background()
		seedBook(t, store, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 10})

		failure := errors.New("abort")
		err := store.WithinTx(ctx, func(tx ports.Store) error {
			if err := tx.Orders().Create(ctx, domain.Order{
				ID:    "order-1",
				Items: []domain.OrderItem{{BookID: 1, Quantity: 1}},
			}); err != nil {
				return err
			}
			if err := tx.Books().Save(ctx, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 0}); err != nil {
				return err
			}
			return failure
		})
		if !errors.Is(err, failure) {
			t.Fatalf("expected abort error, got %v", err)
		}

		if _, err := store.Orders().GetByID(ctx, "order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected order to be rolled back, got %v", err)
		}
		book, _ := store.Books().GetByID(ctx, 1)
		if book.Count != 10 {
			t.Errorf("expected count 10 after rollback, got %d", book.Count)
		}
	})

	t.Run("nested WithinTx joins the outer transaction", func(t *testing.T) {
		store := memory.NewStore()
		ctx := context.Background()
		seedBook(t, store, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 10})

		err := store.WithinTx(ctx, func(tx ports.Store) error {
			return tx.WithinTx(ctx, func(inner ports.Store) error {
				return inner.Books().Save(ctx, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 9})
			})
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		book, _ := store.Books().GetByID(ctx, 1)
		if book.Count != 9 {
			t.Errorf("expected count 9, got %d", book.Count)
		}
	})
}

func TestStoreSaveOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedBook(t, store, domain.Book{ID: 1, Name: "Kobzar", Price: 500, Count: 10})

	order := domain.Order{
		ID:     "order-1",
		Status: domain.StatusCreated,
		Items:  []domain.OrderItem{{BookID: 1, Quantity: 1}},
	}
	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	order.AttachInvoice("inv-1", "https://pay.example.com/inv-1", time.Now().UTC())
	order.Status = domain.StatusSuccess
	order.Items = nil
	if err := store.Orders().Save(ctx, order); err != nil {
		t.Fatalf("failed to save order: %v", err)
	}

	got, _ := store.Orders().GetByID(ctx, "order-1")
	if got.Status != domain.StatusSuccess {
		t.Errorf("expected status success, got %s", got.Status)
	}
	if got.InvoiceID == nil || *got.InvoiceID != "inv-1" {
		t.Errorf("expected invoice id inv-1, got %v", got.InvoiceID)
	}
	if len(got.Items) != 1 {
		t.Errorf("expected items to be untouched by Save, got %d", len(got.Items))
	}

	if err := store.Orders().Save(ctx, domain.Order{ID: "missing"}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}

	second := domain.Order{ID: "order-2", Status: domain.StatusCreated, Items: []domain.OrderItem{{BookID: 1, Quantity: 1}}}
	if err := store.Orders().Create(ctx, second); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	second.AttachInvoice("inv-1", "https://pay.example.com/inv-1", time.Now().UTC())
	if err := store.Orders().Save(ctx, second); !errors.Is(err, domain.ErrInvoiceInUse) {
		t.Errorf("expected ErrInvoiceInUse for a reused invoice id, got %v", err)
	}
}
