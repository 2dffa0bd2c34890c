package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/bookstore/internal/database"
	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ObservableStore wraps a ports.Store with spans and query latency metrics.
// Repositories handed out inside a transaction are wrapped as well.
type ObservableStore struct {
	store   ports.Store
	metrics *database.Metrics
}

func NewObservableStore(store ports.Store, metrics *database.Metrics) *ObservableStore {
	return &ObservableStore{
		store:   store,
		metrics: metrics,
	}
}

func (s *ObservableStore) Books() ports.BookRepository {
	return &observableBooks{repo: s.store.Books(), metrics: s.metrics}
}

func (s *ObservableStore) Orders() ports.OrderRepository {
	return &observableOrders{repo: s.store.Orders(), metrics: s.metrics}
}

func (s *ObservableStore) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	ctx, span := telemetry.StartSpan(ctx, "Store.WithinTx")
	defer span.End()

	start := time.Now()
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		return fn(&ObservableStore{store: tx, metrics: s.metrics})
	})
	s.metrics.RecordQuery(ctx, "transaction", time.Since(start).Seconds(), succeeded(err))

	return finish(span, err)
}

type observableBooks struct {
	repo    ports.BookRepository
	metrics *database.Metrics
}

func (r *observableBooks) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	return r.get(ctx, "BookRepository.GetByID", "get_book_by_id", id, r.repo.GetByID)
}

func (r *observableBooks) GetForUpdate(ctx context.Context, id int64) (*domain.Book, error) {
	return r.get(ctx, "BookRepository.GetForUpdate", "get_book_for_update", id, r.repo.GetForUpdate)
}

func (r *observableBooks) get(
	ctx context.Context,
	spanName, operation string,
	id int64,
	fn func(context.Context, int64) (*domain.Book, error),
) (*domain.Book, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", id),
		attribute.String("operation", operation),
	)

	start := time.Now()
	book, err := fn(ctx, id)
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds(), succeeded(err))

	if err := finish(span, err); err != nil {
		return nil, err
	}
	return book, nil
}

func (r *observableBooks) Save(ctx context.Context, book domain.Book) error {
	ctx, span := telemetry.StartSpan(ctx, "BookRepository.Save")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("book.id", book.ID),
		attribute.Int64("book.count", book.Count),
		attribute.String("operation", "save_book"),
	)

	start := time.Now()
	err := r.repo.Save(ctx, book)
	r.metrics.RecordQuery(ctx, "save_book", time.Since(start).Seconds(), succeeded(err))

	return finish(span, err)
}

type observableOrders struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func (r *observableOrders) Create(ctx context.Context, order domain.Order) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.Create")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
		attribute.String("operation", "create"),
	)

	start := time.Now()
	err := r.repo.Create(ctx, order)
	r.metrics.RecordQuery(ctx, "create_order", time.Since(start).Seconds(), succeeded(err))

	return finish(span, err)
}

func (r *observableOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "OrderRepository.GetByID", "get_order_by_id", id, r.repo.GetByID)
}

func (r *observableOrders) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "OrderRepository.GetForUpdate", "get_order_for_update", id, r.repo.GetForUpdate)
}

func (r *observableOrders) get(
	ctx context.Context,
	spanName, operation, id string,
	fn func(context.Context, string) (*domain.Order, error),
) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", id),
		attribute.String("operation", operation),
	)

	start := time.Now()
	order, err := fn(ctx, id)
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds(), succeeded(err))

	if err := finish(span, err); err != nil {
		return nil, err
	}
	telemetry.AddSpanAttributes(span, attribute.String("order.status", string(order.Status)))
	return order, nil
}

func (r *observableOrders) Save(ctx context.Context, order domain.Order) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.Save")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.new_status", string(order.Status)),
		attribute.String("operation", "save_order"),
	)

	start := time.Now()
	err := r.repo.Save(ctx, order)
	r.metrics.RecordQuery(ctx, "save_order", time.Since(start).Seconds(), succeeded(err))

	return finish(span, err)
}

// succeeded treats a missing row as a completed query.
func succeeded(err error) bool {
	return err == nil || errors.Is(err, domain.ErrNotFound)
}

func finish(span trace.Span, err error) error {
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}
