package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/jackc/pgx/v5"
)

var errInsertOutsideTx = errors.New("insert order: must run inside a transaction")

type orderRepository struct {
	db   querier
	inTx bool
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	if !r.inTx {
		return errInsertOutsideTx
	}

	query := `
		INSERT INTO orders (id, owner_id, status, invoice_id, pay_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.OwnerID,
		order.Status,
		order.InvoiceID,
		order.PayURL,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, position, book_id, quantity)
		VALUES ($1, $2, $3, $4)
	`

	for position, item := range order.Items {
		if _, err := r.db.Exec(ctx, itemQuery, order.ID, position, item.BookID, item.Quantity); err != nil {
			switch pgErrorCode(err) {
			case pgForeignKeyViolation:
				return domain.NewBookError(item.BookID, domain.ErrBookNotFound)
			case pgCheckViolation:
				return domain.NewBookError(item.BookID, domain.ErrInvalidQuantity)
			}
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, false)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, r.inTx)
}

func (r *orderRepository) get(ctx context.Context, id string, lock bool) (*domain.Order, error) {
	query := `
		SELECT id, owner_id, status, invoice_id, pay_url, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}

	var order domain.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.OwnerID,
		&order.Status,
		&order.InvoiceID,
		&order.PayURL,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT oi.book_id, b.name, b.price, oi.quantity
		FROM order_items oi
		JOIN books b ON b.id = oi.book_id
		WHERE oi.order_id = $1
		ORDER BY oi.position
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.BookID,
			&item.BookName,
			&item.UnitPrice,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, invoice_id = $2, pay_url = $3, updated_at = now()
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, order.Status, order.InvoiceID, order.PayURL, order.ID)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("order %s: %w", order.ID, domain.ErrInvoiceInUse)
		}
		return fmt.Errorf("update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}
