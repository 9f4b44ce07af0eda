package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenlight/bakeshop-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, reference, customer_name, customer_email,
		customer_phone, delivery_label, items, total, status, metadata, user_id,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getOrderByReferenceSQL = `SELECT id, reference, customer_name, customer_email,
		customer_phone, delivery_label, items, total, status, metadata, user_id,
		created_at, updated_at
		FROM orders WHERE reference = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3
		WHERE reference = $1`

	updateOrderDetailsSQL = `UPDATE orders SET customer_name = $2, customer_email = $3,
		customer_phone = $4, delivery_label = $5, total = $6, updated_at = $7
		WHERE reference = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items and metadata are serialized to
// JSON for the JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	metadataJSON, err := json.Marshal(o.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling order metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Reference, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.DeliveryLabel, itemsJSON, o.Total, string(o.Status), metadataJSON,
		o.UserID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Reference, err)
	}
	return nil
}

// GetByReference returns the order with the given human-readable reference.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByReferenceSQL, reference)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", reference, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", reference, err)
	}
	return &o, nil
}

// List returns orders newest first, optionally filtered by status.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT id, reference, customer_name, customer_email, customer_phone,
		delivery_label, items, total, status, metadata, user_id, created_at, updated_at
		FROM orders`
	args := []any{}
	if f.Status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, string(f.Status), limit, f.Offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, f.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus persists a status transition. The idempotency compare lives
// in the order service; this write is unconditional.
func (r *OrderRepository) UpdateStatus(ctx context.Context, reference string, status order.Status, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, reference, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", reference, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// UpdateDetails persists the mutable customer-facing fields of an order.
func (r *OrderRepository) UpdateDetails(ctx context.Context, reference string, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderDetailsSQL, reference,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.DeliveryLabel,
		o.Total, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating details of order %q: %w", reference, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		status       string
		itemsJSON    []byte
		metadataJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Reference, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.DeliveryLabel, &itemsJSON, &o.Total, &status, &metadataJSON,
		&o.UserID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &o.Metadata); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order metadata: %w", err)
	}
	return o, nil
}
