package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("an order for this payment already exists")
)

// OrderRepository defines the interface for order data access. Orders are
// written once and never updated.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, email string) ([]*domain.Order, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, customer_email, address, pincode, subtotal, discount, shipping_fee, amount, items, payment_id, gateway_order_id, status, created_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var items []byte
	err := row.Scan(
		&order.ID,
		&order.CustomerEmail,
		&order.Address,
		&order.Pincode,
		&order.Subtotal,
		&order.Discount,
		&order.ShippingFee,
		&order.Amount,
		&items,
		&order.PaymentID,
		&order.GatewayOrderID,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	return order, nil
}

// Create inserts the order with its item snapshot as JSONB
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.CustomerEmail,
		order.Address,
		order.Pincode,
		order.Subtotal,
		order.Discount,
		order.ShippingFee,
		order.Amount,
		string(items),
		order.PaymentID,
		order.GatewayOrderID,
		order.Status,
		order.CreatedAt,
	)

	if isUniqueViolation(err) {
		return ErrOrderAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// FindByPaymentID retrieves the order written for a gateway payment
func (r *orderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by payment ID: %w", err)
	}

	return order, nil
}

// ListByCustomer returns a customer's orders, newest first
func (r *orderRepository) ListByCustomer(ctx context.Context, email string) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_email = $1
		ORDER BY created_at DESC
	`
	return r.query(ctx, query, email)
}

// List returns all orders, newest first, with pagination
func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	orders, err := r.query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
