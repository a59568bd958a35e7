package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"boutique/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrDuplicateIdempotencyKey = errors.New("order with this idempotency key already exists")
)

// OrderWriter is the set of statements a checkout runs inside one transaction
type OrderWriter interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertItem(ctx context.Context, item *domain.OrderItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// WithinTransaction runs fn in a transaction that is committed when fn
	// returns nil and rolled back otherwise, including on panic.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, w OrderWriter) error) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, w OrderWriter) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &txOrderWriter{tx: tx}); err != nil {
		// database/sql rolls back on its own when ctx expires
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type txOrderWriter struct {
	tx *sql.Tx
}

// InsertOrder inserts the order header and fills in id and timestamps
func (w *txOrderWriter) InsertOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, status, address, phone, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	key := sql.NullString{String: order.IdempotencyKey, Valid: order.IdempotencyKey != ""}

	err := w.tx.QueryRowContext(
		ctx,
		query,
		order.UserID,
		order.TotalAmount,
		string(order.Status),
		order.Address,
		order.Phone,
		key,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		switch {
		case isUniqueViolation(err, "uq_orders_user_idempotency_key"):
			return ErrDuplicateIdempotencyKey
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", ErrReferenceNotFound, constraintName(err))
		case isCheckViolation(err):
			return fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// InsertItem inserts one order line and fills in its id
func (w *txOrderWriter) InsertItem(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price, size, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := w.tx.QueryRowContext(
		ctx,
		query,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.Price,
		item.Size,
		item.Color,
	).Scan(&item.ID)

	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", ErrReferenceNotFound, constraintName(err))
		case isCheckViolation(err):
			return fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return fmt.Errorf("failed to insert order item for product %d: %w", item.ProductID, err)
	}

	return nil
}

// DecrementStock takes quantity units off a product only if that many are left
func (w *txOrderWriter) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`

	result, err := w.tx.ExecContext(ctx, query, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w for product %d", ErrInsufficientStock, productID)
	}

	return nil
}

const selectOrdersWithItems = `
	SELECT o.id, o.user_id, o.total_amount, o.status, o.address, o.phone,
	       COALESCE(o.idempotency_key, ''), o.created_at, o.updated_at,
	       oi.id, oi.product_id, oi.quantity, oi.price, oi.size, oi.color,
	       p.title, p.image_url
	FROM orders o
	LEFT JOIN order_items oi ON oi.order_id = o.id
	LEFT JOIN products p ON p.id = oi.product_id
`

const orderOrdering = ` ORDER BY o.created_at DESC, o.id DESC, oi.id ASC`

// FindByID returns an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	orders, err := r.fetch(ctx, selectOrdersWithItems+"WHERE o.id = $1"+orderOrdering, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// FindByIdempotencyKey returns the order a user already placed with key
func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	orders, err := r.fetch(ctx, selectOrdersWithItems+"WHERE o.user_id = $1 AND o.idempotency_key = $2"+orderOrdering, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find order by idempotency key: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// ListByUser returns a user's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	orders, err := r.fetch(ctx, selectOrdersWithItems+"WHERE o.user_id = $1"+orderOrdering, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user: %w", err)
	}
	return orders, nil
}

// ListAll returns every order, newest first
func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	orders, err := r.fetch(ctx, selectOrdersWithItems+orderOrdering)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of an order
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// fetch runs one joined query and folds its rows into orders, keeping row order
func (r *orderRepository) fetch(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.Order{}
	byID := make(map[int64]*domain.Order)

	for rows.Next() {
		var (
			o         domain.Order
			itemID    sql.NullInt64
			productID sql.NullInt64
			quantity  sql.NullInt64
			price     decimal.NullDecimal
			size      sql.NullString
			color     sql.NullString
			title     sql.NullString
			imageURL  sql.NullString
		)

		err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.TotalAmount,
			&o.Status,
			&o.Address,
			&o.Phone,
			&o.IdempotencyKey,
			&o.CreatedAt,
			&o.UpdatedAt,
			&itemID,
			&productID,
			&quantity,
			&price,
			&size,
			&color,
			&title,
			&imageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}

		order, ok := byID[o.ID]
		if !ok {
			o.Items = []domain.OrderItem{}
			order = &o
			byID[o.ID] = order
			orders = append(orders, order)
		}

		if !itemID.Valid {
			continue
		}

		order.Items = append(order.Items, domain.OrderItem{
			ID:        itemID.Int64,
			OrderID:   order.ID,
			ProductID: productID.Int64,
			Quantity:  int(quantity.Int64),
			Price:     price.Decimal,
			Size:      size.String,
			Color:     color.String,
			Title:     title.String,
			ImageURL:  imageURL.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
