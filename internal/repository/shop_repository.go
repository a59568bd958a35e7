package repository

import (
	"context"
	"database/sql"
	"fmt"

	"boutique/internal/domain"
)

// ShopRepository defines the interface for shop data access
type ShopRepository interface {
	Create(ctx context.Context, shop *domain.Shop) error
	List(ctx context.Context) ([]*domain.Shop, error)
}

type shopRepository struct {
	db *sql.DB
}

// NewShopRepository creates a new instance of ShopRepository
func NewShopRepository(db *sql.DB) ShopRepository {
	return &shopRepository{db: db}
}

// Create inserts a shop; latitude and longitude may be nil
func (r *shopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	query := `
		INSERT INTO shops (address, phone, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, shop.Address, shop.Phone, nullFloat(shop.Latitude), nullFloat(shop.Longitude)).
		Scan(&shop.ID, &shop.CreatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return fmt.Errorf("failed to create shop: %w", err)
	}

	return nil
}

// List returns all shops in creation order
func (r *shopRepository) List(ctx context.Context) ([]*domain.Shop, error) {
	query := `
		SELECT id, address, phone, latitude, longitude, created_at
		FROM shops
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer rows.Close()

	shops := []*domain.Shop{}
	for rows.Next() {
		var (
			shop     domain.Shop
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&shop.ID, &shop.Address, &shop.Phone, &lat, &lng, &shop.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		if lat.Valid {
			shop.Latitude = &lat.Float64
		}
		if lng.Valid {
			shop.Longitude = &lng.Float64
		}
		shops = append(shops, &shop)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shops: %w", err)
	}

	return shops, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
