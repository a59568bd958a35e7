package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"boutique/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInUse    = errors.New("product is referenced by orders or reviews")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id int64, changes domain.ProductChanges) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, title, description, price, category, size, color, brand, image_url, stock, created_at, updated_at`

// orderBy maps a requested sort onto a fixed ORDER BY clause; unknown values fall back to newest first
var orderBy = map[domain.ProductSort]string{
	domain.SortNewest:    "created_at DESC, id DESC",
	domain.SortPriceLow:  "price ASC, id ASC",
	domain.SortPriceHigh: "price DESC, id DESC",
	domain.SortName:      "title ASC, id ASC",
}

// Create inserts a new product and fills in the generated id and timestamps
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (title, description, price, category, size, color, brand, image_url, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Title,
		product.Description,
		product.Price,
		product.Category,
		product.Size,
		product.Color,
		product.Brand,
		product.ImageURL,
		product.Stock,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update changes only the columns set in changes and returns the stored row
func (r *productRepository) Update(ctx context.Context, id int64, changes domain.ProductChanges) (*domain.Product, error) {
	query := `
		UPDATE products
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    price = COALESCE($4, price),
		    category = COALESCE($5, category),
		    size = COALESCE($6, size),
		    color = COALESCE($7, color),
		    brand = COALESCE($8, brand),
		    image_url = COALESCE($9, image_url),
		    stock = COALESCE($10, stock)
		WHERE id = $1
		RETURNING ` + productColumns

	var price interface{}
	if changes.Price != nil {
		price = *changes.Price
	}

	product, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		id,
		changes.Title,
		changes.Description,
		price,
		changes.Category,
		changes.Size,
		changes.Color,
		changes.Brand,
		changes.ImageURL,
		changes.Stock,
	))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isCheckViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConstraintViolation, constraintName(err))
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product; products still referenced by orders or reviews are kept
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List returns one page of products matching filter and the total number of matches
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	conditions := []string{}
	args := []interface{}{}

	addCondition := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if filter.Category != "" {
		addCondition("category = $%d", filter.Category)
	}
	if filter.Brand != "" {
		addCondition("brand ILIKE $%d", "%"+filter.Brand+"%")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		addCondition("(title ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+search+"%")
	}
	if filter.InStock {
		conditions = append(conditions, "stock > 0")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	sortClause, ok := orderBy[filter.Sort]
	if !ok {
		sortClause = orderBy[domain.SortNewest]
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortClause, len(args)+1, len(args)+2)

	args = append(args, pageSize, offset)

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// ListAll returns the whole catalog ordered by id, used by the export
func (r *productRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	products, err := r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list all products: %w", err)
	}
	return products, nil
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Category,
		&product.Size,
		&product.Color,
		&product.Brand,
		&product.ImageURL,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
