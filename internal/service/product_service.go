package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"boutique/internal/cache"
	"boutique/internal/domain"
	"boutique/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var tracer = otel.Tracer("boutique/internal/service")

// Column limits: prices are NUMERIC(10,2), order totals NUMERIC(12,2), counts INTEGER
var (
	maxPrice = decimal.New(1, 8)
	maxTotal = decimal.New(1, 10)
)

const maxCount = math.MaxInt32

// ProductPage is one page of a catalog listing
type ProductPage struct {
	Products    []*domain.Product `json:"products"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Total       int               `json:"total"`
}

// ProductService defines the catalog operations
type ProductService interface {
	List(ctx context.Context, filter domain.ProductFilter, page, limit int) (*ProductPage, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id int64, changes domain.ProductChanges) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]*domain.Category, error)
	Export(ctx context.Context) ([]*domain.Product, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cache        cache.ProductCache
	logger       *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	productCache cache.ProductCache,
	logger *zap.Logger,
) ProductService {
	if productCache == nil {
		productCache = cache.NoopProductCache{}
	}
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cache:        productCache,
		logger:       logger,
	}
}

// NormalizePage clamps page and limit to their allowed ranges
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter, page, limit int) (*ProductPage, error) {
	page, limit = NormalizePage(page, limit)

	products, total, err := s.productRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Products:    products,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// Get reads through the product cache
func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductService.Get")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", id))

	product, err := s.cache.Get(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return product, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	product, err = s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}

	return product, nil
}

func (s *productService) Create(ctx context.Context, product *domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("category", product.Category))
	return nil
}

// Update applies a partial edit; fields the caller did not send keep their value
func (s *productService) Update(ctx context.Context, id int64, changes domain.ProductChanges) (*domain.Product, error) {
	if err := validateProductChanges(&changes); err != nil {
		return nil, err
	}

	product, err := s.productRepo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate(ctx, id)
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrProductInUse) {
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidate(ctx, id)
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *productService) Categories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Export returns the whole catalog for the spreadsheet download
func (s *productService) Export(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export products: %w", err)
	}
	return products, nil
}

func (s *productService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
}

func validateProduct(product *domain.Product) error {
	product.Title = strings.TrimSpace(product.Title)
	if product.Title == "" {
		return invalid("title", "title is required")
	}
	if err := validatePrice("price", product.Price); err != nil {
		return err
	}
	return validateStock(product.Stock)
}

func validateProductChanges(changes *domain.ProductChanges) error {
	if changes.Title != nil {
		title := strings.TrimSpace(*changes.Title)
		if title == "" {
			return invalid("title", "title must not be empty")
		}
		changes.Title = &title
	}
	if changes.Price != nil {
		if err := validatePrice("price", *changes.Price); err != nil {
			return err
		}
	}
	if changes.Stock != nil {
		return validateStock(*changes.Stock)
	}
	return nil
}

func validatePrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return invalid(field, "price must not be negative")
	}
	if price.Round(2).GreaterThanOrEqual(maxPrice) {
		return invalid(field, "price must be less than "+maxPrice.String())
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return invalid("stock", "stock must not be negative")
	}
	if stock > maxCount {
		return invalid("stock", fmt.Sprintf("stock must be at most %d", maxCount))
	}
	return nil
}
