package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boutique/internal/cache"
	"boutique/internal/domain"
	"boutique/internal/events"
	"boutique/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLength = 255

// CreateOrderInput is a checkout request in its canonical form
type CreateOrderInput struct {
	UserID         int64
	TotalAmount    decimal.Decimal
	Address        string
	Phone          string
	IdempotencyKey string
	Items          []OrderItemInput
}

// OrderItemInput is one requested order line
type OrderItemInput struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Size      string
	Color     string
}

// CreateOrderResult carries the order and whether it already existed for the idempotency key
type CreateOrderResult struct {
	Order    *domain.Order
	Replayed bool
}

// OrderMetrics receives checkout outcomes
type OrderMetrics interface {
	OrderCreated(total float64)
	OrderReplayed()
	OrderFailed(reason string)
}

// OrderService defines the checkout and order history operations
type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, actor Actor, id int64) (*domain.Order, error)
	ListUserOrders(ctx context.Context, actor Actor, userID int64) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

// OrderServiceConfig holds the checkout settings
type OrderServiceConfig struct {
	TxTimeout  time.Duration
	TrackStock bool
}

type orderService struct {
	orderRepo repository.OrderRepository
	cache     cache.ProductCache
	publisher events.Publisher
	metrics   OrderMetrics
	cfg       OrderServiceConfig
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	productCache cache.ProductCache,
	publisher events.Publisher,
	metrics OrderMetrics,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) OrderService {
	if productCache == nil {
		productCache = cache.NoopProductCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &orderService{
		orderRepo: orderRepo,
		cache:     productCache,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// ValidateCreateOrder checks a checkout request before anything is written
func ValidateCreateOrder(in CreateOrderInput) error {
	if in.UserID <= 0 {
		return invalid("user_id", "user_id is required")
	}
	if !in.TotalAmount.IsPositive() {
		return invalid("total_amount", "total_amount is required and must be greater than 0")
	}
	if in.TotalAmount.Round(2).GreaterThanOrEqual(maxTotal) {
		return invalid("total_amount", "total_amount must be less than "+maxTotal.String())
	}
	if strings.TrimSpace(in.Address) == "" {
		return invalid("address", "address is required")
	}
	if len(in.IdempotencyKey) > maxIdempotencyKeyLength {
		return invalid("idempotency_key", fmt.Sprintf("idempotency_key must be at most %d characters", maxIdempotencyKeyLength))
	}
	if len(in.Items) == 0 {
		return invalid("items", "at least one item is required")
	}

	for i, item := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case item.ProductID <= 0:
			return invalid(field+".product_id", "product_id is required")
		case item.Quantity <= 0:
			return invalid(field+".quantity", "quantity must be greater than 0")
		case item.Quantity > maxCount:
			return invalid(field+".quantity", fmt.Sprintf("quantity must be at most %d", maxCount))
		case !item.Price.IsPositive():
			return invalid(field+".price", "price must be greater than 0")
		case item.Price.Round(2).GreaterThanOrEqual(maxPrice):
			return invalid(field+".price", "price must be less than "+maxPrice.String())
		}
	}

	return nil
}

// CreateOrder places an order and its items in one transaction. With stock
// tracking enabled every line also takes its quantity off the product, and
// a line that cannot be covered rolls back the whole order.
func (s *orderService) CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := ValidateCreateOrder(in); err != nil {
		s.reject(span, "validation", in, err)
		return nil, err
	}

	if !actor.CanActFor(in.UserID) {
		s.reject(span, "forbidden", in, ErrForbidden)
		return nil, ErrForbidden
	}

	span.SetAttributes(
		attribute.Int64("order.user_id", in.UserID),
		attribute.Int("order.items", len(in.Items)),
		attribute.Bool("order.idempotent", in.IdempotencyKey != ""),
	)

	if in.IdempotencyKey != "" {
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
		switch {
		case err == nil:
			return s.replay(existing), nil
		case !errors.Is(err, repository.ErrOrderNotFound):
			s.reject(span, "internal", in, err)
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
	}

	order := &domain.Order{
		UserID:         in.UserID,
		TotalAmount:    in.TotalAmount,
		Status:         domain.OrderStatusPending,
		Address:        strings.TrimSpace(in.Address),
		Phone:          strings.TrimSpace(in.Phone),
		IdempotencyKey: in.IdempotencyKey,
	}

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	var items []domain.OrderItem
	err := s.orderRepo.WithinTransaction(txCtx, func(ctx context.Context, w repository.OrderWriter) error {
		items = make([]domain.OrderItem, 0, len(in.Items))

		if err := w.InsertOrder(ctx, order); err != nil {
			return err
		}

		for _, line := range in.Items {
			item := domain.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Price,
				Size:      line.Size,
				Color:     line.Color,
			}
			if err := w.InsertItem(ctx, &item); err != nil {
				return err
			}
			if s.cfg.TrackStock {
				if err := w.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
			items = append(items, item)
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			// lost the race against a concurrent request with the same key
			existing, findErr := s.orderRepo.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
			if findErr == nil {
				return s.replay(existing), nil
			}
			err = fmt.Errorf("%w: %v", err, findErr)
		}

		s.reject(span, failureReason(err), in, err)

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("order transaction timed out after %s: %w", s.cfg.TxTimeout, err)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	order.Items = items
	s.afterCommit(ctx, order)

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	return &CreateOrderResult{Order: order}, nil
}

// afterCommit runs side effects that must never fail an order already committed
func (s *orderService) afterCommit(ctx context.Context, order *domain.Order) {
	total, _ := order.TotalAmount.Float64()
	if s.metrics != nil {
		s.metrics.OrderCreated(total)
	}

	if s.cfg.TrackStock {
		for _, item := range order.Items {
			if err := s.cache.Delete(ctx, item.ProductID); err != nil {
				s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", item.ProductID), zap.Error(err))
			}
		}
	}

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.EventOrderCreated, order)); err != nil {
		s.logger.Warn("Failed to publish order event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
}

func (s *orderService) replay(order *domain.Order) *CreateOrderResult {
	if s.metrics != nil {
		s.metrics.OrderReplayed()
	}
	s.logger.Info("Order replayed for idempotency key",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
	)
	return &CreateOrderResult{Order: order, Replayed: true}
}

func (s *orderService) reject(span trace.Span, reason string, in CreateOrderInput, err error) {
	if s.metrics != nil {
		s.metrics.OrderFailed(reason)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)

	level := s.logger.Info
	if reason == "internal" || reason == "timeout" {
		level = s.logger.Error
	}
	level("Order rejected",
		zap.String("reason", reason),
		zap.Int64("user_id", in.UserID),
		zap.Int("items", len(in.Items)),
		zap.Error(err),
	)
}

func failureReason(err error) string {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.Is(err, repository.ErrInsufficientStock):
		return "out_of_stock"
	case errors.Is(err, repository.ErrReferenceNotFound):
		return "reference"
	case errors.Is(err, repository.ErrConstraintViolation):
		return "constraint"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "internal"
}

// GetOrder returns an order to its owner or an admin; others see not found
func (s *orderService) GetOrder(ctx context.Context, actor Actor, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if !actor.CanActFor(order.UserID) {
		return nil, repository.ErrOrderNotFound
	}

	return order, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, actor Actor, userID int64) ([]*domain.Order, error) {
	if !actor.CanActFor(userID) {
		return nil, ErrForbidden
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to any of the allowed statuses
func (s *orderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, invalid("status", "status must be one of pending, completed, delivered, cancelled")
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.EventOrderStatusChanged, order)); err != nil {
		s.logger.Warn("Failed to publish order event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("Order status updated", zap.Int64("order_id", id), zap.String("status", string(status)))
	return order, nil
}
