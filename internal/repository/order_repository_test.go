package repository

import (
	"context"
	"errors"
	"testing"

	"boutique/internal/domain"

	"github.com/shopspring/decimal"
)

type orderFixture struct {
	user     *domain.User
	products []*domain.Product
}

func seedOrderFixture(t *testing.T, stocks ...int) orderFixture {
	t.Helper()
	resetTables(t)
	ctx := context.Background()

	user := &domain.User{Email: "buyer@example.com", PasswordHash: "hash", Name: "Buyer", Role: domain.RoleCustomer}
	if err := NewUserRepository(testDB).Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	products := make([]*domain.Product, len(stocks))
	for i, stock := range stocks {
		products[i] = &domain.Product{Title: "Item", Price: decimal.RequireFromString("10.00"), Category: "tops", Stock: stock}
		if err := NewProductRepository(testDB).Create(ctx, products[i]); err != nil {
			t.Fatalf("Failed to create product: %v", err)
		}
	}

	return orderFixture{user: user, products: products}
}

func countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func stockOf(t *testing.T, id int64) int {
	t.Helper()
	product, err := NewProductRepository(testDB).FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to load product %d: %v", id, err)
	}
	return product.Stock
}

func TestOrderRepository_PlaceAndReadBack(t *testing.T) {
	requireDB(t)
	fx := seedOrderFixture(t, 5, 5)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	order := &domain.Order{UserID: fx.user.ID, TotalAmount: decimal.RequireFromString("25.00"), Status: domain.OrderStatusPending, Address: "Test St 1"}
	items := []domain.OrderItem{
		{ProductID: fx.products[0].ID, Quantity: 2, Price: decimal.RequireFromString("10.00")},
		{ProductID: fx.products[1].ID, Quantity: 1, Price: decimal.RequireFromString("5.00")},
	}

	err := repo.WithinTransaction(ctx, func(ctx context.Context, w OrderWriter) error {
		return place(ctx, w, order, items)
	})
	if err != nil {
		t.Fatalf("Failed to place order: %v", err)
	}

	got, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("Failed to read order: %v", err)
	}
	if got.Status != domain.OrderStatusPending || len(got.Items) != 2 {
		t.Fatalf("Unexpected order: %+v", got)
	}
	for i, item := range got.Items {
		if item.Quantity != items[i].Quantity || !item.Price.Equal(items[i].Price) || item.Title != "Item" {
			t.Errorf("Item %d mismatch: %+v", i, item)
		}
	}

	if stockOf(t, fx.products[0].ID) != 3 || stockOf(t, fx.products[1].ID) != 4 {
		t.Error("Stock was not decremented")
	}
}

func TestOrderRepository_UnknownProductLeavesNoRows(t *testing.T) {
	requireDB(t)
	fx := seedOrderFixture(t, 5, 5, 5)
	repo := NewOrderRepository(testDB)

	// the third line references a product that does not exist
	order := &domain.Order{UserID: fx.user.ID, TotalAmount: decimal.RequireFromString("30.00"), Status: domain.OrderStatusPending, Address: "Test St 1"}
	items := []domain.OrderItem{
		{ProductID: fx.products[0].ID, Quantity: 1, Price: decimal.RequireFromString("10.00")},
		{ProductID: fx.products[1].ID, Quantity: 1, Price: decimal.RequireFromString("10.00")},
		{ProductID: 999999, Quantity: 1, Price: decimal.RequireFromString("10.00")},
	}

	err := repo.WithinTransaction(context.Background(), func(ctx context.Context, w OrderWriter) error {
		return place(ctx, w, order, items)
	})
	if !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("Expected ErrReferenceNotFound, got %v", err)
	}

	if countRows(t, "orders") != 0 || countRows(t, "order_items") != 0 {
		t.Error("Partial order survived the rollback")
	}
	if stockOf(t, fx.products[0].ID) != 5 {
		t.Error("Stock change survived the rollback")
	}
}

func TestOrderRepository_StockGuard(t *testing.T) {
	requireDB(t)
	fx := seedOrderFixture(t, 5, 1)
	repo := NewOrderRepository(testDB)

	order := &domain.Order{UserID: fx.user.ID, TotalAmount: decimal.RequireFromString("30.00"), Status: domain.OrderStatusPending, Address: "Test St 1"}
	items := []domain.OrderItem{
		{ProductID: fx.products[0].ID, Quantity: 2, Price: decimal.RequireFromString("10.00")},
		{ProductID: fx.products[1].ID, Quantity: 2, Price: decimal.RequireFromString("5.00")},
	}

	err := repo.WithinTransaction(context.Background(), func(ctx context.Context, w OrderWriter) error {
		return place(ctx, w, order, items)
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	if countRows(t, "orders") != 0 || countRows(t, "order_items") != 0 {
		t.Error("Order survived an out-of-stock rollback")
	}
	if stockOf(t, fx.products[0].ID) != 5 || stockOf(t, fx.products[1].ID) != 1 {
		t.Error("Stock changed despite rollback")
	}
}

func TestOrderRepository_IdempotencyKeyIsUniquePerUser(t *testing.T) {
	requireDB(t)
	fx := seedOrderFixture(t, 10)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	newOrder := func() *domain.Order {
		return &domain.Order{
			UserID:         fx.user.ID,
			TotalAmount:    decimal.RequireFromString("10.00"),
			Status:         domain.OrderStatusPending,
			Address:        "Test St 1",
			IdempotencyKey: "checkout-1",
		}
	}
	items := func() []domain.OrderItem {
		return []domain.OrderItem{{ProductID: fx.products[0].ID, Quantity: 1, Price: decimal.RequireFromString("10.00")}}
	}

	first := newOrder()
	if err := repo.WithinTransaction(ctx, func(ctx context.Context, w OrderWriter) error {
		return place(ctx, w, first, items())
	}); err != nil {
		t.Fatalf("Failed to place first order: %v", err)
	}

	err := repo.WithinTransaction(ctx, func(ctx context.Context, w OrderWriter) error {
		return place(ctx, w, newOrder(), items())
	})
	if !errors.Is(err, ErrDuplicateIdempotencyKey) {
		t.Fatalf("Expected ErrDuplicateIdempotencyKey, got %v", err)
	}

	existing, err := repo.FindByIdempotencyKey(ctx, fx.user.ID, "checkout-1")
	if err != nil {
		t.Fatalf("Failed to find order by key: %v", err)
	}
	if existing.ID != first.ID || countRows(t, "orders") != 1 {
		t.Errorf("Expected exactly the first order, got id %d", existing.ID)
	}
	if stockOf(t, fx.products[0].ID) != 9 {
		t.Error("Duplicate checkout consumed stock")
	}

	if _, err := repo.FindByIdempotencyKey(ctx, fx.user.ID, "other"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	requireDB(t)
	fx := seedOrderFixture(t, 10)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	order := &domain.Order{UserID: fx.user.ID, TotalAmount: decimal.RequireFromString("10.00"), Status: domain.OrderStatusPending, Address: "Test St 1"}
	if err := repo.WithinTransaction(ctx, func(ctx context.Context, w OrderWriter) error {
		return w.InsertOrder(ctx, order)
	}); err != nil {
		t.Fatalf("Failed to insert order: %v", err)
	}

	if err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	got, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("Failed to read order: %v", err)
	}
	if got.Status != domain.OrderStatusDelivered || len(got.Items) != 0 {
		t.Errorf("Unexpected order after update: %+v", got)
	}

	if err := repo.UpdateStatus(ctx, order.ID, "shipped"); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("Expected ErrConstraintViolation for unknown status, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, order.ID+1, domain.OrderStatusCancelled); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got %v", err)
	}
}
