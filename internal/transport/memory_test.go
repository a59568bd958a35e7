package transport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"boutique/internal/domain"
	"boutique/internal/repository"
)

// memoryStore backs every repository interface with maps so the handlers can
// be exercised end to end without Postgres
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*domain.User
	tokens   map[string]*domain.RefreshToken
	products map[int64]*domain.Product
	reviews  map[int64]*domain.Review
	shops    []*domain.Shop
	orders   map[int64]*domain.Order
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[int64]*domain.User),
		tokens:   make(map[string]*domain.RefreshToken),
		products: make(map[int64]*domain.Product),
		reviews:  make(map[int64]*domain.Review),
		orders:   make(map[int64]*domain.Order),
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memUsers struct{ *memoryStore }

func (m memUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}
	user.ID = m.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m memUsers) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

type memTokens struct{ *memoryStore }

func (m memTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m memTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return t, nil
}

func (m memTokens) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (m memTokens) RevokeAllForUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

type memProducts struct{ *memoryStore }

func (m memProducts) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = m.id()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m memProducts) Update(ctx context.Context, id int64, changes domain.ProductChanges) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	changes.Apply(product)
	product.UpdatedAt = time.Now()
	copied := *product
	return &copied, nil
}

func (m memProducts) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, o := range m.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return repository.ErrProductInUse
			}
		}
	}
	delete(m.products, id)
	return nil
}

func (m memProducts) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m memProducts) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	all, _ := m.ListAll(ctx)

	var matched []*domain.Product
	for _, p := range all {
		switch {
		case filter.Category != "" && p.Category != filter.Category:
		case filter.Brand != "" && p.Brand != filter.Brand:
		case filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)):
		case filter.InStock && p.Stock <= 0:
		default:
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		switch filter.Sort {
		case domain.SortPriceLow:
			return matched[i].Price.LessThan(matched[j].Price)
		case domain.SortPriceHigh:
			return matched[i].Price.GreaterThan(matched[j].Price)
		case domain.SortName:
			return matched[i].Title < matched[j].Title
		default:
			return matched[i].ID > matched[j].ID
		}
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []*domain.Product{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m memProducts) ListAll(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memCategories struct{ *memoryStore }

func (m memCategories) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range m.products {
		if p.Category != "" {
			counts[p.Category]++
		}
	}
	out := make([]*domain.Category, 0, len(counts))
	for name, n := range counts {
		out = append(out, &domain.Category{Name: name, ProductCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memReviews struct{ *memoryStore }

func (m memReviews) Create(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[review.UserID]; !ok {
		return repository.ErrReferenceNotFound
	}
	if _, ok := m.products[review.ProductID]; !ok {
		return repository.ErrReferenceNotFound
	}
	review.ID = m.id()
	review.CreatedAt = time.Now()
	copied := *review
	m.reviews[review.ID] = &copied
	return nil
}

func (m memReviews) FindByID(ctx context.Context, id int64) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	copied := *r
	return &copied, nil
}

func (m memReviews) ListByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	return m.list(func(r *domain.Review) bool { return r.ProductID == productID }), nil
}

func (m memReviews) ListByUser(ctx context.Context, userID int64) ([]*domain.Review, error) {
	return m.list(func(r *domain.Review) bool { return r.UserID == userID }), nil
}

func (m memReviews) list(match func(*domain.Review) bool) []*domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Review{}
	for _, r := range m.reviews {
		if match(r) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m memReviews) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(m.reviews, id)
	return nil
}

type memShops struct{ *memoryStore }

func (m memShops) Create(ctx context.Context, shop *domain.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	shop.ID = m.id()
	shop.CreatedAt = time.Now()
	copied := *shop
	m.shops = append(m.shops, &copied)
	return nil
}

func (m memShops) List(ctx context.Context) ([]*domain.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Shop, 0, len(m.shops))
	for _, s := range m.shops {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

type memOrders struct{ *memoryStore }

// WithinTransaction stages writes on copies and applies them only on success
func (m memOrders) WithinTransaction(ctx context.Context, fn func(ctx context.Context, w repository.OrderWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memOrderTx{store: m.memoryStore, stock: make(map[int64]int)}
	if err := fn(ctx, tx); err != nil {
		m.nextID = tx.savedID
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, stock := range tx.stock {
		m.products[id].Stock = stock
	}
	m.orders[tx.order.ID] = tx.order
	return nil
}

type memOrderTx struct {
	store   *memoryStore
	order   *domain.Order
	stock   map[int64]int
	savedID int64
}

func (tx *memOrderTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	for _, existing := range tx.store.orders {
		if order.IdempotencyKey != "" && existing.UserID == order.UserID && existing.IdempotencyKey == order.IdempotencyKey {
			return repository.ErrDuplicateIdempotencyKey
		}
	}
	if _, ok := tx.store.users[order.UserID]; !ok {
		return repository.ErrReferenceNotFound
	}
	tx.savedID = tx.store.nextID
	order.ID = tx.store.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	tx.order = &copied
	return nil
}

func (tx *memOrderTx) InsertItem(ctx context.Context, item *domain.OrderItem) error {
	if _, ok := tx.store.products[item.ProductID]; !ok {
		return repository.ErrReferenceNotFound
	}
	item.ID = int64(len(tx.order.Items) + 1)
	tx.order.Items = append(tx.order.Items, *item)
	return nil
}

func (tx *memOrderTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	current, ok := tx.stock[productID]
	if !ok {
		current = tx.store.products[productID].Stock
	}
	if current < quantity {
		return repository.ErrInsufficientStock
	}
	tx.stock[productID] = current - quantity
	return nil
}

func (m memOrders) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return m.withProductDetails(o), nil
}

func (m memOrders) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return m.withProductDetails(o), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m memOrders) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return m.list(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (m memOrders) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return m.list(func(*domain.Order) bool { return true }), nil
}

func (m memOrders) list(match func(*domain.Order) bool) []*domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if match(o) {
			out = append(out, m.withProductDetails(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m memOrders) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// withProductDetails copies o and fills item titles the way the SQL join does
func (m memOrders) withProductDetails(o *domain.Order) *domain.Order {
	copied := *o
	copied.Items = make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		if p, ok := m.products[item.ProductID]; ok {
			item.Title = p.Title
			item.ImageURL = p.ImageURL
		}
		copied.Items[i] = item
	}
	return &copied
}
