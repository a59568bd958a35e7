package transport

import (
	"net/http"
	"strconv"
	"strings"

	"boutique/internal/domain"
	"boutique/internal/middleware"
	"boutique/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets a client retry a checkout without creating a second order
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateOrderRequest is the checkout payload as clients send it. Several
// field spellings are in use, so each canonical field has its aliases here
// and nowhere past this package.
type CreateOrderRequest struct {
	UserID         flexInt64          `json:"user_id"`
	UserIDAlt      flexInt64          `json:"userId"`
	TotalAmount    *decimal.Decimal   `json:"total_amount"`
	Total          *decimal.Decimal   `json:"total"`
	Address        string             `json:"address"`
	Phone          string             `json:"phone"`
	IdempotencyKey string             `json:"idempotency_key"`
	Items          []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one line of a checkout payload
type OrderItemRequest struct {
	ProductID    flexInt64        `json:"product_id"`
	ProductIDAlt flexInt64        `json:"productId"`
	ID           flexInt64        `json:"id"`
	Quantity     flexInt64        `json:"quantity"`
	Price        *decimal.Decimal `json:"price"`
	Size         string           `json:"size"`
	SelectedSize string           `json:"selectedSize"`
	Color        string           `json:"color"`
}

// toInput normalizes the request; the header key wins over the body key
func (req CreateOrderRequest) toInput(headerKey string) service.CreateOrderInput {
	in := service.CreateOrderInput{
		UserID:         firstInt64(req.UserID, req.UserIDAlt),
		TotalAmount:    firstDecimal(req.TotalAmount, req.Total),
		Address:        req.Address,
		Phone:          req.Phone,
		IdempotencyKey: firstString(strings.TrimSpace(headerKey), strings.TrimSpace(req.IdempotencyKey)),
		Items:          make([]service.OrderItemInput, 0, len(req.Items)),
	}

	for _, item := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID: firstInt64(item.ProductID, item.ProductIDAlt, item.ID),
			Quantity:  int(item.Quantity.Value),
			Price:     firstDecimal(item.Price),
			Size:      firstString(item.Size, item.SelectedSize),
			Color:     item.Color,
		})
	}

	return in
}

// UpdateOrderStatusRequest represents the status change payload
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed delivered cancelled"`
}

// OrderHandler handles HTTP requests for checkout and order history
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the order routes; all of them need a token
func (h *OrderHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	mw = mw.withDefaults()

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)
		r.Post("/orders", h.Create)
		r.Get("/orders", h.List)
		r.Get("/orders/{id}", h.Get)
		r.Get("/users/{id}/orders", h.ListByUser)
		r.With(mw.Admin).Patch("/orders/{id}/status", h.UpdateStatus)
	})
}

// Create places an order. A replayed idempotency key answers 200 with the
// order created the first time.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, "Create order", err)
		return
	}

	result, err := h.orderService.CreateOrder(r.Context(), actorFrom(r), req.toInput(r.Header.Get(IdempotencyKeyHeader)))
	if err != nil {
		respondError(w, h.logger, "Create order", err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	middleware.RespondWithData(w, status, result.Order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "order id")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		respondError(w, h.logger, "Get order", err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, order)
}

func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "user id")
		return
	}

	h.respondUserOrders(w, r, userID)
}

// List handles GET /orders: ?user_id (or userId) narrows to one user,
// otherwise every order is listed, which needs the admin role.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := firstString(r.URL.Query().Get("user_id"), r.URL.Query().Get("userId"))
	if raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			respondInvalidID(w, "user id")
			return
		}
		h.respondUserOrders(w, r, userID)
		return
	}

	if !actorFrom(r).IsAdmin() {
		respondError(w, h.logger, "List orders", service.ErrForbidden)
		return
	}

	orders, err := h.orderService.ListAllOrders(r.Context())
	if err != nil {
		respondError(w, h.logger, "List orders", err)
		return
	}

	middleware.RespondWithList(w, http.StatusOK, orders, len(orders))
}

func (h *OrderHandler) respondUserOrders(w http.ResponseWriter, r *http.Request, userID int64) {
	orders, err := h.orderService.ListUserOrders(r.Context(), actorFrom(r), userID)
	if err != nil {
		respondError(w, h.logger, "List user orders", err)
		return
	}

	middleware.RespondWithList(w, http.StatusOK, orders, len(orders))
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "order id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, "Update order status", err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		respondError(w, h.logger, "Update order status", err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, order)
}
