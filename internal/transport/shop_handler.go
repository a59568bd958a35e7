package transport

import (
	"net/http"

	"boutique/internal/domain"
	"boutique/internal/middleware"
	"boutique/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ShopRequest represents the shop creation payload
type ShopRequest struct {
	Address   string   `json:"address" validate:"required"`
	Phone     string   `json:"phone"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// ShopHandler handles HTTP requests for store locations
type ShopHandler struct {
	shopService service.ShopService
	logger      *zap.Logger
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(shopService service.ShopService, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
		logger:      logger,
	}
}

// RegisterRoutes registers the shop routes
func (h *ShopHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	mw = mw.withDefaults()

	r.Get("/shops", h.List)
	r.With(mw.Auth, mw.Admin).Post("/shops", h.Create)
}

func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shopService.List(r.Context())
	if err != nil {
		respondError(w, h.logger, "List shops", err)
		return
	}

	middleware.RespondWithList(w, http.StatusOK, shops, len(shops))
}

func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ShopRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, "Create shop", err)
		return
	}

	shop := &domain.Shop{
		Address:   req.Address,
		Phone:     req.Phone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := h.shopService.Create(r.Context(), shop); err != nil {
		respondError(w, h.logger, "Create shop", err)
		return
	}

	h.logger.Info("Shop created", zap.Int64("shop_id", shop.ID))
	middleware.RespondWithData(w, http.StatusCreated, shop)
}
