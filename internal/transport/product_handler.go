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

// ProductRequest is the create payload; name is accepted for title
type ProductRequest struct {
	Title       string           `json:"title"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category"`
	Size        string           `json:"size"`
	Color       string           `json:"color"`
	Brand       string           `json:"brand"`
	ImageURL    string           `json:"image_url"`
	Image       string           `json:"image"`
	Stock       flexInt64        `json:"stock"`
}

func (req ProductRequest) toProduct() *domain.Product {
	return &domain.Product{
		Title:       firstString(strings.TrimSpace(req.Title), strings.TrimSpace(req.Name)),
		Description: req.Description,
		Price:       firstDecimal(req.Price),
		Category:    strings.TrimSpace(req.Category),
		Size:        req.Size,
		Color:       req.Color,
		Brand:       strings.TrimSpace(req.Brand),
		ImageURL:    firstString(req.ImageURL, req.Image),
		Stock:       int(req.Stock.Value),
	}
}

// ProductUpdateRequest is a partial edit; absent fields are left untouched
type ProductUpdateRequest struct {
	Title       *string          `json:"title"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Size        *string          `json:"size"`
	Color       *string          `json:"color"`
	Brand       *string          `json:"brand"`
	ImageURL    *string          `json:"image_url"`
	Image       *string          `json:"image"`
	Stock       flexInt64        `json:"stock"`
}

func (req ProductUpdateRequest) toChanges() domain.ProductChanges {
	changes := domain.ProductChanges{
		Title:       firstStringPtr(req.Title, req.Name),
		Description: req.Description,
		Price:       req.Price,
		Category:    trimmed(req.Category),
		Size:        req.Size,
		Color:       req.Color,
		Brand:       trimmed(req.Brand),
		ImageURL:    firstStringPtr(req.ImageURL, req.Image),
	}
	if req.Stock.Set {
		stock := int(req.Stock.Value)
		changes.Stock = &stock
	}
	return changes
}

// productListResponse keeps the page fields at the top level of the body
type productListResponse struct {
	Success bool `json:"success"`
	*service.ProductPage
}

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	mw = mw.withDefaults()

	r.Get("/products", h.List)
	r.Get("/products/categories", h.Categories)
	r.Get("/products/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Post("/products", h.Create)
		r.Put("/products/{id}", h.Update)
		r.Delete("/products/{id}", h.Delete)
	})
}

// List handles GET /products?category=&brand=&search=&in_stock=&sort=&page=&limit=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.ProductFilter{
		Category: query.Get("category"),
		Brand:    query.Get("brand"),
		Search:   firstString(query.Get("search"), query.Get("q")),
		Sort:     domain.ProductSort(query.Get("sort")),
	}
	if inStock, err := strconv.ParseBool(query.Get("in_stock")); err == nil {
		filter.InStock = inStock
	}

	// unparsable paging falls back to the defaults
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	result, err := h.productService.List(r.Context(), filter, page, limit)
	if err != nil {
		respondError(w, h.logger, "List products", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productListResponse{Success: true, ProductPage: result})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "product id")
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "Get product", err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, "Create product", err)
		return
	}

	product := req.toProduct()
	if err := h.productService.Create(r.Context(), product); err != nil {
		respondError(w, h.logger, "Create product", err)
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "product id")
		return
	}

	var req ProductUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, "Update product", err)
		return
	}

	product, err := h.productService.Update(r.Context(), id, req.toChanges())
	if err != nil {
		respondError(w, h.logger, "Update product", err)
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", id))
	middleware.RespondWithData(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "product id")
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, "Delete product", err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, map[string]int64{"id": id})
}

// Categories lists the distinct categories with their product counts
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		respondError(w, h.logger, "List categories", err)
		return
	}

	middleware.RespondWithList(w, http.StatusOK, categories, len(categories))
}
