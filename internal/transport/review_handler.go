package transport

import (
	"net/http"

	"boutique/internal/domain"
	"boutique/internal/middleware"
	"boutique/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReviewRequest is the review payload; camelCase ids are accepted as well
type ReviewRequest struct {
	UserID       flexInt64 `json:"user_id"`
	UserIDAlt    flexInt64 `json:"userId"`
	ProductID    flexInt64 `json:"product_id"`
	ProductIDAlt flexInt64 `json:"productId"`
	Review       string    `json:"review"`
	Stars        flexInt64 `json:"stars"`
}

// ReviewHandler handles HTTP requests for product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers the review routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	mw = mw.withDefaults()

	r.Get("/products/{id}/reviews", h.ListByProduct)
	r.Get("/users/{id}/reviews", h.ListByUser)

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)
		r.Post("/reviews", h.Create)
		r.Delete("/reviews/{id}", h.Delete)
	})
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, "Create review", err)
		return
	}

	review := &domain.Review{
		UserID:    firstInt64(req.UserID, req.UserIDAlt),
		ProductID: firstInt64(req.ProductID, req.ProductIDAlt),
		Review:    req.Review,
		Stars:     int(req.Stars.Value),
	}

	if err := h.reviewService.Create(r.Context(), actorFrom(r), review); err != nil {
		respondError(w, h.logger, "Create review", err)
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, review)
}

func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "product id")
		return
	}

	reviews, err := h.reviewService.ListByProduct(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "List product reviews", err)
		return
	}

	middleware.RespondWithList(w, http.StatusOK, reviews, len(reviews))
}

func (h *ReviewHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "user id")
		return
	}

	reviews, err := h.reviewService.ListByUser(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "List user reviews", err)
		return
	}

	middleware.RespondWithList(w, http.StatusOK, reviews, len(reviews))
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondInvalidID(w, "review id")
		return
	}

	if err := h.reviewService.Delete(r.Context(), actorFrom(r), id); err != nil {
		respondError(w, h.logger, "Delete review", err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, map[string]int64{"id": id})
}
