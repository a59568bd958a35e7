package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"boutique/internal/middleware"
	"boutique/internal/repository"
	"boutique/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouteMiddleware carries the middleware handlers attach to their routes
type RouteMiddleware struct {
	Auth      func(http.Handler) http.Handler
	Admin     func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
}

// RouteRegistrar is implemented by every handler in this package
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router, mw RouteMiddleware)
}

// Mount registers the routes of every handler on r
func Mount(r chi.Router, mw RouteMiddleware, handlers ...RouteRegistrar) {
	for _, h := range handlers {
		h.RegisterRoutes(r, mw)
	}
}

func passthrough(next http.Handler) http.Handler { return next }

func (m RouteMiddleware) withDefaults() RouteMiddleware {
	if m.Auth == nil {
		m.Auth = passthrough
	}
	if m.Admin == nil {
		m.Admin = passthrough
	}
	if m.RateLimit == nil {
		m.RateLimit = passthrough
	}
	return m
}

// respondError maps a service error to its HTTP status. Only 5xx causes are
// logged at error level; their messages never reach the client.
func respondError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, validationErr.Error(), map[string]interface{}{
			"validation_errors": []middleware.ValidationError{{
				Field:   validationErr.Field,
				Message: validationErr.Message,
			}},
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, service.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, repository.ErrUserAlreadyExists):
		middleware.RespondWithError(w, http.StatusBadRequest, "user with this email already exists")
	case errors.Is(err, repository.ErrReferenceNotFound):
		middleware.RespondWithError(w, http.StatusBadRequest, "referenced user or product does not exist")
	case errors.Is(err, repository.ErrConstraintViolation):
		middleware.RespondWithError(w, http.StatusBadRequest, "request violates a data constraint")
	case errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, "insufficient stock")
	case errors.Is(err, repository.ErrProductInUse):
		middleware.RespondWithError(w, http.StatusConflict, "product is referenced by orders or reviews")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, repository.ErrReviewNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "review not found")
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "user not found")
	default:
		if errors.Is(err, context.Canceled) {
			logger.Debug(op+" canceled by client", zap.Error(err))
		} else {
			logger.Error(op+" failed", zap.Error(err))
		}
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Debug(op+" rejected", zap.Error(err))
}

// respondDecodeError answers a body that failed to decode or validate
func respondDecodeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	logger.Debug(op+" validation failed", zap.Error(err))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

// actorFrom builds the service actor from the authenticated request
func actorFrom(r *http.Request) service.Actor {
	userID, _ := middleware.GetUserID(r.Context())
	role, _ := middleware.GetUserRole(r.Context())
	return service.Actor{UserID: userID, Role: role}
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func respondInvalidID(w http.ResponseWriter, name string) {
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
}
