package server

import (
	"fmt"
	"net/http"
	"time"

	"boutique/internal/cache"
	"boutique/internal/config"
	"boutique/internal/database"
	"boutique/internal/events"
	"boutique/internal/metrics"
	custommiddleware "boutique/internal/middleware"
	"boutique/internal/repository"
	"boutique/internal/service"
	"boutique/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services are the use cases exposed under /api
type Services struct {
	Users    service.UserService
	Products service.ProductService
	Reviews  service.ReviewService
	Shops    service.ShopService
	Orders   service.OrderService
}

// RouterOptions are the optional parts of the router. Zero values disable them.
type RouterOptions struct {
	Metrics     *metrics.Metrics
	OrderStream http.Handler
	RateLimit   func(http.Handler) http.Handler
	Health      func() map[string]string
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	kafka  *events.KafkaPublisher
	hub    *events.Hub
}

// NewServer builds every repository, service and handler on top of db.
// Redis is optional and only degrades caching and rate limiting when it is
// unreachable; Kafka, once enabled, must be reachable.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		hub:    events.NewHub(cfg.Server.AllowedOrigins, logger),
	}

	m := metrics.New()

	var productCache cache.ProductCache = cache.NoopProductCache{}
	var rateLimit func(http.Handler) http.Handler
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without product cache and rate limiting", zap.Error(err))
		} else {
			s.redis = rdb
			productCache = cache.NewProductCache(rdb, cfg.Cache.ProductTTL)
			rateLimit = custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "ratelimit",
			}, logger)
		}
	}

	publishers := events.Multi{s.hub}
	if cfg.Kafka.Enabled {
		producer, err := events.NewKafkaProducer(cfg.Kafka, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.kafka = events.NewKafkaPublisher(producer, cfg.Kafka.OrderTopic, logger)
		publishers = append(publishers, s.kafka)
	}

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	reviewRepo := repository.NewReviewRepository(sqlDB)
	shopRepo := repository.NewShopRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)

	// Initialize services
	services := Services{
		Users: service.NewUserService(userRepo, refreshTokenRepo, service.TokenConfig{
			Secret:        cfg.JWT.Secret,
			AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
			RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		}),
		Products: service.NewProductService(productRepo, categoryRepo, productCache, logger),
		Reviews:  service.NewReviewService(reviewRepo, logger),
		Shops:    service.NewShopService(shopRepo),
		Orders: service.NewOrderService(orderRepo, productCache, publishers, m, service.OrderServiceConfig{
			TxTimeout:  cfg.Database.TxTimeout,
			TrackStock: cfg.Inventory.TrackStock,
		}, logger),
	}

	router := NewRouter(cfg, logger, services, RouterOptions{
		Metrics:     m,
		OrderStream: s.hub,
		RateLimit:   rateLimit,
		Health:      db.Health,
	})

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// NewRouter mounts the API routes, /health and /metrics behind the shared
// middleware stack
func NewRouter(cfg *config.Config, logger *zap.Logger, services Services, opts RouterOptions) http.Handler {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack(logger)...)
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.IsProduction()))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", healthHandler(opts.Health))
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}

	mw := transport.RouteMiddleware{
		Auth:      custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
		Admin:     custommiddleware.RequireAdmin(logger),
		RateLimit: opts.RateLimit,
	}

	router.Route("/api", func(r chi.Router) {
		transport.Mount(r, mw,
			transport.NewUserHandler(services.Users, logger),
			transport.NewProductHandler(services.Products, logger),
			transport.NewReviewHandler(services.Reviews, logger),
			transport.NewShopHandler(services.Shops, logger),
			transport.NewOrderHandler(services.Orders, logger),
			transport.NewAdminHandler(services.Products, opts.OrderStream, logger),
		)
	})

	return router
}

// healthHandler answers 503 while the database is down
func healthHandler(check func() map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		stats := check()
		status, code := "ok", http.StatusOK
		if stats["status"] != "up" {
			status, code = "unavailable", http.StatusServiceUnavailable
		}

		custommiddleware.RespondWithJSON(w, code, map[string]interface{}{
			"status":   status,
			"database": stats,
		})
	}
}

// Close releases everything the server opened, the database last
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.hub.Close()

	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			s.logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
