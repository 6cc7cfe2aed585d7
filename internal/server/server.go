package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// checkout sessions outlive the gateway's payment window
const checkoutSessionTTL = 2 * time.Hour

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) (*Server, error) {
	rules, err := pricing.RulesFromConfig(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	images, err := storage.NewFromConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", healthHandler(db, redisClient))
	router.Handle("/uploads/*", http.StripPrefix("/uploads", images.Handler()))

	// Repositories
	userRepo := repository.NewUserRepository(db.DB())
	refreshTokenRepo := repository.NewRefreshTokenRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	reviewRepo := repository.NewReviewRepository(db.DB())
	orderRepo := repository.NewOrderRepository(db.DB())
	cartRepo := repository.NewCartRepository(redisClient, cfg.Cart.TTL)
	sessionRepo := repository.NewCheckoutSessionRepository(redisClient, checkoutSessionTTL)

	// Services
	gateway := payment.NewGateway(cfg.Payment, logger)
	var userOpts []service.UserServiceOption
	if cfg.Google.ClientID != "" {
		verifier, err := service.NewGoogleVerifier(context.Background(), cfg.Google.ClientID)
		if err != nil {
			return nil, err
		}
		userOpts = append(userOpts, service.WithGoogleVerifier(verifier))
	} else {
		logger.Info("GOOGLE_CLIENT_ID is not set, google sign-in is disabled")
	}
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT, userOpts...)
	productService := service.NewProductService(productRepo, categoryRepo, reviewRepo, images, cfg.Catalog, logger)
	cartService := service.NewCartService(cartRepo, productRepo, rules, logger)
	checkoutService := service.NewCheckoutService(cartRepo, sessionRepo, orderRepo, gateway, rules, cfg.Store, cfg.Payment.Currency, logger)
	orderService := service.NewOrderService(orderRepo)
	reviewService := service.NewReviewService(reviewRepo, productRepo, logger)

	// Middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuthMiddleware(cfg.JWT.Secret, logger)
	apiLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:api",
	}, logger)
	reviewLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: max(1, cfg.RateLimit.Requests/10),
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:reviews",
	}, logger)

	// Handlers
	orderHandler := transport.NewOrderHandler(orderService, logger)

	router.Group(func(r chi.Router) {
		r.Use(apiLimit)
		transport.NewUserHandler(userService, cartService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewProductHandler(productService, logger).RegisterRoutes(r)
		transport.NewReviewHandler(reviewService, logger).RegisterRoutes(r, reviewLimit)
		transport.NewCartHandler(cartService, logger).RegisterRoutes(r, optionalAuth)
		transport.NewCheckoutHandler(checkoutService, logger).RegisterRoutes(r, authMiddleware)
		orderHandler.RegisterRoutes(r, authMiddleware)
		transport.NewAdminHandler(productService, orderHandler, logger).RegisterRoutes(r, authMiddleware)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      otelhttp.NewHandler(router, "storefront"),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		dbHealth := db.Health()
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
		}

		redisStatus := "up"
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down: " + err.Error()
			status = http.StatusServiceUnavailable
		}

		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"database": dbHealth,
			"redis":    redisStatus,
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
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
