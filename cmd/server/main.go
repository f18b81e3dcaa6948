package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	audithandler "github.com/stockroom/stockroom-backend/internal/audit/handler"
	auditrepo "github.com/stockroom/stockroom-backend/internal/audit/repository"
	auditservice "github.com/stockroom/stockroom-backend/internal/audit/service"
	directoryhandler "github.com/stockroom/stockroom-backend/internal/directory/handler"
	directoryrepo "github.com/stockroom/stockroom-backend/internal/directory/repository"
	directoryservice "github.com/stockroom/stockroom-backend/internal/directory/service"
	identityhandler "github.com/stockroom/stockroom-backend/internal/identity/handler"
	identityrepo "github.com/stockroom/stockroom-backend/internal/identity/repository"
	identityservice "github.com/stockroom/stockroom-backend/internal/identity/service"
	"github.com/stockroom/stockroom-backend/internal/identity/token"
	inventoryhandler "github.com/stockroom/stockroom-backend/internal/inventory/handler"
	inventoryrepo "github.com/stockroom/stockroom-backend/internal/inventory/repository"
	inventoryservice "github.com/stockroom/stockroom-backend/internal/inventory/service"
	"github.com/stockroom/stockroom-backend/pkg/config"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
	"github.com/stockroom/stockroom-backend/pkg/messaging"
	"github.com/stockroom/stockroom-backend/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("stockroom", cfg.Server.Environment)
	log.Info().Msg("starting stockroom server")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeEvents, "stockroom", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize metrics
	metrics.Init()

	// Initialize repositories
	userRepo := identityrepo.NewUserRepository(db)
	departmentRepo := directoryrepo.NewDepartmentRepository(db)
	profileRepo := directoryrepo.NewProfileRepository(db)
	itemRepo := inventoryrepo.NewItemRepository(db)
	entryRepo := auditrepo.NewEntryRepository(db)

	// Initialize services
	auditSvc := auditservice.NewService(entryRepo, log)
	directorySvc := directoryservice.NewService(db, departmentRepo, profileRepo, auditSvc, log)
	inventorySvc := inventoryservice.NewService(db, itemRepo, directorySvc, auditSvc, publisher, log)
	tokens := token.NewManager(&cfg.JWT)
	identitySvc := identityservice.NewService(db, userRepo, auditSvc, tokens, directorySvc, directorySvc, publisher, log)

	// Initialize handlers
	authHandler := identityhandler.NewAuthHandler(identitySvc, log)
	adminHandler := identityhandler.NewAdminHandler(identitySvc, directorySvc, inventorySvc, auditSvc, log)
	departmentHandler := directoryhandler.NewHandler(directorySvc, log)
	itemHandler := inventoryhandler.NewHandler(inventorySvc, log)
	auditHandler := audithandler.NewHandler(auditSvc, log)

	// Create router. RealIP-style middleware is deliberately absent:
	// audit entries record the direct connection address only.
	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "stockroom",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(identityhandler.RequireAuth(tokens))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/dashboard", itemHandler.Dashboard)

			r.Route("/items", func(r chi.Router) {
				r.Get("/", itemHandler.List)
				r.Post("/", itemHandler.Create)
				r.Get("/{id}", itemHandler.Get)
				r.Put("/{id}", itemHandler.Update)
				r.Delete("/{id}", itemHandler.Delete)
			})

			// Administrative endpoints
			r.Route("/admin", func(r chi.Router) {
				r.Use(identityhandler.RequireStaff)

				r.Get("/dashboard", adminHandler.Dashboard)
				r.Get("/audit", auditHandler.List)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", adminHandler.ListUsers)
					r.Post("/{id}/deactivate", adminHandler.DeactivateUser)
					r.Post("/{id}/reactivate", adminHandler.ReactivateUser)
					r.Put("/{id}/password", adminHandler.SetPassword)
					r.Put("/{id}/departments", adminHandler.SetDepartments)
				})

				r.Route("/departments", func(r chi.Router) {
					r.Get("/", departmentHandler.List)
					r.Post("/", departmentHandler.Create)
					r.Get("/{id}", departmentHandler.Get)
					r.Put("/{id}", departmentHandler.Update)
					r.Delete("/{id}", departmentHandler.Delete)
				})
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
