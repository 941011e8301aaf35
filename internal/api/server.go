package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/procure-sim/internal/config"
	"github.com/terra-clan/procure-sim/internal/market"
	"github.com/terra-clan/procure-sim/internal/sim"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	engine         *sim.Engine
	simulator      *market.Simulator
	hub            *market.Hub
	store          storage.Store
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. hub may be nil when no market
// streaming is wanted.
func NewServer(
	cfg config.ServerConfig,
	engine *sim.Engine,
	simulator *market.Simulator,
	hub *market.Hub,
	store storage.Store,
) *Server {
	s := &Server{
		config:         cfg,
		engine:         engine,
		simulator:      simulator,
		hub:            hub,
		store:          store,
		authMiddleware: NewAuthMiddleware(store),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Catalog: training tasks, suppliers, products. Writes are the
		// teacher/admin surface and gated by catalog:write.
		r.Route("/tasks", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/", s.handleListTasks)
			r.With(s.authMiddleware.RequirePermission("catalog:write")).Post("/", s.handleCreateTask)

			r.Route("/{taskID}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/", s.handleGetTask)

				// Simulation lifecycle
				r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/start", s.handleStartTask)
				r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/advance", s.handleAdvanceDay)
				r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/complete", s.handleCompleteTask)
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/progress", s.handleGetProgress)
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/records", s.handleListRecords)
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/evaluation", s.handleGetEvaluation)

				// Inventory
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/inventory", s.handleListInventory)
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/inventory/alerts", s.handleLowStock)
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/inventory/turnover", s.handleTurnover)

				// Orders
				r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/orders", s.handleListOrders)
				r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/orders/purchase", s.handleCreatePurchaseOrder)
				r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/orders/sales", s.handleCreateSalesOrder)
				r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/orders/{orderID}/cancel", s.handleCancelOrder)
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/", s.handleListSuppliers)
			r.With(s.authMiddleware.RequirePermission("catalog:write")).Post("/", s.handleUpsertSupplier)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/", s.handleListProducts)
			r.With(s.authMiddleware.RequirePermission("catalog:write")).Post("/", s.handleUpsertProduct)
			r.With(s.authMiddleware.RequirePermission("sim:read")).Get("/{productID}/reorder", s.handleReorderQuantity)
		})

		r.With(s.authMiddleware.RequirePermission("sim:write")).Post("/negotiate", s.handleNegotiate)

		r.Route("/market", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("market:read")).Get("/", s.handleListMarketData)
			r.With(s.authMiddleware.RequirePermission("market:read")).Get("/stream", s.handleMarketStream)
			r.With(s.authMiddleware.RequirePermission("market:read")).Get("/{category}", s.handleGetMarketData)
			r.With(s.authMiddleware.RequirePermission("market:read")).Post("/trends", s.handleAnalyzeTrends)
			r.With(s.authMiddleware.RequirePermission("market:read")).Post("/price", s.handleOptimalPrice)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
