// Package server assembles the router, wires every dependency, and owns
// the HTTP lifecycle. main stays minimal; all composition happens here.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/blob"
	"github.com/snipmart/snipmart/internal/config"
	"github.com/snipmart/snipmart/internal/docstore/sqlite"
	"github.com/snipmart/snipmart/internal/handler"
	"github.com/snipmart/snipmart/internal/middleware"
	"github.com/snipmart/snipmart/internal/payment/stripe"
	"github.com/snipmart/snipmart/internal/repository/docs"
	"github.com/snipmart/snipmart/internal/service"
)

// Server owns the router and the resources that need closing on
// shutdown: the document store and the rate limiters' cleanup loops.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqlite.DB
	limiters []*middleware.RateLimiter
}

// New builds the full dependency graph from the configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	generalLimit := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), s.logger)
	checkoutLimit := middleware.NewRateLimiter(middleware.CheckoutRateLimiterConfig(), s.logger)
	s.limiters = append(s.limiters, generalLimit, checkoutLimit)
	s.router.Use(generalLimit.Middleware())

	// Repositories over the document store.
	products := docs.NewProductRepo(s.db)
	users := docs.NewUserRepo(s.db)
	fulfillments := docs.NewFulfillmentRepo(s.db)

	// External collaborators.
	provider, err := stripe.New(s.config.StripeSecretKey, s.config.StripeAPIBase)
	if err != nil {
		return fmt.Errorf("creating payment client: %w", err)
	}
	blobStore, err := blob.NewFSStore(s.config.UploadDir, s.config.UploadURL)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	// Auth primitives.
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// Services.
	productSvc := service.NewProductService(products, users, s.logger)
	entitlementSvc := service.NewEntitlementService(users, s.logger)
	checkoutSvc := service.NewCheckoutService(products, provider, s.config.BaseURL, s.logger)
	fulfillmentSvc := service.NewFulfillmentService(provider, users, fulfillments, s.logger)
	authSvc := service.NewAuthService(users, tokens, passwords, s.logger)
	uploadSvc := service.NewUploadService(blobStore, s.logger)

	// Handlers.
	productH := handler.NewProductHandler(productSvc, entitlementSvc, s.logger)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc, fulfillmentSvc, s.logger)
	authH := handler.NewAuthHandler(authSvc, github, s.logger)
	uploadH := handler.NewUploadHandler(uploadSvc, s.logger)

	if github != nil {
		s.router.Get("/auth/github/login", authH.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authH.HandleGitHubCallback)
	}

	// Uploaded objects are served straight from disk.
	uploadServer := http.FileServer(http.Dir(s.config.UploadDir))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadServer))

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authH.HandleRegister)
		r.Post("/auth/login", authH.HandleLogin)
		r.Post("/auth/logout", authH.HandleLogout)
		r.With(auth.RequireAuth(tokens)).Get("/auth/me", authH.HandleMe)

		r.Get("/products", productH.HandleList)
		r.Get("/products/{id}", productH.HandleGetByID)
		r.With(auth.OptionalAuth(tokens)).Get("/products/{id}/content", productH.HandleContent)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/products", productH.HandleCreate)
			r.Put("/products/{id}", productH.HandleUpdate)
			r.Delete("/products/{id}", productH.HandleDelete)
			r.Post("/uploads", uploadH.HandleUpload)
		})

		r.Group(func(r chi.Router) {
			r.Use(checkoutLimit.Middleware())
			r.With(auth.RequireAuth(tokens)).Post("/checkout", checkoutH.HandleInitiate)
			// The provider redirects the buyer's browser here; the
			// session id alone proves the purchase, so no auth.
			r.Get("/checkout/fulfill", checkoutH.HandleFulfill)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests,
// close the document store.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("baseURL", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	for _, limiter := range s.limiters {
		limiter.Stop()
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("closing document store failed", slog.String("error", err.Error()))
	}
}
