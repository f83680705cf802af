// Package server is the composition root: it builds every service and
// handler from the config and the database, mounts them on a chi router,
// and runs the HTTP server with graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	cmd/server: config.Load → sqlite.New → mail sender chain → server.New
//	server.New: sqlite.DB → services → handlers → routes
//
// Handlers only see services, services only see repository interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/config"
	"github.com/sakif/yamdb/internal/handler"
	"github.com/sakif/yamdb/internal/mail"
	"github.com/sakif/yamdb/internal/middleware"
	"github.com/sakif/yamdb/internal/permission"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
	"github.com/sakif/yamdb/internal/service"
)

// APIPrefix is where every versioned endpoint lives.
const APIPrefix = "/api/v1"

// Server owns the router and the database handle. The database is closed
// when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the application on top of db. mailer delivers confirmation codes.
func New(cfg *config.Config, db *sqliteRepo.DB, mailer mail.Sender, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(mailer); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the services and mounts the API.
//
// MIDDLEWARE ORDER (outermost first):
//  1. RequestID, RealIP  so later layers log and rate-limit the real client
//  2. Logger            sees the final status, including panics turned into 500
//  3. Recoverer
//  4. StripSlashes      /titles/ and /titles hit the same route
//  5. CORS, rate limit, timeout
//  6. Authenticate      attaches the Actor (anonymous when no valid token)
func (s *Server) setupRoutes(mailer mail.Sender) error {
	cfg := s.config

	perm, err := permission.New()
	if err != nil {
		return fmt.Errorf("loading permission policy: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	codes := auth.NewCodeService(cfg.Auth.BcryptCost, cfg.Auth.ConfirmationCodeTTL)

	// === Services ===
	accounts := service.NewAccountService(s.db, codes, tokens, mailer, perm, s.logger, cfg.Mail.SendTimeout)
	catalog := service.NewCatalogService(s.db, s.db, perm, s.logger)
	titles := service.NewTitleService(s.db, s.db, s.db, perm, s.logger)
	reviews := service.NewReviewService(s.db, s.db, perm, s.logger)
	comments := service.NewCommentService(s.db, s.db, perm, s.logger)

	// === Handlers ===
	pager := handler.Pager{DefaultLimit: cfg.API.DefaultPageSize, MaxLimit: cfg.API.MaxPageSize}
	authHandler := handler.NewAuthHandler(accounts, s.logger)
	userHandler := handler.NewUserHandler(accounts, pager, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalog, pager, s.logger)
	titleHandler := handler.NewTitleHandler(titles, pager, s.logger)
	reviewHandler := handler.NewReviewHandler(reviews, comments, pager, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// === Global middleware ===
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.NotFound(handler.NotFound(s.logger))
	r.MethodNotAllowed(handler.MethodNotAllowed(s.logger))

	r.Get("/healthz", healthHandler.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// === API ===
	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Security.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
		r.Use(s.rateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow))
		if cfg.Server.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
		}
		r.Use(auth.Authenticate(tokens, s.db, s.logger))

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimit(cfg.Security.AuthRateLimitRequests, cfg.Security.RateLimitWindow))
			r.Post("/signup", authHandler.HandleSignup)
			r.Post("/token", authHandler.HandleToken)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Post("/", userHandler.HandleCreate)
			r.Get("/me", userHandler.HandleMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
			r.Get("/{username}", userHandler.HandleGet)
			r.Patch("/{username}", userHandler.HandleUpdate)
			r.Delete("/{username}", userHandler.HandleDelete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalogHandler.HandleListCategories)
			r.Post("/", catalogHandler.HandleCreateCategory)
			r.Get("/{slug}", catalogHandler.HandleGetCategory)
			r.Delete("/{slug}", catalogHandler.HandleDeleteCategory)
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", catalogHandler.HandleListGenres)
			r.Post("/", catalogHandler.HandleCreateGenre)
			r.Get("/{slug}", catalogHandler.HandleGetGenre)
			r.Delete("/{slug}", catalogHandler.HandleDeleteGenre)
		})

		r.Route("/titles", func(r chi.Router) {
			r.Get("/", titleHandler.HandleList)
			r.Post("/", titleHandler.HandleCreate)

			r.Route("/{title_id}", func(r chi.Router) {
				r.Get("/", titleHandler.HandleGet)
				r.Patch("/", titleHandler.HandleUpdate)
				r.Delete("/", titleHandler.HandleDelete)

				r.Route("/reviews", func(r chi.Router) {
					r.Get("/", reviewHandler.HandleList)
					r.Post("/", reviewHandler.HandleCreate)

					r.Route("/{review_id}", func(r chi.Router) {
						r.Get("/", reviewHandler.HandleGet)
						r.Patch("/", reviewHandler.HandleUpdate)
						r.Delete("/", reviewHandler.HandleDelete)

						r.Get("/comments", reviewHandler.HandleListComments)
						r.Post("/comments", reviewHandler.HandleCreateComment)
						r.Get("/comments/{comment_id}", reviewHandler.HandleGetComment)
						r.Patch("/comments/{comment_id}", reviewHandler.HandleUpdateComment)
						r.Delete("/comments/{comment_id}", reviewHandler.HandleDeleteComment)
					})
				})
			})
		})
	})

	return nil
}

// rateLimit is a per-client-IP limiter; requests <= 0 disables it.
func (s *Server) rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(handler.TooManyRequests(s.logger)),
	)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to server.shutdown_timeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("api", APIPrefix),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
