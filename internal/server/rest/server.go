// Package rest exposes the authentication service over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/univx/authcore/internal/logging"
	"github.com/univx/authcore/internal/server/models"
	"github.com/univx/authcore/internal/server/services"
)

// UserService is the slice of the credential store the HTTP layer needs.
type UserService interface {
	Register(ctx context.Context, username, email, password string, client services.ClientInfo) (*models.User, string, error)
	Login(ctx context.Context, email, password string, client services.ClientInfo) (*models.User, string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, current, newPassword string) error
}

type Server struct {
	addr           string
	logger         logging.Logger
	users          UserService
	jwtSecret      []byte
	allowedOrigins []string
}

func NewServer(addr string, l logging.Logger, users UserService, secretKey string, allowedOrigins []string) *Server {
	return &Server{
		addr:           addr,
		logger:         l.With("module", "rest_server"),
		users:          users,
		jwtSecret:      []byte(secretKey),
		allowedOrigins: allowedOrigins,
	}
}

// Handler assembles the router with middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/me", s.handleMe)
		r.Put("/password", s.handleUpdatePassword)
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
