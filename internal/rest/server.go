// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package rest exposes the FindSkills authentication API over HTTP:
// password and passkey login, passkey registration, and read-only profile
// lookups.
package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/findskills/findskills-server/pkg/logging"
	"github.com/findskills/findskills-server/pkg/metrics"
	"github.com/findskills/findskills-server/pkg/passkey"
	"github.com/findskills/findskills-server/pkg/profile"
	"github.com/findskills/findskills-server/pkg/ratelimit"
	"github.com/findskills/findskills-server/pkg/session"
)

// Server is the REST API server.
type Server struct {
	server        *http.Server
	port          int
	tlsConfig     *tls.Config
	logger        logging.Logger
	codec         session.Codec
	profiles      profile.Store
	credentials   passkey.CredentialStore
	coordinator   *passkey.Coordinator
	corsOrigins   []string
	secureCookies bool
	version       string
	metricsPath   string
	limiter       *ratelimit.Limiter
}

// Config holds the REST server configuration.
type Config struct {
	// Host is the listen address (default: all interfaces).
	Host string

	// Port is the HTTP port to listen on (default: 3000).
	Port int

	// Profiles resolves and lists student profiles (required).
	Profiles profile.Store

	// Credentials is the WebAuthn credential store (required).
	Credentials passkey.CredentialStore

	// Coordinator drives WebAuthn ceremonies (required).
	Coordinator *passkey.Coordinator

	// Codec issues and decodes session tokens (required).
	Codec session.Codec

	// CORSOrigins are the origins allowed to call the API from a browser.
	CORSOrigins []string

	// SecureCookies marks session cookies Secure.
	SecureCookies bool

	// Version is the API version string.
	Version string

	// TLSConfig is the TLS configuration for HTTPS (optional).
	TLSConfig *tls.Config

	// Logger is the logging adapter (optional).
	Logger logging.Logger

	// MetricsPath mounts the Prometheus endpoint when non-empty.
	MetricsPath string

	// RateLimiter throttles authentication attempts per client IP (optional).
	RateLimiter *ratelimit.Limiter

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("session codec is required")
	}

	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewSlogAdapter(&logging.SlogConfig{
			Level: logging.LevelInfo,
		})
	}

	server := &Server{
		port:          cfg.Port,
		tlsConfig:     cfg.TLSConfig,
		logger:        log,
		codec:         cfg.Codec,
		profiles:      cfg.Profiles,
		credentials:   cfg.Credentials,
		coordinator:   cfg.Coordinator,
		corsOrigins:   cfg.CORSOrigins,
		secureCookies: cfg.SecureCookies,
		version:       cfg.Version,
		metricsPath:   cfg.MetricsPath,
		limiter:       cfg.RateLimiter,
	}

	router := server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}

	return server, nil
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(s.CORSMiddleware())

	r.Get("/health", s.HealthHandler)
	r.Head("/health", s.HealthHandler)
	r.Get("/health/live", s.LivenessHandler)
	r.Get("/health/ready", s.ReadinessHandler)

	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	// Credential-guessing endpoints share one per-IP rate limit.
	throttled := func(r chi.Router) chi.Router {
		if s.limiter != nil {
			return r.With(ratelimit.Middleware(s.limiter))
		}
		return r
	}

	r.Route("/api", func(r chi.Router) {
		throttled(r).Post("/auth/login", s.PasswordLoginHandler)
		r.Post("/auth/logout", s.LogoutHandler)
		// The handler resolves the session itself: anonymous callers get a
		// 200 with ok=false rather than a middleware rejection.
		r.Get("/auth/me", s.MeHandler)

		r.Route("/webauthn", func(r chi.Router) {
			// Registration requires an authenticated session; login does not.
			r.Group(func(r chi.Router) {
				r.Use(s.SessionMiddleware())
				r.Post("/register/options", s.RegisterOptionsHandler)
				r.Post("/register/verify", s.RegisterVerifyHandler)
			})
			r.Post("/login/options", s.LoginOptionsHandler)
			throttled(r).Post("/login/verify", s.LoginVerifyHandler)
		})

		r.Get("/profiles", s.ListProfilesHandler)
		r.Get("/profiles/{login}", s.GetProfileHandler)
	})

	return r
}

// Start starts the REST API server.
func (s *Server) Start() error {
	if s.tlsConfig != nil {
		s.logger.Info("Starting HTTPS server", logging.Int("port", s.port))
		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("Starting HTTP server", logging.Int("port", s.port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logging.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
