// Package server exposes the anonymization engine as an HTTP API for
// non-interactive callers: scan a tabular upload, anonymize it with a
// confirmed assignment, and retrieve stored mapping blobs.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/safeshare/safeshare/internal/anonymize"
	"github.com/safeshare/safeshare/internal/cache"
	"github.com/safeshare/safeshare/internal/config"
	"github.com/safeshare/safeshare/internal/detect"
	"github.com/safeshare/safeshare/internal/logger"
	"github.com/safeshare/safeshare/internal/vault"
)

// Server wires the detector, anonymizer and optional cache/vault
// behind an HTTP router.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	detector   *detect.Detector
	anonymizer *anonymize.Anonymizer
	cache      *cache.ProfileCache
	vault      *vault.Store
	router     *mux.Router
	server     *http.Server
	limiter    *clientLimiter
}

// New creates a server instance. Cache and vault are optional and may
// be nil.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	detector, err := detect.New(detect.Options{
		SampleSize:  cfg.Detection.SampleSize,
		Threshold:   cfg.Detection.Threshold,
		HintEpsilon: cfg.Detection.HintEpsilon,
	}, log.WithComponent("detect").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	anonymizer := anonymize.New(detector, log.WithComponent("anonymize").Logger,
		anonymize.WithPadding(cfg.Anonymize.Padding))

	s := &Server{
		config:     cfg,
		logger:     log.WithComponent("server"),
		detector:   detector,
		anonymizer: anonymizer,
		router:     mux.NewRouter(),
		limiter:    newClientLimiter(cfg.Server.RequestsPerMin),
	}

	if cfg.Cache.Enabled {
		profileCache, err := cache.NewProfileCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create profile cache: %w", err)
		}
		s.cache = profileCache
	}

	if cfg.Vault.Enabled {
		vaultStore, err := vault.NewStore(&vault.Config{
			DatabaseURL:     cfg.Vault.DatabaseURL,
			MaxOpenConns:    cfg.Vault.MaxOpenConns,
			MaxIdleConns:    cfg.Vault.MaxIdleConns,
			ConnMaxLifetime: cfg.Vault.ConnMaxLifetime,
		}, log.WithComponent("vault").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mapping vault: %w", err)
		}
		s.vault = vaultStore
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/mappings", s.handleListMappings).Methods("GET")
	api.HandleFunc("/mappings/{id}", s.handleGetMapping).Methods("GET")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting SafeShare API server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("vault_enabled", s.vault != nil),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and closes backends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping SafeShare API server")
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("failed to close profile cache", zap.Error(err))
		}
	}
	if s.vault != nil {
		if err := s.vault.Close(); err != nil {
			s.logger.Warn("failed to close mapping vault", zap.Error(err))
		}
	}
	return s.server.Shutdown(ctx)
}
