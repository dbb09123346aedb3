// Package server exposes the message engine over HTTP: the Twilio SMS webhook,
// the Telegram bot webhook and a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/textledger/internal/engine"
	"github.com/Veraticus/textledger/internal/messaging"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/gin-gonic/gin"
)

// Options wires the server's collaborators. Only Engine is required.
type Options struct {
	Engine    *engine.Engine
	Telegram  service.TelegramReplier
	Validator *messaging.SignatureValidator
	Logger    *slog.Logger
	// WebhookURL is the public URL Twilio posts to. When empty it is
	// rebuilt from the request and forwarding headers.
	WebhookURL string
}

// Server handles inbound webhooks.
type Server struct {
	engine     *engine.Engine
	telegram   service.TelegramReplier
	validator  *messaging.SignatureValidator
	logger     *slog.Logger
	webhookURL string
}

// New creates a server.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		engine:     opts.Engine,
		telegram:   opts.Telegram,
		validator:  opts.Validator,
		logger:     logger,
		webhookURL: opts.WebhookURL,
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), recovery(s.logger))

	r.GET("/", s.handleRoot)
	r.GET("/healthz", s.handleHealth)
	r.POST("/sms", s.handleSMS)
	if s.telegram != nil {
		r.POST("/telegram", s.handleTelegram)
	}

	api := r.Group("/api")
	{
		api.POST("/classify", s.handleClassify)
	}

	return r
}

// RunConfig controls the HTTP listener.
type RunConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg RunConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
