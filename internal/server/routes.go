package server

import (
	"log/slog"
	"net/http"

	"codeberg.org/snonux/vocabdeck/internal/observe"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string

	// Metrics records request durations. When nil, requests are only logged.
	Metrics *observe.Metrics

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", h.Status)
	mux.HandleFunc("POST /sessions", h.CreateSession)
	mux.HandleFunc("DELETE /sessions/{id}", h.DeleteSession)
	mux.HandleFunc("POST /upload/pdf", h.UploadPDF)
	mux.HandleFunc("POST /upload/audio", h.UploadAudio)
	mux.HandleFunc("GET /generate", h.Generate)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		observe.Middleware(cfg.Metrics, logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
