package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kjannette/pse-price-backend/internal/metrics"
	"github.com/kjannette/pse-price-backend/internal/models"
	"github.com/kjannette/pse-price-backend/internal/refresh"
)

// PriceService is the read-through pricing layer behind the handlers.
type PriceService interface {
	Current(ctx context.Context) (*models.CurrentPrice, error)
	History(ctx context.Context, hours int) (*models.History, error)
	Stats(ctx context.Context) (*models.Stats, error)
	FlushCache(ctx context.Context) error
	CacheSize(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	NormalizeHours(hours int) int
}

type Refresher interface {
	Trigger(ctx context.Context) (*refresh.Result, error)
}

type Options struct {
	Port            int
	APIKey          string
	CORSAllowOrigin string
	Metrics         *metrics.Metrics
}

type Server struct {
	prices     PriceService
	refresher  Refresher
	metrics    *metrics.Metrics
	apiKey     string
	handler    http.Handler
	httpServer *http.Server
}

func NewServer(prices PriceService, refresher Refresher, opts Options) *Server {
	s := &Server{
		prices:    prices,
		refresher: refresher,
		metrics:   opts.Metrics,
		apiKey:    opts.APIKey,
	}

	mux := http.NewServeMux()

	// Price routes
	mux.HandleFunc("GET /api/current", s.handleCurrent)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	// Maintenance
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("POST /api/trigger-refresh", s.handleTriggerRefresh)

	// No auth required
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handler = requestIDMiddleware(s.observeMiddleware(corsMiddleware(s.authMiddleware(mux), opts.CORSAllowOrigin)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// trigger-refresh waits on the webhook with retries
		WriteTimeout: 45 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	slog.Info("REST API server started",
		slog.String("component", "api"),
		slog.String("addr", s.httpServer.Addr),
		slog.Bool("auth", s.apiKey != ""),
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- validation helpers ---

// parseHours returns 0 for a missing, malformed or non-positive value; the
// service maps 0 to its default window.
func parseHours(r *http.Request) int {
	v := r.URL.Query().Get("hours")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// --- response helpers ---

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, errorResponse{Error: msg, Message: detail})
}
