package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kjannette/pse-price-backend/internal/logger"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	CacheSize int    `json:"cache_size"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.prices.Ping(ctx); err != nil {
		logger.FromContext(ctx).Error("health check failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:    "error",
			Timestamp: now,
			Database:  "disconnected",
			Error:     "database unreachable",
		})
		return
	}

	size, err := s.prices.CacheSize(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("cache size unavailable", slog.Any("error", err))
		size = -1
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: now,
		Database:  "connected",
		CacheSize: size,
	})
}
