package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kjannette/pse-price-backend/internal/logger"
	"github.com/kjannette/pse-price-backend/internal/refresh"
)

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.prices.FlushCache(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("flush cache", slog.Any("error", err))
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to clear cache", "internal error")
		return
	}
	logger.FromContext(r.Context()).Info("cache cleared", slog.String("component", "api"))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

func (s *Server) handleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeErrorMessage(w, http.StatusInternalServerError, "n8n webhook not configured", "Set N8N_WEBHOOK_URL to enable refresh")
		return
	}

	res, err := s.refresher.Trigger(r.Context())
	if errors.Is(err, refresh.ErrNotConfigured) {
		writeErrorMessage(w, http.StatusInternalServerError, "n8n webhook not configured", "Set N8N_WEBHOOK_URL to enable refresh")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("trigger refresh", slog.Any("error", err))
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to trigger workflow", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
