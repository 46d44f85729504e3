package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kjannette/pse-price-backend/internal/logger"
	"github.com/kjannette/pse-price-backend/internal/pricing"
)

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	view, err := s.prices.Current(r.Context())
	if errors.Is(err, pricing.ErrNotFound) {
		writeErrorMessage(w, http.StatusNotFound, "No data available",
			"Database is empty. Make sure the collection workflow is running.")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("fetch current prices", slog.Any("error", err))
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to fetch current prices", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := parseHours(r)
	h, err := s.prices.History(r.Context(), hours)
	if errors.Is(err, pricing.ErrNotFound) {
		writeErrorMessage(w, http.StatusNotFound, "No historical data available",
			fmt.Sprintf("No data found for the last %d hours", s.prices.NormalizeHours(hours)))
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("fetch history", slog.Int("hours", hours), slog.Any("error", err))
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to fetch historical data", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.prices.Stats(r.Context())
	if errors.Is(err, pricing.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No data available for statistics")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("fetch stats", slog.Any("error", err))
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to fetch statistics", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
