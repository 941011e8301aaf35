package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/market"
)

func (s *Server) handleListMarketData(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.store.ListMarketData(r.Context())
	if err != nil {
		slog.Error("failed to list market data", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list market data")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"markets": snapshots,
		"total":   len(snapshots),
	})
}

func (s *Server) handleGetMarketData(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	md, err := s.simulator.Snapshot(r.Context(), category)
	if err != nil {
		slog.Error("failed to get market data", "error", err, "category", category)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get market data")
		return
	}
	if md == nil {
		respondError(w, http.StatusNotFound, "not_found", "no market data for category")
		return
	}

	respondJSON(w, http.StatusOK, md)
}

type trendsRequest struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleAnalyzeTrends(w http.ResponseWriter, r *http.Request) {
	var req trendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.Categories) == 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "categories is required")
		return
	}

	report, err := s.simulator.AnalyzeTrends(r.Context(), req.Categories)
	if err != nil {
		slog.Error("failed to analyze trends", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to analyze trends")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

type priceRequest struct {
	ProductID    string          `json:"product_id"`
	BaseCost     decimal.Decimal `json:"base_cost"`
	TargetMargin float64         `json:"target_margin"`
}

func (s *Server) handleOptimalPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "product_id is required")
		return
	}
	if !req.BaseCost.IsPositive() {
		respondError(w, http.StatusBadRequest, "validation_error", "base_cost must be positive")
		return
	}

	quote, err := s.simulator.OptimalPrice(r.Context(), req.ProductID, req.BaseCost, req.TargetMargin)
	if err != nil {
		if errors.Is(err, market.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		slog.Error("failed to compute optimal price", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute optimal price")
		return
	}

	respondJSON(w, http.StatusOK, quote)
}
