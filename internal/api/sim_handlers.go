package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/sim"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// userIDFrom reads the student identifier from a request body struct or,
// for GET endpoints, the user_id query parameter.
func userIDQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return "", false
	}
	return userID, true
}

type lifecycleRequest struct {
	UserID string `json:"user_id"`
}

func decodeLifecycleRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req lifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return "", false
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return "", false
	}
	return req.UserID, true
}

// Task lifecycle handlers

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	progress, err := s.engine.StartTask(r.Context(), userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, progress)
}

func (s *Server) handleAdvanceDay(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	progress, err := s.engine.AdvanceDay(r.Context(), userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	eval, err := s.engine.CompleteTask(r.Context(), userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, eval)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	progress, err := s.engine.GetProgress(r.Context(), userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	eval, err := s.store.GetEvaluation(r.Context(), userID, taskID)
	if err != nil {
		slog.Error("failed to get evaluation", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get evaluation")
		return
	}
	if eval == nil {
		respondError(w, http.StatusNotFound, "not_found", "evaluation not found")
		return
	}

	respondJSON(w, http.StatusOK, eval)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	records, err := s.store.ListFinancialRecords(r.Context(), userID, taskID)
	if err != nil {
		slog.Error("failed to list financial records", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list records")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   len(records),
	})
}

// Inventory handlers

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	inventory, err := s.store.ListInventory(r.Context(), userID, taskID)
	if err != nil {
		slog.Error("failed to list inventory", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list inventory")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"inventory": inventory,
		"total":     len(inventory),
	})
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	alerts, err := s.engine.CheckLowStock(r.Context(), userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

func (s *Server) handleTurnover(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	reports, err := s.engine.AnalyzeTurnover(r.Context(), userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"turnover": reports,
		"total":    len(reports),
	})
}

func (s *Server) handleReorderQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := s.store.GetProduct(r.Context(), productID)
	if err != nil {
		slog.Error("failed to get product", "error", err, "id", productID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	avgDemand, err := queryFloat(r, "average_demand")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "average_demand must be a number")
		return
	}
	orderingCost, err := queryFloat(r, "ordering_cost")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "ordering_cost must be a number")
		return
	}
	holdingCost, err := queryFloat(r, "holding_cost")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "holding_cost must be a number")
		return
	}

	quantity, err := sim.ReorderQuantity(avgDemand, orderingCost, holdingCost)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":       productID,
		"reorder_quantity": quantity,
	})
}

func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, errors.New("missing")
	}
	return strconv.ParseFloat(raw, 64)
}

// Order handlers

type purchaseOrderRequest struct {
	UserID     string             `json:"user_id"`
	SupplierID string             `json:"supplier_id"`
	Items      []models.OrderItem `json:"items"`
}

func (s *Server) handleCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req purchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}
	if req.SupplierID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "supplier_id is required")
		return
	}

	order, err := s.engine.CreatePurchaseOrder(r.Context(), req.UserID, taskID, req.SupplierID, req.Items)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

type salesOrderRequest struct {
	UserID       string             `json:"user_id"`
	CustomerName string             `json:"customer_name"`
	Items        []models.OrderItem `json:"items"`
}

func (s *Server) handleCreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req salesOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	order, err := s.engine.CreateSalesOrder(r.Context(), req.UserID, taskID, req.CustomerName, req.Items)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	orderID := chi.URLParam(r, "orderID")

	userID, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	order, err := s.engine.CancelOrder(r.Context(), orderID, userID, taskID)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	userID, ok := userIDQuery(w, r)
	if !ok {
		return
	}

	filters := storage.OrderFilters{
		UserID: userID,
		TaskID: taskID,
		Type:   models.OrderType(r.URL.Query().Get("type")),
		Status: models.OrderStatus(r.URL.Query().Get("status")),
		Limit:  50,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	orders, err := s.store.ListOrders(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list orders", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  len(orders),
	})
}

// Negotiation handler

type negotiateRequest struct {
	SupplierID     string          `json:"supplier_id"`
	ProductID      string          `json:"product_id"`
	RequestedPrice decimal.Decimal `json:"requested_price"`
	Quantity       int             `json:"quantity"`
}

func (s *Server) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	var req negotiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SupplierID == "" || req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "supplier_id and product_id are required")
		return
	}

	result, err := s.engine.NegotiatePrice(r.Context(), req.SupplierID, req.ProductID, req.RequestedPrice, req.Quantity)
	if err != nil {
		respondSimError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
