package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/sim"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondSimError maps a simulation error kind to an HTTP status. The
// wrapped message already carries the offending id and the required vs.
// available amounts.
func respondSimError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrTaskNotFound),
		errors.Is(err, sim.ErrSupplierNotFound),
		errors.Is(err, sim.ErrProductNotFound),
		errors.Is(err, sim.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, sim.ErrNotStarted):
		respondError(w, http.StatusConflict, "not_started", err.Error())
	case errors.Is(err, sim.ErrAlreadyComplete):
		respondError(w, http.StatusConflict, "already_complete", err.Error())
	case errors.Is(err, sim.ErrInsufficientFunds):
		respondError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, sim.ErrInsufficientStock):
		respondError(w, http.StatusUnprocessableEntity, "insufficient_stock", err.Error())
	case errors.Is(err, sim.ErrInvalidState):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, sim.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		slog.Error("operation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "operation failed")
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Catalog handlers

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := models.TaskStatus(r.URL.Query().Get("status"))

	tasks, err := s.store.ListTasks(r.Context(), status)
	if err != nil {
		slog.Error("failed to list tasks", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list tasks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	task, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		slog.Error("failed to get task", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get task")
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.TrainingTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if task.Title == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "title is required")
		return
	}
	if !task.InitialBudget.IsPositive() {
		respondError(w, http.StatusBadRequest, "validation_error", "initial_budget must be positive")
		return
	}
	if task.DurationDays <= 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "duration_days must be positive")
		return
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = models.TaskActive
	}
	task.CreatedAt = time.Now()

	if client := ClientFromContext(r.Context()); client != nil && task.CreatedBy == "" {
		task.CreatedBy = client.Name
	}

	if err := s.store.CreateTask(r.Context(), &task); err != nil {
		slog.Error("failed to create task", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.store.ListSuppliers(r.Context())
	if err != nil {
		slog.Error("failed to list suppliers", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list suppliers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"suppliers": suppliers,
		"total":     len(suppliers),
	})
}

func (s *Server) handleUpsertSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&supplier); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if supplier.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
	}

	if err := s.store.UpsertSupplier(r.Context(), &supplier); err != nil {
		slog.Error("failed to upsert supplier", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to upsert supplier")
		return
	}

	respondJSON(w, http.StatusCreated, supplier)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		slog.Error("failed to list products", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

func (s *Server) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if product.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if !product.BasePrice.IsPositive() {
		respondError(w, http.StatusBadRequest, "validation_error", "base_price must be positive")
		return
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	if err := s.store.UpsertProduct(r.Context(), &product); err != nil {
		slog.Error("failed to upsert product", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to upsert product")
		return
	}

	respondJSON(w, http.StatusCreated, product)
}
