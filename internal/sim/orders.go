package sim

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
)

// newOrderNumber returns a unique human-readable order number,
// e.g. "PO-3F2A9C1B" or "SO-7D0E44AB"
func newOrderNumber(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidArgument)
	}
	for _, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item product id is required", ErrInvalidArgument)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive, got %d", ErrInvalidArgument, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item unit price must not be negative", ErrInvalidArgument)
		}
	}
	return nil
}

func orderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

// CreatePurchaseOrder validates funds against the full order total, then
// books every item through the inventory ledger and completes the order.
// All items are validated before any mutation, so the order applies
// atomically or not at all.
func (e *Engine) CreatePurchaseOrder(ctx context.Context, userID, taskID, supplierID string, items []models.OrderItem) (*models.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	supplier, err := e.store.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: %s", ErrSupplierNotFound, supplierID)
	}

	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}

	total := orderTotal(items)
	if progress.CurrentBalance.LessThan(total) {
		return nil, fmt.Errorf("%w: order total %s exceeds balance %s", ErrInsufficientFunds, total, progress.CurrentBalance)
	}

	now := e.now()
	order := &models.Order{
		ID:          uuid.New().String(),
		OrderNumber: newOrderNumber("PO"),
		UserID:      userID,
		TaskID:      taskID,
		SupplierID:  supplierID,
		Type:        models.OrderPurchase,
		TotalAmount: total,
		Status:      models.OrderPending,
		Items:       items,
		CreatedAt:   now,
	}

	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, item := range items {
		if _, err := e.applyIncoming(ctx, userID, taskID, item.ProductID, item.Quantity, item.UnitPrice, order.ID); err != nil {
			return nil, err
		}
	}

	completedAt := e.now()
	order.Status = models.OrderCompleted
	order.CompletedAt = &completedAt

	if err := e.store.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	slog.Info("purchase order processed",
		"order_number", order.OrderNumber,
		"user_id", userID,
		"task_id", taskID,
		"supplier_id", supplierID,
		"total", total,
	)

	return order, nil
}

// CreateSalesOrder checks stock for every item before any mutation, then
// books every item through the inventory ledger and completes the order.
func (e *Engine) CreateSalesOrder(ctx context.Context, userID, taskID, customerName string, items []models.OrderItem) (*models.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}

	// Aggregate per product so duplicate lines cannot pass individually
	// while exceeding stock jointly
	requested := make(map[string]int)
	for _, item := range items {
		requested[item.ProductID] += item.Quantity
	}

	for productID, quantity := range requested {
		rec, err := e.store.GetInventory(ctx, userID, taskID, productID)
		if err != nil {
			return nil, err
		}
		available := 0
		if rec != nil {
			available = rec.CurrentStock
		}
		if available < quantity {
			return nil, fmt.Errorf("%w: product %s requested %d available %d", ErrInsufficientStock, productID, quantity, available)
		}
	}

	total := orderTotal(items)
	now := e.now()
	order := &models.Order{
		ID:           uuid.New().String(),
		OrderNumber:  newOrderNumber("SO"),
		UserID:       userID,
		TaskID:       taskID,
		CustomerName: customerName,
		Type:         models.OrderSale,
		TotalAmount:  total,
		Status:       models.OrderPending,
		Items:        items,
		CreatedAt:    now,
	}

	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, item := range items {
		if _, err := e.applyOutgoing(ctx, userID, taskID, item.ProductID, item.Quantity, item.UnitPrice, order.ID); err != nil {
			return nil, err
		}
	}

	completedAt := e.now()
	order.Status = models.OrderCompleted
	order.CompletedAt = &completedAt

	if err := e.store.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	slog.Info("sales order processed",
		"order_number", order.OrderNumber,
		"user_id", userID,
		"task_id", taskID,
		"customer", customerName,
		"total", total,
	)

	return order, nil
}

// CancelOrder flips a non-terminal order to cancelled and appends a
// zero-amount ledger entry as an audit trail. Completed orders are
// immutable; no inventory or funds are reversed.
func (e *Engine) CancelOrder(ctx context.Context, orderID, userID, taskID string) (*models.Order, error) {
	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID || order.TaskID != taskID {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s and cannot be cancelled", ErrInvalidState, order.OrderNumber, order.Status)
	}

	order.Status = models.OrderCancelled

	if err := e.store.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := e.appendRecord(ctx, &models.FinancialRecord{
		UserID:         userID,
		TaskID:         taskID,
		Type:           models.RecordExpense,
		Amount:         decimal.Zero,
		Description:    fmt.Sprintf("order %s cancelled", order.OrderNumber),
		Category:       "cancellation",
		RelatedOrderID: order.ID,
	}); err != nil {
		return nil, err
	}

	slog.Info("order cancelled",
		"order_number", order.OrderNumber,
		"user_id", userID,
		"task_id", taskID,
	)

	return order, nil
}
