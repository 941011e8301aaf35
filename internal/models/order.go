package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes procurement from sales
type OrderType string

const (
	OrderPurchase OrderType = "purchase"
	OrderSale     OrderType = "sale"
)

// OrderStatus represents the current state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// IsTerminal returns true if the status is a terminal state
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// OrderItem is one line of an order
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order represents a purchase or sales order within a simulation run.
// Orders are never deleted, only status-flipped; completed is terminal.
type Order struct {
	ID           string          `json:"id"`
	OrderNumber  string          `json:"order_number"`
	UserID       string          `json:"user_id"`
	TaskID       string          `json:"task_id"`
	SupplierID   string          `json:"supplier_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Type         OrderType       `json:"order_type"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"status"`
	Items        []OrderItem     `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}
