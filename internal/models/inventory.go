package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertSeverity classifies a low-stock alert
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical" // stock is zero
	AlertWarning  AlertSeverity = "warning"  // stock at or below safety level
)

// InventoryRecord tracks stock for one product within one simulation run.
// AvgUnitCost is the weighted-average purchase cost, updated on every
// incoming movement and used as the cost basis for outgoing movements.
type InventoryRecord struct {
	UserID        string          `json:"user_id"`
	TaskID        string          `json:"task_id"`
	ProductID     string          `json:"product_id"`
	CurrentStock  int             `json:"current_stock"`
	ReservedStock int             `json:"reserved_stock"`
	AvgUnitCost   decimal.Decimal `json:"avg_unit_cost"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockAlert reports a product at or below its safety stock level
type StockAlert struct {
	ProductID    string        `json:"product_id"`
	CurrentStock int           `json:"current_stock"`
	SafetyStock  int           `json:"safety_stock"`
	Severity     AlertSeverity `json:"severity"`
}

// TurnoverReport describes inventory velocity for one product
type TurnoverReport struct {
	ProductID    string  `json:"product_id"`
	CurrentStock int     `json:"current_stock"`
	TotalSold    int     `json:"total_sold"`
	TurnoverRate float64 `json:"turnover_rate"`
	Performance  string  `json:"performance"` // excellent | good | needs improvement
}
