package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordType classifies a financial transaction
type RecordType string

const (
	RecordIncome     RecordType = "income"
	RecordExpense    RecordType = "expense"
	RecordInvestment RecordType = "investment"
)

// FinancialRecord is one append-only ledger entry. Records are never
// updated or deleted; revenue/cost/profit are derived by summation.
type FinancialRecord struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	TaskID         string          `json:"task_id"`
	Type           RecordType      `json:"record_type"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category"`
	RelatedOrderID string          `json:"related_order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
