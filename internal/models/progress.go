package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProgressStatus represents the lifecycle state of a student's simulation run
type ProgressStatus string

const (
	ProgressActive    ProgressStatus = "active"
	ProgressCompleted ProgressStatus = "completed"
)

// KPIScores holds the four scored axes plus the weighted total, each 0-100.
type KPIScores struct {
	Financial   int `json:"financial"`
	Operational int `json:"operational"`
	Decision    int `json:"decision"`
	Learning    int `json:"learning"`
	Total       int `json:"total"`
}

// StudentProgress is the per-(user, task) simulation state.
// Created on task start, mutated on every day advance and every
// order/inventory transaction, terminal once completed.
type StudentProgress struct {
	UserID         string          `json:"user_id"`
	TaskID         string          `json:"task_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CurrentDay     int             `json:"current_day"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	KPI            KPIScores       `json:"kpi_scores"`
	Status         ProgressStatus  `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// IsCompleted returns true if the run has reached its terminal state
func (p *StudentProgress) IsCompleted() bool {
	return p.Status == ProgressCompleted
}
