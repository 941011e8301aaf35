package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus represents the administrative state of a training task
type TaskStatus string

const (
	TaskActive   TaskStatus = "active"
	TaskArchived TaskStatus = "archived"
)

// TrainingTask defines the bounds of one procurement simulation:
// the seed budget and the number of simulated days.
type TrainingTask struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	InitialBudget decimal.Decimal `json:"initial_budget"`
	DurationDays  int             `json:"duration_days"`
	CreatedBy     string          `json:"created_by,omitempty"`
	Status        TaskStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}
