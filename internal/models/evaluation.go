package models

import "time"

// EvaluationRecord is the final scored assessment of one simulation run.
// Created once at task completion, immutable thereafter.
type EvaluationRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	TaskID           string    `json:"task_id"`
	FinancialScore   int       `json:"financial_score"`
	OperationalScore int       `json:"operational_score"`
	DecisionScore    int       `json:"decision_score"`
	LearningScore    int       `json:"learning_score"`
	TotalScore       int       `json:"total_score"`
	Grade            string    `json:"grade"` // A | B | C | D | F
	Feedback         string    `json:"feedback"`
	CreatedAt        time.Time `json:"created_at"`
}
