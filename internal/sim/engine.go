package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// dailyCostRate is the deterministic operational cost charged on every
// day advance, as a fraction of the current balance.
var dailyCostRate = decimal.NewFromFloat(0.01)

// Engine runs the procurement simulation: task lifecycle, order
// processing, inventory movements, and KPI scoring. All mutating
// operations are serialized per (userID, taskID).
type Engine struct {
	store storage.Store
	locks *keyedMutex
	now   func() time.Time
}

// NewEngine creates a simulation engine backed by the given store
func NewEngine(store storage.Store) *Engine {
	return &Engine{
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// StartTask seeds a progress record for (userID, taskID). Idempotent:
// if progress already exists it is returned unchanged and no second
// initial budget record is appended.
func (e *Engine) StartTask(ctx context.Context, userID, taskID string) (*models.StudentProgress, error) {
	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if existing, err := e.store.GetProgress(ctx, userID, taskID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	now := e.now()
	progress := &models.StudentProgress{
		UserID:         userID,
		TaskID:         taskID,
		CurrentBalance: task.InitialBudget,
		CurrentDay:     1,
		InventoryValue: decimal.Zero,
		TotalRevenue:   decimal.Zero,
		TotalProfit:    decimal.Zero,
		Status:         models.ProgressActive,
		StartedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.CreateProgress(ctx, progress); err != nil {
		return nil, err
	}

	if err := e.appendRecord(ctx, &models.FinancialRecord{
		UserID:      userID,
		TaskID:      taskID,
		Type:        models.RecordIncome,
		Amount:      task.InitialBudget,
		Description: "initial budget allocation",
		Category:    "initial",
	}); err != nil {
		return nil, err
	}

	slog.Info("task started",
		"user_id", userID,
		"task_id", taskID,
		"initial_budget", task.InitialBudget,
	)

	return progress, nil
}

// AdvanceDay moves the simulation forward one day: charges the daily
// operational cost (1% of balance), increments the day counter, and
// recomputes KPI scores from the post-advance state.
func (e *Engine) AdvanceDay(ctx context.Context, userID, taskID string) (*models.StudentProgress, error) {
	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	if progress.CurrentDay >= task.DurationDays {
		return nil, fmt.Errorf("%w: day %d of %d", ErrAlreadyComplete, progress.CurrentDay, task.DurationDays)
	}

	dailyCost := progress.CurrentBalance.Mul(dailyCostRate).Round(2)

	if err := e.appendRecord(ctx, &models.FinancialRecord{
		UserID:      userID,
		TaskID:      taskID,
		Type:        models.RecordExpense,
		Amount:      dailyCost,
		Description: fmt.Sprintf("daily operational cost, day %d", progress.CurrentDay),
		Category:    "operations",
	}); err != nil {
		return nil, err
	}

	progress.CurrentBalance = progress.CurrentBalance.Sub(dailyCost)
	progress.CurrentDay++

	kpi, err := e.computeKPIs(ctx, userID, taskID, progress, task)
	if err != nil {
		return nil, err
	}
	progress.KPI = kpi
	progress.UpdatedAt = e.now()

	if err := e.store.UpdateProgress(ctx, progress); err != nil {
		return nil, err
	}

	slog.Debug("day advanced",
		"user_id", userID,
		"task_id", taskID,
		"day", progress.CurrentDay,
		"daily_cost", dailyCost,
	)

	return progress, nil
}

// CompleteTask finalizes a run: recomputes KPIs, derives the letter grade
// and feedback, persists the evaluation, and marks progress completed.
// Idempotent: a repeated call returns the stored evaluation unchanged.
func (e *Engine) CompleteTask(ctx context.Context, userID, taskID string) (*models.EvaluationRecord, error) {
	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}

	if existing, err := e.store.GetEvaluation(ctx, userID, taskID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	kpi, err := e.computeKPIs(ctx, userID, taskID, progress, task)
	if err != nil {
		return nil, err
	}

	grade := gradeFor(kpi.Total)
	now := e.now()

	eval := &models.EvaluationRecord{
		ID:               uuid.New().String(),
		UserID:           userID,
		TaskID:           taskID,
		FinancialScore:   kpi.Financial,
		OperationalScore: kpi.Operational,
		DecisionScore:    kpi.Decision,
		LearningScore:    kpi.Learning,
		TotalScore:       kpi.Total,
		Grade:            grade,
		Feedback:         buildFeedback(kpi, grade),
		CreatedAt:        now,
	}

	if err := e.store.CreateEvaluation(ctx, eval); err != nil {
		return nil, err
	}

	progress.KPI = kpi
	progress.Status = models.ProgressCompleted
	progress.CompletedAt = &now
	progress.UpdatedAt = now

	if err := e.store.UpdateProgress(ctx, progress); err != nil {
		return nil, err
	}

	slog.Info("task completed",
		"user_id", userID,
		"task_id", taskID,
		"total_score", kpi.Total,
		"grade", grade,
	)

	return eval, nil
}

// GetProgress reads the current progress for one run
func (e *Engine) GetProgress(ctx context.Context, userID, taskID string) (*models.StudentProgress, error) {
	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}
	return progress, nil
}

// appendRecord fills in the generated fields of a ledger entry and stores it
func (e *Engine) appendRecord(ctx context.Context, rec *models.FinancialRecord) error {
	rec.ID = uuid.New().String()
	rec.CreatedAt = e.now()
	return e.store.CreateFinancialRecord(ctx, rec)
}
