package sim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// KPI axis weights
const (
	weightFinancial   = 0.4
	weightOperational = 0.3
	weightDecision    = 0.2
	weightLearning    = 0.1
)

// computeKPIs derives the four-axis score from the ledger, the order log,
// and the inventory state. Pure with respect to the store contents; every
// axis is clamped to [0, 100] regardless of input extremes.
func (e *Engine) computeKPIs(ctx context.Context, userID, taskID string, progress *models.StudentProgress, task *models.TrainingTask) (models.KPIScores, error) {
	var kpi models.KPIScores

	records, err := e.store.ListFinancialRecords(ctx, userID, taskID)
	if err != nil {
		return kpi, err
	}

	// Financial: profit margin over the full ledger, doubled and clamped
	var totalIncome, totalExpense float64
	for _, rec := range records {
		amount := rec.Amount.InexactFloat64()
		switch rec.Type {
		case models.RecordIncome:
			totalIncome += amount
		case models.RecordExpense, models.RecordInvestment:
			totalExpense += amount
		}
	}

	var profitMargin float64
	if totalIncome > 0 {
		profitMargin = (totalIncome - totalExpense) / totalIncome * 100
	}
	kpi.Financial = clampScore(profitMargin * 2)

	// Operational: order fulfillment rate
	orders, err := e.store.ListOrders(ctx, storage.OrderFilters{UserID: userID, TaskID: taskID})
	if err != nil {
		return kpi, err
	}

	var completedOrders int
	for _, o := range orders {
		if o.Status == models.OrderCompleted {
			completedOrders++
		}
	}

	var fulfillmentRate float64
	if len(orders) > 0 {
		fulfillmentRate = float64(completedOrders) / float64(len(orders)) * 100
	}
	kpi.Operational = clampScore(fulfillmentRate)

	// Decision: inventory turnover (units sold over average stock held)
	inventory, err := e.store.ListInventory(ctx, userID, taskID)
	if err != nil {
		return kpi, err
	}

	unitsSold := 0
	for _, o := range orders {
		if o.Type != models.OrderSale || o.Status != models.OrderCompleted {
			continue
		}
		for _, item := range o.Items {
			unitsSold += item.Quantity
		}
	}

	var turnover float64
	if len(inventory) > 0 {
		totalStock := 0
		for _, rec := range inventory {
			totalStock += rec.CurrentStock
		}
		avgStock := float64(totalStock) / float64(len(inventory))
		if avgStock > 0 {
			turnover = float64(unitsSold) / avgStock
		}
	}
	kpi.Decision = clampScore(turnover * 10)

	// Learning: progress through the scenario
	var progressRate float64
	if task.DurationDays > 0 {
		progressRate = float64(progress.CurrentDay) / float64(task.DurationDays) * 100
	}
	kpi.Learning = clampScore(progressRate)

	kpi.Total = clampScore(weightFinancial*float64(kpi.Financial) +
		weightOperational*float64(kpi.Operational) +
		weightDecision*float64(kpi.Decision) +
		weightLearning*float64(kpi.Learning))

	return kpi, nil
}

// clampScore rounds to the nearest integer and clamps to [0, 100]
func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// gradeFor maps a total score to a letter grade
func gradeFor(total int) string {
	switch {
	case total >= 90:
		return "A"
	case total >= 80:
		return "B"
	case total >= 70:
		return "C"
	case total >= 60:
		return "D"
	default:
		return "F"
	}
}

// Feedback tiers: index 0 applies at score >= 80, index 1 at >= 60,
// index 2 below. Kept as data so the messages are trivially localizable.
var feedbackMessages = map[string][3]string{
	"financial": {
		"Excellent financial management: strong profit margins throughout the scenario.",
		"Solid financial results with room to improve purchase pricing and cost control.",
		"Spending outpaced income; review order sizing and negotiate better unit prices.",
	},
	"operational": {
		"Orders were fulfilled reliably; operations ran smoothly.",
		"Most orders completed, but cancellations or stalled orders held the score back.",
		"Low fulfillment rate; focus on completing the orders you open.",
	},
	"decision": {
		"Inventory turned over quickly; stock levels matched demand well.",
		"Reasonable inventory decisions, though stock sat idle at times.",
		"Inventory moved slowly; buy closer to demand and avoid over-stocking.",
	},
	"learning": {
		"The scenario was worked through to the end.",
		"Good engagement with the scenario; a few days went unused.",
		"Large parts of the scenario were left unexplored; advance through more days.",
	},
}

var feedbackAxes = []struct {
	key   string
	score func(models.KPIScores) int
}{
	{"financial", func(k models.KPIScores) int { return k.Financial }},
	{"operational", func(k models.KPIScores) int { return k.Operational }},
	{"decision", func(k models.KPIScores) int { return k.Decision }},
	{"learning", func(k models.KPIScores) int { return k.Learning }},
}

// buildFeedback assembles the evaluation text: a grade header line plus
// one tiered sentence per axis.
func buildFeedback(kpi models.KPIScores, grade string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grade %s (total score %d/100).", grade, kpi.Total)

	for _, axis := range feedbackAxes {
		score := axis.score(kpi)
		tier := 2
		switch {
		case score >= 80:
			tier = 0
		case score >= 60:
			tier = 1
		}
		b.WriteString("\n")
		b.WriteString(feedbackMessages[axis.key][tier])
	}

	return b.String()
}
