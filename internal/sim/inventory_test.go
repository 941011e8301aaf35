package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
)

func TestProcessIncoming(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	rec, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 10, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}
	if rec.CurrentStock != 10 {
		t.Errorf("stock = %d, want 10", rec.CurrentStock)
	}
	decEq(t, rec.AvgUnitCost, "50", "AvgUnitCost")

	progress, _ := engine.GetProgress(ctx, "alice", "task-1")
	decEq(t, progress.CurrentBalance, "9500", "balance after receipt")
	decEq(t, progress.InventoryValue, "500", "inventory value after receipt")

	records, _ := store.ListFinancialRecords(ctx, "alice", "task-1")
	var found bool
	for _, fr := range records {
		if fr.Category == "procurement" {
			found = true
			decEq(t, fr.Amount, "500", "procurement record amount")
		}
	}
	if !found {
		t.Error("no procurement record appended")
	}
}

// The cost basis is a weighted average across receipts at different prices
func TestProcessIncomingWeightedAverageCost(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 10, decimal.NewFromInt(40)); err != nil {
		t.Fatalf("first receipt failed: %v", err)
	}
	rec, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 10, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("second receipt failed: %v", err)
	}

	// (10*40 + 10*60) / 20
	decEq(t, rec.AvgUnitCost, "50", "weighted average unit cost")
}

func TestProcessOutgoing(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 10, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}

	rec, err := engine.ProcessOutgoing(ctx, "alice", "task-1", "prod-1", 4, decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("ProcessOutgoing failed: %v", err)
	}
	if rec.CurrentStock != 6 {
		t.Errorf("stock = %d, want 6", rec.CurrentStock)
	}

	progress, _ := engine.GetProgress(ctx, "alice", "task-1")
	// 10000 - 500 + 4*80
	decEq(t, progress.CurrentBalance, "9820", "balance after sale")
	decEq(t, progress.TotalRevenue, "320", "revenue")
	// 4 * (80 - 50)
	decEq(t, progress.TotalProfit, "120", "profit")
	// 500 - 4*50
	decEq(t, progress.InventoryValue, "300", "inventory value")
}

func TestProcessOutgoingFailsClosed(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	// No record at all
	_, err := engine.ProcessOutgoing(ctx, "alice", "task-1", "prod-1", 1, decimal.NewFromInt(80))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock for missing record", err)
	}

	// Record with less stock than requested
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 3, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}
	_, err = engine.ProcessOutgoing(ctx, "alice", "task-1", "prod-1", 5, decimal.NewFromInt(80))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}

	rec, _ := store.GetInventory(ctx, "alice", "task-1", "prod-1")
	if rec.CurrentStock != 3 {
		t.Errorf("stock = %d, want 3 unchanged after rejection", rec.CurrentStock)
	}
}

func TestInventoryValueFloorsAtZero(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	// Plant stock with a cost basis but zero inventory value on progress
	if err := store.UpsertInventory(ctx, &models.InventoryRecord{
		UserID: "alice", TaskID: "task-1", ProductID: "prod-1",
		CurrentStock: 10, AvgUnitCost: decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("UpsertInventory failed: %v", err)
	}

	if _, err := engine.ProcessOutgoing(ctx, "alice", "task-1", "prod-1", 10, decimal.NewFromInt(80)); err != nil {
		t.Fatalf("ProcessOutgoing failed: %v", err)
	}

	progress, _ := engine.GetProgress(ctx, "alice", "task-1")
	if progress.InventoryValue.IsNegative() {
		t.Errorf("inventory value went negative: %s", progress.InventoryValue)
	}
}

func TestCheckLowStock(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	// prod-1 has safety stock 10; leave 4 in stock -> warning
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 4, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}
	// unknown product falls back to the default threshold; zero stock -> critical
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-x", 2, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}
	if _, err := engine.ProcessOutgoing(ctx, "alice", "task-1", "prod-x", 2, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("ProcessOutgoing failed: %v", err)
	}

	alerts, err := engine.CheckLowStock(ctx, "alice", "task-1")
	if err != nil {
		t.Fatalf("CheckLowStock failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %+v", len(alerts), alerts)
	}

	bySeverity := make(map[models.AlertSeverity]models.StockAlert)
	for _, a := range alerts {
		bySeverity[a.Severity] = a
	}

	warning, ok := bySeverity[models.AlertWarning]
	if !ok || warning.ProductID != "prod-1" || warning.CurrentStock != 4 {
		t.Errorf("warning alert wrong: %+v", warning)
	}
	critical, ok := bySeverity[models.AlertCritical]
	if !ok || critical.ProductID != "prod-x" || critical.CurrentStock != 0 {
		t.Errorf("critical alert wrong: %+v", critical)
	}
	if critical.SafetyStock != models.DefaultSafetyStock {
		t.Errorf("critical safety stock = %d, want default %d", critical.SafetyStock, models.DefaultSafetyStock)
	}
}

func TestReorderQuantity(t *testing.T) {
	// sqrt(2 * 10*365 * 100 / 2) = sqrt(365000) ~ 604.15 -> 605
	got, err := ReorderQuantity(10, 100, 2)
	if err != nil {
		t.Fatalf("ReorderQuantity failed: %v", err)
	}
	if got != 605 {
		t.Errorf("EOQ = %d, want 605", got)
	}

	if _, err := ReorderQuantity(10, 100, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero holding cost: got %v, want ErrInvalidArgument", err)
	}
	if _, err := ReorderQuantity(-1, 100, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative demand: got %v, want ErrInvalidArgument", err)
	}
}

func TestAnalyzeTurnover(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	if _, err := engine.CreatePurchaseOrder(ctx, "alice", "task-1", "sup-1", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 12, UnitPrice: decimal.NewFromInt(50)},
	}); err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}
	if _, err := engine.CreateSalesOrder(ctx, "alice", "task-1", "c", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 10, UnitPrice: decimal.NewFromInt(80)},
	}); err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}

	reports, err := engine.AnalyzeTurnover(ctx, "alice", "task-1")
	if err != nil {
		t.Fatalf("AnalyzeTurnover failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}

	r := reports[0]
	if r.TotalSold != 10 {
		t.Errorf("TotalSold = %d, want 10", r.TotalSold)
	}
	if r.TurnoverRate != 5 {
		t.Errorf("TurnoverRate = %v, want 5", r.TurnoverRate)
	}
	if r.Performance != "excellent" {
		t.Errorf("Performance = %q, want excellent", r.Performance)
	}
}
