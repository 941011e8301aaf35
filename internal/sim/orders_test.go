package sim

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
)

func TestCreatePurchaseOrder(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	order, err := engine.CreatePurchaseOrder(ctx, "alice", "task-1", "sup-1", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 10, UnitPrice: decimal.NewFromInt(50)},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}

	if !strings.HasPrefix(order.OrderNumber, "PO-") {
		t.Errorf("order number %q missing PO- prefix", order.OrderNumber)
	}
	if order.Status != models.OrderCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
	if order.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	decEq(t, order.TotalAmount, "500", "TotalAmount")

	rec, _ := store.GetInventory(ctx, "alice", "task-1", "prod-1")
	if rec == nil || rec.CurrentStock != 10 {
		t.Fatalf("inventory not booked, rec = %+v", rec)
	}
}

func TestCreatePurchaseOrderInsufficientFunds(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	_, err := engine.CreatePurchaseOrder(ctx, "alice", "task-1", "sup-1", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 1000, UnitPrice: decimal.NewFromInt(50)},
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	// No mutation on rejection
	progress, _ := engine.GetProgress(ctx, "alice", "task-1")
	decEq(t, progress.CurrentBalance, "10000", "balance after rejected purchase")

	rec, _ := store.GetInventory(ctx, "alice", "task-1", "prod-1")
	if rec != nil {
		t.Errorf("inventory created despite rejection: %+v", rec)
	}
}

func TestCreatePurchaseOrderUnknownSupplier(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustStart(t, engine, "alice", "task-1")

	_, err := engine.CreatePurchaseOrder(context.Background(), "alice", "task-1", "no-such-supplier", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
	})
	if !errors.Is(err, ErrSupplierNotFound) {
		t.Errorf("got %v, want ErrSupplierNotFound", err)
	}
}

func TestCreateSalesOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 10, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}

	order, err := engine.CreateSalesOrder(ctx, "alice", "task-1", "Retail Customer", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 5, UnitPrice: decimal.NewFromInt(80)},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}

	if !strings.HasPrefix(order.OrderNumber, "SO-") {
		t.Errorf("order number %q missing SO- prefix", order.OrderNumber)
	}
	if order.Status != models.OrderCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
	decEq(t, order.TotalAmount, "400", "TotalAmount")
}

func TestCreateSalesOrderInsufficientStock(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 5, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}
	before, _ := engine.GetProgress(ctx, "alice", "task-1")

	_, err := engine.CreateSalesOrder(ctx, "alice", "task-1", "greedy", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 20, UnitPrice: decimal.NewFromInt(80)},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}

	// Stock and balance untouched
	rec, _ := store.GetInventory(ctx, "alice", "task-1", "prod-1")
	if rec.CurrentStock != 5 {
		t.Errorf("stock = %d, want 5", rec.CurrentStock)
	}
	after, _ := engine.GetProgress(ctx, "alice", "task-1")
	if !after.CurrentBalance.Equal(before.CurrentBalance) {
		t.Errorf("balance changed on rejected sale: %s -> %s", before.CurrentBalance, after.CurrentBalance)
	}
}

// Duplicate lines for the same product must be checked jointly, not per line
func TestCreateSalesOrderAggregatesDuplicateLines(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")
	if _, err := engine.ProcessIncoming(ctx, "alice", "task-1", "prod-1", 5, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ProcessIncoming failed: %v", err)
	}

	_, err := engine.CreateSalesOrder(ctx, "alice", "task-1", "split", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 3, UnitPrice: decimal.NewFromInt(80)},
		{ProductID: "prod-1", Quantity: 3, UnitPrice: decimal.NewFromInt(80)},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("got %v, want ErrInsufficientStock for joint quantity 6 over stock 5", err)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	// A pending order only exists transiently during processing, so plant
	// one directly.
	pending := &models.Order{
		ID:          "ord-1",
		OrderNumber: "PO-TEST0001",
		UserID:      "alice",
		TaskID:      "task-1",
		SupplierID:  "sup-1",
		Type:        models.OrderPurchase,
		TotalAmount: decimal.NewFromInt(500),
		Status:      models.OrderPending,
		Items:       []models.OrderItem{{ProductID: "prod-1", Quantity: 10, UnitPrice: decimal.NewFromInt(50)}},
		CreatedAt:   time.Now(),
	}
	if err := store.CreateOrder(ctx, pending); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	order, err := engine.CancelOrder(ctx, "ord-1", "alice", "task-1")
	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if order.Status != models.OrderCancelled {
		t.Errorf("status = %s, want cancelled", order.Status)
	}

	// Audit record with zero amount
	records, _ := store.ListFinancialRecords(ctx, "alice", "task-1")
	var found bool
	for _, rec := range records {
		if rec.Category == "cancellation" {
			found = true
			if !rec.Amount.IsZero() {
				t.Errorf("cancellation record amount = %s, want 0", rec.Amount)
			}
		}
	}
	if !found {
		t.Error("no cancellation audit record appended")
	}
}

func TestCancelCompletedOrderRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	order, err := engine.CreatePurchaseOrder(ctx, "alice", "task-1", "sup-1", []models.OrderItem{
		{ProductID: "prod-1", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder failed: %v", err)
	}

	_, err = engine.CancelOrder(ctx, order.ID, "alice", "task-1")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustStart(t, engine, "alice", "task-1")

	_, err := engine.CancelOrder(context.Background(), "no-such-order", "alice", "task-1")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("got %v, want ErrOrderNotFound", err)
	}
}

func TestOrderValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	mustStart(t, engine, "alice", "task-1")

	cases := []struct {
		name  string
		items []models.OrderItem
	}{
		{"empty items", nil},
		{"zero quantity", []models.OrderItem{{ProductID: "prod-1", Quantity: 0, UnitPrice: decimal.NewFromInt(50)}}},
		{"negative price", []models.OrderItem{{ProductID: "prod-1", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}},
		{"missing product", []models.OrderItem{{Quantity: 1, UnitPrice: decimal.NewFromInt(50)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.CreatePurchaseOrder(ctx, "alice", "task-1", "sup-1", tc.items); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("purchase: got %v, want ErrInvalidArgument", err)
			}
			if _, err := engine.CreateSalesOrder(ctx, "alice", "task-1", "c", tc.items); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("sale: got %v, want ErrInvalidArgument", err)
			}
		})
	}
}
