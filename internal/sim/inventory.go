package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// ProcessIncoming books a stock receipt: raises stock, appends a
// procurement expense to the ledger, deducts the cost from the balance,
// and adds it to the inventory valuation. No funds check is performed;
// purchases are pre-authorized by the order processor.
func (e *Engine) ProcessIncoming(ctx context.Context, userID, taskID, productID string, quantity int, unitCost decimal.Decimal) (*models.InventoryRecord, error) {
	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	return e.applyIncoming(ctx, userID, taskID, productID, quantity, unitCost, "")
}

// ProcessOutgoing books a stock issue: lowers stock, appends the sale
// revenue to the ledger, and updates balance, revenue, profit, and
// inventory valuation using the weighted-average cost basis. Fails closed
// if stock would go negative.
func (e *Engine) ProcessOutgoing(ctx context.Context, userID, taskID, productID string, quantity int, unitPrice decimal.Decimal) (*models.InventoryRecord, error) {
	unlock := e.locks.Lock(userID, taskID)
	defer unlock()

	return e.applyOutgoing(ctx, userID, taskID, productID, quantity, unitPrice, "")
}

// applyIncoming is the unlocked implementation shared with the order
// processor; the caller must hold the (userID, taskID) lock.
func (e *Engine) applyIncoming(ctx context.Context, userID, taskID, productID string, quantity int, unitCost decimal.Decimal, orderID string) (*models.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, quantity)
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("%w: unit cost must not be negative", ErrInvalidArgument)
	}

	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}

	rec, err := e.store.GetInventory(ctx, userID, taskID, productID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &models.InventoryRecord{
			UserID:      userID,
			TaskID:      taskID,
			ProductID:   productID,
			AvgUnitCost: decimal.Zero,
		}
	}

	// Weighted-average cost basis across the old stock and this receipt
	oldQty := decimal.NewFromInt(int64(rec.CurrentStock))
	newQty := decimal.NewFromInt(int64(quantity))
	totalQty := oldQty.Add(newQty)
	rec.AvgUnitCost = oldQty.Mul(rec.AvgUnitCost).Add(newQty.Mul(unitCost)).DivRound(totalQty, 4)
	rec.CurrentStock += quantity
	rec.UpdatedAt = e.now()

	if err := e.store.UpsertInventory(ctx, rec); err != nil {
		return nil, err
	}

	cost := unitCost.Mul(newQty).Round(2)

	if err := e.appendRecord(ctx, &models.FinancialRecord{
		UserID:         userID,
		TaskID:         taskID,
		Type:           models.RecordExpense,
		Amount:         cost,
		Description:    fmt.Sprintf("received %d x %s", quantity, productID),
		Category:       "procurement",
		RelatedOrderID: orderID,
	}); err != nil {
		return nil, err
	}

	progress.CurrentBalance = progress.CurrentBalance.Sub(cost)
	progress.InventoryValue = progress.InventoryValue.Add(cost)
	progress.UpdatedAt = e.now()

	if err := e.store.UpdateProgress(ctx, progress); err != nil {
		return nil, err
	}

	return rec, nil
}

// applyOutgoing is the unlocked implementation shared with the order
// processor; the caller must hold the (userID, taskID) lock.
func (e *Engine) applyOutgoing(ctx context.Context, userID, taskID, productID string, quantity int, unitPrice decimal.Decimal, orderID string) (*models.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, quantity)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price must not be negative", ErrInvalidArgument)
	}

	progress, err := e.store.GetProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStarted, userID, taskID)
	}

	rec, err := e.store.GetInventory(ctx, userID, taskID, productID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.CurrentStock < quantity {
		available := 0
		if rec != nil {
			available = rec.CurrentStock
		}
		return nil, fmt.Errorf("%w: product %s requested %d available %d", ErrInsufficientStock, productID, quantity, available)
	}

	qty := decimal.NewFromInt(int64(quantity))
	revenue := unitPrice.Mul(qty).Round(2)
	costBasis := rec.AvgUnitCost.Mul(qty).Round(2)

	rec.CurrentStock -= quantity
	rec.UpdatedAt = e.now()

	if err := e.store.UpsertInventory(ctx, rec); err != nil {
		return nil, err
	}

	if err := e.appendRecord(ctx, &models.FinancialRecord{
		UserID:         userID,
		TaskID:         taskID,
		Type:           models.RecordIncome,
		Amount:         revenue,
		Description:    fmt.Sprintf("sold %d x %s", quantity, productID),
		Category:       "sales",
		RelatedOrderID: orderID,
	}); err != nil {
		return nil, err
	}

	progress.CurrentBalance = progress.CurrentBalance.Add(revenue)
	progress.TotalRevenue = progress.TotalRevenue.Add(revenue)
	progress.TotalProfit = progress.TotalProfit.Add(revenue.Sub(costBasis))
	progress.InventoryValue = progress.InventoryValue.Sub(costBasis)
	if progress.InventoryValue.IsNegative() {
		progress.InventoryValue = decimal.Zero
	}
	progress.UpdatedAt = e.now()

	if err := e.store.UpdateProgress(ctx, progress); err != nil {
		return nil, err
	}

	return rec, nil
}

// CheckLowStock reports every product at or below its safety stock level.
// Products without a configured threshold use DefaultSafetyStock.
func (e *Engine) CheckLowStock(ctx context.Context, userID, taskID string) ([]models.StockAlert, error) {
	inventory, err := e.store.ListInventory(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	var alerts []models.StockAlert
	for _, rec := range inventory {
		safety := models.DefaultSafetyStock
		if product, err := e.store.GetProduct(ctx, rec.ProductID); err != nil {
			return nil, err
		} else if product != nil && product.SafetyStock > 0 {
			safety = product.SafetyStock
		}

		switch {
		case rec.CurrentStock == 0:
			alerts = append(alerts, models.StockAlert{
				ProductID:    rec.ProductID,
				CurrentStock: 0,
				SafetyStock:  safety,
				Severity:     models.AlertCritical,
			})
		case rec.CurrentStock <= safety:
			alerts = append(alerts, models.StockAlert{
				ProductID:    rec.ProductID,
				CurrentStock: rec.CurrentStock,
				SafetyStock:  safety,
				Severity:     models.AlertWarning,
			})
		}
	}

	return alerts, nil
}

// ReorderQuantity computes the economic order quantity for the given
// daily demand and cost structure, rounded up to a whole unit.
func ReorderQuantity(averageDailyDemand, orderingCost, holdingCost float64) (int, error) {
	if holdingCost <= 0 {
		return 0, fmt.Errorf("%w: holding cost must be positive", ErrInvalidArgument)
	}
	if averageDailyDemand < 0 || orderingCost < 0 {
		return 0, fmt.Errorf("%w: demand and ordering cost must not be negative", ErrInvalidArgument)
	}

	annualDemand := averageDailyDemand * 365
	eoq := math.Sqrt(2 * annualDemand * orderingCost / holdingCost)

	return int(math.Ceil(eoq)), nil
}

// AnalyzeTurnover reports per-product inventory velocity: units sold over
// current stock, with a coarse performance tier.
func (e *Engine) AnalyzeTurnover(ctx context.Context, userID, taskID string) ([]models.TurnoverReport, error) {
	inventory, err := e.store.ListInventory(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	orders, err := e.store.ListOrders(ctx, storage.OrderFilters{
		UserID: userID,
		TaskID: taskID,
		Type:   models.OrderSale,
		Status: models.OrderCompleted,
	})
	if err != nil {
		return nil, err
	}

	soldByProduct := make(map[string]int)
	for _, o := range orders {
		for _, item := range o.Items {
			soldByProduct[item.ProductID] += item.Quantity
		}
	}

	var reports []models.TurnoverReport
	for _, rec := range inventory {
		sold := soldByProduct[rec.ProductID]

		var rate float64
		if rec.CurrentStock > 0 {
			rate = float64(sold) / float64(rec.CurrentStock)
		}

		performance := "needs improvement"
		switch {
		case rate > 4:
			performance = "excellent"
		case rate > 2:
			performance = "good"
		}

		reports = append(reports, models.TurnoverReport{
			ProductID:    rec.ProductID,
			CurrentStock: rec.CurrentStock,
			TotalSold:    sold,
			TurnoverRate: rate,
			Performance:  performance,
		})
	}

	return reports, nil
}
