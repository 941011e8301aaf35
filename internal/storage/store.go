package storage

import (
	"context"

	"github.com/terra-clan/procure-sim/internal/models"
)

// OrderFilters narrows order listing
type OrderFilters struct {
	UserID string
	TaskID string
	Type   models.OrderType
	Status models.OrderStatus
	Limit  int
	Offset int
}

// Store defines the record store the simulation core runs against.
// Lookups return (nil, nil) when the record does not exist; the core
// translates absence into its own error kinds. The store guarantees
// read-your-writes within one operation sequence but provides no
// cross-entity transactions; the core serializes per (userID, taskID).
type Store interface {
	// Users
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)

	// Training tasks
	CreateTask(ctx context.Context, t *models.TrainingTask) error
	UpsertTask(ctx context.Context, t *models.TrainingTask) error
	GetTask(ctx context.Context, id string) (*models.TrainingTask, error)
	ListTasks(ctx context.Context, status models.TaskStatus) ([]*models.TrainingTask, error)

	// Suppliers
	UpsertSupplier(ctx context.Context, s *models.Supplier) error
	GetSupplier(ctx context.Context, id string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]*models.Supplier, error)

	// Products
	UpsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)

	// Student progress
	CreateProgress(ctx context.Context, p *models.StudentProgress) error
	GetProgress(ctx context.Context, userID, taskID string) (*models.StudentProgress, error)
	UpdateProgress(ctx context.Context, p *models.StudentProgress) error
	ListProgressByTask(ctx context.Context, taskID string) ([]*models.StudentProgress, error)

	// Inventory
	UpsertInventory(ctx context.Context, rec *models.InventoryRecord) error
	GetInventory(ctx context.Context, userID, taskID, productID string) (*models.InventoryRecord, error)
	ListInventory(ctx context.Context, userID, taskID string) ([]*models.InventoryRecord, error)

	// Orders
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context, filters OrderFilters) ([]*models.Order, error)

	// Financial records (append-only)
	CreateFinancialRecord(ctx context.Context, rec *models.FinancialRecord) error
	ListFinancialRecords(ctx context.Context, userID, taskID string) ([]*models.FinancialRecord, error)

	// Evaluations
	CreateEvaluation(ctx context.Context, e *models.EvaluationRecord) error
	GetEvaluation(ctx context.Context, userID, taskID string) (*models.EvaluationRecord, error)

	// Market data (latest snapshot per category)
	UpsertMarketData(ctx context.Context, md *models.MarketData) error
	GetMarketData(ctx context.Context, category string) (*models.MarketData, error)
	ListMarketData(ctx context.Context) ([]*models.MarketData, error)

	// API clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
