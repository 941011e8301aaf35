package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/procure-sim/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Users ---

// UpsertUser creates or replaces a user record
func (s *PostgresStore) UpsertUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, name, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role
	`

	_, err := s.pool.Exec(ctx, query, u.ID, u.Name, string(u.Role), u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, name, role, created_at FROM users WHERE id = $1`

	var u models.User
	var roleStr string

	err := s.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &roleStr, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Role = models.UserRole(roleStr)
	return &u, nil
}

// --- Training tasks ---

// CreateTask creates a new training task
func (s *PostgresStore) CreateTask(ctx context.Context, t *models.TrainingTask) error {
	query := `
		INSERT INTO training_tasks (id, title, description, initial_budget, duration_days, created_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.Title,
		nullString(t.Description),
		t.InitialBudget,
		t.DurationDays,
		nullString(t.CreatedBy),
		string(t.Status),
		t.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// UpsertTask creates or replaces a training task (catalog seeding)
func (s *PostgresStore) UpsertTask(ctx context.Context, t *models.TrainingTask) error {
	query := `
		INSERT INTO training_tasks (id, title, description, initial_budget, duration_days, created_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description,
		    initial_budget = EXCLUDED.initial_budget, duration_days = EXCLUDED.duration_days,
		    status = EXCLUDED.status
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.Title,
		nullString(t.Description),
		t.InitialBudget,
		t.DurationDays,
		nullString(t.CreatedBy),
		string(t.Status),
		t.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}

	return nil
}

// GetTask retrieves a training task by ID
func (s *PostgresStore) GetTask(ctx context.Context, id string) (*models.TrainingTask, error) {
	query := `
		SELECT id, title, description, initial_budget, duration_days, created_by, status, created_at
		FROM training_tasks
		WHERE id = $1
	`

	var t models.TrainingTask
	var statusStr string
	var description, createdBy sql.NullString

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&description,
		&t.InitialBudget,
		&t.DurationDays,
		&createdBy,
		&statusStr,
		&t.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	t.Description = description.String
	t.CreatedBy = createdBy.String
	t.Status = models.TaskStatus(statusStr)

	return &t, nil
}

// ListTasks returns training tasks, optionally filtered by status
func (s *PostgresStore) ListTasks(ctx context.Context, status models.TaskStatus) ([]*models.TrainingTask, error) {
	query := `
		SELECT id, title, description, initial_budget, duration_days, created_by, status, created_at
		FROM training_tasks
		WHERE 1=1
	`
	args := make([]interface{}, 0)

	if status != "" {
		query += " AND status = $1"
		args = append(args, string(status))
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.TrainingTask

	for rows.Next() {
		var t models.TrainingTask
		var statusStr string
		var description, createdBy sql.NullString

		err := rows.Scan(
			&t.ID,
			&t.Title,
			&description,
			&t.InitialBudget,
			&t.DurationDays,
			&createdBy,
			&statusStr,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		t.Description = description.String
		t.CreatedBy = createdBy.String
		t.Status = models.TaskStatus(statusStr)

		tasks = append(tasks, &t)
	}

	return tasks, rows.Err()
}

// --- Suppliers ---

// UpsertSupplier creates or replaces a supplier
func (s *PostgresStore) UpsertSupplier(ctx context.Context, sup *models.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, category, rating, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
		    rating = EXCLUDED.rating, active = EXCLUDED.active
	`

	_, err := s.pool.Exec(ctx, query, sup.ID, sup.Name, sup.Category, sup.Rating, sup.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier: %w", err)
	}

	return nil
}

// GetSupplier retrieves a supplier by ID
func (s *PostgresStore) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	query := `SELECT id, name, category, rating, active FROM suppliers WHERE id = $1`

	var sup models.Supplier

	err := s.pool.QueryRow(ctx, query, id).Scan(&sup.ID, &sup.Name, &sup.Category, &sup.Rating, &sup.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	return &sup, nil
}

// ListSuppliers returns all suppliers
func (s *PostgresStore) ListSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	query := `SELECT id, name, category, rating, active FROM suppliers ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*models.Supplier

	for rows.Next() {
		var sup models.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Category, &sup.Rating, &sup.Active); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, &sup)
	}

	return suppliers, rows.Err()
}

// --- Products ---

// UpsertProduct creates or replaces a product
func (s *PostgresStore) UpsertProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, name, category, base_price, unit_cost, safety_stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
		    base_price = EXCLUDED.base_price, unit_cost = EXCLUDED.unit_cost,
		    safety_stock = EXCLUDED.safety_stock, active = EXCLUDED.active
	`

	_, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.Category, p.BasePrice, p.UnitCost, p.SafetyStock, p.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// GetProduct retrieves a product by ID
func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT id, name, category, base_price, unit_cost, safety_stock, active FROM products WHERE id = $1`

	var p models.Product

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Category, &p.BasePrice, &p.UnitCost, &p.SafetyStock, &p.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}

// ListProducts returns all products
func (s *PostgresStore) ListProducts(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT id, name, category, base_price, unit_cost, safety_stock, active FROM products ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		var p models.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.BasePrice, &p.UnitCost, &p.SafetyStock, &p.Active)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}

// --- Student progress ---

// CreateProgress creates a new progress record
func (s *PostgresStore) CreateProgress(ctx context.Context, p *models.StudentProgress) error {
	kpiJSON, err := json.Marshal(p.KPI)
	if err != nil {
		return fmt.Errorf("failed to marshal kpi scores: %w", err)
	}

	query := `
		INSERT INTO student_progress (user_id, task_id, current_balance, current_day, inventory_value, total_revenue, total_profit, kpi_scores, status, started_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		p.UserID,
		p.TaskID,
		p.CurrentBalance,
		p.CurrentDay,
		p.InventoryValue,
		p.TotalRevenue,
		p.TotalProfit,
		kpiJSON,
		string(p.Status),
		p.StartedAt,
		p.UpdatedAt,
		nullTime(p.CompletedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to create progress: %w", err)
	}

	return nil
}

// GetProgress retrieves progress for one (user, task) pair
func (s *PostgresStore) GetProgress(ctx context.Context, userID, taskID string) (*models.StudentProgress, error) {
	query := `
		SELECT user_id, task_id, current_balance, current_day, inventory_value, total_revenue, total_profit, kpi_scores, status, started_at, updated_at, completed_at
		FROM student_progress
		WHERE user_id = $1 AND task_id = $2
	`

	p, err := scanProgress(s.pool.QueryRow(ctx, query, userID, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return p, nil
}

// UpdateProgress updates an existing progress record
func (s *PostgresStore) UpdateProgress(ctx context.Context, p *models.StudentProgress) error {
	kpiJSON, err := json.Marshal(p.KPI)
	if err != nil {
		return fmt.Errorf("failed to marshal kpi scores: %w", err)
	}

	query := `
		UPDATE student_progress
		SET current_balance = $3, current_day = $4, inventory_value = $5, total_revenue = $6, total_profit = $7, kpi_scores = $8, status = $9, updated_at = $10, completed_at = $11
		WHERE user_id = $1 AND task_id = $2
	`

	result, err := s.pool.Exec(ctx, query,
		p.UserID,
		p.TaskID,
		p.CurrentBalance,
		p.CurrentDay,
		p.InventoryValue,
		p.TotalRevenue,
		p.TotalProfit,
		kpiJSON,
		string(p.Status),
		p.UpdatedAt,
		nullTime(p.CompletedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("progress not found: %s/%s", p.UserID, p.TaskID)
	}

	return nil
}

// ListProgressByTask returns all progress records for a task
func (s *PostgresStore) ListProgressByTask(ctx context.Context, taskID string) ([]*models.StudentProgress, error) {
	query := `
		SELECT user_id, task_id, current_balance, current_day, inventory_value, total_revenue, total_profit, kpi_scores, status, started_at, updated_at, completed_at
		FROM student_progress
		WHERE task_id = $1
		ORDER BY started_at
	`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var records []*models.StudentProgress

	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		records = append(records, p)
	}

	return records, rows.Err()
}

// scanTarget covers both pgx.Row and pgx.Rows
type scanTarget interface {
	Scan(dest ...any) error
}

func scanProgress(row scanTarget) (*models.StudentProgress, error) {
	var p models.StudentProgress
	var statusStr string
	var kpiJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&p.UserID,
		&p.TaskID,
		&p.CurrentBalance,
		&p.CurrentDay,
		&p.InventoryValue,
		&p.TotalRevenue,
		&p.TotalProfit,
		&kpiJSON,
		&statusStr,
		&p.StartedAt,
		&p.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = models.ProgressStatus(statusStr)

	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal(kpiJSON, &p.KPI); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kpi scores: %w", err)
	}

	return &p, nil
}

// --- Inventory ---

// UpsertInventory creates or updates the inventory record for one product
func (s *PostgresStore) UpsertInventory(ctx context.Context, rec *models.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (user_id, task_id, product_id, current_stock, reserved_stock, avg_unit_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, task_id, product_id) DO UPDATE
		SET current_stock = EXCLUDED.current_stock, reserved_stock = EXCLUDED.reserved_stock,
		    avg_unit_cost = EXCLUDED.avg_unit_cost, updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		rec.UserID,
		rec.TaskID,
		rec.ProductID,
		rec.CurrentStock,
		rec.ReservedStock,
		rec.AvgUnitCost,
		rec.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert inventory: %w", err)
	}

	return nil
}

// GetInventory retrieves one inventory record
func (s *PostgresStore) GetInventory(ctx context.Context, userID, taskID, productID string) (*models.InventoryRecord, error) {
	query := `
		SELECT user_id, task_id, product_id, current_stock, reserved_stock, avg_unit_cost, updated_at
		FROM inventory_records
		WHERE user_id = $1 AND task_id = $2 AND product_id = $3
	`

	var rec models.InventoryRecord

	err := s.pool.QueryRow(ctx, query, userID, taskID, productID).Scan(
		&rec.UserID,
		&rec.TaskID,
		&rec.ProductID,
		&rec.CurrentStock,
		&rec.ReservedStock,
		&rec.AvgUnitCost,
		&rec.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return &rec, nil
}

// ListInventory returns all inventory records for one simulation run
func (s *PostgresStore) ListInventory(ctx context.Context, userID, taskID string) ([]*models.InventoryRecord, error) {
	query := `
		SELECT user_id, task_id, product_id, current_stock, reserved_stock, avg_unit_cost, updated_at
		FROM inventory_records
		WHERE user_id = $1 AND task_id = $2
		ORDER BY product_id
	`

	rows, err := s.pool.Query(ctx, query, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var records []*models.InventoryRecord

	for rows.Next() {
		var rec models.InventoryRecord
		err := rows.Scan(
			&rec.UserID,
			&rec.TaskID,
			&rec.ProductID,
			&rec.CurrentStock,
			&rec.ReservedStock,
			&rec.AvgUnitCost,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// --- Orders ---

// CreateOrder creates a new order with its items stored as JSON
func (s *PostgresStore) CreateOrder(ctx context.Context, o *models.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, order_number, user_id, task_id, supplier_id, customer_name, order_type, total_amount, status, items, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.TaskID,
		nullString(o.SupplierID),
		nullString(o.CustomerName),
		string(o.Type),
		o.TotalAmount,
		string(o.Status),
		itemsJSON,
		o.CreatedAt,
		nullTime(o.CompletedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetOrder retrieves an order by ID
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, task_id, supplier_id, customer_name, order_type, total_amount, status, items, created_at, completed_at
		FROM orders
		WHERE id = $1
	`

	o, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// UpdateOrder updates an existing order
func (s *PostgresStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `
		UPDATE orders
		SET status = $2, total_amount = $3, items = $4, completed_at = $5
		WHERE id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		o.ID,
		string(o.Status),
		o.TotalAmount,
		itemsJSON,
		nullTime(o.CompletedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", o.ID)
	}

	return nil
}

// ListOrders returns orders matching filters
func (s *PostgresStore) ListOrders(ctx context.Context, filters OrderFilters) ([]*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, task_id, supplier_id, customer_name, order_type, total_amount, status, items, created_at, completed_at
		FROM orders
		WHERE 1=1
	`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filters.UserID)
		argNum++
	}

	if filters.TaskID != "" {
		query += fmt.Sprintf(" AND task_id = $%d", argNum)
		args = append(args, filters.TaskID)
		argNum++
	}

	if filters.Type != "" {
		query += fmt.Sprintf(" AND order_type = $%d", argNum)
		args = append(args, string(filters.Type))
		argNum++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filters.Status))
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

func scanOrder(row scanTarget) (*models.Order, error) {
	var o models.Order
	var typeStr, statusStr string
	var supplierID, customerName sql.NullString
	var completedAt sql.NullTime
	var itemsJSON []byte

	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.TaskID,
		&supplierID,
		&customerName,
		&typeStr,
		&o.TotalAmount,
		&statusStr,
		&itemsJSON,
		&o.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	o.SupplierID = supplierID.String
	o.CustomerName = customerName.String
	o.Type = models.OrderType(typeStr)
	o.Status = models.OrderStatus(statusStr)

	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}

	return &o, nil
}

// --- Financial records ---

// CreateFinancialRecord appends one ledger entry
func (s *PostgresStore) CreateFinancialRecord(ctx context.Context, rec *models.FinancialRecord) error {
	query := `
		INSERT INTO financial_records (id, user_id, task_id, record_type, amount, description, category, related_order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.TaskID,
		string(rec.Type),
		rec.Amount,
		nullString(rec.Description),
		rec.Category,
		nullString(rec.RelatedOrderID),
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create financial record: %w", err)
	}

	return nil
}

// ListFinancialRecords returns all ledger entries for one simulation run
func (s *PostgresStore) ListFinancialRecords(ctx context.Context, userID, taskID string) ([]*models.FinancialRecord, error) {
	query := `
		SELECT id, user_id, task_id, record_type, amount, description, category, related_order_id, created_at
		FROM financial_records
		WHERE user_id = $1 AND task_id = $2
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list financial records: %w", err)
	}
	defer rows.Close()

	var records []*models.FinancialRecord

	for rows.Next() {
		var rec models.FinancialRecord
		var typeStr string
		var description, relatedOrderID sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.TaskID,
			&typeStr,
			&rec.Amount,
			&description,
			&rec.Category,
			&relatedOrderID,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financial record: %w", err)
		}

		rec.Type = models.RecordType(typeStr)
		rec.Description = description.String
		rec.RelatedOrderID = relatedOrderID.String

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// --- Evaluations ---

// CreateEvaluation stores a final evaluation record
func (s *PostgresStore) CreateEvaluation(ctx context.Context, e *models.EvaluationRecord) error {
	query := `
		INSERT INTO evaluation_records (id, user_id, task_id, financial_score, operational_score, decision_score, learning_score, total_score, grade, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.TaskID,
		e.FinancialScore,
		e.OperationalScore,
		e.DecisionScore,
		e.LearningScore,
		e.TotalScore,
		e.Grade,
		e.Feedback,
		e.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	return nil
}

// GetEvaluation retrieves the evaluation for one (user, task) pair
func (s *PostgresStore) GetEvaluation(ctx context.Context, userID, taskID string) (*models.EvaluationRecord, error) {
	query := `
		SELECT id, user_id, task_id, financial_score, operational_score, decision_score, learning_score, total_score, grade, feedback, created_at
		FROM evaluation_records
		WHERE user_id = $1 AND task_id = $2
		ORDER BY created_at
		LIMIT 1
	`

	var e models.EvaluationRecord

	err := s.pool.QueryRow(ctx, query, userID, taskID).Scan(
		&e.ID,
		&e.UserID,
		&e.TaskID,
		&e.FinancialScore,
		&e.OperationalScore,
		&e.DecisionScore,
		&e.LearningScore,
		&e.TotalScore,
		&e.Grade,
		&e.Feedback,
		&e.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	return &e, nil
}

// --- Market data ---

// UpsertMarketData replaces the latest snapshot for a category
func (s *PostgresStore) UpsertMarketData(ctx context.Context, md *models.MarketData) error {
	eventsJSON, err := json.Marshal(md.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal market events: %w", err)
	}

	query := `
		INSERT INTO market_data (category, demand_level, competition_level, price_index, trend_direction, market_events, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (category) DO UPDATE
		SET demand_level = EXCLUDED.demand_level, competition_level = EXCLUDED.competition_level,
		    price_index = EXCLUDED.price_index, trend_direction = EXCLUDED.trend_direction,
		    market_events = EXCLUDED.market_events, updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		md.Category,
		md.DemandLevel,
		md.CompetitionLevel,
		md.PriceIndex,
		string(md.Trend),
		eventsJSON,
		md.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert market data: %w", err)
	}

	return nil
}

// GetMarketData retrieves the latest snapshot for a category
func (s *PostgresStore) GetMarketData(ctx context.Context, category string) (*models.MarketData, error) {
	query := `
		SELECT category, demand_level, competition_level, price_index, trend_direction, market_events, updated_at
		FROM market_data
		WHERE category = $1
	`

	md, err := scanMarketData(s.pool.QueryRow(ctx, query, category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get market data: %w", err)
	}

	return md, nil
}

// ListMarketData returns the latest snapshot of every category
func (s *PostgresStore) ListMarketData(ctx context.Context) ([]*models.MarketData, error) {
	query := `
		SELECT category, demand_level, competition_level, price_index, trend_direction, market_events, updated_at
		FROM market_data
		ORDER BY category
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list market data: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.MarketData

	for rows.Next() {
		md, err := scanMarketData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market data: %w", err)
		}
		snapshots = append(snapshots, md)
	}

	return snapshots, rows.Err()
}

func scanMarketData(row scanTarget) (*models.MarketData, error) {
	var md models.MarketData
	var trendStr string
	var eventsJSON []byte

	err := row.Scan(
		&md.Category,
		&md.DemandLevel,
		&md.CompetitionLevel,
		&md.PriceIndex,
		&trendStr,
		&eventsJSON,
		&md.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	md.Trend = models.TrendDirection(trendStr)

	if eventsJSON != nil {
		if err := json.Unmarshal(eventsJSON, &md.Events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal market events: %w", err)
		}
	}

	return &md, nil
}

// --- API clients ---

// GetClientByApiKey retrieves an API client by its key
func (s *PostgresStore) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON []byte

	err := s.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (s *PostgresStore) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	query := `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`

	_, err := s.pool.Exec(ctx, query, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
