package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/procure-sim/internal/models"
)

// MemoryStore is an in-memory Store used in tests and local development.
// It follows the same (nil, nil) not-found convention as PostgresStore.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]*models.User
	tasks       map[string]*models.TrainingTask
	suppliers   map[string]*models.Supplier
	products    map[string]*models.Product
	progress    map[string]*models.StudentProgress // key: userID/taskID
	inventory   map[string]*models.InventoryRecord // key: userID/taskID/productID
	orders      map[string]*models.Order
	orderSeq    []string // insertion order for deterministic listing
	finance     []*models.FinancialRecord
	evaluations map[string]*models.EvaluationRecord // key: userID/taskID
	market      map[string]*models.MarketData
	clients     map[string]*models.ApiClient // key: api key
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		tasks:       make(map[string]*models.TrainingTask),
		suppliers:   make(map[string]*models.Supplier),
		products:    make(map[string]*models.Product),
		progress:    make(map[string]*models.StudentProgress),
		inventory:   make(map[string]*models.InventoryRecord),
		orders:      make(map[string]*models.Order),
		evaluations: make(map[string]*models.EvaluationRecord),
		market:      make(map[string]*models.MarketData),
		clients:     make(map[string]*models.ApiClient),
	}
}

func progressKey(userID, taskID string) string {
	return userID + "/" + taskID
}

func inventoryKey(userID, taskID, productID string) string {
	return userID + "/" + taskID + "/" + productID
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

// --- Users ---

func (s *MemoryStore) UpsertUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// --- Training tasks ---

func (s *MemoryStore) CreateTask(ctx context.Context, t *models.TrainingTask) error {
	return s.UpsertTask(ctx, t)
}

func (s *MemoryStore) UpsertTask(ctx context.Context, t *models.TrainingTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id string) (*models.TrainingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTasks(ctx context.Context, status models.TaskStatus) ([]*models.TrainingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []*models.TrainingTask
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		cp := *t
		tasks = append(tasks, &cp)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// --- Suppliers ---

func (s *MemoryStore) UpsertSupplier(ctx context.Context, sup *models.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sup
	s.suppliers[sup.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return nil, nil
	}
	cp := *sup
	return &cp, nil
}

func (s *MemoryStore) ListSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var suppliers []*models.Supplier
	for _, sup := range s.suppliers {
		cp := *sup
		suppliers = append(suppliers, &cp)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].ID < suppliers[j].ID })
	return suppliers, nil
}

// --- Products ---

func (s *MemoryStore) UpsertProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var products []*models.Product
	for _, p := range s.products {
		cp := *p
		products = append(products, &cp)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// --- Student progress ---

func (s *MemoryStore) CreateProgress(ctx context.Context, p *models.StudentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.progress[progressKey(p.UserID, p.TaskID)] = &cp
	return nil
}

func (s *MemoryStore) GetProgress(ctx context.Context, userID, taskID string) (*models.StudentProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[progressKey(userID, taskID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, p *models.StudentProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.progress[progressKey(p.UserID, p.TaskID)] = &cp
	return nil
}

func (s *MemoryStore) ListProgressByTask(ctx context.Context, taskID string) ([]*models.StudentProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*models.StudentProgress
	for _, p := range s.progress {
		if p.TaskID != taskID {
			continue
		}
		cp := *p
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

// --- Inventory ---

func (s *MemoryStore) UpsertInventory(ctx context.Context, rec *models.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.inventory[inventoryKey(rec.UserID, rec.TaskID, rec.ProductID)] = &cp
	return nil
}

func (s *MemoryStore) GetInventory(ctx context.Context, userID, taskID, productID string) (*models.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.inventory[inventoryKey(userID, taskID, productID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListInventory(ctx context.Context, userID, taskID string) ([]*models.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*models.InventoryRecord
	for _, rec := range s.inventory {
		if rec.UserID != userID || rec.TaskID != taskID {
			continue
		}
		cp := *rec
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProductID < records[j].ProductID })
	return records, nil
}

// --- Orders ---

func (s *MemoryStore) CreateOrder(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	s.orders[o.ID] = &cp
	s.orderSeq = append(s.orderSeq, o.ID)
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (s *MemoryStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, filters OrderFilters) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []*models.Order
	for _, id := range s.orderSeq {
		o := s.orders[id]
		if filters.UserID != "" && o.UserID != filters.UserID {
			continue
		}
		if filters.TaskID != "" && o.TaskID != filters.TaskID {
			continue
		}
		if filters.Type != "" && o.Type != filters.Type {
			continue
		}
		if filters.Status != "" && o.Status != filters.Status {
			continue
		}
		cp := *o
		cp.Items = append([]models.OrderItem(nil), o.Items...)
		orders = append(orders, &cp)
	}
	if filters.Offset > 0 {
		if filters.Offset >= len(orders) {
			return nil, nil
		}
		orders = orders[filters.Offset:]
	}
	if filters.Limit > 0 && len(orders) > filters.Limit {
		orders = orders[:filters.Limit]
	}
	return orders, nil
}

// --- Financial records ---

func (s *MemoryStore) CreateFinancialRecord(ctx context.Context, rec *models.FinancialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.finance = append(s.finance, &cp)
	return nil
}

func (s *MemoryStore) ListFinancialRecords(ctx context.Context, userID, taskID string) ([]*models.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*models.FinancialRecord
	for _, rec := range s.finance {
		if rec.UserID != userID || rec.TaskID != taskID {
			continue
		}
		cp := *rec
		records = append(records, &cp)
	}
	return records, nil
}

// --- Evaluations ---

func (s *MemoryStore) CreateEvaluation(ctx context.Context, e *models.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey(e.UserID, e.TaskID)
	if _, exists := s.evaluations[key]; exists {
		return nil // first record wins, matching GetEvaluation's oldest-first read
	}
	cp := *e
	s.evaluations[key] = &cp
	return nil
}

func (s *MemoryStore) GetEvaluation(ctx context.Context, userID, taskID string) (*models.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evaluations[progressKey(userID, taskID)]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// --- Market data ---

func (s *MemoryStore) UpsertMarketData(ctx context.Context, md *models.MarketData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *md
	cp.Events = append([]models.MarketEvent(nil), md.Events...)
	s.market[md.Category] = &cp
	return nil
}

func (s *MemoryStore) GetMarketData(ctx context.Context, category string) (*models.MarketData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.market[category]
	if !ok {
		return nil, nil
	}
	cp := *md
	cp.Events = append([]models.MarketEvent(nil), md.Events...)
	return &cp, nil
}

func (s *MemoryStore) ListMarketData(ctx context.Context) ([]*models.MarketData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var snapshots []*models.MarketData
	for _, md := range s.market {
		cp := *md
		cp.Events = append([]models.MarketEvent(nil), md.Events...)
		snapshots = append(snapshots, &cp)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Category < snapshots[j].Category })
	return snapshots, nil
}

// --- API clients ---

// AddClient registers an API client (test/dev helper)
func (s *MemoryStore) AddClient(c *models.ApiClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ApiKey] = &cp
}

func (s *MemoryStore) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[apiKey]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[apiKey]; ok {
		now := time.Now()
		c.LastUsedAt = &now
	}
	return nil
}
