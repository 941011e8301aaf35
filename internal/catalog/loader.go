package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// Loader reads seed catalogs (training tasks, products, suppliers) from
// YAML files and keeps them cached in memory.
type Loader struct {
	mu        sync.RWMutex
	tasks     map[string]*models.TrainingTask
	products  map[string]*models.Product
	suppliers map[string]*models.Supplier
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{
		tasks:     make(map[string]*models.TrainingTask),
		products:  make(map[string]*models.Product),
		suppliers: make(map[string]*models.Supplier),
	}
}

// LoadFromDir loads all YAML catalog files from a directory
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	patterns := []string{"*.yaml", "*.yml"}
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load catalog file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("catalog loaded",
		"files", loaded,
		"tasks", len(l.tasks),
		"products", len(l.products),
		"suppliers", len(l.suppliers),
	)
	return nil
}

// LoadFromFile loads a single catalog YAML file. A file may carry any mix
// of tasks, products and suppliers.
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, tf := range cf.Tasks {
		task, err := tf.toModel()
		if err != nil {
			return fmt.Errorf("task %q: %w", tf.ID, err)
		}
		l.tasks[task.ID] = task
	}
	for _, pf := range cf.Products {
		product, err := pf.toModel()
		if err != nil {
			return fmt.Errorf("product %q: %w", pf.ID, err)
		}
		l.products[product.ID] = product
	}
	for _, sf := range cf.Suppliers {
		supplier, err := sf.toModel()
		if err != nil {
			return fmt.Errorf("supplier %q: %w", sf.ID, err)
		}
		l.suppliers[supplier.ID] = supplier
	}

	return nil
}

// Apply upserts every loaded catalog entity into the store.
func (l *Loader) Apply(ctx context.Context, store storage.Store) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, supplier := range l.suppliers {
		if err := store.UpsertSupplier(ctx, supplier); err != nil {
			return fmt.Errorf("failed to upsert supplier %s: %w", supplier.ID, err)
		}
	}
	for _, product := range l.products {
		if err := store.UpsertProduct(ctx, product); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", product.ID, err)
		}
	}
	for _, task := range l.tasks {
		if err := store.UpsertTask(ctx, task); err != nil {
			return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
		}
	}

	slog.Info("catalog applied",
		"tasks", len(l.tasks),
		"products", len(l.products),
		"suppliers", len(l.suppliers),
	)
	return nil
}

// GetTask returns a task by ID, or nil when not loaded
func (l *Loader) GetTask(id string) *models.TrainingTask {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tasks[id]
}

// ListTasks returns all loaded tasks
func (l *Loader) ListTasks() []*models.TrainingTask {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.TrainingTask, 0, len(l.tasks))
	for _, t := range l.tasks {
		result = append(result, t)
	}
	return result
}

// ListProducts returns all loaded products
func (l *Loader) ListProducts() []*models.Product {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Product, 0, len(l.products))
	for _, p := range l.products {
		result = append(result, p)
	}
	return result
}

// ListSuppliers returns all loaded suppliers
func (l *Loader) ListSuppliers() []*models.Supplier {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Supplier, 0, len(l.suppliers))
	for _, s := range l.suppliers {
		result = append(result, s)
	}
	return result
}

// Categories returns the distinct product categories across the catalog.
// The market worker uses this to decide which markets to simulate.
func (l *Loader) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	var result []string
	for _, p := range l.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		result = append(result, p.Category)
	}
	return result
}

// --- YAML file structs ---

// catalogFile represents the YAML structure of a catalog seed file
type catalogFile struct {
	Tasks     []taskFile     `yaml:"tasks"`
	Products  []productFile  `yaml:"products"`
	Suppliers []supplierFile `yaml:"suppliers"`
}

type taskFile struct {
	ID            string  `yaml:"id"`
	Title         string  `yaml:"title"`
	Description   string  `yaml:"description"`
	InitialBudget float64 `yaml:"initial_budget"`
	DurationDays  int     `yaml:"duration_days"`
	CreatedBy     string  `yaml:"created_by"`
}

func (tf taskFile) toModel() (*models.TrainingTask, error) {
	if tf.ID == "" {
		return nil, fmt.Errorf("task id is required")
	}
	if tf.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	if tf.InitialBudget <= 0 {
		return nil, fmt.Errorf("initial_budget must be positive")
	}
	if tf.DurationDays <= 0 {
		return nil, fmt.Errorf("duration_days must be positive")
	}

	return &models.TrainingTask{
		ID:            tf.ID,
		Title:         tf.Title,
		Description:   tf.Description,
		InitialBudget: decimal.NewFromFloat(tf.InitialBudget),
		DurationDays:  tf.DurationDays,
		CreatedBy:     tf.CreatedBy,
		Status:        models.TaskActive,
	}, nil
}

type productFile struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	BasePrice   float64 `yaml:"base_price"`
	UnitCost    float64 `yaml:"unit_cost"`
	SafetyStock int     `yaml:"safety_stock"`
}

func (pf productFile) toModel() (*models.Product, error) {
	if pf.ID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if pf.Name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if pf.BasePrice <= 0 {
		return nil, fmt.Errorf("base_price must be positive")
	}

	safety := pf.SafetyStock
	if safety <= 0 {
		safety = models.DefaultSafetyStock
	}

	return &models.Product{
		ID:          pf.ID,
		Name:        pf.Name,
		Category:    pf.Category,
		BasePrice:   decimal.NewFromFloat(pf.BasePrice),
		UnitCost:    decimal.NewFromFloat(pf.UnitCost),
		SafetyStock: safety,
		Active:      true,
	}, nil
}

type supplierFile struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Rating   float64 `yaml:"rating"`
}

func (sf supplierFile) toModel() (*models.Supplier, error) {
	if sf.ID == "" {
		return nil, fmt.Errorf("supplier id is required")
	}
	if sf.Name == "" {
		return nil, fmt.Errorf("supplier name is required")
	}

	return &models.Supplier{
		ID:       sf.ID,
		Name:     sf.Name,
		Category: sf.Category,
		Rating:   sf.Rating,
		Active:   true,
	}, nil
}
