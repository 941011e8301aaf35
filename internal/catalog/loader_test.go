package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/storage"
)

const sampleCatalog = `
tasks:
  - id: task-retail
    title: Retail Basics
    description: Run a small shop for a week
    initial_budget: 10000
    duration_days: 7
    created_by: curriculum-team

products:
  - id: prod-phone
    name: Phone
    category: electronics
    base_price: 599.99
    unit_cost: 350
    safety_stock: 5
  - id: prod-shirt
    name: Shirt
    category: apparel
    base_price: 29.99
    unit_cost: 12

suppliers:
  - id: sup-acme
    name: Acme Wholesale
    category: electronics
    rating: 4.5
`

func writeCatalogFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	loader := NewLoader()
	path := writeCatalogFile(t, t.TempDir(), "seed.yaml", sampleCatalog)

	if err := loader.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	task := loader.GetTask("task-retail")
	if task == nil {
		t.Fatal("task-retail not loaded")
	}
	if !task.InitialBudget.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("budget = %s, want 10000", task.InitialBudget)
	}
	if task.DurationDays != 7 {
		t.Errorf("duration = %d, want 7", task.DurationDays)
	}
	if task.Status != models.TaskActive {
		t.Errorf("status = %q, want active", task.Status)
	}

	if got := len(loader.ListProducts()); got != 2 {
		t.Errorf("loaded %d products, want 2", got)
	}
	if got := len(loader.ListSuppliers()); got != 1 {
		t.Errorf("loaded %d suppliers, want 1", got)
	}
}

func TestLoadFromFileDefaultsSafetyStock(t *testing.T) {
	loader := NewLoader()
	path := writeCatalogFile(t, t.TempDir(), "seed.yaml", sampleCatalog)

	if err := loader.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	for _, p := range loader.ListProducts() {
		if p.ID == "prod-shirt" && p.SafetyStock != models.DefaultSafetyStock {
			t.Errorf("safety stock = %d, want default %d", p.SafetyStock, models.DefaultSafetyStock)
		}
	}
}

func TestLoadFromFileValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing task id", "tasks:\n  - title: No ID\n    initial_budget: 100\n    duration_days: 5\n"},
		{"zero budget", "tasks:\n  - id: t1\n    title: Broke\n    initial_budget: 0\n    duration_days: 5\n"},
		{"zero duration", "tasks:\n  - id: t1\n    title: Instant\n    initial_budget: 100\n    duration_days: 0\n"},
		{"product without price", "products:\n  - id: p1\n    name: Freebie\n    base_price: 0\n"},
		{"supplier without name", "suppliers:\n  - id: s1\n"},
		{"malformed yaml", "tasks: [\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loader := NewLoader()
			path := writeCatalogFile(t, t.TempDir(), "bad.yaml", tc.content)
			if err := loader.LoadFromFile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFromDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "good.yaml", sampleCatalog)
	writeCatalogFile(t, dir, "bad.yaml", "products:\n  - id: p1\n    name: Freebie\n    base_price: 0\n")
	writeCatalogFile(t, dir, "ignored.txt", "not yaml")

	loader := NewLoader()
	if err := loader.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	if loader.GetTask("task-retail") == nil {
		t.Error("good file was not loaded")
	}
	if got := len(loader.ListProducts()); got != 2 {
		t.Errorf("loaded %d products, want 2 from the good file only", got)
	}
}

func TestApply(t *testing.T) {
	loader := NewLoader()
	path := writeCatalogFile(t, t.TempDir(), "seed.yaml", sampleCatalog)
	if err := loader.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := loader.Apply(ctx, store); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	task, err := store.GetTask(ctx, "task-retail")
	if err != nil || task == nil {
		t.Fatalf("task not in store: task=%v err=%v", task, err)
	}
	product, err := store.GetProduct(ctx, "prod-phone")
	if err != nil || product == nil {
		t.Fatalf("product not in store: product=%v err=%v", product, err)
	}
	if !product.BasePrice.Equal(decimal.NewFromFloat(599.99)) {
		t.Errorf("base price = %s, want 599.99", product.BasePrice)
	}
	supplier, err := store.GetSupplier(ctx, "sup-acme")
	if err != nil || supplier == nil {
		t.Fatalf("supplier not in store: supplier=%v err=%v", supplier, err)
	}
}

func TestCategories(t *testing.T) {
	loader := NewLoader()
	path := writeCatalogFile(t, t.TempDir(), "seed.yaml", sampleCatalog)
	if err := loader.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	got := loader.Categories()
	sort.Strings(got)
	want := []string{"apparel", "electronics"}
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("categories = %v, want %v", got, want)
		}
	}
}
