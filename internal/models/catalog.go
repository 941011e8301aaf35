package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole controls access to administrative operations
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is a platform account. The core only needs identity; authentication
// and session handling live in the calling layer.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Supplier is a virtual vendor students purchase from
type Supplier struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Rating   float64 `json:"rating"` // 0-5
	Active   bool    `json:"active"`
}

// Product is a catalog item available in the simulation.
// BasePrice is the supplier list price used as the negotiation anchor;
// SafetyStock is the low-stock alert threshold (0 means default).
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	BasePrice   decimal.Decimal `json:"base_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SafetyStock int             `json:"safety_stock"`
	Active      bool            `json:"active"`
}

// DefaultSafetyStock is used when a product does not define its own threshold
const DefaultSafetyStock = 10
