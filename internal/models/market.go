package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendDirection describes day-over-day demand movement
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

// MarketEvent is a notable condition derived from a market tick
type MarketEvent struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// MarketData is the latest per-category market snapshot. Upserted on each
// simulation tick; no history is retained beyond the latest snapshot.
type MarketData struct {
	Category         string         `json:"category"`
	DemandLevel      float64        `json:"demand_level"`      // 0-100
	CompetitionLevel float64        `json:"competition_level"` // 0-100
	PriceIndex       float64        `json:"price_index"`       // 0.5-2.0
	Trend            TrendDirection `json:"trend_direction"`
	Events           []MarketEvent  `json:"market_events,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// PriceQuote is a pricing recommendation for one product
type PriceQuote struct {
	ProductID        string          `json:"product_id"`
	RecommendedPrice decimal.Decimal `json:"recommended_price"`
	MinPrice         decimal.Decimal `json:"min_price"`
	MaxPrice         decimal.Decimal `json:"max_price"`
	Explanation      string          `json:"explanation"`
}

// MarketRecommendation is one suggested action from trend analysis
type MarketRecommendation struct {
	Category       string  `json:"category"`
	Action         string  `json:"action"`
	ExpectedReturn float64 `json:"expected_return"`
	Reason         string  `json:"reason"`
}

// TrendSummary aggregates market conditions across categories
type TrendSummary struct {
	AvgDemand      float64 `json:"avg_demand"`
	AvgCompetition float64 `json:"avg_competition"`
	DemandStdDev   float64 `json:"demand_std_dev"`
	AvgPriceIndex  float64 `json:"avg_price_index"`
}

// TrendReport is the result of analyzing a set of market categories
type TrendReport struct {
	Trends          map[string]*MarketData `json:"trends"`
	Recommendations []MarketRecommendation `json:"recommendations"`
	Opportunities   []string               `json:"opportunities"`
	Risks           []string               `json:"risks"`
	Summary         TrendSummary           `json:"summary"`
	GeneratedAt     time.Time              `json:"generated_at"`
}
