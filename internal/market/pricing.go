package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
)

// OptimalPrice recommends a selling price for a product. The base price
// (cost plus target margin) is scaled by the category's price index, a
// demand multiplier, and a competition multiplier, each in [0.8, 1.2].
func (s *Simulator) OptimalPrice(ctx context.Context, productID string, baseCost decimal.Decimal, targetMargin float64) (*models.PriceQuote, error) {
	if !baseCost.IsPositive() {
		return nil, fmt.Errorf("base cost must be positive, got %s", baseCost)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	md, err := s.Snapshot(ctx, product.Category)
	if err != nil {
		return nil, err
	}

	demand := defaultDemand
	competition := defaultCompetition
	priceIndex := defaultPriceIndex
	if md != nil {
		demand = md.DemandLevel
		competition = md.CompetitionLevel
		priceIndex = md.PriceIndex
	}

	basePrice := baseCost.Mul(decimal.NewFromFloat(1 + targetMargin))

	demandMultiplier := 0.8 + demand/100*0.4
	competitionMultiplier := 0.8 + (100-competition)/100*0.4

	recommended := basePrice.
		Mul(decimal.NewFromFloat(priceIndex)).
		Mul(decimal.NewFromFloat(demandMultiplier)).
		Mul(decimal.NewFromFloat(competitionMultiplier)).
		Round(2)

	return &models.PriceQuote{
		ProductID:        productID,
		RecommendedPrice: recommended,
		MinPrice:         baseCost.Mul(decimal.NewFromFloat(1.1)).Round(2),
		MaxPrice:         basePrice.Mul(decimal.NewFromFloat(1.5)).Round(2),
		Explanation:      priceExplanation(demand, competition, priceIndex),
	}, nil
}

// priceExplanation assembles the recommendation rationale from fragments
// keyed by demand and competition thresholds.
func priceExplanation(demand, competition, priceIndex float64) string {
	var parts []string

	switch {
	case demand > 70:
		parts = append(parts, "strong demand supports a premium")
	case demand < 30:
		parts = append(parts, "weak demand calls for restraint")
	default:
		parts = append(parts, "demand is moderate")
	}

	switch {
	case competition > 70:
		parts = append(parts, "heavy competition caps the achievable price")
	case competition < 30:
		parts = append(parts, "light competition leaves pricing headroom")
	default:
		parts = append(parts, "competition is moderate")
	}

	parts = append(parts, fmt.Sprintf("market price index at %.2f", priceIndex))

	return strings.Join(parts, "; ")
}
