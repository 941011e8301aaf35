package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// NegotiationResult is the outcome of a single-shot price negotiation
type NegotiationResult struct {
	Accepted   bool            `json:"accepted"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Message    string          `json:"message"`
}

// NegotiatePrice evaluates a price request against a supplier's list
// price for a product. Stateless: each call is independent, there is no
// multi-round negotiation state.
func (e *Engine) NegotiatePrice(ctx context.Context, supplierID, productID string, requestedPrice decimal.Decimal, quantity int) (*NegotiationResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, quantity)
	}
	if !requestedPrice.IsPositive() {
		return nil, fmt.Errorf("%w: requested price must be positive", ErrInvalidArgument)
	}

	supplier, err := e.store.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: %s", ErrSupplierNotFound, supplierID)
	}

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	result := Negotiate(product.BasePrice, requestedPrice, quantity)
	return &result, nil
}

// Negotiate applies the acceptance rules to one offer. The tolerated
// discount grows with order volume: 15% at minimal quantity up to 25% at
// 100+ units. Offers up to 5 points past the tolerance draw a counter
// offer at the maximum discount; anything beyond holds the list price.
func Negotiate(basePrice, requestedPrice decimal.Decimal, quantity int) NegotiationResult {
	base := basePrice.InexactFloat64()
	requested := requestedPrice.InexactFloat64()

	discount := (base - requested) / base

	volumeFactor := float64(quantity) / 100
	if volumeFactor > 1 {
		volumeFactor = 1
	}
	maxDiscount := 0.15 + volumeFactor*0.10

	switch {
	case discount <= 0:
		return NegotiationResult{
			Accepted:   true,
			FinalPrice: requestedPrice,
			Message:    "offer at or above list price, accepted",
		}
	case discount <= maxDiscount:
		return NegotiationResult{
			Accepted:   true,
			FinalPrice: requestedPrice,
			Message:    fmt.Sprintf("%.0f%% discount accepted for %d units", discount*100, quantity),
		}
	case discount <= maxDiscount+0.05:
		counter := basePrice.Mul(decimal.NewFromFloat(1 - maxDiscount)).Round(2)
		return NegotiationResult{
			Accepted:   false,
			FinalPrice: counter,
			Message:    fmt.Sprintf("requested discount too deep, counter offer at %s", counter),
		}
	default:
		return NegotiationResult{
			Accepted:   false,
			FinalPrice: basePrice,
			Message:    "offer rejected, list price stands",
		}
	}
}
