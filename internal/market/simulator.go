package market

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/storage"
)

// ErrProductNotFound is returned by pricing when the product is unknown
var ErrProductNotFound = errors.New("product not found")

// Default levels used when a category has no prior snapshot
const (
	defaultDemand      = 50.0
	defaultCompetition = 50.0
	defaultPriceIndex  = 1.0
)

// Simulator evolves per-category market metrics via a bounded random
// walk. The RNG is injected so ticks are reproducible in tests; the
// optional cache fronts snapshot reads and is refreshed on every tick.
type Simulator struct {
	store storage.Store
	cache *Cache // may be nil

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator creates a market simulator. Pass cache nil to disable
// snapshot caching.
func NewSimulator(store storage.Store, cache *Cache, rng *rand.Rand) *Simulator {
	return &Simulator{
		store: store,
		cache: cache,
		rng:   rng,
		now:   time.Now,
	}
}

// NewSeededSimulator is a convenience constructor with a PCG source
func NewSeededSimulator(store storage.Store, cache *Cache, seed uint64) *Simulator {
	return NewSimulator(store, cache, rand.New(rand.NewPCG(seed, seed<<1|1)))
}

// Snapshot returns the latest market data for a category, preferring the
// cache. Returns (nil, nil) if the category has never ticked.
func (s *Simulator) Snapshot(ctx context.Context, category string) (*models.MarketData, error) {
	if s.cache != nil {
		if md, err := s.cache.Get(ctx, category); err != nil {
			slog.Warn("market cache read failed", "category", category, "error", err)
		} else if md != nil {
			return md, nil
		}
	}

	return s.store.GetMarketData(ctx, category)
}

// Tick advances one category by one simulation step: demand and
// competition take an independent fluctuation in [-10, +10] clamped to
// [0, 100], the price index moves with demand and against competition
// clamped to [0.5, 2.0], and threshold/chance events are derived.
func (s *Simulator) Tick(ctx context.Context, category string) (*models.MarketData, error) {
	prior, err := s.Snapshot(ctx, category)
	if err != nil {
		return nil, err
	}

	oldDemand := defaultDemand
	oldCompetition := defaultCompetition
	oldIndex := defaultPriceIndex
	if prior != nil {
		oldDemand = prior.DemandLevel
		oldCompetition = prior.CompetitionLevel
		oldIndex = prior.PriceIndex
	}

	s.mu.Lock()
	demandDelta := s.rng.Float64()*20 - 10
	competitionDelta := s.rng.Float64()*20 - 10
	promoDraw := s.rng.Float64()
	disruptionDraw := s.rng.Float64()
	s.mu.Unlock()

	demand := clamp(oldDemand+demandDelta, 0, 100)
	competition := clamp(oldCompetition+competitionDelta, 0, 100)

	demandEffect := (demand - 50) / 100
	competitionEffect := (50 - competition) / 100
	priceIndex := clamp(oldIndex*(1+demandEffect*0.1+competitionEffect*0.1), 0.5, 2.0)

	trend := models.TrendStable
	switch {
	case demand > oldDemand+5:
		trend = models.TrendRising
	case demand < oldDemand-5:
		trend = models.TrendFalling
	}

	md := &models.MarketData{
		Category:         category,
		DemandLevel:      demand,
		CompetitionLevel: competition,
		PriceIndex:       priceIndex,
		Trend:            trend,
		Events:           deriveEvents(demand, competition, promoDraw, disruptionDraw),
		UpdatedAt:        s.now(),
	}

	if err := s.store.UpsertMarketData(ctx, md); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, md); err != nil {
			slog.Warn("market cache write failed", "category", category, "error", err)
		}
	}

	return md, nil
}

// deriveEvents applies the threshold rules plus two independent
// low-probability chance events.
func deriveEvents(demand, competition, promoDraw, disruptionDraw float64) []models.MarketEvent {
	var events []models.MarketEvent

	if demand > 80 {
		events = append(events, models.MarketEvent{
			Type:        "high_demand",
			Description: "demand surge: buyers outnumber available stock",
		})
	}
	if demand < 20 {
		events = append(events, models.MarketEvent{
			Type:        "low_demand",
			Description: "demand slump: consider holding purchases",
		})
	}
	if competition > 80 {
		events = append(events, models.MarketEvent{
			Type:        "intense_competition",
			Description: "crowded market: margins under pressure",
		})
	}
	if competition < 20 {
		events = append(events, models.MarketEvent{
			Type:        "weak_competition",
			Description: "few competitors active: pricing power available",
		})
	}
	if promoDraw > 0.9 {
		events = append(events, models.MarketEvent{
			Type:        "seasonal_promotion",
			Description: "seasonal promotion window opened",
		})
	}
	if disruptionDraw > 0.95 {
		events = append(events, models.MarketEvent{
			Type:        "supply_disruption",
			Description: "supply chain disruption: procurement costs may spike",
		})
	}

	return events
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
