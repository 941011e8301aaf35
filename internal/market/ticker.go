package market

import (
	"context"
	"log/slog"
	"time"
)

// Ticker advances the market simulation on a fixed interval and publishes
// each fresh snapshot to the hub.
type Ticker struct {
	sim        *Simulator
	hub        *Hub
	categories []string
	interval   time.Duration
}

// NewTicker creates a periodic market worker. hub may be nil when no
// streaming consumers exist.
func NewTicker(sim *Simulator, hub *Hub, categories []string, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Ticker{
		sim:        sim,
		hub:        hub,
		categories: categories,
		interval:   interval,
	}
}

// Start begins the market worker in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	go t.run(ctx)
}

// run is the main loop for the market worker
func (t *Ticker) run(ctx context.Context) {
	slog.Info("market worker started",
		"interval", t.interval,
		"categories", t.categories,
	)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// Seed every category immediately so reads never see an empty market
	t.tickAll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("market worker stopped")
			return
		case <-ticker.C:
			t.tickAll(ctx)
		}
	}
}

func (t *Ticker) tickAll(ctx context.Context) {
	for _, category := range t.categories {
		data, err := t.sim.Tick(ctx, category)
		if err != nil {
			slog.Error("market tick failed",
				"error", err,
				"category", category,
			)
			continue
		}

		slog.Debug("market tick",
			"category", category,
			"demand", data.DemandLevel,
			"competition", data.CompetitionLevel,
			"price_index", data.PriceIndex,
		)

		if t.hub != nil {
			t.hub.Publish(data)
		}
	}
}
