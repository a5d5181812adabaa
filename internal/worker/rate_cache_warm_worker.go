package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RateWarmer fills the rate cache with every current approved version.
type RateWarmer interface {
	WarmRateCache(ctx context.Context) (int, error)
}

// RateCacheWarmWorker periodically fills the current-rate cache so pricing
// runs rarely reach the database. It only fills absent keys.
type RateCacheWarmWorker struct {
	warmer   RateWarmer
	interval time.Duration
}

// NewRateCacheWarmWorker constructs a RateCacheWarmWorker.
func NewRateCacheWarmWorker(warmer RateWarmer, interval time.Duration) *RateCacheWarmWorker {
	return &RateCacheWarmWorker{
		warmer:   warmer,
		interval: interval,
	}
}

// Start begins the periodic warm loop and listens for context cancellation.
func (w *RateCacheWarmWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Rate cache warm worker disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting rate cache warm worker")

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Rate cache warm worker stopped")
			return
		}
	}
}

func (w *RateCacheWarmWorker) run(ctx context.Context) {
	start := time.Now()
	filled, err := w.warmer.WarmRateCache(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to warm rate cache")
		return
	}
	log.Debug().Int("filled", filled).Dur("duration", time.Since(start)).Msg("Rate cache warmed")
}
