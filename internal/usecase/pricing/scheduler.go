package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SchedulerConfig tunes the rate-limited batch fetcher.
type SchedulerConfig struct {
	BatchSize  int
	BatchDelay time.Duration
}

// Scheduler resolves a set of instruments through the cache in small
// concurrent batches with a pause between batches, so upstream price feeds
// are not saturated during a full-portfolio refresh.
type Scheduler struct {
	cache *Cache
	cfg   SchedulerConfig
	log   zerolog.Logger
	sleep func(time.Duration)
}

// NewScheduler creates a batch scheduler over the given cache.
func NewScheduler(cache *Cache, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	return &Scheduler{
		cache: cache,
		cfg:   cfg,
		log:   log.With().Str("component", "price_scheduler").Logger(),
		sleep: time.Sleep,
	}
}

// RefreshAll resolves every instrument, batchSize at a time. The instrument
// set must already be de-duplicated (see UniqueInstruments) so concurrent
// fetches never target the same key. Failures are absorbed by the cache's
// retry policy; RefreshAll itself never fails, but stops early if ctx is
// cancelled.
func (s *Scheduler) RefreshAll(ctx context.Context, instruments []Instrument) {
	start := time.Now()

	for i := 0; i < len(instruments); i += s.cfg.BatchSize {
		if ctx.Err() != nil {
			s.log.Warn().Err(ctx.Err()).Msg("price refresh aborted")
			return
		}

		end := i + s.cfg.BatchSize
		if end > len(instruments) {
			end = len(instruments)
		}
		batch := instruments[i:end]

		var wg sync.WaitGroup
		for _, inst := range batch {
			wg.Add(1)
			go func(inst Instrument) {
				defer wg.Done()
				s.cache.Resolve(ctx, inst)
			}(inst)
		}
		wg.Wait()

		if end < len(instruments) && s.cfg.BatchDelay > 0 {
			s.sleep(s.cfg.BatchDelay)
		}
	}

	s.log.Debug().
		Int("instruments", len(instruments)).
		Dur("took", time.Since(start)).
		Msg("price refresh complete")
}
