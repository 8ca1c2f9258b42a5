/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

const defaultStatsInterval = 10 * time.Second

// StatsOption customises the behaviour of the StatsAggregator.
type StatsOption func(*StatsAggregator)

// StatsAggregator maintains a periodically refreshed per-location snapshot
// of fleet statistics. Snapshots are derived views and never persisted.
type StatsAggregator struct {
	mu         sync.RWMutex
	registry   *TerminalRegistry
	dbService  db.Service
	logger     logger.Logger
	interval   time.Duration
	sampleSize int
	now        func() time.Time
	current    []models.LocationStats
}

// NewStatsAggregator constructs a StatsAggregator tied to the terminal
// registry.
func NewStatsAggregator(reg *TerminalRegistry, database db.Service, log logger.Logger, opts ...StatsOption) *StatsAggregator {
	agg := &StatsAggregator{
		registry:   reg,
		dbService:  database,
		logger:     log,
		interval:   defaultStatsInterval,
		sampleSize: models.DefaultConfirmationSampleSize,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(agg)
		}
	}

	return agg
}

// WithStatsInterval overrides the refresh cadence.
func WithStatsInterval(interval time.Duration) StatsOption {
	return func(a *StatsAggregator) {
		if interval > 0 {
			a.interval = interval
		}
	}
}

// WithStatsSampleSize overrides the trailing window for per-chain average
// confirmation times.
func WithStatsSampleSize(size int) StatsOption {
	return func(a *StatsAggregator) {
		if size > 0 {
			a.sampleSize = size
		}
	}
}

// WithStatsClock injects a deterministic clock (used for tests).
func WithStatsClock(clock func() time.Time) StatsOption {
	return func(a *StatsAggregator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// Run starts the periodic refresh loop until the context is cancelled.
func (a *StatsAggregator) Run(ctx context.Context) {
	a.Refresh(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}

// Refresh recomputes the snapshot immediately.
func (a *StatsAggregator) Refresh(ctx context.Context) {
	snapshot := a.computeSnapshot(ctx)

	a.mu.Lock()
	a.current = snapshot
	a.mu.Unlock()
}

// Snapshot returns a defensive copy of the latest cached statistics.
func (a *StatsAggregator) Snapshot() []models.LocationStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.LocationStats, len(a.current))

	for i, ls := range a.current {
		copied := ls
		copied.AverageConfirmations = make(map[string]float64, len(ls.AverageConfirmations))

		for chain, avg := range ls.AverageConfirmations {
			copied.AverageConfirmations[chain] = avg
		}

		out[i] = copied
	}

	return out
}

func (a *StatsAggregator) computeSnapshot(ctx context.Context) []models.LocationStats {
	now := a.now().UTC()

	byLocation := make(map[string]*models.LocationStats)

	locStats := func(locationID string) *models.LocationStats {
		ls, ok := byLocation[locationID]
		if !ok {
			ls = &models.LocationStats{
				LocationID:           locationID,
				AverageConfirmations: make(map[string]float64),
				Timestamp:            now,
			}
			byLocation[locationID] = ls
		}

		return ls
	}

	for _, rec := range a.registry.SnapshotRecords() {
		ls := locStats(rec.Terminal.LocationID)

		if rec.Terminal.Status == models.TerminalOnline {
			ls.OnlineCount++
		} else {
			ls.OfflineCount++
		}

		if rec.Current == nil {
			continue
		}

		switch {
		case rec.Current.State == models.StateConfirmed:
			ls.ConfirmedTransactions++
		case rec.Current.State.Pending():
			ls.PendingTransactions++
		}
	}

	a.foldConfirmationAverages(ctx, locStats)

	out := make([]models.LocationStats, 0, len(byLocation))
	for _, ls := range byLocation {
		out = append(out, *ls)
	}

	return out
}

// foldConfirmationAverages mixes the trailing confirmed-sale timings from
// the history table into the per-location snapshots.
func (a *StatsAggregator) foldConfirmationAverages(ctx context.Context, locStats func(string) *models.LocationStats) {
	if a.dbService == nil {
		return
	}

	samples, err := a.dbService.ConfirmationSamples(ctx, a.sampleSize)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to load confirmation samples")
		return
	}

	type bucket struct {
		sum   int
		count int
	}

	buckets := make(map[string]map[string]*bucket)

	for _, s := range samples {
		chains, ok := buckets[s.LocationID]
		if !ok {
			chains = make(map[string]*bucket)
			buckets[s.LocationID] = chains
		}

		b, ok := chains[s.Chain]
		if !ok {
			b = &bucket{}
			chains[s.Chain] = b
		}

		b.sum += s.Seconds
		b.count++
	}

	for locationID, chains := range buckets {
		ls := locStats(locationID)

		for chain, b := range chains {
			if b.count > 0 {
				// Samples are recorded in seconds; the snapshot reports minutes.
				ls.AverageConfirmations[chain] = float64(b.sum) / float64(b.count) / 60
			}
		}
	}
}
