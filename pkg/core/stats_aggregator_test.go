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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

func statsFixture() (*TerminalRegistry, *fakeDB) {
	reg := NewTerminalRegistry(logger.NewTestLogger())

	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-001", LocationID: "loc-1", Status: models.TerminalOnline},
		Current: &models.CurrentTransaction{
			State:                 models.StateConfirmed,
			TxHash:                "3a1b2c3d",
			Confirmations:         3,
			RequiredConfirmations: 3,
		},
	})
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-002", LocationID: "loc-1", Status: models.TerminalOnline},
		Current: &models.CurrentTransaction{
			State:                 models.StateConfirming,
			TxHash:                "9f8e7d",
			Confirmations:         1,
			RequiredConfirmations: 3,
		},
	})
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-003", LocationID: "loc-1", Status: models.TerminalOffline},
		Current:  models.NewIdleTransaction(),
	})
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-004", LocationID: "loc-2", Status: models.TerminalOnline},
		Current:  models.NewIdleTransaction(),
	})

	fake := newFakeDB()
	fake.samples = []db.ConfirmationSample{
		{LocationID: "loc-1", Chain: "bitcoin", Seconds: 120},
		{LocationID: "loc-1", Chain: "bitcoin", Seconds: 240},
		{LocationID: "loc-1", Chain: "ethereum", Seconds: 90},
	}

	return reg, fake
}

func statsByLocation(stats []models.LocationStats) map[string]models.LocationStats {
	out := make(map[string]models.LocationStats, len(stats))
	for _, ls := range stats {
		out[ls.LocationID] = ls
	}

	return out
}

func TestStatsAggregatorSnapshot(t *testing.T) {
	reg, fake := statsFixture()

	agg := NewStatsAggregator(reg, fake, logger.NewTestLogger(),
		WithStatsClock(func() time.Time { return testClock }))

	agg.Refresh(context.Background())

	byLoc := statsByLocation(agg.Snapshot())
	require.Len(t, byLoc, 2)

	loc1 := byLoc["loc-1"]
	assert.Equal(t, 2, loc1.OnlineCount)
	assert.Equal(t, 1, loc1.OfflineCount)
	assert.Equal(t, 1, loc1.ConfirmedTransactions)
	assert.Equal(t, 1, loc1.PendingTransactions)
	assert.Equal(t, testClock, loc1.Timestamp)

	// 120s and 240s samples average to 3 minutes; 90s to 1.5 minutes.
	assert.InDelta(t, 3.0, loc1.AverageConfirmations["bitcoin"], 0.001)
	assert.InDelta(t, 1.5, loc1.AverageConfirmations["ethereum"], 0.001)

	loc2 := byLoc["loc-2"]
	assert.Equal(t, 1, loc2.OnlineCount)
	assert.Zero(t, loc2.OfflineCount)
	assert.Empty(t, loc2.AverageConfirmations)
}

func TestStatsAggregatorSnapshotIsDefensiveCopy(t *testing.T) {
	reg, fake := statsFixture()

	agg := NewStatsAggregator(reg, fake, logger.NewTestLogger())
	agg.Refresh(context.Background())

	first := agg.Snapshot()
	for i := range first {
		first[i].OnlineCount = 99
		first[i].AverageConfirmations["bitcoin"] = -1
	}

	second := statsByLocation(agg.Snapshot())
	assert.Equal(t, 2, second["loc-1"].OnlineCount)
	assert.InDelta(t, 3.0, second["loc-1"].AverageConfirmations["bitcoin"], 0.001)
}

func TestStatsAggregatorTracksRegistryChanges(t *testing.T) {
	reg, fake := statsFixture()

	agg := NewStatsAggregator(reg, fake, logger.NewTestLogger())
	agg.Refresh(context.Background())

	reg.MarkOffline([]string{"TERM-001", "TERM-002"})
	agg.Refresh(context.Background())

	byLoc := statsByLocation(agg.Snapshot())
	assert.Equal(t, 0, byLoc["loc-1"].OnlineCount)
	assert.Equal(t, 3, byLoc["loc-1"].OfflineCount)
}
