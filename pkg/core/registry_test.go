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

	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

func TestRegistryLoad(t *testing.T) {
	fake := newFakeDB()
	fake.addTerminal(&models.Terminal{ID: "TERM-001", MerchantID: "m1", LocationID: "loc-1", Status: models.TerminalOnline})
	fake.addTerminal(&models.Terminal{ID: "TERM-002", MerchantID: "m1", LocationID: "loc-1", Status: models.TerminalOffline})

	fake.currents["TERM-001"] = &models.CurrentTransaction{
		State:                 models.StateAwaitingPayment,
		FiatAmount:            42,
		FiatCurrency:          "USD",
		RequiredConfirmations: 3,
	}

	reg := NewTerminalRegistry(logger.NewTestLogger())
	require.NoError(t, reg.Load(context.Background(), fake))

	records := reg.SnapshotRecords()
	assert.Len(t, records, 2)

	rec, ok := reg.Get("TERM-001")
	require.True(t, ok)
	assert.Equal(t, models.StateAwaitingPayment, rec.Current.State)

	rec2, ok := reg.Get("TERM-002")
	require.True(t, ok)
	assert.Equal(t, models.StateIdle, rec2.Current.State)
}

func TestRegistryGetReturnsCopies(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-001", MerchantID: "m1", Status: models.TerminalOnline},
		Current:  models.NewIdleTransaction(),
	})

	rec, ok := reg.Get("TERM-001")
	require.True(t, ok)

	rec.Terminal.Status = models.TerminalOffline
	rec.Current.State = models.StateConfirmed

	fresh, ok := reg.Get("TERM-001")
	require.True(t, ok)
	assert.Equal(t, models.TerminalOnline, fresh.Terminal.Status)
	assert.Equal(t, models.StateIdle, fresh.Current.State)
}

func TestRegistryGetForMerchant(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{Terminal: models.Terminal{ID: "TERM-001", MerchantID: "m1"}})

	_, ok := reg.GetForMerchant("m1", "TERM-001")
	assert.True(t, ok)

	_, ok = reg.GetForMerchant("m2", "TERM-001")
	assert.False(t, ok, "terminal owned by another merchant must look absent")
}

func TestRegistryApplyHeartbeat(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-001", MerchantID: "m1", Status: models.TerminalOffline},
	})

	staff := "Jordan Kim"
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	statusChanged, accepted := reg.ApplyHeartbeat(&models.HeartbeatEventData{
		TerminalID:      "TERM-001",
		FirmwareVersion: "2.3.1",
		Uptime:          99.8,
		StaffName:       &staff,
		Timestamp:       now,
	})
	require.True(t, accepted)
	assert.True(t, statusChanged)

	rec, _ := reg.Get("TERM-001")
	assert.Equal(t, models.TerminalOnline, rec.Terminal.Status)
	assert.Equal(t, "2.3.1", rec.Terminal.Version)
	assert.Equal(t, "Jordan Kim", rec.Terminal.LastUser)
	assert.Equal(t, now, rec.Health.LastHeartbeat)

	// A second heartbeat while already online is accepted but changes nothing.
	statusChanged, accepted = reg.ApplyHeartbeat(&models.HeartbeatEventData{
		TerminalID: "TERM-001",
		Timestamp:  now.Add(time.Minute),
	})
	require.True(t, accepted)
	assert.False(t, statusChanged)
}

func TestRegistryDropsStaleHeartbeat(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-001", MerchantID: "m1", Status: models.TerminalOnline},
		Health:   models.TerminalHealth{LastHeartbeat: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)},
	})

	_, accepted := reg.ApplyHeartbeat(&models.HeartbeatEventData{
		TerminalID: "TERM-001",
		Timestamp:  time.Date(2025, 6, 15, 11, 59, 0, 0, time.UTC),
	})
	assert.False(t, accepted)

	rec, _ := reg.Get("TERM-001")
	assert.Equal(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), rec.Health.LastHeartbeat)
}

func TestRegistryHeartbeatNeverRevivesDisabled(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{
		Terminal: models.Terminal{ID: "TERM-001", MerchantID: "m1", Status: models.TerminalOffline, Disabled: true},
	})

	statusChanged, accepted := reg.ApplyHeartbeat(&models.HeartbeatEventData{
		TerminalID: "TERM-001",
		Timestamp:  time.Now(),
	})
	require.True(t, accepted)
	assert.False(t, statusChanged)

	rec, _ := reg.Get("TERM-001")
	assert.Equal(t, models.TerminalOffline, rec.Terminal.Status)
}

func TestRegistryMarkOffline(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{Terminal: models.Terminal{ID: "TERM-001", Status: models.TerminalOnline}})
	reg.Upsert(&TerminalRecord{Terminal: models.Terminal{ID: "TERM-002", Status: models.TerminalOffline}})

	changed := reg.MarkOffline([]string{"TERM-001", "TERM-002", "TERM-999"})
	require.Len(t, changed, 1)
	assert.Equal(t, "TERM-001", changed[0].Terminal.ID)

	rec, _ := reg.Get("TERM-001")
	assert.Equal(t, models.TerminalOffline, rec.Terminal.Status)
}

func TestRegistrySetDisabled(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())
	reg.Upsert(&TerminalRecord{Terminal: models.Terminal{ID: "TERM-001", Status: models.TerminalOnline}})

	assert.True(t, reg.SetDisabled("TERM-001", true))

	rec, _ := reg.Get("TERM-001")
	assert.True(t, rec.Terminal.Disabled)
	assert.Equal(t, models.TerminalOffline, rec.Terminal.Status)

	// Re-enabling lifts the override without forcing the status back.
	assert.False(t, reg.SetDisabled("TERM-001", false))

	rec, _ = reg.Get("TERM-001")
	assert.False(t, rec.Terminal.Disabled)
	assert.Equal(t, models.TerminalOffline, rec.Terminal.Status)
}

func TestRegistrySubscribe(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())

	events, cancel := reg.Subscribe()
	defer cancel()

	reg.Notify(TerminalEvent{Type: EventStatusChanged, TerminalID: "TERM-001"})

	select {
	case event := <-events:
		assert.Equal(t, EventStatusChanged, event.Type)
		assert.Equal(t, "TERM-001", event.TerminalID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRegistrySubscribeCancelCloses(t *testing.T) {
	reg := NewTerminalRegistry(logger.NewTestLogger())

	events, cancel := reg.Subscribe()
	cancel()

	_, open := <-events
	assert.False(t, open)

	// Notify after cancel must not panic.
	reg.Notify(TerminalEvent{Type: EventHeartbeat})
}
