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

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

// Event types emitted to stream subscribers.
const (
	EventStatusChanged  = "status_changed"
	EventPaymentUpdated = "payment_updated"
	EventHeartbeat      = "heartbeat"
)

// TerminalEvent is a registry change notification fanned out to websocket
// subscribers.
type TerminalEvent struct {
	Type        string                     `json:"type"`
	MerchantID  string                     `json:"merchant_id"`
	TerminalID  string                     `json:"terminal_id"`
	Status      models.TerminalStatus      `json:"status,omitempty"`
	Transaction *models.CurrentTransaction `json:"transaction,omitempty"`
}

// TerminalRecord is the registry's in-memory view of one terminal.
type TerminalRecord struct {
	Terminal models.Terminal
	Health   models.TerminalHealth
	Session  models.LiveSession
	Current  *models.CurrentTransaction
}

// TerminalRegistry is the warm in-memory read model over the terminal fleet.
// The database stays authoritative; the registry exists so reads and stream
// fan-out never block on Postgres.
type TerminalRegistry struct {
	mu      sync.RWMutex
	records map[string]*TerminalRecord
	logger  logger.Logger

	subMu   sync.Mutex
	subs    map[int]chan TerminalEvent
	nextSub int
}

// NewTerminalRegistry returns an empty registry.
func NewTerminalRegistry(log logger.Logger) *TerminalRegistry {
	return &TerminalRegistry{
		records: make(map[string]*TerminalRecord),
		logger:  log,
		subs:    make(map[int]chan TerminalEvent),
	}
}

// Load warms the registry from the database at startup.
func (r *TerminalRegistry) Load(ctx context.Context, database db.Service) error {
	terminals, err := database.SnapshotTerminals(ctx)
	if err != nil {
		return err
	}

	records := make(map[string]*TerminalRecord, len(terminals))

	for _, t := range terminals {
		rec := &TerminalRecord{
			Terminal: *t,
			Current:  models.NewIdleTransaction(),
		}

		if health, err := database.GetTerminalHealth(ctx, t.ID); err == nil && health != nil {
			rec.Health = *health
		}

		if session, err := database.GetLiveSession(ctx, t.ID); err == nil && session != nil {
			rec.Session = *session
		}

		if current, err := database.GetCurrentTransaction(ctx, t.ID); err == nil && current != nil {
			rec.Current = current
		}

		records[t.ID] = rec
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	r.logger.Info().Int("terminals", len(records)).Msg("terminal registry loaded")

	return nil
}

func cloneRecord(rec *TerminalRecord) *TerminalRecord {
	out := &TerminalRecord{
		Terminal: rec.Terminal,
		Health:   rec.Health,
		Session:  rec.Session,
	}

	if rec.Current != nil {
		cur := *rec.Current
		out.Current = &cur
	}

	return out
}

// SnapshotRecords returns defensive copies of every record.
func (r *TerminalRegistry) SnapshotRecords() []*TerminalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TerminalRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}

	return out
}

// Get returns a copy of one record.
func (r *TerminalRegistry) Get(terminalID string) (*TerminalRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[terminalID]
	if !ok {
		return nil, false
	}

	return cloneRecord(rec), true
}

// GetForMerchant returns a copy of one record, treating a terminal owned by
// another merchant as absent.
func (r *TerminalRegistry) GetForMerchant(merchantID, terminalID string) (*TerminalRecord, bool) {
	rec, ok := r.Get(terminalID)
	if !ok || rec.Terminal.MerchantID != merchantID {
		return nil, false
	}

	return rec, true
}

// Upsert installs or replaces one record wholesale.
func (r *TerminalRegistry) Upsert(rec *TerminalRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[rec.Terminal.ID] = cloneRecord(rec)
}

// ApplyHeartbeat folds a heartbeat into the record. Heartbeats older than
// the last one seen are dropped. Returns whether the terminal's status
// changed, and whether the heartbeat was accepted at all.
func (r *TerminalRegistry) ApplyHeartbeat(data *models.HeartbeatEventData) (statusChanged, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[data.TerminalID]
	if !ok {
		return false, false
	}

	if !rec.Health.LastHeartbeat.IsZero() && data.Timestamp.Before(rec.Health.LastHeartbeat) {
		return false, false
	}

	rec.Health.LastHeartbeat = data.Timestamp
	rec.Health.Uptime = data.Uptime
	rec.Health.Battery = data.Battery

	if data.FirmwareVersion != "" {
		rec.Health.FirmwareVersion = data.FirmwareVersion
		rec.Terminal.Version = data.FirmwareVersion
	}

	if data.IP != "" {
		rec.Health.IP = data.IP
	}

	rec.Session = models.LiveSession{
		StaffName: data.StaffName,
		StartedAt: data.SessionStart,
		IdleTime:  data.IdleTime,
		LockState: data.LockState,
	}

	rec.Terminal.LastCheckIn = data.Timestamp
	rec.Terminal.Errors = data.ErrorCount

	if data.StaffName != nil {
		rec.Terminal.LastUser = *data.StaffName
	}

	// Disabled is an administrative override; heartbeats never revive a
	// disabled terminal.
	if !rec.Terminal.Disabled && rec.Terminal.Status != models.TerminalOnline {
		rec.Terminal.Status = models.TerminalOnline
		return true, true
	}

	return false, true
}

// MarkOffline flips the given terminals offline, returning the ones whose
// status actually changed.
func (r *TerminalRegistry) MarkOffline(ids []string) []*TerminalRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []*TerminalRecord

	for _, id := range ids {
		rec, ok := r.records[id]
		if !ok || rec.Terminal.Status == models.TerminalOffline {
			continue
		}

		rec.Terminal.Status = models.TerminalOffline
		changed = append(changed, cloneRecord(rec))
	}

	return changed
}

// SetDisabled applies the administrative override. Disabling forces the
// terminal offline immediately.
func (r *TerminalRegistry) SetDisabled(terminalID string, disabled bool) (statusChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[terminalID]
	if !ok {
		return false
	}

	rec.Terminal.Disabled = disabled

	if disabled && rec.Terminal.Status != models.TerminalOffline {
		rec.Terminal.Status = models.TerminalOffline
		return true
	}

	return false
}

// CurrentTransaction returns a copy of the terminal's live payment slot.
func (r *TerminalRegistry) CurrentTransaction(terminalID string) (*models.CurrentTransaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[terminalID]
	if !ok {
		return nil, false
	}

	if rec.Current == nil {
		return models.NewIdleTransaction(), true
	}

	cur := *rec.Current

	return &cur, true
}

// CommitTransaction installs an already-persisted slot snapshot. Callers
// validate the transition against CurrentTransaction first, persist the
// result, and only then commit it here.
func (r *TerminalRegistry) CommitTransaction(terminalID string, applied *models.CurrentTransaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[terminalID]
	if !ok {
		return
	}

	cur := *applied
	rec.Current = &cur
}

// Subscribe registers a stream listener. The returned cancel func must be
// called to release the subscription.
func (r *TerminalRegistry) Subscribe() (<-chan TerminalEvent, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++

	ch := make(chan TerminalEvent, 64)
	r.subs[id] = ch

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()

		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Notify fans an event out to subscribers. Slow subscribers drop events
// rather than blocking the ingest path.
func (r *TerminalRegistry) Notify(event TerminalEvent) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
