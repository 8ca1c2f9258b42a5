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
	"fmt"
	"time"

	"github.com/carverauto/payradar/pkg/models"
)

// ApplyHeartbeatEvent folds one heartbeat into the read model and persists
// it. Heartbeats older than the latest seen for the terminal are dropped.
func (s *Server) ApplyHeartbeatEvent(ctx context.Context, data *models.HeartbeatEventData) error {
	statusChanged, accepted := s.Registry.ApplyHeartbeat(data)
	if !accepted {
		s.logger.Debug().
			Str("terminal_id", data.TerminalID).
			Time("timestamp", data.Timestamp).
			Msg("dropped stale or unknown heartbeat")

		return nil
	}

	health := &models.TerminalHealth{
		Uptime:          data.Uptime,
		FirmwareVersion: data.FirmwareVersion,
		Battery:         data.Battery,
		IP:              data.IP,
		LastHeartbeat:   data.Timestamp,
	}

	session := &models.LiveSession{
		StaffName: data.StaffName,
		StartedAt: data.SessionStart,
		IdleTime:  data.IdleTime,
		LockState: data.LockState,
	}

	lastUser := ""
	if data.StaffName != nil {
		lastUser = *data.StaffName
	}

	if err := s.DB.ApplyHeartbeat(ctx, data.TerminalID, health, session, lastUser); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	rec, _ := s.Registry.Get(data.TerminalID)

	eventType := EventHeartbeat
	if statusChanged {
		eventType = EventStatusChanged
	}

	event := TerminalEvent{
		Type:       eventType,
		TerminalID: data.TerminalID,
	}
	if rec != nil {
		event.MerchantID = rec.Terminal.MerchantID
		event.Status = rec.Terminal.Status
	}

	s.Registry.Notify(event)

	return nil
}

// runHeartbeatReaper periodically flips terminals offline once their last
// heartbeat is older than the configured threshold.
func (s *Server) runHeartbeatReaper(ctx context.Context) {
	threshold := time.Duration(s.config.HeartbeatThreshold)
	if threshold <= 0 {
		threshold = models.DefaultHeartbeatThreshold
	}

	// Check at a fraction of the threshold so staleness is detected promptly.
	interval := threshold / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapStaleTerminals(ctx, threshold)
		}
	}
}

// reapStaleTerminals marks stale terminals offline in the database first,
// then mirrors the change into the registry and notifies subscribers.
func (s *Server) reapStaleTerminals(ctx context.Context, threshold time.Duration) {
	cutoff := s.now().Add(-threshold)

	ids, err := s.DB.MarkTerminalsOffline(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to reap stale terminals")
		return
	}

	if len(ids) == 0 {
		return
	}

	for _, rec := range s.Registry.MarkOffline(ids) {
		s.logger.Info().
			Str("terminal_id", rec.Terminal.ID).
			Time("last_heartbeat", rec.Health.LastHeartbeat).
			Msg("terminal marked offline")

		s.Registry.Notify(TerminalEvent{
			Type:       EventStatusChanged,
			MerchantID: rec.Terminal.MerchantID,
			TerminalID: rec.Terminal.ID,
			Status:     models.TerminalOffline,
		})
	}
}
