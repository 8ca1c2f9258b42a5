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

// Package core implements the terminal fleet read model, the payment
// lifecycle intake and the operator command surface.
package core

import (
	"context"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
	"github.com/carverauto/payradar/pkg/natsutil"
	"github.com/carverauto/payradar/pkg/tenant"
)

// ServerOption customises Server construction.
type ServerOption func(*Server)

// Server is the core service: it owns the registry, consumes the terminal
// event stream and serves the merchant-facing operations.
type Server struct {
	config   *models.CoreServiceConfig
	DB       db.Service
	Registry *TerminalRegistry
	Stats    *StatsAggregator
	logger   logger.Logger
	now      func() time.Time

	natsConn *nats.Conn
	js       jetstream.JetStream
}

// WithServerClock injects a deterministic clock (used for tests).
func WithServerClock(clock func() time.Time) ServerOption {
	return func(s *Server) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithJetStream injects an existing JetStream context instead of dialing.
func WithJetStream(js jetstream.JetStream) ServerOption {
	return func(s *Server) {
		s.js = js
	}
}

// NewServer wires the core service. The registry starts empty; Run warms it.
func NewServer(config *models.CoreServiceConfig, database db.Service, log logger.Logger, opts ...ServerOption) *Server {
	s := &Server{
		config:   config,
		DB:       database,
		Registry: NewTerminalRegistry(log),
		logger:   log,
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.Stats = NewStatsAggregator(s.Registry, database, log,
		WithStatsInterval(time.Duration(config.StatsInterval)),
		WithStatsSampleSize(config.ConfirmationSampleSize),
		WithStatsClock(s.now))

	return s
}

// Run warms the registry and starts the background loops. It blocks until
// the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Registry.Load(ctx, s.DB); err != nil {
		return err
	}

	if s.js == nil && s.config.NATS != nil {
		nc, js, err := natsutil.Connect(ctx, s.config.NATS)
		if err != nil {
			return err
		}

		s.natsConn = nc
		s.js = js
	}

	go s.Stats.Run(ctx)
	go s.runHeartbeatReaper(ctx)

	if s.js != nil {
		if err := s.startEventConsumers(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()

	if s.natsConn != nil {
		s.natsConn.Close()
	}

	return nil
}

// ListLocations returns the caller's store locations.
func (s *Server) ListLocations(ctx context.Context, caller *tenant.Info) ([]*models.Location, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return s.DB.ListLocations(ctx, caller.MerchantID)
}

// ListTerminals returns the caller's terminals from the warm registry,
// ordered by id.
func (s *Server) ListTerminals(_ context.Context, caller *tenant.Info) ([]*models.Terminal, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	records := s.Registry.SnapshotRecords()

	terminals := make([]*models.Terminal, 0, len(records))

	for _, rec := range records {
		if rec.Terminal.MerchantID != caller.MerchantID {
			continue
		}

		t := rec.Terminal
		terminals = append(terminals, &t)
	}

	sort.Slice(terminals, func(i, j int) bool { return terminals[i].ID < terminals[j].ID })

	return terminals, nil
}

// GetTerminalDetails assembles the full detail view for one terminal:
// registry record, wallet mapping and the recent activity slice.
func (s *Server) GetTerminalDetails(ctx context.Context, caller *tenant.Info, terminalID string) (*models.TerminalDetails, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	rec, ok := s.Registry.GetForMerchant(caller.MerchantID, terminalID)
	if !ok {
		return nil, ErrTerminalNotFound
	}

	details := &models.TerminalDetails{
		Terminal:           rec.Terminal,
		Health:             rec.Health,
		LiveSession:        rec.Session,
		CurrentTransaction: rec.Current,
	}

	pairingCode, mapping, err := s.DB.GetTerminalWalletMapping(ctx, terminalID)
	if err == nil {
		details.PairingCode = pairingCode
		details.WalletMapping = mapping
	}

	activity, err := s.DB.ListActivity(ctx, caller.MerchantID, terminalID, s.config.ActivityLimit)
	if err != nil {
		return nil, err
	}

	details.RecentActivity = activity

	return details, nil
}

// ListActivity returns the terminal's recent ledger entries,
// most-recent-first.
func (s *Server) ListActivity(ctx context.Context, caller *tenant.Info, terminalID string, limit int) ([]models.ActivityLogEntry, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if _, ok := s.Registry.GetForMerchant(caller.MerchantID, terminalID); !ok {
		return nil, ErrTerminalNotFound
	}

	if limit <= 0 || limit > 200 {
		limit = s.config.ActivityLimit
	}

	return s.DB.ListActivity(ctx, caller.MerchantID, terminalID, limit)
}

// FleetStats returns the latest per-location snapshot for the caller's
// locations.
func (s *Server) FleetStats(ctx context.Context, caller *tenant.Info) ([]models.LocationStats, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	locations, err := s.DB.ListLocations(ctx, caller.MerchantID)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		owned[loc.ID] = struct{}{}
	}

	all := s.Stats.Snapshot()

	stats := make([]models.LocationStats, 0, len(owned))

	for _, ls := range all {
		if _, ok := owned[ls.LocationID]; ok {
			stats = append(stats, ls)
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].LocationID < stats[j].LocationID })

	return stats, nil
}
