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

// Package db provides the Postgres persistence layer for the core service.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

// ConfirmationSample is one confirmed sale's detection-to-confirmation
// timing, keyed for per-location per-chain averaging.
type ConfirmationSample struct {
	LocationID string
	Chain      string
	Seconds    int
}

// Service defines the persistence operations used by the core service.
// Every merchant-facing read and write is scoped by merchant id.
type Service interface {
	// Fleet registry.

	ListLocations(ctx context.Context, merchantID string) ([]*models.Location, error)
	ListTerminals(ctx context.Context, merchantID string) ([]*models.Terminal, error)
	GetTerminal(ctx context.Context, merchantID, terminalID string) (*models.Terminal, error)
	SnapshotTerminals(ctx context.Context) ([]*models.Terminal, error)
	GetTerminalHealth(ctx context.Context, terminalID string) (*models.TerminalHealth, error)
	GetLiveSession(ctx context.Context, terminalID string) (*models.LiveSession, error)
	GetTerminalWalletMapping(ctx context.Context, terminalID string) (pairingCode string, mapping map[string]string, err error)
	ApplyHeartbeat(ctx context.Context, terminalID string, health *models.TerminalHealth, session *models.LiveSession, lastUser string) error
	MarkTerminalsOffline(ctx context.Context, cutoff time.Time) ([]string, error)
	SetTerminalDisabled(ctx context.Context, merchantID, terminalID string, disabled bool) error

	// Live payment slot.

	GetCurrentTransaction(ctx context.Context, terminalID string) (*models.CurrentTransaction, error)
	SaveCurrentTransaction(ctx context.Context, terminalID string, tx *models.CurrentTransaction) error

	// Activity ledger.

	AddActivity(ctx context.Context, entry *models.ActivityLogEntry) error
	ListActivity(ctx context.Context, merchantID, terminalID string, limit int) ([]models.ActivityLogEntry, error)

	// Transaction history.

	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, merchantID string, page, pageSize int) (*models.TransactionPage, error)
	GetTransactionByHash(ctx context.Context, merchantID, txHash string) (*models.Transaction, error)
	MarkTransactionRefunded(ctx context.Context, merchantID, txHash string) error
	ConfirmationSamples(ctx context.Context, sampleSize int) ([]ConfirmationSample, error)
	DashboardStats(ctx context.Context, merchantID string) (*models.DashboardStats, error)

	// Staff.

	ListStaff(ctx context.Context, merchantID string) ([]*models.StaffUser, error)
	GetStaff(ctx context.Context, merchantID, staffID string) (*models.StaffUser, error)
	CreateStaff(ctx context.Context, user *models.StaffUser) error
	UpdateStaff(ctx context.Context, user *models.StaffUser) error
	DeleteStaff(ctx context.Context, merchantID, staffID string) error

	// Automations.

	ListAutomations(ctx context.Context, merchantID string) ([]*models.Automation, error)
	CreateAutomation(ctx context.Context, automation *models.Automation) error
	SetAutomationEnabled(ctx context.Context, merchantID, automationID string, enabled bool) error
	DeleteAutomation(ctx context.Context, merchantID, automationID string) error

	// Wallets.

	GetMerchantWallet(ctx context.Context, merchantID string) (*models.MerchantWallet, error)
	CreateMerchantWallet(ctx context.Context, wallet *models.MerchantWallet) error
	AddWalletAddress(ctx context.Context, merchantID string, addr *models.WalletAddress) error
	VerifyWalletAddress(ctx context.Context, merchantID, addressID, signature string) error

	// Command audit.

	RecordCommand(ctx context.Context, rec *models.CommandRecord) (bool, error)

	Close()
}

// DB implements Service on a pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New connects to Postgres, runs migrations and returns the Service.
func New(ctx context.Context, cfg *models.Database, log logger.Logger) (Service, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{pool: pool, logger: log}, nil
}

// NewWithPool wraps an existing pool, for callers that manage their own.
func NewWithPool(pool *pgxpool.Pool, log logger.Logger) *DB {
	return &DB{pool: pool, logger: log}
}

// Close releases the underlying connection pool.
func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}
