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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/payradar/pkg/models"
)

const terminalColumns = `
	t.id, t.merchant_id, t.name, t.location_id, t.status, t.disabled,
	COALESCE(t.last_check_in, 'epoch'::timestamptz), t.version, t.last_user, t.errors,
	(SELECT COUNT(*) FROM transactions tx
		WHERE tx.terminal_id = t.id AND tx.created_at > now() - interval '24 hours')`

const listLocationsSQL = `
	SELECT id, merchant_id, name, address
	FROM locations
	WHERE merchant_id = $1
	ORDER BY name`

const listTerminalsSQL = `
	SELECT` + terminalColumns + `
	FROM terminals t
	WHERE t.merchant_id = $1
	ORDER BY t.id`

const getTerminalSQL = `
	SELECT` + terminalColumns + `
	FROM terminals t
	WHERE t.merchant_id = $1 AND t.id = $2`

const snapshotTerminalsSQL = `
	SELECT` + terminalColumns + `
	FROM terminals t
	ORDER BY t.id`

// ListLocations returns the merchant's store locations.
func (d *DB) ListLocations(ctx context.Context, merchantID string) ([]*models.Location, error) {
	rows, err := d.pool.Query(ctx, listLocationsSQL, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var locations []*models.Location

	for rows.Next() {
		loc := &models.Location{}
		if err := rows.Scan(&loc.ID, &loc.MerchantID, &loc.Name, &loc.Address); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

func scanTerminal(row pgx.Row) (*models.Terminal, error) {
	t := &models.Terminal{}

	err := row.Scan(&t.ID, &t.MerchantID, &t.Name, &t.LocationID, &t.Status, &t.Disabled,
		&t.LastCheckIn, &t.Version, &t.LastUser, &t.Errors, &t.TransactionsLast24h)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// ListTerminals returns the merchant's terminals with trailing-24h sale
// counts.
func (d *DB) ListTerminals(ctx context.Context, merchantID string) ([]*models.Terminal, error) {
	rows, err := d.pool.Query(ctx, listTerminalsSQL, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var terminals []*models.Terminal

	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		terminals = append(terminals, t)
	}

	return terminals, rows.Err()
}

// GetTerminal returns one terminal scoped to the merchant.
func (d *DB) GetTerminal(ctx context.Context, merchantID, terminalID string) (*models.Terminal, error) {
	t, err := scanTerminal(d.pool.QueryRow(ctx, getTerminalSQL, merchantID, terminalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTerminalNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return t, nil
}

// SnapshotTerminals returns every terminal across merchants, used for the
// in-memory registry warmup at startup.
func (d *DB) SnapshotTerminals(ctx context.Context) ([]*models.Terminal, error) {
	rows, err := d.pool.Query(ctx, snapshotTerminalsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var terminals []*models.Terminal

	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		terminals = append(terminals, t)
	}

	return terminals, rows.Err()
}

// GetTerminalHealth returns the latest reported telemetry, or nil when the
// terminal has never sent a heartbeat.
func (d *DB) GetTerminalHealth(ctx context.Context, terminalID string) (*models.TerminalHealth, error) {
	const q = `
		SELECT uptime, firmware_version, battery, ip, COALESCE(last_heartbeat, 'epoch'::timestamptz)
		FROM terminal_health
		WHERE terminal_id = $1`

	h := &models.TerminalHealth{}

	err := d.pool.QueryRow(ctx, q, terminalID).
		Scan(&h.Uptime, &h.FirmwareVersion, &h.Battery, &h.IP, &h.LastHeartbeat)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return h, nil
}

// GetLiveSession returns the operator session row, or nil when none exists.
func (d *DB) GetLiveSession(ctx context.Context, terminalID string) (*models.LiveSession, error) {
	const q = `
		SELECT staff_name, started_at, idle_time, lock_state
		FROM terminal_sessions
		WHERE terminal_id = $1`

	s := &models.LiveSession{}

	err := d.pool.QueryRow(ctx, q, terminalID).
		Scan(&s.StaffName, &s.StartedAt, &s.IdleTime, &s.LockState)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return s, nil
}

// GetTerminalWalletMapping returns the pairing code and per-chain wallet
// mapping for the detail view.
func (d *DB) GetTerminalWalletMapping(ctx context.Context, terminalID string) (string, map[string]string, error) {
	const q = `SELECT pairing_code, wallet_mapping FROM terminals WHERE id = $1`

	var (
		pairingCode string
		mapping     map[string]string
	)

	err := d.pool.QueryRow(ctx, q, terminalID).Scan(&pairingCode, &mapping)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrTerminalNotFound
		}

		return "", nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return pairingCode, mapping, nil
}

// ApplyHeartbeat persists one heartbeat: terminal row, telemetry and
// operator session move together in a single batch.
func (d *DB) ApplyHeartbeat(ctx context.Context, terminalID string, health *models.TerminalHealth, session *models.LiveSession, lastUser string) error {
	if terminalID == "" {
		return ErrTerminalIDRequired
	}

	batch := &pgx.Batch{}

	batch.Queue(`
		UPDATE terminals
		SET status = CASE WHEN disabled THEN status ELSE 'online' END,
			last_check_in = $2,
			version = COALESCE(NULLIF($3, ''), version),
			last_user = COALESCE(NULLIF($4, ''), last_user)
		WHERE id = $1`,
		terminalID, health.LastHeartbeat, health.FirmwareVersion, lastUser)

	batch.Queue(`
		INSERT INTO terminal_health (terminal_id, uptime, firmware_version, battery, ip, last_heartbeat)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (terminal_id) DO UPDATE SET
			uptime = EXCLUDED.uptime,
			firmware_version = EXCLUDED.firmware_version,
			battery = EXCLUDED.battery,
			ip = EXCLUDED.ip,
			last_heartbeat = EXCLUDED.last_heartbeat
		WHERE terminal_health.last_heartbeat IS NULL
			OR terminal_health.last_heartbeat <= EXCLUDED.last_heartbeat`,
		terminalID, health.Uptime, health.FirmwareVersion, health.Battery, health.IP, health.LastHeartbeat)

	if session != nil {
		batch.Queue(`
			INSERT INTO terminal_sessions (terminal_id, staff_name, started_at, idle_time, lock_state)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (terminal_id) DO UPDATE SET
				staff_name = EXCLUDED.staff_name,
				started_at = EXCLUDED.started_at,
				idle_time = EXCLUDED.idle_time,
				lock_state = EXCLUDED.lock_state`,
			terminalID, session.StaffName, session.StartedAt, session.IdleTime, session.LockState)
	}

	return sendBatchExecAll(ctx, batch, d.pool.SendBatch, "heartbeat")
}

// MarkTerminalsOffline flips terminals whose last heartbeat predates the
// cutoff and returns the ids that changed.
func (d *DB) MarkTerminalsOffline(ctx context.Context, cutoff time.Time) ([]string, error) {
	const q = `
		UPDATE terminals t
		SET status = 'offline'
		FROM terminal_health h
		WHERE h.terminal_id = t.id
			AND t.status = 'online'
			AND (h.last_heartbeat IS NULL OR h.last_heartbeat < $1)
		RETURNING t.id`

	rows, err := d.pool.Query(ctx, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SetTerminalDisabled toggles the administrative override. A disabled
// terminal reports offline regardless of heartbeats.
func (d *DB) SetTerminalDisabled(ctx context.Context, merchantID, terminalID string, disabled bool) error {
	const q = `
		UPDATE terminals
		SET disabled = $3,
			status = CASE WHEN $3 THEN 'offline' ELSE status END
		WHERE merchant_id = $1 AND id = $2`

	tag, err := d.pool.Exec(ctx, q, merchantID, terminalID, disabled)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrTerminalNotFound
	}

	return nil
}
