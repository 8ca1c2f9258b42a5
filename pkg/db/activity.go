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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/payradar/pkg/models"
)

const insertActivitySQL = `
	INSERT INTO activity_log (id, terminal_id, merchant_id, ts, action, actor, result, details)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const listActivitySQL = `
	SELECT id, terminal_id, merchant_id, ts, action, actor, result, details
	FROM activity_log
	WHERE merchant_id = $1 AND terminal_id = $2
	ORDER BY seq DESC
	LIMIT $3`

// AddActivity appends one entry to the terminal's audit ledger. Entries are
// append-only; there is no update or delete path.
func (d *DB) AddActivity(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry == nil {
		return ErrActivityEntryNil
	}

	if entry.TerminalID == "" {
		return ErrTerminalIDRequired
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := d.pool.Exec(ctx, insertActivitySQL,
		entry.ID, entry.TerminalID, entry.MerchantID, entry.Timestamp,
		entry.Action, entry.User, entry.Result, entry.Details)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

// ListActivity returns the terminal's most recent ledger entries,
// most-recent-first.
func (d *DB) ListActivity(ctx context.Context, merchantID, terminalID string, limit int) ([]models.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = models.DefaultActivityLimit
	}

	rows, err := d.pool.Query(ctx, listActivitySQL, merchantID, terminalID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var entries []models.ActivityLogEntry

	for rows.Next() {
		var e models.ActivityLogEntry

		err := rows.Scan(&e.ID, &e.TerminalID, &e.MerchantID, &e.Timestamp,
			&e.Action, &e.User, &e.Result, &e.Details)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
