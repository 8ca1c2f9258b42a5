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

const recordCommandSQL = `
	INSERT INTO command_log (id, idempotency_key, merchant_id, terminal_id,
		command, tx_hash, reason, issued_by, issued_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (idempotency_key) DO NOTHING`

// RecordCommand writes the audit row for an operator command. The second
// return value is false when the idempotency key was already recorded, which
// tells the caller to skip re-dispatching the command upstream.
func (d *DB) RecordCommand(ctx context.Context, rec *models.CommandRecord) (bool, error) {
	if rec == nil {
		return false, ErrCommandNil
	}

	if rec.IdempotencyKey == "" {
		return false, ErrIdempotencyKeyNeeded
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = time.Now()
	}

	tag, err := d.pool.Exec(ctx, recordCommandSQL,
		rec.ID, rec.IdempotencyKey, rec.MerchantID, rec.TerminalID,
		rec.Command, rec.TxHash, rec.Reason, rec.IssuedBy, rec.IssuedAt)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return tag.RowsAffected() > 0, nil
}
