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

const listAutomationsSQL = `
	SELECT id, merchant_id, name, currency, condition, threshold, action, enabled, created_at
	FROM automations
	WHERE merchant_id = $1
	ORDER BY created_at DESC`

const createAutomationSQL = `
	INSERT INTO automations (id, merchant_id, name, currency, condition, threshold, action, enabled, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// ListAutomations returns the merchant's stored balance rules.
func (d *DB) ListAutomations(ctx context.Context, merchantID string) ([]*models.Automation, error) {
	rows, err := d.pool.Query(ctx, listAutomationsSQL, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var automations []*models.Automation

	for rows.Next() {
		a := &models.Automation{}

		err := rows.Scan(&a.ID, &a.MerchantID, &a.Name, &a.Currency, &a.Condition,
			&a.Threshold, &a.Action, &a.Enabled, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		automations = append(automations, a)
	}

	return automations, rows.Err()
}

// CreateAutomation stores a new rule, enabled by default.
func (d *DB) CreateAutomation(ctx context.Context, automation *models.Automation) error {
	if automation.MerchantID == "" {
		return ErrMerchantIDRequired
	}

	if automation.ID == "" {
		automation.ID = uuid.New().String()
	}

	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = time.Now()
	}

	_, err := d.pool.Exec(ctx, createAutomationSQL,
		automation.ID, automation.MerchantID, automation.Name, automation.Currency,
		automation.Condition, automation.Threshold, automation.Action,
		automation.Enabled, automation.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

// SetAutomationEnabled toggles a rule without touching its definition.
func (d *DB) SetAutomationEnabled(ctx context.Context, merchantID, automationID string, enabled bool) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE automations SET enabled = $3 WHERE merchant_id = $1 AND id = $2`,
		merchantID, automationID, enabled)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAutomationNotFound
	}

	return nil
}

// DeleteAutomation removes a rule.
func (d *DB) DeleteAutomation(ctx context.Context, merchantID, automationID string) error {
	tag, err := d.pool.Exec(ctx,
		`DELETE FROM automations WHERE merchant_id = $1 AND id = $2`,
		merchantID, automationID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAutomationNotFound
	}

	return nil
}
