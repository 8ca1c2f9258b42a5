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

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/payradar/pkg/models"
)

const getCurrentTransactionSQL = `
	SELECT state, fiat_amount, fiat_currency, crypto_amount, crypto_currency,
		chain, tx_hash, confirmations, required_confirmations,
		COALESCE(started_at, 'epoch'::timestamptz), updated_at
	FROM current_transactions
	WHERE terminal_id = $1`

const saveCurrentTransactionSQL = `
	INSERT INTO current_transactions (
		terminal_id, state, fiat_amount, fiat_currency, crypto_amount,
		crypto_currency, chain, tx_hash, confirmations, required_confirmations,
		started_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (terminal_id) DO UPDATE SET
		state = EXCLUDED.state,
		fiat_amount = EXCLUDED.fiat_amount,
		fiat_currency = EXCLUDED.fiat_currency,
		crypto_amount = EXCLUDED.crypto_amount,
		crypto_currency = EXCLUDED.crypto_currency,
		chain = EXCLUDED.chain,
		tx_hash = EXCLUDED.tx_hash,
		confirmations = EXCLUDED.confirmations,
		required_confirmations = EXCLUDED.required_confirmations,
		started_at = EXCLUDED.started_at,
		updated_at = EXCLUDED.updated_at`

// GetCurrentTransaction returns the terminal's live payment slot. A missing
// row reads as an idle slot.
func (d *DB) GetCurrentTransaction(ctx context.Context, terminalID string) (*models.CurrentTransaction, error) {
	tx := &models.CurrentTransaction{}

	err := d.pool.QueryRow(ctx, getCurrentTransactionSQL, terminalID).Scan(
		&tx.State, &tx.FiatAmount, &tx.FiatCurrency, &tx.CryptoAmount, &tx.CryptoCurrency,
		&tx.Chain, &tx.TxHash, &tx.Confirmations, &tx.RequiredConfirmations,
		&tx.StartedAt, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NewIdleTransaction(), nil
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return tx, nil
}

// SaveCurrentTransaction upserts the terminal's live payment slot. Callers
// validate the transition before persisting; this is the "persist" half of
// persist-then-apply.
func (d *DB) SaveCurrentTransaction(ctx context.Context, terminalID string, tx *models.CurrentTransaction) error {
	if terminalID == "" {
		return ErrTerminalIDRequired
	}

	if tx == nil {
		return ErrTransactionNil
	}

	_, err := d.pool.Exec(ctx, saveCurrentTransactionSQL,
		terminalID, tx.State, tx.FiatAmount, tx.FiatCurrency, tx.CryptoAmount,
		tx.CryptoCurrency, tx.Chain, tx.TxHash, tx.Confirmations, tx.RequiredConfirmations,
		tx.StartedAt, tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}
