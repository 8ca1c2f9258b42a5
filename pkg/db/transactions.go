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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carverauto/payradar/pkg/models"
)

const transactionColumns = `
	id, merchant_id, terminal_id, location_id, status, amount_fiat,
	fiat_currency, amount_crypto, crypto_currency, chain, tx_hash,
	operator_name, automation_triggered, confirmation_seconds, created_at,
	COALESCE(confirmed_at, 'epoch'::timestamptz)`

const insertTransactionSQL = `
	INSERT INTO transactions (
		id, merchant_id, terminal_id, location_id, status, amount_fiat,
		fiat_currency, amount_crypto, crypto_currency, chain, tx_hash,
		operator_name, automation_triggered, confirmation_seconds, created_at,
		confirmed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const listTransactionsSQL = `
	SELECT` + transactionColumns + `
	FROM transactions
	WHERE merchant_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

const countTransactionsSQL = `SELECT COUNT(*) FROM transactions WHERE merchant_id = $1`

const getTransactionByHashSQL = `
	SELECT` + transactionColumns + `
	FROM transactions
	WHERE merchant_id = $1 AND tx_hash = $2
	ORDER BY created_at DESC
	LIMIT 1`

const confirmationSamplesSQL = `
	SELECT location_id, chain, confirmation_seconds
	FROM (
		SELECT t.location_id, t.chain, t.confirmation_seconds,
			row_number() OVER (PARTITION BY t.location_id, t.chain ORDER BY t.confirmed_at DESC) AS rn
		FROM transactions t
		WHERE t.status = 'completed' AND t.confirmation_seconds > 0
	) s
	WHERE rn <= $1`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}

	err := row.Scan(&tx.ID, &tx.MerchantID, &tx.TerminalID, &tx.LocationID, &tx.Status,
		&tx.AmountFiat, &tx.FiatCurrency, &tx.AmountCrypto, &tx.CryptoCurrency,
		&tx.Chain, &tx.TxHash, &tx.OperatorName, &tx.AutomationTriggered,
		&tx.ConfirmationSeconds, &tx.CreatedAt, &tx.ConfirmedAt)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// InsertTransaction writes one settled sale into the history table.
func (d *DB) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return ErrTransactionNil
	}

	if tx.MerchantID == "" {
		return ErrMerchantIDRequired
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	_, err := d.pool.Exec(ctx, insertTransactionSQL,
		tx.ID, tx.MerchantID, tx.TerminalID, tx.LocationID, tx.Status,
		tx.AmountFiat, tx.FiatCurrency, tx.AmountCrypto, tx.CryptoCurrency,
		tx.Chain, tx.TxHash, tx.OperatorName, tx.AutomationTriggered,
		tx.ConfirmationSeconds, tx.CreatedAt, tx.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

// ListTransactions returns one page of the merchant's sale history,
// newest first.
func (d *DB) ListTransactions(ctx context.Context, merchantID string, page, pageSize int) (*models.TransactionPage, error) {
	if page < 1 {
		page = 1
	}

	if pageSize <= 0 {
		pageSize = 25
	}

	var total int
	if err := d.pool.QueryRow(ctx, countTransactionsSQL, merchantID).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	rows, err := d.pool.Query(ctx, listTransactionsSQL, merchantID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	out := &models.TransactionPage{
		Page:       page,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out.Transactions = append(out.Transactions, *tx)
	}

	return out, rows.Err()
}

// GetTransactionByHash finds the merchant's sale for one on-chain hash.
func (d *DB) GetTransactionByHash(ctx context.Context, merchantID, txHash string) (*models.Transaction, error) {
	tx, err := scanTransaction(d.pool.QueryRow(ctx, getTransactionByHashSQL, merchantID, txHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return tx, nil
}

// MarkTransactionRefunded flips a completed sale to refunded.
func (d *DB) MarkTransactionRefunded(ctx context.Context, merchantID, txHash string) error {
	const q = `
		UPDATE transactions
		SET status = 'refunded'
		WHERE merchant_id = $1 AND tx_hash = $2 AND status = 'completed'`

	tag, err := d.pool.Exec(ctx, q, merchantID, txHash)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// ConfirmationSamples returns, per location and chain, the trailing
// sampleSize confirmed sales' detection-to-confirmation timings.
func (d *DB) ConfirmationSamples(ctx context.Context, sampleSize int) ([]ConfirmationSample, error) {
	if sampleSize <= 0 {
		sampleSize = models.DefaultConfirmationSampleSize
	}

	rows, err := d.pool.Query(ctx, confirmationSamplesSQL, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var samples []ConfirmationSample

	for rows.Next() {
		var s ConfirmationSample
		if err := rows.Scan(&s.LocationID, &s.Chain, &s.Seconds); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// DashboardStats computes the merchant overview card in one round trip.
// Revenue covers the trailing 30 days of completed sales.
func (d *DB) DashboardStats(ctx context.Context, merchantID string) (*models.DashboardStats, error) {
	const q = `
		SELECT
			COALESCE((SELECT SUM(amount_fiat) FROM transactions
				WHERE merchant_id = $1 AND status = 'completed'
				AND created_at > now() - interval '30 days'), 0),
			(SELECT COUNT(*) FROM transactions
				WHERE merchant_id = $1 AND status = 'pending'),
			(SELECT COUNT(*) FROM transactions
				WHERE merchant_id = $1 AND automation_triggered),
			(SELECT COUNT(*) FROM terminals
				WHERE merchant_id = $1 AND status = 'online')`

	stats := &models.DashboardStats{}

	err := d.pool.QueryRow(ctx, q, merchantID).Scan(
		&stats.TotalRevenue, &stats.PendingTransactions,
		&stats.AutomationsTriggered, &stats.ActiveTerminals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return stats, nil
}
