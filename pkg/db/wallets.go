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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carverauto/payradar/pkg/models"
)

const getMerchantWalletSQL = `
	SELECT wallet_id, merchant_id, custody_id, created_at
	FROM merchant_wallets
	WHERE merchant_id = $1`

const listWalletAddressesSQL = `
	SELECT address_id, wallet_id, blockchain, address, is_verified,
		verification_signature, verified_at
	FROM wallet_addresses
	WHERE wallet_id = $1
	ORDER BY blockchain`

// GetMerchantWallet returns the merchant's wallet with its addresses.
func (d *DB) GetMerchantWallet(ctx context.Context, merchantID string) (*models.MerchantWallet, error) {
	w := &models.MerchantWallet{}

	err := d.pool.QueryRow(ctx, getMerchantWalletSQL, merchantID).
		Scan(&w.WalletID, &w.MerchantID, &w.CustodyID, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	rows, err := d.pool.Query(ctx, listWalletAddressesSQL, w.WalletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.WalletAddress

		err := rows.Scan(&a.AddressID, &a.WalletID, &a.Blockchain, &a.Address,
			&a.IsVerified, &a.VerificationSignature, &a.VerifiedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		w.Addresses = append(w.Addresses, a)
	}

	return w, rows.Err()
}

// CreateMerchantWallet inserts the merchant's wallet container row.
func (d *DB) CreateMerchantWallet(ctx context.Context, wallet *models.MerchantWallet) error {
	if wallet.MerchantID == "" {
		return ErrMerchantIDRequired
	}

	if wallet.WalletID == "" {
		wallet.WalletID = uuid.New().String()
	}

	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = time.Now()
	}

	_, err := d.pool.Exec(ctx,
		`INSERT INTO merchant_wallets (wallet_id, merchant_id, custody_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		wallet.WalletID, wallet.MerchantID, wallet.CustodyID, wallet.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

// AddWalletAddress attaches a settlement address to the merchant's wallet.
// New addresses start unverified.
func (d *DB) AddWalletAddress(ctx context.Context, merchantID string, addr *models.WalletAddress) error {
	if addr.WalletID == "" {
		wallet, err := d.GetMerchantWallet(ctx, merchantID)
		if err != nil {
			return err
		}

		addr.WalletID = wallet.WalletID
	}

	if addr.AddressID == "" {
		addr.AddressID = uuid.New().String()
	}

	addr.IsVerified = false

	_, err := d.pool.Exec(ctx,
		`INSERT INTO wallet_addresses (address_id, wallet_id, blockchain, address, is_verified)
		VALUES ($1, $2, $3, $4, false)`,
		addr.AddressID, addr.WalletID, addr.Blockchain, addr.Address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

// VerifyWalletAddress records the control-proof signature for an address.
// The join to merchant_wallets keeps the write merchant-scoped.
func (d *DB) VerifyWalletAddress(ctx context.Context, merchantID, addressID, signature string) error {
	const q = `
		UPDATE wallet_addresses a
		SET is_verified = true,
			verification_signature = $3,
			verified_at = now()
		FROM merchant_wallets w
		WHERE a.wallet_id = w.wallet_id
			AND w.merchant_id = $1
			AND a.address_id = $2`

	tag, err := d.pool.Exec(ctx, q, merchantID, addressID, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAddressNotFound
	}

	return nil
}
