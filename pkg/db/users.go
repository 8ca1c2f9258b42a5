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

const staffColumns = `
	id, merchant_id, name, email, role, status, approved, pin_hash,
	created_at, COALESCE(updated_at, 'epoch'::timestamptz)`

const listStaffSQL = `
	SELECT` + staffColumns + `
	FROM users
	WHERE merchant_id = $1
	ORDER BY name`

const getStaffSQL = `
	SELECT` + staffColumns + `
	FROM users
	WHERE merchant_id = $1 AND id = $2`

const createStaffSQL = `
	INSERT INTO users (id, merchant_id, name, email, role, status, approved, pin_hash, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const updateStaffSQL = `
	UPDATE users
	SET name = $3, email = $4, role = $5, status = $6, approved = $7,
		pin_hash = $8, updated_at = $9
	WHERE merchant_id = $1 AND id = $2`

func scanStaff(row pgx.Row) (*models.StaffUser, error) {
	u := &models.StaffUser{}

	err := row.Scan(&u.ID, &u.MerchantID, &u.Name, &u.Email, &u.Role, &u.Status,
		&u.Approved, &u.PINHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return u, nil
}

// ListStaff returns the merchant's staff accounts.
func (d *DB) ListStaff(ctx context.Context, merchantID string) ([]*models.StaffUser, error) {
	rows, err := d.pool.Query(ctx, listStaffSQL, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var users []*models.StaffUser

	for rows.Next() {
		u, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		users = append(users, u)
	}

	return users, rows.Err()
}

// GetStaff returns one staff account scoped to the merchant.
func (d *DB) GetStaff(ctx context.Context, merchantID, staffID string) (*models.StaffUser, error) {
	u, err := scanStaff(d.pool.QueryRow(ctx, getStaffSQL, merchantID, staffID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return u, nil
}

// CreateStaff inserts a new staff account. PINHash must already be a bcrypt
// hash; raw PINs never reach this layer.
func (d *DB) CreateStaff(ctx context.Context, user *models.StaffUser) error {
	if user.MerchantID == "" {
		return ErrMerchantIDRequired
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := d.pool.Exec(ctx, createStaffSQL,
		user.ID, user.MerchantID, user.Name, user.Email, user.Role,
		user.Status, user.Approved, user.PINHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

// UpdateStaff rewrites the mutable fields of a staff account.
func (d *DB) UpdateStaff(ctx context.Context, user *models.StaffUser) error {
	tag, err := d.pool.Exec(ctx, updateStaffSQL,
		user.MerchantID, user.ID, user.Name, user.Email, user.Role,
		user.Status, user.Approved, user.PINHash, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}

	return nil
}

// DeleteStaff removes a staff account.
func (d *DB) DeleteStaff(ctx context.Context, merchantID, staffID string) error {
	tag, err := d.pool.Exec(ctx,
		`DELETE FROM users WHERE merchant_id = $1 AND id = $2`, merchantID, staffID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}

	return nil
}
