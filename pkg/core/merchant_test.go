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

package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/payradar/pkg/models"
)

func TestCreateStaffHashesPIN(t *testing.T) {
	fake := newFakeDB()
	s := newTestServer(fake)
	ctx := context.Background()

	user, err := s.CreateStaff(ctx, merchantCaller(), &models.CreateStaffRequest{
		Name: "Alex Johnson",
		PIN:  "4821",
	})
	require.NoError(t, err)

	assert.Equal(t, "m1", user.MerchantID)
	assert.Equal(t, "staff", user.Role, "role defaults to staff")
	assert.Equal(t, models.StaffActive, user.Status)
	assert.NotEmpty(t, user.PINHash)
	assert.NotEqual(t, "4821", user.PINHash, "the raw pin is never stored")

	ok, err := s.VerifyStaffPIN(ctx, merchantCaller(), user.ID, "4821")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyStaffPIN(ctx, merchantCaller(), user.ID, "0000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateStaffRejectsShortPIN(t *testing.T) {
	s := newTestServer(newFakeDB())

	_, err := s.CreateStaff(context.Background(), merchantCaller(), &models.CreateStaffRequest{
		Name: "Alex Johnson",
		PIN:  "12",
	})
	require.ErrorIs(t, err, errPINTooShort)
}

func TestCreateStaffForbiddenForStaff(t *testing.T) {
	s := newTestServer(newFakeDB())

	_, err := s.CreateStaff(context.Background(), staffCaller(), &models.CreateStaffRequest{
		Name: "Alex Johnson",
		PIN:  "4821",
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateStaffPatchesFields(t *testing.T) {
	fake := newFakeDB()
	s := newTestServer(fake)
	ctx := context.Background()

	user, err := s.CreateStaff(ctx, merchantCaller(), &models.CreateStaffRequest{Name: "Alex Johnson", PIN: "4821"})
	require.NoError(t, err)

	name := "Alex J."
	status := string(models.StaffInactive)

	updated, err := s.UpdateStaff(ctx, merchantCaller(), user.ID, &models.UpdateStaffRequest{
		Name:   &name,
		Status: &status,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alex J.", updated.Name)
	assert.Equal(t, models.StaffInactive, updated.Status)
	assert.Equal(t, user.PINHash, updated.PINHash, "nil pin leaves the hash unchanged")
}

func TestCreateAutomationDefaultsEnabled(t *testing.T) {
	fake := newFakeDB()
	s := newTestServer(fake)
	ctx := context.Background()

	automation, err := s.CreateAutomation(ctx, merchantCaller(), &models.CreateAutomationRequest{
		Name:      "BTC sweep",
		Currency:  "BTC",
		Condition: "balance_above",
		Threshold: 0.5,
		Action:    "convert_to_usdc",
	})
	require.NoError(t, err)
	assert.True(t, automation.Enabled)

	require.NoError(t, s.SetAutomationEnabled(ctx, merchantCaller(), automation.ID, false))

	listed, err := s.ListAutomations(ctx, merchantCaller())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].Enabled)
}

func TestAutomationMutationsForbiddenForStaff(t *testing.T) {
	s := newTestServer(newFakeDB())

	_, err := s.CreateAutomation(context.Background(), staffCaller(), &models.CreateAutomationRequest{Name: "BTC sweep"})
	require.ErrorIs(t, err, ErrUnauthorized)

	err = s.DeleteAutomation(context.Background(), staffCaller(), "auto-1")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAddWalletAddressStartsUnverified(t *testing.T) {
	fake := newFakeDB()
	require.NoError(t, fake.CreateMerchantWallet(context.Background(), &models.MerchantWallet{
		MerchantID: "m1",
		CreatedAt:  time.Now(),
	}))

	s := newTestServer(fake)
	ctx := context.Background()

	addr, err := s.AddWalletAddress(ctx, merchantCaller(), &models.AddWalletAddressRequest{
		Blockchain: "Bitcoin",
		Address:    "3FZbgi29cpjq2GjdwV8eyHuJJnkLtktZc5",
	})
	require.NoError(t, err)
	assert.False(t, addr.IsVerified)

	require.NoError(t, s.VerifyWalletAddress(ctx, merchantCaller(), addr.AddressID, "sig-1"))

	wallet, err := s.GetWallet(ctx, merchantCaller())
	require.NoError(t, err)
	require.Len(t, wallet.Addresses, 1)
	assert.True(t, wallet.Addresses[0].IsVerified)
	assert.Equal(t, "sig-1", wallet.Addresses[0].VerificationSignature)
}

func TestListTransactionsScopedToCaller(t *testing.T) {
	fake := newFakeDB()
	fake.transactions = append(fake.transactions,
		&models.Transaction{ID: "tx-1", MerchantID: "m1", TxHash: "aaa", Status: models.TransactionCompleted},
		&models.Transaction{ID: "tx-2", MerchantID: "m2", TxHash: "bbb", Status: models.TransactionCompleted},
	)

	s := newTestServer(fake)

	page, err := s.ListTransactions(context.Background(), merchantCaller(), 1, 25)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "tx-1", page.Transactions[0].ID)
}
