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

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from PaymentState
		to   PaymentState
		want bool
	}{
		{"idle to awaiting", StateIdle, StateAwaitingPayment, true},
		{"awaiting to detected", StateAwaitingPayment, StateDetected, true},
		{"awaiting to expired", StateAwaitingPayment, StateExpired, true},
		{"detected to confirming", StateDetected, StateConfirming, true},
		{"detected to failed", StateDetected, StateFailed, true},
		{"confirming increments", StateConfirming, StateConfirming, true},
		{"confirming to confirmed", StateConfirming, StateConfirmed, true},
		{"confirming to failed", StateConfirming, StateFailed, true},
		{"confirmed slot reuse", StateConfirmed, StateIdle, true},
		{"expired slot reuse", StateExpired, StateIdle, true},
		{"failed slot reuse", StateFailed, StateIdle, true},
		{"no skipping detection", StateAwaitingPayment, StateConfirming, false},
		{"no direct confirm", StateDetected, StateConfirmed, false},
		{"no backwards", StateConfirmed, StateConfirming, false},
		{"no idle to detected", StateIdle, StateDetected, false},
		{"no expired revival", StateExpired, StateDetected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to))
		})
	}
}

func TestCurrentTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		tx      CurrentTransaction
		wantErr error
	}{
		{
			name: "idle empty slot",
			tx:   CurrentTransaction{State: StateIdle},
		},
		{
			name: "confirming in range",
			tx: CurrentTransaction{
				State: StateConfirming, TxHash: "abc",
				Confirmations: 2, RequiredConfirmations: 6,
			},
		},
		{
			name: "confirmations never exceed required",
			tx: CurrentTransaction{
				State: StateConfirming, TxHash: "abc",
				Confirmations: 7, RequiredConfirmations: 6,
			},
			wantErr: ErrConfirmationOverflow,
		},
		{
			name: "confirmed iff fully confirmed",
			tx: CurrentTransaction{
				State: StateConfirmed, TxHash: "abc",
				Confirmations: 5, RequiredConfirmations: 6,
			},
			wantErr: ErrConfirmedMismatch,
		},
		{
			name: "awaiting payment never carries a hash",
			tx: CurrentTransaction{
				State: StateAwaitingPayment, TxHash: "abc",
				RequiredConfirmations: 6,
			},
			wantErr: ErrTxHashNotAllowed,
		},
		{
			name: "detected requires a hash",
			tx: CurrentTransaction{
				State: StateDetected, RequiredConfirmations: 6,
			},
			wantErr: ErrTxHashRequired,
		},
		{
			name: "expired saw no payment",
			tx: CurrentTransaction{
				State: StateExpired, TxHash: "abc",
			},
			wantErr: ErrTxHashNotAllowed,
		},
		{
			name:    "unknown state",
			tx:      CurrentTransaction{State: PaymentState("settling")},
			wantErr: ErrUnknownPaymentState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdvanceFreezesAmounts(t *testing.T) {
	cur := &CurrentTransaction{
		State: StateDetected, TxHash: "abc",
		FiatAmount: 250, FiatCurrency: "USD",
		CryptoAmount: 0.00425, CryptoCurrency: "BTC",
		Confirmations: 0, RequiredConfirmations: 6,
	}

	next := *cur
	next.State = StateConfirming
	next.Confirmations = 1
	next.CryptoAmount = 0.005 // re-quote mid-flight is not allowed

	_, err := cur.Advance(&next)
	require.ErrorIs(t, err, ErrAmountsImmutable)
}

func TestAdvanceRejectsHashMutation(t *testing.T) {
	cur := &CurrentTransaction{
		State: StateConfirming, TxHash: "abc",
		Confirmations: 1, RequiredConfirmations: 6,
	}

	next := *cur
	next.TxHash = "def"
	next.Confirmations = 2

	_, err := cur.Advance(&next)
	require.ErrorIs(t, err, ErrTxHashImmutable)
}

func TestAdvanceSlotReset(t *testing.T) {
	cur := &CurrentTransaction{
		State: StateConfirmed, TxHash: "xyz",
		FiatAmount: 175, CryptoAmount: 0.15,
		Confirmations: 6, RequiredConfirmations: 6,
	}

	out, err := cur.Advance(&CurrentTransaction{State: StateIdle})
	require.NoError(t, err)

	assert.Equal(t, StateIdle, out.State)
	assert.Empty(t, out.TxHash)
	assert.Zero(t, out.FiatAmount)
	assert.Zero(t, out.Confirmations)
}

func TestAdvanceRejectsSkippedDetection(t *testing.T) {
	cur := &CurrentTransaction{State: StateAwaitingPayment, RequiredConfirmations: 6}

	next := &CurrentTransaction{
		State: StateConfirming, TxHash: "abc",
		Confirmations: 1, RequiredConfirmations: 6,
	}

	_, err := cur.Advance(next)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
