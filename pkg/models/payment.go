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
	"errors"
	"fmt"
	"time"
)

// PaymentState is the lifecycle state of a terminal's current transaction.
// The blockchain watcher is the only writer of non-administrative
// transitions; PayRadar validates and applies them to the read model.
type PaymentState string

const (
	StateIdle            PaymentState = "idle"
	StateAwaitingPayment PaymentState = "awaiting_payment"
	StateDetected        PaymentState = "detected"
	StateConfirming      PaymentState = "confirming"
	StateConfirmed       PaymentState = "confirmed"
	StateExpired         PaymentState = "expired"
	StateFailed          PaymentState = "failed"
)

var (
	ErrUnknownPaymentState   = errors.New("unknown payment state")
	ErrInvalidTransition     = errors.New("invalid payment state transition")
	ErrConfirmationOverflow  = errors.New("confirmations exceed required confirmations")
	ErrConfirmedMismatch     = errors.New("confirmed state requires confirmations == required confirmations")
	ErrTxHashRequired        = errors.New("tx hash is required from detected onward")
	ErrTxHashNotAllowed      = errors.New("tx hash must be empty before detection")
	ErrTxHashImmutable       = errors.New("tx hash is immutable once set")
	ErrAmountsImmutable      = errors.New("amounts are fixed once the sale has started")
	ErrRequiredConfirmations = errors.New("required confirmations must be positive")
)

// paymentTransitions is the exhaustive transition table. Transitions into
// idle from a settled state represent slot reuse (the next sale replaces the
// transaction instance), not a payment-engine transition.
var paymentTransitions = map[PaymentState][]PaymentState{
	StateIdle:            {StateAwaitingPayment},
	StateAwaitingPayment: {StateDetected, StateExpired},
	StateDetected:        {StateConfirming, StateFailed},
	StateConfirming:      {StateConfirming, StateConfirmed, StateFailed},
	StateConfirmed:       {StateIdle},
	StateExpired:         {StateIdle},
	StateFailed:          {StateIdle},
}

// Valid reports whether s is a member of the state enum.
func (s PaymentState) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// Settled reports whether s ends the payment instance.
func (s PaymentState) Settled() bool {
	return s == StateConfirmed || s == StateExpired || s == StateFailed
}

// Pending reports whether s counts as an in-flight payment.
func (s PaymentState) Pending() bool {
	return s == StateAwaitingPayment || s == StateDetected || s == StateConfirming
}

// ValidTransition reports whether from -> to is allowed by the lifecycle.
// A confirming -> confirming self-transition carries a confirmation
// increment.
func ValidTransition(from, to PaymentState) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// CurrentTransaction is the payment state machine instance owned by a
// terminal. Exactly one instance exists per terminal at a time; idle means
// the slot is free for the next sale.
type CurrentTransaction struct {
	State                 PaymentState `json:"state"`
	FiatAmount            float64      `json:"fiat_amount,omitempty"`
	FiatCurrency          string       `json:"fiat_currency,omitempty"`
	CryptoAmount          float64      `json:"crypto_amount,omitempty"`
	CryptoCurrency        string       `json:"crypto_currency,omitempty"`
	Chain                 string       `json:"chain,omitempty"`
	TxHash                string       `json:"tx_hash,omitempty"`
	Confirmations         int          `json:"confirmations,omitempty"`
	RequiredConfirmations int          `json:"required_confirmations,omitempty"`
	StartedAt             time.Time    `json:"started_at,omitempty"`
	UpdatedAt             time.Time    `json:"updated_at,omitempty"`
}

// Validate checks the structural invariants that must hold for every
// transaction snapshot regardless of how it was produced.
func (t *CurrentTransaction) Validate() error {
	if !t.State.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPaymentState, t.State)
	}

	if t.Confirmations > t.RequiredConfirmations {
		return ErrConfirmationOverflow
	}

	if t.State == StateConfirmed && t.Confirmations != t.RequiredConfirmations {
		return ErrConfirmedMismatch
	}

	switch t.State {
	case StateIdle, StateAwaitingPayment:
		if t.TxHash != "" {
			return ErrTxHashNotAllowed
		}
	case StateDetected, StateConfirming, StateConfirmed, StateFailed:
		if t.TxHash == "" {
			return ErrTxHashRequired
		}
	case StateExpired:
		// expired means no payment was ever seen; hash stays empty
		if t.TxHash != "" {
			return ErrTxHashNotAllowed
		}
	}

	return nil
}

// Advance validates next as a successor snapshot of t and returns the
// snapshot that should replace t. Amounts are frozen once the sale leaves
// idle, and the tx hash is immutable once set.
func (t *CurrentTransaction) Advance(next *CurrentTransaction) (*CurrentTransaction, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if !ValidTransition(t.State, next.State) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, next.State)
	}

	if t.TxHash != "" && next.State != StateIdle && next.TxHash != t.TxHash {
		return nil, ErrTxHashImmutable
	}

	if t.State != StateIdle && next.State != StateIdle {
		if next.FiatAmount != t.FiatAmount || next.CryptoAmount != t.CryptoAmount {
			return nil, ErrAmountsImmutable
		}
	}

	if next.State == StateIdle {
		// Slot reset: the settled instance is replaced by an empty one.
		return &CurrentTransaction{State: StateIdle, UpdatedAt: next.UpdatedAt}, nil
	}

	out := *next
	if out.StartedAt.IsZero() {
		out.StartedAt = t.StartedAt
	}

	return &out, nil
}

// NewIdleTransaction returns the empty slot placeholder.
func NewIdleTransaction() *CurrentTransaction {
	return &CurrentTransaction{State: StateIdle}
}
