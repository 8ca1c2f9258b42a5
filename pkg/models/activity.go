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

import "time"

// Activity actions form a closed set. Operator commands and payment
// milestones append entries; confirmation increments and slot resets do not.
const (
	ActionSaleStarted      = "Sale Started"
	ActionPaymentReceived  = "Payment Received"
	ActionPaymentConfirmed = "Payment Confirmed"
	ActionPaymentExpired   = "Payment Expired"
	ActionPaymentFailed    = "Payment Failed"
	ActionRefundProcessed  = "Refund Processed"
	ActionReceiptResent    = "Receipt Resent"
	ActionTerminalDisabled = "Terminal Disabled"
	ActionTerminalEnabled  = "Terminal Enabled"
)

// ActivityResult is the outcome recorded with a ledger entry.
type ActivityResult string

const (
	ResultSuccess ActivityResult = "success"
	ResultFailure ActivityResult = "failure"
)

// ActivityLogEntry is one record in a terminal's append-only audit ledger.
// Entries are totally ordered by insertion and surfaced most-recent-first;
// they are never mutated or deleted.
type ActivityLogEntry struct {
	ID         string         `json:"id"`
	TerminalID string         `json:"terminal_id"`
	MerchantID string         `json:"merchant_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action" example:"Refund Processed"`
	User       string         `json:"user"`
	Result     ActivityResult `json:"result" example:"success"`
	Details    string         `json:"details,omitempty"`
}

// CommandRecord is the audit row for an operator-issued command. The
// idempotency key lets the upstream command handler apply at most once per
// (terminal, tx hash, key).
type CommandRecord struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	MerchantID     string    `json:"merchant_id"`
	TerminalID     string    `json:"terminal_id"`
	Command        string    `json:"command"`
	TxHash         string    `json:"tx_hash,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	IssuedBy       string    `json:"issued_by"`
	IssuedAt       time.Time `json:"issued_at"`
}
