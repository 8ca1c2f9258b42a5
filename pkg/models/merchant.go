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

// TransactionStatus is the settlement status of a completed sale record.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is a historical sale row, written once the payment instance
// settles. Distinct from CurrentTransaction, which is the live slot.
type Transaction struct {
	ID                  string            `json:"id"`
	MerchantID          string            `json:"merchant_id"`
	TerminalID          string            `json:"terminal_id"`
	LocationID          string            `json:"location_id"`
	Status              TransactionStatus `json:"status"`
	AmountFiat          float64           `json:"amount_fiat"`
	FiatCurrency        string            `json:"fiat_currency"`
	AmountCrypto        float64           `json:"amount_crypto"`
	CryptoCurrency      string            `json:"crypto_currency"`
	Chain               string            `json:"chain"`
	TxHash              string            `json:"tx_hash,omitempty"`
	OperatorName        string            `json:"operator_name,omitempty"`
	AutomationTriggered bool              `json:"automation_triggered"`
	// Wall-clock time from detection to final confirmation; used for the
	// per-chain average confirmation stat.
	ConfirmationSeconds int       `json:"confirmation_seconds,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	ConfirmedAt         time.Time `json:"confirmed_at,omitempty"`
}

// TransactionPage is a paginated slice of the merchant's transaction history.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	TotalCount   int           `json:"total_count"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
}

// StaffStatus is the lifecycle status of a staff account.
type StaffStatus string

const (
	StaffActive   StaffStatus = "active"
	StaffInactive StaffStatus = "inactive"
)

// StaffUser is a merchant staff member. PINHash is a bcrypt hash of the
// terminal sign-in PIN and is never serialized.
type StaffUser struct {
	ID         string      `json:"id"`
	MerchantID string      `json:"merchant_id"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	Role       string      `json:"role"`
	Status     StaffStatus `json:"status"`
	Approved   bool        `json:"approved"`
	PINHash    string      `json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at,omitempty"`
}

// Automation is a stored balance-threshold rule. PayRadar stores and lists
// rules; the condition evaluation engine lives outside this service.
type Automation struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	Name       string    `json:"name"`
	Currency   string    `json:"currency"`
	Condition  string    `json:"condition"`
	Threshold  float64   `json:"threshold"`
	Action     string    `json:"action"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// MerchantWallet groups the per-chain settlement addresses for a merchant.
type MerchantWallet struct {
	WalletID   string          `json:"wallet_id"`
	MerchantID string          `json:"merchant_id"`
	CustodyID  string          `json:"custody_id,omitempty"`
	Addresses  []WalletAddress `json:"addresses"`
	CreatedAt  time.Time       `json:"created_at"`
}

// WalletAddress is one settlement address on a specific chain. Verification
// records a signature proving control of the address; the signature itself
// is validated by the custody provider, not here.
type WalletAddress struct {
	AddressID             string     `json:"address_id"`
	WalletID              string     `json:"wallet_id"`
	Blockchain            string     `json:"blockchain"`
	Address               string     `json:"address"`
	IsVerified            bool       `json:"is_verified"`
	VerificationSignature string     `json:"verification_signature,omitempty"`
	VerifiedAt            *time.Time `json:"verified_at,omitempty"`
}

// DashboardStats is the merchant overview card payload.
type DashboardStats struct {
	TotalRevenue         float64 `json:"total_revenue"`
	PendingTransactions  int     `json:"pending_transactions"`
	AutomationsTriggered int     `json:"automations_triggered"`
	ActiveTerminals      int     `json:"active_terminals"`
}
