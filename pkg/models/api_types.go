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

// Package models pkg/models/api_types.go
package models

// ErrorResponse represents an API error response.
// @Description Error information returned from the API.
type ErrorResponse struct {
	// Error message
	Message string `json:"message" example:"Invalid request parameters"`
	// HTTP status code
	Status int `json:"status" example:"400"`
}

// RefundRequest is the body for the refund command.
// @Description Operator-issued refund of the terminal's confirmed transaction.
type RefundRequest struct {
	TxHash string `json:"tx_hash" example:"3a1b2c3d4e5f"`
	// Reason is required and preserved verbatim in the activity ledger
	Reason string `json:"reason" example:"duplicate charge"`
}

// ResendReceiptRequest is the body for the resend-receipt command.
type ResendReceiptRequest struct {
	TxHash string `json:"tx_hash" example:"3a1b2c3d4e5f"`
}

// CreateStaffRequest creates a staff member with a terminal sign-in PIN.
type CreateStaffRequest struct {
	Name  string `json:"name" example:"Alex Johnson"`
	Email string `json:"email,omitempty" example:"alex@example.com"`
	Role  string `json:"role" example:"staff"`
	PIN   string `json:"pin" example:"4821"`
}

// UpdateStaffRequest updates mutable staff fields. Nil fields are left
// unchanged.
type UpdateStaffRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *string `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
	PIN    *string `json:"pin,omitempty"`
}

// CreateAutomationRequest creates a stored automation rule.
type CreateAutomationRequest struct {
	Name      string  `json:"name" example:"BTC sweep"`
	Currency  string  `json:"currency" example:"BTC"`
	Condition string  `json:"condition" example:"balance_above"`
	Threshold float64 `json:"threshold" example:"0.5"`
	Action    string  `json:"action" example:"convert_to_usdc"`
}

// AddWalletAddressRequest adds a settlement address for one chain.
type AddWalletAddressRequest struct {
	Blockchain string `json:"blockchain" example:"Bitcoin"`
	Address    string `json:"address" example:"3FZbgi29cpjq2GjdwV8eyHuJJnkLtktZc5"`
}

// VerifyWalletAddressRequest records the control-proof signature for an
// address.
type VerifyWalletAddressRequest struct {
	Signature string `json:"signature"`
}
