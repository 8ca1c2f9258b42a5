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

// Package models holds the shared data model for the PayRadar core service.
package models

import "time"

// TerminalStatus is the fleet-level availability of a terminal.
type TerminalStatus string

const (
	TerminalOnline  TerminalStatus = "online"
	TerminalOffline TerminalStatus = "offline"
)

// LockState describes whether the operator session on a terminal is locked.
type LockState string

const (
	LockStateLocked   LockState = "locked"
	LockStateUnlocked LockState = "unlocked"
)

// Location is a merchant store location terminals are paired to.
type Location struct {
	ID         string `json:"id"`
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
}

// Terminal represents a paired point-of-sale device.
// @Description Fleet metadata for a single point-of-sale terminal.
type Terminal struct {
	// Unique identifier for the terminal
	ID         string `json:"id" example:"TERM-001"`
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name" example:"Checkout 1"`
	LocationID string `json:"location_id"`
	// online or offline; derived from heartbeat staleness unless the
	// terminal has been administratively disabled
	Status TerminalStatus `json:"status" example:"online"`
	// Disabled marks an administrative override. A disabled terminal stays
	// offline even if heartbeats keep arriving.
	Disabled bool `json:"disabled,omitempty"`
	// Last time the terminal checked in with the fleet
	LastCheckIn time.Time `json:"last_check_in"`
	// Firmware version reported by the terminal
	Version string `json:"version" example:"2.3.1"`
	// Operator who last used the terminal
	LastUser string `json:"last_user,omitempty"`
	// Sales processed in the trailing 24 hours
	TransactionsLast24h int `json:"transactions_last_24h"`
	// Error count since last check-in reset
	Errors int `json:"errors"`
}

// TerminalHealth is the device telemetry reported with each heartbeat.
type TerminalHealth struct {
	// Uptime percentage, 0-100
	Uptime          float64 `json:"uptime" example:"99.8"`
	FirmwareVersion string  `json:"firmware_version" example:"2.3.1"`
	// Battery percentage; nil for mains-powered terminals
	Battery *float64 `json:"battery,omitempty"`
	IP      string   `json:"ip,omitempty" example:"192.168.1.101"`
	// LastHeartbeat is monotonically non-decreasing per terminal; stale
	// heartbeats are dropped on ingest.
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// LiveSession is the active operator session on a terminal. All fields are
// nil/zero when no operator is signed in.
type LiveSession struct {
	StaffName *string    `json:"staff_name"`
	StartedAt *time.Time `json:"started_at"`
	// Seconds since last operator input
	IdleTime  *int       `json:"idle_time"`
	LockState *LockState `json:"lock_state"`
}

// Active reports whether an operator is signed in.
func (s *LiveSession) Active() bool {
	return s != nil && s.StaffName != nil
}

// TerminalDetails is the full detail view for a single terminal: registry
// record plus health, live session, current transaction and recent activity
// (most-recent-first).
type TerminalDetails struct {
	Terminal
	PairingCode        string              `json:"pairing_code,omitempty"`
	WalletMapping      map[string]string   `json:"wallet_mapping,omitempty"`
	Health             TerminalHealth      `json:"health"`
	LiveSession        LiveSession         `json:"live_session"`
	CurrentTransaction *CurrentTransaction `json:"current_transaction"`
	RecentActivity     []ActivityLogEntry  `json:"recent_activity"`
}

// LocationStats is the derived fleet snapshot for one location. It is
// recomputed on a cadence and never persisted.
type LocationStats struct {
	LocationID            string             `json:"location_id"`
	OnlineCount           int                `json:"online_count"`
	OfflineCount          int                `json:"offline_count"`
	ConfirmedTransactions int                `json:"confirmed_transactions"`
	PendingTransactions   int                `json:"pending_transactions"`
	// Average confirmation time per chain, in minutes
	AverageConfirmations map[string]float64 `json:"average_confirmation_times"`
	Timestamp            time.Time          `json:"timestamp"`
}
