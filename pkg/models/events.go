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
	"time"
)

// Event subjects consumed from the terminal event stream.
const (
	SubjectPaymentPrefix   = "events.terminal.payment"
	SubjectHeartbeatPrefix = "events.terminal.heartbeat"

	EventTypePayment   = "com.carverauto.payradar.terminal.payment"
	EventTypeHeartbeat = "com.carverauto.payradar.terminal.heartbeat"
)

// NATSConfig configures NATS connectivity.
type NATSConfig struct {
	URL        string `json:"url"`
	Domain     string `json:"domain,omitempty"`
	StreamName string `json:"stream_name,omitempty"`
	CredsFile  string `json:"creds_file,omitempty"`
}

// Validate ensures the NATS configuration is valid.
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errors.New("nats url is required")
	}

	if c.StreamName == "" {
		c.StreamName = "terminal-events"
	}

	return nil
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// PaymentEventData is the payload published by the blockchain watcher for
// every lifecycle transition it drives. The target state and the fields
// valid for that state are included; PayRadar validates the transition
// before applying it.
type PaymentEventData struct {
	TerminalID            string       `json:"terminal_id"`
	MerchantID            string       `json:"merchant_id"`
	State                 PaymentState `json:"state"`
	FiatAmount            float64      `json:"fiat_amount,omitempty"`
	FiatCurrency          string       `json:"fiat_currency,omitempty"`
	CryptoAmount          float64      `json:"crypto_amount,omitempty"`
	CryptoCurrency        string       `json:"crypto_currency,omitempty"`
	Chain                 string       `json:"chain,omitempty"`
	TxHash                string       `json:"tx_hash,omitempty"`
	Confirmations         int          `json:"confirmations,omitempty"`
	RequiredConfirmations int          `json:"required_confirmations,omitempty"`
	Operator              string       `json:"operator,omitempty"`
	Timestamp             time.Time    `json:"timestamp"`
}

// HeartbeatEventData is the periodic device report published by terminal
// firmware. Heartbeats carry telemetry plus the live operator session.
type HeartbeatEventData struct {
	TerminalID      string     `json:"terminal_id"`
	MerchantID      string     `json:"merchant_id"`
	FirmwareVersion string     `json:"firmware_version,omitempty"`
	IP              string     `json:"ip,omitempty"`
	Uptime          float64    `json:"uptime,omitempty"`
	Battery         *float64   `json:"battery,omitempty"`
	StaffName       *string    `json:"staff_name,omitempty"`
	SessionStart    *time.Time `json:"session_start,omitempty"`
	IdleTime        *int       `json:"idle_time,omitempty"`
	LockState       *LockState `json:"lock_state,omitempty"`
	ErrorCount      int        `json:"error_count,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
}
