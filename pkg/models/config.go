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
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration wraps time.Duration so configs can use strings like "5m".
type Duration time.Duration

// MarshalJSON renders the duration in time.Duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}

		*d = Duration(parsed)

		return nil
	default:
		return errors.New("invalid duration")
	}
}

// TLSConfig points at the certificate material for mutual TLS.
type TLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	CAFile   string `json:"ca_file"`
}

// Database configures the Postgres cluster backing the read model.
type Database struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password,omitempty"`
	SSLMode            string            `json:"ssl_mode,omitempty"`
	ApplicationName    string            `json:"application_name,omitempty"`
	MaxConnections     int32             `json:"max_connections,omitempty"`
	MinConnections     int32             `json:"min_connections,omitempty"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime,omitempty"`
	HealthCheckPeriod  Duration          `json:"health_check_period,omitempty"`
	StatementTimeout   Duration          `json:"statement_timeout,omitempty"`
	CertDir            string            `json:"cert_dir,omitempty"`
	TLS                *TLSConfig        `json:"tls,omitempty"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

// AuthConfig configures verification of identity-provider tokens.
type AuthConfig struct {
	// Shared secret for HS256 token verification. The identity provider
	// signs the claims bundle; PayRadar only verifies.
	JWTSecret     string   `json:"jwt_secret"`
	JWTExpiration Duration `json:"jwt_expiration,omitempty"`
	// Issuer expected on inbound tokens; empty disables the check.
	Issuer string `json:"issuer,omitempty"`
}

// CORSConfig configures cross-origin access for the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// CoreServiceConfig is the top-level configuration for the core service.
type CoreServiceConfig struct {
	ListenAddr string        `json:"listen_addr"`
	Database   *Database     `json:"database"`
	NATS       *NATSConfig   `json:"nats,omitempty"`
	Auth       *AuthConfig   `json:"auth"`
	CORS       CORSConfig    `json:"cors"`
	Logging    *LoggerConfig `json:"logging,omitempty"`

	// HeartbeatThreshold is how stale a terminal's last heartbeat may be
	// before the reaper marks it offline.
	HeartbeatThreshold Duration `json:"heartbeat_threshold,omitempty"`
	// StatsInterval is the fleet stats refresh cadence.
	StatsInterval Duration `json:"stats_interval,omitempty"`
	// ActivityLimit bounds the recent-activity slice in detail responses.
	ActivityLimit int `json:"activity_limit,omitempty"`
	// ConfirmationSampleSize bounds the trailing window used for per-chain
	// average confirmation times.
	ConfirmationSampleSize int `json:"confirmation_sample_size,omitempty"`
}

// LoggerConfig mirrors pkg/logger.Config; duplicated here so models stays
// import-cycle free.
type LoggerConfig struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format,omitempty"`
}

const (
	DefaultHeartbeatThreshold     = 5 * time.Minute
	DefaultStatsInterval          = 10 * time.Second
	DefaultActivityLimit          = 20
	DefaultConfirmationSampleSize = 50
)

// Validate applies defaults and rejects unusable configurations.
func (c *CoreServiceConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}

	if c.Database == nil {
		return errors.New("database configuration is required")
	}

	if c.Auth == nil || c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	if c.HeartbeatThreshold <= 0 {
		c.HeartbeatThreshold = Duration(DefaultHeartbeatThreshold)
	}

	if c.StatsInterval <= 0 {
		c.StatsInterval = Duration(DefaultStatsInterval)
	}

	if c.ActivityLimit <= 0 {
		c.ActivityLimit = DefaultActivityLimit
	}

	if c.ConfirmationSampleSize <= 0 {
		c.ConfirmationSampleSize = DefaultConfirmationSampleSize
	}

	return nil
}
