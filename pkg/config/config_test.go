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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/payradar/pkg/logger"
)

type testConfig struct {
	ListenAddr string         `json:"listen_addr"`
	MaxConns   int            `json:"max_conns"`
	Nested     testNestedPart `json:"nested"`

	validateErr error
}

type testNestedPart struct {
	Name string `json:"name"`
}

func (c *testConfig) Validate() error {
	return c.validateErr
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	path := writeTempConfig(t, `{"listen_addr": ":8090", "max_conns": 12, "nested": {"name": "a"}}`)

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, 12, cfg.MaxConns)
	assert.Equal(t, "a", cfg.Nested.Name)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), "/nonexistent/core.json", &cfg)
	require.Error(t, err)
}

func TestLoadAndValidateRunsValidator(t *testing.T) {
	path := writeTempConfig(t, `{"listen_addr": ":8090"}`)

	wantErr := errors.New("bad config")
	cfg := testConfig{validateErr: wantErr}

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, wantErr)
}

func TestEnvConfigLoader(t *testing.T) {
	t.Setenv("PR_LISTEN_ADDR", ":9999")
	t.Setenv("PR_MAX_CONNS", "5")
	t.Setenv("PR_NESTED_NAME", "env")

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "PR_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.MaxConns)
	assert.Equal(t, "env", cfg.Nested.Name)
}

func TestEnvConfigLoaderJSONBlob(t *testing.T) {
	t.Setenv("PR_CONFIG_JSON", `{"listen_addr": ":7000"}`)

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "PR_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, ":7000", cfg.ListenAddr)
}

func TestEnvConfigSourceRejected(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}
