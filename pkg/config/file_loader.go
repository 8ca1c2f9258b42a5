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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var errNoConfigPath = errors.New("config file path is empty")

// FileConfigLoader reads service configuration from a JSON file on local
// disk. It is the default loader when CONFIG_SOURCE is unset or "file".
type FileConfigLoader struct{}

// Load decodes the file at path into dst. Trailing data after the top-level
// document is rejected so a truncated or concatenated config fails loudly at
// startup instead of half-applying.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if path == "" {
		return errNoConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if dec.More() {
		return fmt.Errorf("unexpected trailing data in config file %q", path)
	}

	return nil
}
