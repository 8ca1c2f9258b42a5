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

package lifecycle

import (
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *models.LoggerConfig) (logger.Logger, error) {
	return logger.New(loggerConfig(config), component)
}

func loggerConfig(config *models.LoggerConfig) *logger.Config {
	if config == nil {
		return &logger.Config{Level: "info", Output: "stdout"}
	}

	return &logger.Config{
		Level:      config.Level,
		Debug:      config.Debug,
		Output:     config.Output,
		TimeFormat: config.TimeFormat,
	}
}
