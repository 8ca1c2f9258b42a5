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

package app

import (
	"context"

	"github.com/carverauto/payradar/pkg/config"
	"github.com/carverauto/payradar/pkg/core"
	"github.com/carverauto/payradar/pkg/core/api"
	"github.com/carverauto/payradar/pkg/core/auth"
	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/lifecycle"
	"github.com/carverauto/payradar/pkg/models"
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the core service using the provided options.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	bootLogger, err := lifecycle.CreateComponentLogger("core-main", nil)
	if err != nil {
		return err
	}

	var cfg models.CoreServiceConfig

	loader := config.NewConfig(bootLogger)
	if err := loader.LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("core-main", cfg.Logging)
	if err != nil {
		return err
	}

	dbLogger, err := lifecycle.CreateComponentLogger("db", cfg.Logging)
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.Database, dbLogger)
	if err != nil {
		return err
	}
	defer database.Close()

	coreLogger, err := lifecycle.CreateComponentLogger("core", cfg.Logging)
	if err != nil {
		return err
	}

	server := core.NewServer(&cfg, database, coreLogger)

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	apiLogger, err := lifecycle.CreateComponentLogger("api", cfg.Logging)
	if err != nil {
		return err
	}

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithCoreService(server),
		api.WithLogger(apiLogger),
		api.WithAuthMiddleware(auth.Middleware(verifier, apiLogger)))

	mainLogger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Msg("Starting HTTP API server")

	return lifecycle.RunServices(ctx, mainLogger,
		lifecycle.ServiceFunc(server.Run),
		lifecycle.ServiceFunc(func(context.Context) error {
			return apiServer.Start(cfg.ListenAddr)
		}))
}
