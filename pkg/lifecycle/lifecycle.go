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

// Package lifecycle manages service startup and shutdown.
package lifecycle

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/carverauto/payradar/pkg/logger"
)

// Service is a long-running component managed by RunServices.
type Service interface {
	// Start runs the service until ctx is cancelled or it fails.
	Start(ctx context.Context) error
}

// ServiceFunc adapts a plain function to the Service interface.
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Start(ctx context.Context) error { return f(ctx) }

// RunServices starts every service and blocks until one of them fails or
// the process receives SIGINT/SIGTERM. Cancellation is propagated to the
// remaining services through the shared context.
func RunServices(ctx context.Context, log logger.Logger, services ...Service) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(services))

	for _, svc := range services {
		svc := svc

		go func() {
			errCh <- svc.Start(ctx)
		}()
	}

	var firstErr error

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			firstErr = err
			log.Error().Err(err).Msg("Service failed")
		}
	}

	stop()

	return firstErr
}
