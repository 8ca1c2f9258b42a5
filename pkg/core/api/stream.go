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

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		// CORS policy is enforced by the common middleware; the upgrade
		// itself accepts any origin that got this far.
		return true
	},
}

// @Summary Stream terminal events
// @Description Upgrades to a websocket and pushes status, heartbeat and payment events for the caller's fleet
// @Tags Terminals
// @Success 101 "Switching protocols"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Router /api/terminals/stream [get]
// @Security ApiKeyAuth
func (s *APIServer) streamTerminals(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	events, cancel := s.core.Registry.Subscribe()
	defer cancel()

	// Drain the reader so close frames and pongs are processed.
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)

	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}

			if event.MerchantID != info.MerchantID {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
