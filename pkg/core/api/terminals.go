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
	"strconv"

	"github.com/gorilla/mux"
)

// @Summary List locations
// @Description Retrieves the caller's store locations
// @Tags Terminals
// @Produce json
// @Success 200 {array} models.Location "Store locations"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Router /api/locations [get]
// @Security ApiKeyAuth
func (s *APIServer) getLocations(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	locations, err := s.core.ListLocations(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, locations)
}

// @Summary List terminals
// @Description Retrieves the caller's terminal fleet with live status
// @Tags Terminals
// @Produce json
// @Success 200 {array} models.Terminal "Terminal fleet"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Router /api/terminals [get]
// @Security ApiKeyAuth
func (s *APIServer) getTerminals(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	terminals, err := s.core.ListTerminals(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, terminals)
}

// @Summary Get terminal details
// @Description Retrieves one terminal with health, live session, current transaction and recent activity
// @Tags Terminals
// @Produce json
// @Param id path string true "Terminal ID"
// @Success 200 {object} models.TerminalDetails "Terminal details"
// @Failure 404 {object} models.ErrorResponse "Terminal not found"
// @Router /api/terminals/{id} [get]
// @Security ApiKeyAuth
func (s *APIServer) getTerminal(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	details, err := s.core.GetTerminalDetails(ctx, info, mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, details)
}

// @Summary Get terminal activity
// @Description Retrieves the terminal's audit ledger, most recent first
// @Tags Terminals
// @Produce json
// @Param id path string true "Terminal ID"
// @Param limit query int false "Maximum entries to return"
// @Success 200 {array} models.ActivityLogEntry "Ledger entries"
// @Failure 404 {object} models.ErrorResponse "Terminal not found"
// @Router /api/terminals/{id}/activity [get]
// @Security ApiKeyAuth
func (s *APIServer) getTerminalActivity(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entries, err := s.core.ListActivity(ctx, info, mux.Vars(r)["id"], limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, entries)
}

// @Summary Get fleet statistics
// @Description Retrieves the derived per-location fleet snapshot
// @Tags Stats
// @Produce json
// @Success 200 {array} models.LocationStats "Per-location statistics"
// @Router /api/stats/fleet [get]
// @Security ApiKeyAuth
func (s *APIServer) getFleetStats(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := s.core.FleetStats(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, stats)
}
