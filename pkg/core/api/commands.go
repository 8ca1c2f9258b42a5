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

	"github.com/gorilla/mux"

	"github.com/carverauto/payradar/pkg/models"
)

// idempotencyKey returns the client's replay guard, if any. The same key
// makes a command apply at most once.
func idempotencyKey(r *http.Request) string {
	return r.Header.Get("Idempotency-Key")
}

// @Summary Refund a confirmed sale
// @Description Reverses the terminal's confirmed transaction and appends a ledger entry
// @Tags Commands
// @Accept json
// @Produce json
// @Param id path string true "Terminal ID"
// @Param request body models.RefundRequest true "Refund parameters"
// @Success 200 {object} models.ActivityLogEntry "Appended ledger entry"
// @Failure 400 {object} models.ErrorResponse "Missing refund reason"
// @Failure 403 {object} models.ErrorResponse "Caller may not refund"
// @Failure 404 {object} models.ErrorResponse "Terminal or transaction not found"
// @Failure 409 {object} models.ErrorResponse "Transaction is not refundable"
// @Router /api/terminals/{id}/refund [post]
// @Security ApiKeyAuth
func (s *APIServer) postRefund(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.RefundRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entry, err := s.core.Refund(ctx, info, mux.Vars(r)["id"], idempotencyKey(r), &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if entry == nil {
		// Replay of an already-applied command.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, entry)
}

// @Summary Resend a receipt
// @Description Re-sends the receipt for a completed sale
// @Tags Commands
// @Accept json
// @Produce json
// @Param id path string true "Terminal ID"
// @Param request body models.ResendReceiptRequest true "Receipt parameters"
// @Success 200 {object} models.ActivityLogEntry "Appended ledger entry"
// @Failure 404 {object} models.ErrorResponse "Terminal or transaction not found"
// @Failure 409 {object} models.ErrorResponse "No completed transaction to receipt"
// @Router /api/terminals/{id}/receipt [post]
// @Security ApiKeyAuth
func (s *APIServer) postResendReceipt(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.ResendReceiptRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entry, err := s.core.ResendReceipt(ctx, info, mux.Vars(r)["id"], idempotencyKey(r), &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, entry)
}

// @Summary Disable a terminal
// @Description Applies the administrative override; the terminal reports offline until re-enabled
// @Tags Commands
// @Produce json
// @Param id path string true "Terminal ID"
// @Success 204 "Terminal disabled"
// @Failure 403 {object} models.ErrorResponse "Caller may not disable terminals"
// @Failure 404 {object} models.ErrorResponse "Terminal not found"
// @Router /api/terminals/{id}/disable [post]
// @Security ApiKeyAuth
func (s *APIServer) postDisableTerminal(w http.ResponseWriter, r *http.Request) {
	s.setDisabled(w, r, true)
}

// @Summary Enable a terminal
// @Description Lifts the administrative override
// @Tags Commands
// @Produce json
// @Param id path string true "Terminal ID"
// @Success 204 "Terminal enabled"
// @Failure 404 {object} models.ErrorResponse "Terminal not found"
// @Router /api/terminals/{id}/enable [post]
// @Security ApiKeyAuth
func (s *APIServer) postEnableTerminal(w http.ResponseWriter, r *http.Request) {
	s.setDisabled(w, r, false)
}

func (s *APIServer) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.core.SetTerminalDisabled(ctx, info, mux.Vars(r)["id"], disabled); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
