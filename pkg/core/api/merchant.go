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

	"github.com/carverauto/payradar/pkg/models"
)

// @Summary List transactions
// @Description Retrieves one page of the caller's sale history
// @Tags Merchant
// @Produce json
// @Param page query int false "Page number, 1-based"
// @Param page_size query int false "Rows per page"
// @Success 200 {object} models.TransactionPage "Transaction page"
// @Router /api/transactions [get]
// @Security ApiKeyAuth
func (s *APIServer) getTransactions(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	ctx, cancel := requestContext(r)
	defer cancel()

	result, err := s.core.ListTransactions(ctx, info, page, pageSize)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, result)
}

// @Summary Get dashboard statistics
// @Description Retrieves the merchant overview card numbers
// @Tags Stats
// @Produce json
// @Success 200 {object} models.DashboardStats "Dashboard statistics"
// @Router /api/stats/dashboard [get]
// @Security ApiKeyAuth
func (s *APIServer) getDashboardStats(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := s.core.DashboardStats(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, stats)
}

// @Summary List staff
// @Tags Staff
// @Produce json
// @Success 200 {array} models.StaffUser "Staff accounts"
// @Router /api/staff [get]
// @Security ApiKeyAuth
func (s *APIServer) getStaff(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	users, err := s.core.ListStaff(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, users)
}

// @Summary Create staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param request body models.CreateStaffRequest true "Staff parameters"
// @Success 200 {object} models.StaffUser "Created account"
// @Failure 403 {object} models.ErrorResponse "Caller may not manage staff"
// @Router /api/staff [post]
// @Security ApiKeyAuth
func (s *APIServer) postStaff(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.CreateStaffRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := s.core.CreateStaff(ctx, info, &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, user)
}

// @Summary Update staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param request body models.UpdateStaffRequest true "Fields to update"
// @Success 200 {object} models.StaffUser "Updated account"
// @Failure 404 {object} models.ErrorResponse "Staff member not found"
// @Router /api/staff/{id} [put]
// @Security ApiKeyAuth
func (s *APIServer) putStaff(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.UpdateStaffRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := s.core.UpdateStaff(ctx, info, mux.Vars(r)["id"], &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, user)
}

// @Summary Delete staff member
// @Tags Staff
// @Param id path string true "Staff ID"
// @Success 204 "Account deleted"
// @Failure 404 {object} models.ErrorResponse "Staff member not found"
// @Router /api/staff/{id} [delete]
// @Security ApiKeyAuth
func (s *APIServer) deleteStaff(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.core.DeleteStaff(ctx, info, mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary List automations
// @Tags Automations
// @Produce json
// @Success 200 {array} models.Automation "Stored rules"
// @Router /api/automations [get]
// @Security ApiKeyAuth
func (s *APIServer) getAutomations(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	automations, err := s.core.ListAutomations(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, automations)
}

// @Summary Create automation
// @Tags Automations
// @Accept json
// @Produce json
// @Param request body models.CreateAutomationRequest true "Rule parameters"
// @Success 200 {object} models.Automation "Created rule"
// @Router /api/automations [post]
// @Security ApiKeyAuth
func (s *APIServer) postAutomation(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.CreateAutomationRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	automation, err := s.core.CreateAutomation(ctx, info, &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, automation)
}

// @Summary Toggle automation
// @Tags Automations
// @Accept json
// @Param id path string true "Automation ID"
// @Success 204 "Rule updated"
// @Failure 404 {object} models.ErrorResponse "Automation not found"
// @Router /api/automations/{id} [patch]
// @Security ApiKeyAuth
func (s *APIServer) patchAutomation(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}

	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.core.SetAutomationEnabled(ctx, info, mux.Vars(r)["id"], req.Enabled); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Delete automation
// @Tags Automations
// @Param id path string true "Automation ID"
// @Success 204 "Rule deleted"
// @Failure 404 {object} models.ErrorResponse "Automation not found"
// @Router /api/automations/{id} [delete]
// @Security ApiKeyAuth
func (s *APIServer) deleteAutomation(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.core.DeleteAutomation(ctx, info, mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get wallet
// @Tags Wallet
// @Produce json
// @Success 200 {object} models.MerchantWallet "Wallet with addresses"
// @Failure 404 {object} models.ErrorResponse "No wallet configured"
// @Router /api/wallet [get]
// @Security ApiKeyAuth
func (s *APIServer) getWallet(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	wallet, err := s.core.GetWallet(ctx, info)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, wallet)
}

// @Summary Add wallet address
// @Tags Wallet
// @Accept json
// @Produce json
// @Param request body models.AddWalletAddressRequest true "Address parameters"
// @Success 200 {object} models.WalletAddress "Created address, unverified"
// @Router /api/wallet/addresses [post]
// @Security ApiKeyAuth
func (s *APIServer) postWalletAddress(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.AddWalletAddressRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	addr, err := s.core.AddWalletAddress(ctx, info, &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, addr)
}

// @Summary Verify wallet address
// @Tags Wallet
// @Accept json
// @Param id path string true "Address ID"
// @Param request body models.VerifyWalletAddressRequest true "Control-proof signature"
// @Success 204 "Address verified"
// @Failure 404 {object} models.ErrorResponse "Address not found"
// @Router /api/wallet/addresses/{id}/verify [post]
// @Security ApiKeyAuth
func (s *APIServer) postVerifyWalletAddress(w http.ResponseWriter, r *http.Request) {
	info, err := caller(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req models.VerifyWalletAddressRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.core.VerifyWalletAddress(ctx, info, mux.Vars(r)["id"], req.Signature); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
