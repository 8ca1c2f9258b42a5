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

package core

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/models"
	"github.com/carverauto/payradar/pkg/tenant"
)

var errPINTooShort = errors.New("pin must be at least 4 digits")

// ListTransactions returns one page of the caller's sale history.
func (s *Server) ListTransactions(ctx context.Context, caller *tenant.Info, page, pageSize int) (*models.TransactionPage, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return s.DB.ListTransactions(ctx, caller.MerchantID, page, pageSize)
}

// DashboardStats returns the caller's overview card numbers.
func (s *Server) DashboardStats(ctx context.Context, caller *tenant.Info) (*models.DashboardStats, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return s.DB.DashboardStats(ctx, caller.MerchantID)
}

// ListStaff returns the caller's staff accounts.
func (s *Server) ListStaff(ctx context.Context, caller *tenant.Info) ([]*models.StaffUser, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return s.DB.ListStaff(ctx, caller.MerchantID)
}

func hashPIN(pin string) (string, error) {
	if len(pin) < 4 {
		return "", errPINTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}

	return string(hash), nil
}

// CreateStaff adds a staff account. Only admins and merchant owners manage
// staff.
func (s *Server) CreateStaff(ctx context.Context, caller *tenant.Info, req *models.CreateStaffRequest) (*models.StaffUser, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if !caller.CanRefund() {
		return nil, ErrUnauthorized
	}

	pinHash, err := hashPIN(req.PIN)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = tenant.RoleStaff
	}

	user := &models.StaffUser{
		MerchantID: caller.MerchantID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       role,
		Status:     models.StaffActive,
		Approved:   true,
		PINHash:    pinHash,
	}

	if err := s.DB.CreateStaff(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	return user, nil
}

// UpdateStaff patches a staff account. Nil request fields are left as is.
func (s *Server) UpdateStaff(ctx context.Context, caller *tenant.Info, staffID string, req *models.UpdateStaffRequest) (*models.StaffUser, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if !caller.CanRefund() {
		return nil, ErrUnauthorized
	}

	user, err := s.DB.GetStaff(ctx, caller.MerchantID, staffID)
	if err != nil {
		if errors.Is(err, db.ErrStaffNotFound) {
			return nil, db.ErrStaffNotFound
		}

		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if req.Email != nil {
		user.Email = *req.Email
	}

	if req.Role != nil {
		user.Role = *req.Role
	}

	if req.Status != nil {
		user.Status = models.StaffStatus(*req.Status)
	}

	if req.PIN != nil {
		pinHash, err := hashPIN(*req.PIN)
		if err != nil {
			return nil, err
		}

		user.PINHash = pinHash
	}

	if err := s.DB.UpdateStaff(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	return user, nil
}

// DeleteStaff removes a staff account.
func (s *Server) DeleteStaff(ctx context.Context, caller *tenant.Info, staffID string) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if !caller.CanRefund() {
		return ErrUnauthorized
	}

	return s.DB.DeleteStaff(ctx, caller.MerchantID, staffID)
}

// VerifyStaffPIN checks a terminal sign-in PIN against the stored hash.
func (s *Server) VerifyStaffPIN(ctx context.Context, caller *tenant.Info, staffID, pin string) (bool, error) {
	if err := caller.Validate(); err != nil {
		return false, err
	}

	user, err := s.DB.GetStaff(ctx, caller.MerchantID, staffID)
	if err != nil {
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(pin))

	return err == nil, nil
}

// ListAutomations returns the caller's stored balance rules.
func (s *Server) ListAutomations(ctx context.Context, caller *tenant.Info) ([]*models.Automation, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return s.DB.ListAutomations(ctx, caller.MerchantID)
}

// CreateAutomation stores a new rule.
func (s *Server) CreateAutomation(ctx context.Context, caller *tenant.Info, req *models.CreateAutomationRequest) (*models.Automation, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if !caller.CanRefund() {
		return nil, ErrUnauthorized
	}

	automation := &models.Automation{
		MerchantID: caller.MerchantID,
		Name:       req.Name,
		Currency:   req.Currency,
		Condition:  req.Condition,
		Threshold:  req.Threshold,
		Action:     req.Action,
		Enabled:    true,
	}

	if err := s.DB.CreateAutomation(ctx, automation); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	return automation, nil
}

// SetAutomationEnabled toggles a rule.
func (s *Server) SetAutomationEnabled(ctx context.Context, caller *tenant.Info, automationID string, enabled bool) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if !caller.CanRefund() {
		return ErrUnauthorized
	}

	return s.DB.SetAutomationEnabled(ctx, caller.MerchantID, automationID, enabled)
}

// DeleteAutomation removes a rule.
func (s *Server) DeleteAutomation(ctx context.Context, caller *tenant.Info, automationID string) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if !caller.CanRefund() {
		return ErrUnauthorized
	}

	return s.DB.DeleteAutomation(ctx, caller.MerchantID, automationID)
}

// GetWallet returns the caller's wallet and settlement addresses.
func (s *Server) GetWallet(ctx context.Context, caller *tenant.Info) (*models.MerchantWallet, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return s.DB.GetMerchantWallet(ctx, caller.MerchantID)
}

// AddWalletAddress attaches a settlement address for one chain. New
// addresses start unverified.
func (s *Server) AddWalletAddress(ctx context.Context, caller *tenant.Info, req *models.AddWalletAddressRequest) (*models.WalletAddress, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if !caller.CanRefund() {
		return nil, ErrUnauthorized
	}

	addr := &models.WalletAddress{
		Blockchain: req.Blockchain,
		Address:    req.Address,
	}

	if err := s.DB.AddWalletAddress(ctx, caller.MerchantID, addr); err != nil {
		return nil, err
	}

	return addr, nil
}

// VerifyWalletAddress records the control-proof signature for an address.
func (s *Server) VerifyWalletAddress(ctx context.Context, caller *tenant.Info, addressID, signature string) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if !caller.CanRefund() {
		return ErrUnauthorized
	}

	return s.DB.VerifyWalletAddress(ctx, caller.MerchantID, addressID, signature)
}
