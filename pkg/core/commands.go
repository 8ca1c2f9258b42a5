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

	"github.com/google/uuid"

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/models"
	"github.com/carverauto/payradar/pkg/tenant"
)

// Command names recorded in the command audit log.
const (
	CommandRefund        = "refund"
	CommandResendReceipt = "resend_receipt"
	CommandDisable       = "disable"
	CommandEnable        = "enable"
)

// confirmedCurrent validates a money command against the terminal's live
// slot. The slot must hold a confirmed transaction, and an explicit hash
// must name that transaction.
func confirmedCurrent(rec *TerminalRecord, explicit string) (*models.CurrentTransaction, error) {
	cur := rec.Current
	if cur == nil || cur.State != models.StateConfirmed || cur.TxHash == "" {
		return nil, ErrInvalidState
	}

	if explicit != "" && explicit != cur.TxHash {
		return nil, ErrTransactionNotFound
	}

	return cur, nil
}

// Refund reverses the terminal's confirmed sale and frees the slot back to
// idle. The command record is persisted before any state changes so that a
// repeated idempotency key makes the whole call a no-op, even after the
// first call has already reset the slot.
func (s *Server) Refund(ctx context.Context, caller *tenant.Info, terminalID, idempotencyKey string, req *models.RefundRequest) (*models.ActivityLogEntry, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if !caller.CanRefund() {
		return nil, ErrUnauthorized
	}

	if req == nil || req.Reason == "" {
		return nil, ErrReasonRequired
	}

	rec, ok := s.Registry.GetForMerchant(caller.MerchantID, terminalID)
	if !ok {
		return nil, ErrTerminalNotFound
	}

	txHash := req.TxHash
	if txHash == "" && rec.Current != nil {
		txHash = rec.Current.TxHash
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	inserted, err := s.DB.RecordCommand(ctx, &models.CommandRecord{
		IdempotencyKey: idempotencyKey,
		MerchantID:     caller.MerchantID,
		TerminalID:     terminalID,
		Command:        CommandRefund,
		TxHash:         txHash,
		Reason:         req.Reason,
		IssuedBy:       caller.UserID,
		IssuedAt:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	if !inserted {
		s.logger.Info().
			Str("terminal_id", terminalID).
			Str("idempotency_key", idempotencyKey).
			Msg("refund replayed, skipping")

		return nil, nil
	}

	cur, err := confirmedCurrent(rec, req.TxHash)
	if err != nil {
		return nil, err
	}

	// Guard sales already reversed out of band. A missing history row is
	// tolerated; the slot is authoritative.
	if tx, err := s.DB.GetTransactionByHash(ctx, caller.MerchantID, cur.TxHash); err == nil {
		if tx.Status != models.TransactionCompleted {
			return nil, ErrInvalidState
		}
	} else if !errors.Is(err, db.ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	applied, err := cur.Advance(&models.CurrentTransaction{State: models.StateIdle, UpdatedAt: s.now()})
	if err != nil {
		return nil, err
	}

	if err := s.DB.SaveCurrentTransaction(ctx, terminalID, applied); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	s.Registry.CommitTransaction(terminalID, applied)

	if err := s.DB.MarkTransactionRefunded(ctx, caller.MerchantID, cur.TxHash); err != nil &&
		!errors.Is(err, db.ErrTransactionNotFound) {
		s.logger.Error().Err(err).
			Str("terminal_id", terminalID).
			Str("tx_hash", cur.TxHash).
			Msg("failed to mark sale refunded")
	}

	entry := &models.ActivityLogEntry{
		TerminalID: terminalID,
		MerchantID: caller.MerchantID,
		Timestamp:  s.now(),
		Action:     models.ActionRefundProcessed,
		User:       caller.UserID,
		Result:     models.ResultSuccess,
		Details:    fmt.Sprintf("%g %s, Reason: %s", cur.CryptoAmount, cur.CryptoCurrency, req.Reason),
	}

	if err := s.DB.AddActivity(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	s.Registry.Notify(TerminalEvent{
		Type:        EventPaymentUpdated,
		MerchantID:  caller.MerchantID,
		TerminalID:  terminalID,
		Status:      rec.Terminal.Status,
		Transaction: applied,
	})

	return entry, nil
}

// ResendReceipt re-sends the receipt for the terminal's confirmed sale. Any
// staff role may issue it, and it never moves money or touches the slot.
func (s *Server) ResendReceipt(ctx context.Context, caller *tenant.Info, terminalID, idempotencyKey string, req *models.ResendReceiptRequest) (*models.ActivityLogEntry, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	rec, ok := s.Registry.GetForMerchant(caller.MerchantID, terminalID)
	if !ok {
		return nil, ErrTerminalNotFound
	}

	explicit := ""
	if req != nil {
		explicit = req.TxHash
	}

	txHash := explicit
	if txHash == "" && rec.Current != nil {
		txHash = rec.Current.TxHash
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	inserted, err := s.DB.RecordCommand(ctx, &models.CommandRecord{
		IdempotencyKey: idempotencyKey,
		MerchantID:     caller.MerchantID,
		TerminalID:     terminalID,
		Command:        CommandResendReceipt,
		TxHash:         txHash,
		IssuedBy:       caller.UserID,
		IssuedAt:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	if !inserted {
		return nil, nil
	}

	cur, err := confirmedCurrent(rec, explicit)
	if err != nil {
		return nil, err
	}

	entry := &models.ActivityLogEntry{
		TerminalID: terminalID,
		MerchantID: caller.MerchantID,
		Timestamp:  s.now(),
		Action:     models.ActionReceiptResent,
		User:       caller.UserID,
		Result:     models.ResultSuccess,
		Details:    fmt.Sprintf("Transaction: %s", cur.TxHash),
	}

	if err := s.DB.AddActivity(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	return entry, nil
}

// SetTerminalDisabled applies or lifts the administrative override. Only
// admins may issue it, an online terminal is required to apply the
// override, and lifting it requires an override to be in place.
func (s *Server) SetTerminalDisabled(ctx context.Context, caller *tenant.Info, terminalID string, disabled bool) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if !caller.IsAdmin() {
		return ErrUnauthorized
	}

	rec, ok := s.Registry.GetForMerchant(caller.MerchantID, terminalID)
	if !ok {
		return ErrTerminalNotFound
	}

	if disabled {
		if rec.Terminal.Disabled || rec.Terminal.Status != models.TerminalOnline {
			return ErrInvalidState
		}
	} else if !rec.Terminal.Disabled {
		return ErrInvalidState
	}

	if err := s.DB.SetTerminalDisabled(ctx, caller.MerchantID, terminalID, disabled); err != nil {
		if errors.Is(err, db.ErrTerminalNotFound) {
			return ErrTerminalNotFound
		}

		return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	statusChanged := s.Registry.SetDisabled(terminalID, disabled)

	command := CommandDisable
	action := models.ActionTerminalDisabled

	if !disabled {
		command = CommandEnable
		action = models.ActionTerminalEnabled
	}

	if _, err := s.DB.RecordCommand(ctx, &models.CommandRecord{
		IdempotencyKey: uuid.New().String(),
		MerchantID:     caller.MerchantID,
		TerminalID:     terminalID,
		Command:        command,
		IssuedBy:       caller.UserID,
		IssuedAt:       s.now(),
	}); err != nil {
		s.logger.Error().Err(err).Str("terminal_id", terminalID).Msg("failed to record command")
	}

	entry := &models.ActivityLogEntry{
		TerminalID: terminalID,
		MerchantID: caller.MerchantID,
		Timestamp:  s.now(),
		Action:     action,
		User:       caller.UserID,
		Result:     models.ResultSuccess,
	}

	if err := s.DB.AddActivity(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("terminal_id", terminalID).Msg("failed to append activity entry")
	}

	if statusChanged {
		s.Registry.Notify(TerminalEvent{
			Type:       EventStatusChanged,
			MerchantID: caller.MerchantID,
			TerminalID: terminalID,
			Status:     models.TerminalOffline,
		})
	}

	return nil
}
