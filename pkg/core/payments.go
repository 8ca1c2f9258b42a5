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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/payradar/pkg/models"
	"github.com/carverauto/payradar/pkg/natsutil"
)

// cloudEventEnvelope defers payload decoding until the event type is known.
type cloudEventEnvelope struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Type        string          `json:"type"`
	Subject     string          `json:"subject,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// startEventConsumers attaches the durable payment and heartbeat consumers
// to the terminal event stream.
func (s *Server) startEventConsumers(ctx context.Context) error {
	stream := s.config.NATS.StreamName

	paymentConsumer, err := natsutil.NewConsumer(ctx, s.js, stream, "payradar-core-payments",
		[]string{models.SubjectPaymentPrefix + ".*"})
	if err != nil {
		return err
	}

	heartbeatConsumer, err := natsutil.NewConsumer(ctx, s.js, stream, "payradar-core-heartbeats",
		[]string{models.SubjectHeartbeatPrefix + ".*"})
	if err != nil {
		return err
	}

	paymentCtx, err := paymentConsumer.Consume(func(msg jetstream.Msg) {
		s.handlePaymentMsg(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start payment consumer: %w", err)
	}

	heartbeatCtx, err := heartbeatConsumer.Consume(func(msg jetstream.Msg) {
		s.handleHeartbeatMsg(ctx, msg)
	})
	if err != nil {
		paymentCtx.Stop()
		return fmt.Errorf("failed to start heartbeat consumer: %w", err)
	}

	go func() {
		<-ctx.Done()
		paymentCtx.Stop()
		heartbeatCtx.Stop()
	}()

	return nil
}

func (s *Server) handlePaymentMsg(ctx context.Context, msg jetstream.Msg) {
	var envelope cloudEventEnvelope
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		s.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed payment event")
		_ = msg.Ack()

		return
	}

	var data models.PaymentEventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		s.logger.Warn().Err(err).Str("event_id", envelope.ID).Msg("dropping undecodable payment payload")
		_ = msg.Ack()

		return
	}

	if err := s.ApplyPaymentEvent(ctx, &data); err != nil {
		if errors.Is(err, ErrUpstreamFailure) {
			// Transient; redeliver.
			_ = msg.Nak()
			return
		}

		s.logger.Warn().Err(err).
			Str("terminal_id", data.TerminalID).
			Str("state", string(data.State)).
			Msg("rejected payment event")
	}

	_ = msg.Ack()
}

func (s *Server) handleHeartbeatMsg(ctx context.Context, msg jetstream.Msg) {
	var envelope cloudEventEnvelope
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		s.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed heartbeat event")
		_ = msg.Ack()

		return
	}

	var data models.HeartbeatEventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		s.logger.Warn().Err(err).Str("event_id", envelope.ID).Msg("dropping undecodable heartbeat payload")
		_ = msg.Ack()

		return
	}

	if err := s.ApplyHeartbeatEvent(ctx, &data); err != nil {
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

// buildNextSnapshot shapes the watcher event into the candidate slot
// snapshot for the target state.
func buildNextSnapshot(cur *models.CurrentTransaction, data *models.PaymentEventData) *models.CurrentTransaction {
	if data.State == models.StateIdle {
		return &models.CurrentTransaction{State: models.StateIdle, UpdatedAt: data.Timestamp}
	}

	next := &models.CurrentTransaction{
		State:                 data.State,
		FiatAmount:            data.FiatAmount,
		FiatCurrency:          data.FiatCurrency,
		CryptoAmount:          data.CryptoAmount,
		CryptoCurrency:        data.CryptoCurrency,
		Chain:                 data.Chain,
		TxHash:                data.TxHash,
		Confirmations:         data.Confirmations,
		RequiredConfirmations: data.RequiredConfirmations,
		StartedAt:             cur.StartedAt,
		UpdatedAt:             data.Timestamp,
	}

	if data.State == models.StateAwaitingPayment {
		next.StartedAt = data.Timestamp
	}

	// Amounts and quote fields are frozen after the sale starts; events for
	// later states may omit them.
	if cur.State != models.StateIdle {
		if next.FiatAmount == 0 {
			next.FiatAmount = cur.FiatAmount
		}

		if next.FiatCurrency == "" {
			next.FiatCurrency = cur.FiatCurrency
		}

		if next.CryptoAmount == 0 {
			next.CryptoAmount = cur.CryptoAmount
		}

		if next.CryptoCurrency == "" {
			next.CryptoCurrency = cur.CryptoCurrency
		}

		if next.Chain == "" {
			next.Chain = cur.Chain
		}

		if next.TxHash == "" && data.State != models.StateExpired {
			next.TxHash = cur.TxHash
		}

		if next.RequiredConfirmations == 0 {
			next.RequiredConfirmations = cur.RequiredConfirmations
		}
	}

	return next
}

// ApplyPaymentEvent validates one lifecycle transition against the
// terminal's slot, persists the resulting snapshot, and only then applies
// it to the registry. Invalid transitions are rejected without side
// effects.
func (s *Server) ApplyPaymentEvent(ctx context.Context, data *models.PaymentEventData) error {
	cur, ok := s.Registry.CurrentTransaction(data.TerminalID)
	if !ok {
		return ErrTerminalNotFound
	}

	next := buildNextSnapshot(cur, data)

	applied, err := cur.Advance(next)
	if err != nil {
		return err
	}

	if err := s.DB.SaveCurrentTransaction(ctx, data.TerminalID, applied); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	s.Registry.CommitTransaction(data.TerminalID, applied)

	s.recordTransitionActivity(ctx, cur, applied, data)

	if applied.State == models.StateConfirmed || applied.State == models.StateFailed {
		s.recordSettledSale(ctx, applied, data)
	}

	rec, _ := s.Registry.Get(data.TerminalID)

	event := TerminalEvent{
		Type:        EventPaymentUpdated,
		TerminalID:  data.TerminalID,
		Transaction: applied,
	}
	if rec != nil {
		event.MerchantID = rec.Terminal.MerchantID
		event.Status = rec.Terminal.Status
	}

	s.Registry.Notify(event)

	return nil
}

// recordTransitionActivity appends the ledger entry for a lifecycle
// milestone. Confirmation increments are deliberately not ledgered.
func (s *Server) recordTransitionActivity(ctx context.Context, prev, applied *models.CurrentTransaction, data *models.PaymentEventData) {
	entry := &models.ActivityLogEntry{
		TerminalID: data.TerminalID,
		MerchantID: data.MerchantID,
		Timestamp:  data.Timestamp,
		User:       data.Operator,
		Result:     models.ResultSuccess,
	}

	if entry.MerchantID == "" {
		if rec, ok := s.Registry.Get(data.TerminalID); ok {
			entry.MerchantID = rec.Terminal.MerchantID
		}
	}

	switch applied.State {
	case models.StateAwaitingPayment:
		entry.Action = models.ActionSaleStarted
		entry.Details = fmt.Sprintf("%.2f %s (%g %s)",
			applied.FiatAmount, applied.FiatCurrency, applied.CryptoAmount, applied.CryptoCurrency)
	case models.StateDetected:
		entry.Action = models.ActionPaymentReceived
		entry.Details = fmt.Sprintf("Transaction: %s", applied.TxHash)
	case models.StateConfirmed:
		entry.Action = models.ActionPaymentConfirmed
		entry.Details = fmt.Sprintf("%.2f %s (%g %s)",
			applied.FiatAmount, applied.FiatCurrency, applied.CryptoAmount, applied.CryptoCurrency)
	case models.StateExpired:
		entry.Action = models.ActionPaymentExpired
		entry.Result = models.ResultFailure
		entry.Details = fmt.Sprintf("No payment received for %.2f %s",
			prev.FiatAmount, prev.FiatCurrency)
	case models.StateFailed:
		entry.Action = models.ActionPaymentFailed
		entry.Result = models.ResultFailure
		entry.Details = fmt.Sprintf("Transaction: %s", applied.TxHash)
	default:
		// confirming increments and slot resets are not ledgered
		return
	}

	if err := s.DB.AddActivity(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("terminal_id", data.TerminalID).
			Str("action", entry.Action).
			Msg("failed to append activity entry")
	}
}

// recordSettledSale writes the history row once a payment instance settles
// with an on-chain outcome.
func (s *Server) recordSettledSale(ctx context.Context, applied *models.CurrentTransaction, data *models.PaymentEventData) {
	rec, ok := s.Registry.Get(data.TerminalID)
	if !ok {
		return
	}

	status := models.TransactionCompleted
	if applied.State == models.StateFailed {
		status = models.TransactionFailed
	}

	tx := &models.Transaction{
		MerchantID:     rec.Terminal.MerchantID,
		TerminalID:     data.TerminalID,
		LocationID:     rec.Terminal.LocationID,
		Status:         status,
		AmountFiat:     applied.FiatAmount,
		FiatCurrency:   applied.FiatCurrency,
		AmountCrypto:   applied.CryptoAmount,
		CryptoCurrency: applied.CryptoCurrency,
		Chain:          applied.Chain,
		TxHash:         applied.TxHash,
		OperatorName:   data.Operator,
		CreatedAt:      applied.StartedAt,
	}

	if applied.State == models.StateConfirmed {
		tx.ConfirmedAt = data.Timestamp

		if !applied.StartedAt.IsZero() && data.Timestamp.After(applied.StartedAt) {
			tx.ConfirmationSeconds = int(data.Timestamp.Sub(applied.StartedAt) / time.Second)
		}
	}

	if err := s.DB.InsertTransaction(ctx, tx); err != nil {
		s.logger.Error().Err(err).
			Str("terminal_id", data.TerminalID).
			Str("tx_hash", applied.TxHash).
			Msg("failed to record settled sale")
	}
}
