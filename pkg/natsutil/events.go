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

// Package natsutil wires NATS JetStream connectivity for the terminal event
// stream.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/payradar/pkg/models"
)

// EventPublisher provides methods for publishing CloudEvents to NATS
// JetStream. In production the blockchain watcher is the publisher; this
// implementation backs integration tooling and the event simulator.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName string) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
	}
}

// PublishPaymentEvent publishes a payment lifecycle transition for one
// terminal.
func (p *EventPublisher) PublishPaymentEvent(ctx context.Context, data *models.PaymentEventData) error {
	subject := fmt.Sprintf("%s.%s", models.SubjectPaymentPrefix, data.TerminalID)

	return p.publish(ctx, models.EventTypePayment, subject, data.Timestamp, data)
}

// PublishHeartbeatEvent publishes a terminal heartbeat report.
func (p *EventPublisher) PublishHeartbeatEvent(ctx context.Context, data *models.HeartbeatEventData) error {
	subject := fmt.Sprintf("%s.%s", models.SubjectHeartbeatPrefix, data.TerminalID)

	return p.publish(ctx, models.EventTypeHeartbeat, subject, data.Timestamp, data)
}

func (p *EventPublisher) publish(ctx context.Context, eventType, subject string, ts time.Time, data interface{}) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          "payradar/watcher",
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Data:            data,
	}

	if !ts.IsZero() {
		event.Time = &ts
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if _, err := p.js.Publish(ctx, subject, eventBytes); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// Connect dials NATS, sets up JetStream and ensures the terminal event
// stream exists. The returned conn must be closed by the caller.
func Connect(ctx context.Context, cfg *models.NATSConfig) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{nats.Name("payradar-core")}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var js jetstream.JetStream

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := EnsureStream(ctx, js, cfg.StreamName); err != nil {
		nc.Close()
		return nil, nil, err
	}

	return nc, js, nil
}

// EnsureStream creates the terminal event stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream, streamName string) error {
	_, err := js.Stream(ctx, streamName)
	if err == nil {
		return nil
	}

	streamConfig := jetstream.StreamConfig{
		Name: streamName,
		Subjects: []string{
			models.SubjectPaymentPrefix + ".*",
			models.SubjectHeartbeatPrefix + ".*",
		},
		Retention: jetstream.LimitsPolicy,
	}

	if _, err := js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	return nil
}

// NewConsumer creates or looks up a durable consumer filtered to the given
// subjects.
func NewConsumer(ctx context.Context, js jetstream.JetStream, streamName, durable string, subjects []string) (jetstream.Consumer, error) {
	consumer, err := js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:        durable,
		AckPolicy:      jetstream.AckExplicitPolicy,
		FilterSubjects: subjects,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer %s: %w", durable, err)
	}

	return consumer, nil
}
