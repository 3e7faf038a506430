// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/metrics"
)

// TopicPlayed is the play event topic.
const TopicPlayed = "playback.played"

// PlayEvent is one playback ingestion event. It is the only write path
// into the play-signal side of the store at runtime.
type PlayEvent struct {
	// UserID is the listening user.
	UserID string `json:"user_id"`

	// TrackID is the played track.
	TrackID string `json:"track_id"`

	// PlayedAt is when the play happened. Zero means "now" at publish.
	PlayedAt time.Time `json:"played_at"`
}

// Validate checks the event for required fields.
func (e *PlayEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("play event missing user_id")
	}
	if e.TrackID == "" {
		return fmt.Errorf("play event missing track_id")
	}
	return nil
}

// BusConfig configures the in-process event bus.
type BusConfig struct {
	// BufferSize is the per-subscriber channel buffer.
	BufferSize int

	// CloseTimeout bounds bus shutdown.
	CloseTimeout time.Duration
}

// EventBus is an in-process play event bus over Watermill's gochannel
// pub/sub. Semantune runs as a single process, so no external broker is
// involved; the bus still decouples the HTTP ingestion path from signal
// store writes.
type EventBus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
}

// NewEventBus creates the bus.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEventBus(cfg BusConfig, logger zerolog.Logger) *EventBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	busLogger := logger.With().Str("component", "eventbus").Logger()
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(cfg.BufferSize),
			BlockPublishUntilSubscriberAck: false,
		},
		newWatermillAdapter(busLogger),
	)
	return &EventBus{pubsub: pubsub, logger: busLogger}
}

// PublishPlay publishes one play event. A zero PlayedAt is stamped with
// the current time so decay never sees a missing timestamp from the
// live ingestion path.
func (b *EventBus) PublishPlay(_ context.Context, event PlayEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.PlayedAt.IsZero() {
		event.PlayedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal play event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.pubsub.Publish(TopicPlayed, msg); err != nil {
		return fmt.Errorf("publish play event: %w", err)
	}
	metrics.RecordEventPublished()
	return nil
}

// Subscribe returns the play event message stream.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, TopicPlayed)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicPlayed, err)
	}
	return ch, nil
}

// Close shuts the bus down, releasing all subscribers.
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}

// watermillAdapter bridges watermill's LoggerAdapter to zerolog.
type watermillAdapter struct {
	logger zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newWatermillAdapter(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillAdapter{logger: logger}
}

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.event(a.logger.Error().Err(err), fields).Msg(msg)
}

func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.event(a.logger.Info(), fields).Msg(msg)
}

func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.event(a.logger.Debug(), fields).Msg(msg)
}

func (a *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.event(a.logger.Trace(), fields).Msg(msg)
}

func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	logger := a.logger
	for k, v := range fields {
		logger = logger.With().Interface(k, v).Logger()
	}
	return &watermillAdapter{logger: logger}
}

func (a *watermillAdapter) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
