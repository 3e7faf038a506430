// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/metrics"
)

// PlayRecorder is the write-side surface the consumer folds events into.
// Both BadgerStore and MemoryStore satisfy it.
type PlayRecorder interface {
	RecordPlay(ctx context.Context, userID, trackID string, playedAt time.Time) error
}

// MemoInvalidator clears derived caches after signal updates. The
// recommendation engine satisfies it.
type MemoInvalidator interface {
	InvalidateMemo()
}

// Consumer drains the play event bus into the signal store. It
// implements suture.Service via Serve and restarts cleanly: the
// subscription is re-established on every Serve call.
type Consumer struct {
	bus         *EventBus
	store       PlayRecorder
	invalidator MemoInvalidator
	logger      zerolog.Logger

	// ready closes once the first subscription is established. The bus
	// drops events published before any subscriber exists, so startup
	// waits on Ready before accepting play submissions.
	ready     chan struct{}
	readyOnce sync.Once
}

// NewConsumer creates a play event consumer. invalidator may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(bus *EventBus, store PlayRecorder, invalidator MemoInvalidator, logger zerolog.Logger) *Consumer {
	return &Consumer{
		bus:         bus,
		store:       store,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "play-consumer").Logger(),
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the consumer is subscribed and draining events.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

// Serve consumes play events until the context is canceled. Malformed
// events are acked and dropped; store failures nack the message so the
// bus can redeliver.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info().Str("topic", TopicPlayed).Msg("play event consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("play event consumer stopping")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("play event stream closed")
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	var event PlayEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed play event")
		metrics.RecordEventConsumed(err)
		msg.Ack()
		return
	}
	if err := event.Validate(); err != nil {
		c.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping invalid play event")
		metrics.RecordEventConsumed(err)
		msg.Ack()
		return
	}

	err := c.store.RecordPlay(ctx, event.UserID, event.TrackID, event.PlayedAt)
	metrics.RecordEventConsumed(err)
	if err != nil {
		c.logger.Error().Err(err).
			Str("user_id", event.UserID).
			Str("track_id", event.TrackID).
			Msg("failed to record play")
		msg.Nack()
		return
	}

	if c.invalidator != nil {
		c.invalidator.InvalidateMemo()
	}
	c.logger.Debug().
		Str("user_id", event.UserID).
		Str("track_id", event.TrackID).
		Msg("play recorded")
	msg.Ack()
}

// String names the service in supervisor logs.
func (c *Consumer) String() string { return "play-consumer" }
