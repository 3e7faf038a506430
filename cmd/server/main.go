// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package main is the entry point for the Semantune server.
//
// Semantune serves content-based music recommendations for a personal
// music server. Tracks carry semantic tags (mood, energy, genre,
// region) produced by an upstream tagging pipeline; listening signals
// (plays, stars, playlist memberships) are folded into per-user taste
// profiles, and recommendations are scored by tag similarity with
// exploration sampling and artist/album diversity caps.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Stores: embedded BadgerDB catalog and signal stores
//  3. Engine: the recommendation pipeline with its advisory memo cache
//  4. Event bus: in-process Watermill pub/sub for play ingestion
//  5. Supervision: a suture tree running the consumer, GC loop, and HTTP server
//
// # Configuration
//
// Configuration layers (highest priority wins):
//   - Environment variables (SEMANTUNE_ prefix, e.g. SEMANTUNE_SERVER_PORT)
//   - Config file (semantune.yaml, or SEMANTUNE_CONFIG)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the consumer finishes the event it
// is handling, and the stores are closed last.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/api"
	"github.com/RiverAge/semantune/internal/catalog"
	"github.com/RiverAge/semantune/internal/config"
	"github.com/RiverAge/semantune/internal/logging"
	"github.com/RiverAge/semantune/internal/recommend"
	"github.com/RiverAge/semantune/internal/signals"
	"github.com/RiverAge/semantune/internal/supervisor"
	"github.com/RiverAge/semantune/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()
	mainLogger := logging.WithComponent("main")
	mainLogger.Info().
		Str("addr", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("in_memory", cfg.Storage.InMemory).
		Msg("starting semantune")

	catalogStore, err := catalog.Open(catalog.Options{
		Path:     filepath.Join(cfg.Storage.Path, "catalog"),
		InMemory: cfg.Storage.InMemory,
		Logger:   logger,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open catalog store")
	}
	defer func() {
		if cerr := catalogStore.Close(); cerr != nil {
			mainLogger.Error().Err(cerr).Msg("failed to close catalog store")
		}
	}()

	signalStore, err := signals.Open(signals.Options{
		Path:     filepath.Join(cfg.Storage.Path, "signals"),
		InMemory: cfg.Storage.InMemory,
		Logger:   logger,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open signal store")
	}
	defer func() {
		if cerr := signalStore.Close(); cerr != nil {
			mainLogger.Error().Err(cerr).Msg("failed to close signal store")
		}
	}()

	engine, err := recommend.NewEngine(cfg.Recommend.ToEngine(), signalStore, catalogStore, vocab.Default(), logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build recommendation engine")
	}

	bus := signals.NewEventBus(signals.BusConfig{
		BufferSize:   cfg.Events.BufferSize,
		CloseTimeout: cfg.Events.CloseTimeout,
	}, logger)
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			mainLogger.Error().Err(cerr).Msg("failed to close event bus")
		}
	}()
	consumer := signals.NewConsumer(bus, signalStore, engine, logger)

	handler := api.NewHandler(engine, catalogStore, signalStore, bus, logger)
	router := api.NewRouter(cfg.API, handler, logger)
	httpServer := api.NewServer(cfg.Server, router, logger)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddEventService(consumer)
	tree.AddAPIService(httpServer)
	if !cfg.Storage.InMemory {
		tree.AddEventService(&gcLoop{
			interval: cfg.Storage.GCInterval,
			catalog:  catalogStore,
			signals:  signalStore,
			logger:   logging.WithComponent("gc"),
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The bus drops events published before the consumer subscribes;
	// log once ingestion is live.
	go func() {
		select {
		case <-consumer.Ready():
			mainLogger.Info().Msg("play ingestion ready")
		case <-ctx.Done():
		}
	}()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		if unstopped, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(unstopped) > 0 {
			for _, svc := range unstopped {
				mainLogger.Warn().Str("service", svc.Name).Msg("service did not stop in time")
			}
		}
		mainLogger.Error().Err(err).Msg("supervisor tree exited with error")
		os.Exit(1)
	}
	mainLogger.Info().Msg("semantune stopped")
}

// gcRatio is Badger's recommended value-log GC discard ratio.
const gcRatio = 0.5

// gcLoop periodically runs BadgerDB value-log garbage collection on
// both stores. Implements suture.Service.
type gcLoop struct {
	interval time.Duration
	catalog  *catalog.BadgerStore
	signals  *signals.BadgerStore
	logger   zerolog.Logger
}

// Serve runs GC rounds until the context is canceled.
func (g *gcLoop) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.catalog.RunGC(gcRatio); err != nil {
				g.logger.Warn().Err(err).Msg("catalog gc failed")
			}
			if err := g.signals.RunGC(gcRatio); err != nil {
				g.logger.Warn().Err(err).Msg("signal gc failed")
			}
			g.logger.Debug().Msg("gc round complete")
		}
	}
}

// String names the service in supervisor logs.
func (g *gcLoop) String() string { return "badger-gc" }
