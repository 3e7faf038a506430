// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

// Package config defines the Semantune server configuration and its
// layered loader: struct defaults, then an optional YAML file, then
// environment variables, with struct-tag validation on the result.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/RiverAge/semantune/internal/recommend"
)

// Config is the full Semantune server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server" json:"server"`
	Storage   StorageConfig   `koanf:"storage" json:"storage"`
	API       APIConfig       `koanf:"api" json:"api"`
	Events    EventsConfig    `koanf:"events" json:"events"`
	Recommend RecommendConfig `koanf:"recommend" json:"recommend"`
	Logging   LoggingConfig   `koanf:"logging" json:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host" json:"host" validate:"required"`

	// Port is the listen port.
	Port int `koanf:"port" json:"port" validate:"min=1,max=65535"`

	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `koanf:"read_timeout" json:"read_timeout" validate:"min=1s"`

	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout" validate:"min=1s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" validate:"min=1s"`
}

// StorageConfig holds the embedded store settings.
type StorageConfig struct {
	// Path is the data directory; catalog and signal stores live in
	// subdirectories beneath it.
	Path string `koanf:"path" json:"path" validate:"required"`

	// InMemory runs the stores without disk persistence. Test and
	// evaluation use only.
	InMemory bool `koanf:"in_memory" json:"in_memory"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval" validate:"min=1m"`
}

// APIConfig holds HTTP API behavior settings.
type APIConfig struct {
	// RateLimitReqs is the per-IP request budget per window. Zero
	// disables rate limiting.
	RateLimitReqs int `koanf:"rate_limit_requests" json:"rate_limit_requests" validate:"min=0"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window" json:"rate_limit_window" validate:"min=1s"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`
}

// EventsConfig holds the in-process play event bus settings.
type EventsConfig struct {
	// BufferSize is the per-subscriber channel buffer.
	BufferSize int `koanf:"buffer_size" json:"buffer_size" validate:"min=1"`

	// CloseTimeout bounds bus shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout" json:"close_timeout" validate:"min=1s"`
}

// RecommendConfig mirrors the engine configuration in file/env friendly
// form. It converts to the engine's own config via ToEngine.
type RecommendConfig struct {
	PlayCountWeight  float64 `koanf:"play_count_weight" json:"play_count_weight" validate:"min=0"`
	StarredWeight    float64 `koanf:"starred_weight" json:"starred_weight" validate:"min=0"`
	PlaylistWeight   float64 `koanf:"playlist_weight" json:"playlist_weight" validate:"min=0"`
	DecayWindowDays  float64 `koanf:"decay_window_days" json:"decay_window_days" validate:"gt=0"`
	MinDecay         float64 `koanf:"min_decay" json:"min_decay" validate:"gt=0,max=1"`
	MoodWeight       float64 `koanf:"mood_weight" json:"mood_weight" validate:"min=0"`
	EnergyWeight     float64 `koanf:"energy_weight" json:"energy_weight" validate:"min=0"`
	GenreWeight      float64 `koanf:"genre_weight" json:"genre_weight" validate:"min=0"`
	RegionWeight     float64 `koanf:"region_weight" json:"region_weight" validate:"min=0"`
	ExplorationRatio float64 `koanf:"exploration_ratio" json:"exploration_ratio" validate:"min=0,max=1"`
	PoolMultiplier   int     `koanf:"pool_multiplier" json:"pool_multiplier" validate:"min=1"`
	BandStart        float64 `koanf:"band_start" json:"band_start" validate:"min=0,max=1"`
	BandEnd          float64 `koanf:"band_end" json:"band_end" validate:"min=0,max=1,gtfield=BandStart"`
	MaxPerArtist     int     `koanf:"max_per_artist" json:"max_per_artist" validate:"min=1"`
	MaxPerAlbum      int     `koanf:"max_per_album" json:"max_per_album" validate:"min=1"`
	DefaultLimit     int     `koanf:"default_limit" json:"default_limit" validate:"min=1"`
	MaxLimit         int     `koanf:"max_limit" json:"max_limit" validate:"gtefield=DefaultLimit"`
	RecentWindow     int     `koanf:"recent_window" json:"recent_window" validate:"min=0"`

	MemoEnabled    bool          `koanf:"memo_enabled" json:"memo_enabled"`
	MemoTTL        time.Duration `koanf:"memo_ttl" json:"memo_ttl"`
	MemoMaxEntries int           `koanf:"memo_max_entries" json:"memo_max_entries"`

	// Seed pins the exploration sampler; zero selects a fixed default.
	Seed int64 `koanf:"seed" json:"seed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `koanf:"level" json:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`

	// Format is json or console.
	Format string `koanf:"format" json:"format" validate:"oneof=json console"`

	// Caller includes caller file/line in log output.
	Caller bool `koanf:"caller" json:"caller"`
}

// Default returns the stock configuration. Recommendation defaults match
// the engine's DefaultConfig.
func Default() *Config {
	engine := recommend.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4533,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path:       "/data/semantune",
			GCInterval: 10 * time.Minute,
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Events: EventsConfig{
			BufferSize:   256,
			CloseTimeout: 10 * time.Second,
		},
		Recommend: RecommendConfig{
			PlayCountWeight:  engine.Signal.PlayCount,
			StarredWeight:    engine.Signal.Starred,
			PlaylistWeight:   engine.Signal.Playlist,
			DecayWindowDays:  engine.Signal.DecayWindowDays,
			MinDecay:         engine.Signal.MinDecay,
			MoodWeight:       engine.Dimensions["mood"],
			EnergyWeight:     engine.Dimensions["energy"],
			GenreWeight:      engine.Dimensions["genre"],
			RegionWeight:     engine.Dimensions["region"],
			ExplorationRatio: engine.Sampler.ExplorationRatio,
			PoolMultiplier:   engine.Sampler.PoolMultiplier,
			BandStart:        engine.Sampler.BandStart,
			BandEnd:          engine.Sampler.BandEnd,
			MaxPerArtist:     engine.Diversity.MaxPerArtist,
			MaxPerAlbum:      engine.Diversity.MaxPerAlbum,
			DefaultLimit:     engine.Limits.DefaultLimit,
			MaxLimit:         engine.Limits.MaxLimit,
			RecentWindow:     engine.Limits.RecentWindow,
			MemoEnabled:      engine.Memo.Enabled,
			MemoTTL:          engine.Memo.TTL,
			MemoMaxEntries:   engine.Memo.MaxEntries,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ToEngine converts the flat file/env representation into the engine's
// configuration.
func (rc *RecommendConfig) ToEngine() *recommend.Config {
	return &recommend.Config{
		Signal: recommend.SignalWeights{
			PlayCount:       rc.PlayCountWeight,
			Starred:         rc.StarredWeight,
			Playlist:        rc.PlaylistWeight,
			DecayWindowDays: rc.DecayWindowDays,
			MinDecay:        rc.MinDecay,
		},
		Dimensions: map[string]float64{
			"mood":   rc.MoodWeight,
			"energy": rc.EnergyWeight,
			"genre":  rc.GenreWeight,
			"region": rc.RegionWeight,
		},
		Sampler: recommend.SamplerConfig{
			ExplorationRatio: rc.ExplorationRatio,
			PoolMultiplier:   rc.PoolMultiplier,
			BandStart:        rc.BandStart,
			BandEnd:          rc.BandEnd,
		},
		Diversity: recommend.DiversityConfig{
			MaxPerArtist: rc.MaxPerArtist,
			MaxPerAlbum:  rc.MaxPerAlbum,
		},
		Limits: recommend.LimitsConfig{
			DefaultLimit: rc.DefaultLimit,
			MaxLimit:     rc.MaxLimit,
			RecentWindow: rc.RecentWindow,
		},
		Memo: recommend.MemoConfig{
			Enabled:    rc.MemoEnabled,
			TTL:        rc.MemoTTL,
			MaxEntries: rc.MemoMaxEntries,
		},
		Seed: rc.Seed,
	}
}

// Validate checks the configuration: struct tags first, then the engine's
// own cross-field checks on the converted recommendation config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := c.Recommend.ToEngine().Validate(); err != nil {
		return fmt.Errorf("recommend config: %w", err)
	}
	return nil
}
