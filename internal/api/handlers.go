// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/catalog"
	"github.com/RiverAge/semantune/internal/metrics"
	"github.com/RiverAge/semantune/internal/recommend"
	"github.com/RiverAge/semantune/internal/signals"
)

// maxBodyBytes bounds request bodies; catalog sync batches dominate.
const maxBodyBytes = 8 << 20

// Recommender is the engine surface the API depends on.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	BuildProfile(ctx context.Context, userID string) (*recommend.Profile, error)
	GetMetrics() recommend.Metrics
}

// TrackStore is the catalog surface the API depends on. Both
// catalog.BadgerStore and catalog.MemoryStore satisfy it.
type TrackStore interface {
	recommend.CatalogProvider
	Put(ctx context.Context, track recommend.Track) error
	PutBatch(ctx context.Context, tracks []recommend.Track) error
	Get(ctx context.Context, id string) (recommend.Track, error)
	Delete(ctx context.Context, id string) error
	Count() (int64, error)
}

// SignalWriter is the signal-store surface for star and playlist
// updates. Plays go through the event bus instead.
type SignalWriter interface {
	SetStarred(ctx context.Context, userID, trackID string, starred bool) error
	SetPlaylistMembership(ctx context.Context, userID, trackID string, count int) error
}

// PlayPublisher pushes play events onto the bus.
type PlayPublisher interface {
	PublishPlay(ctx context.Context, event signals.PlayEvent) error
}

// Handler implements the Semantune HTTP API.
type Handler struct {
	engine  Recommender
	tracks  TrackStore
	signals SignalWriter
	bus     PlayPublisher
	logger  zerolog.Logger
}

// NewHandler creates the API handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine Recommender, tracks TrackStore, sig SignalWriter, bus PlayPublisher, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		tracks:  tracks,
		signals: sig,
		bus:     bus,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// GetRecommendations handles GET /api/v1/recommendations.
//
// Query parameters: user_id (required), limit, filter_recent, diversity.
// Diversity defaults to on; the flat top-N list is opt-in.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, r, "user_id is required", "")
		return
	}

	req := recommend.Request{
		UserID:    userID,
		Diversity: true,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, r, "limit must be a non-negative integer", raw)
			return
		}
		req.Limit = limit
	}
	var err error
	if req.FilterRecent, err = boolParam(r, "filter_recent", false); err != nil {
		badRequest(w, r, "filter_recent must be a boolean", "")
		return
	}
	if req.Diversity, err = boolParam(r, "diversity", true); err != nil {
		badRequest(w, r, "diversity must be a boolean", "")
		return
	}

	start := time.Now()
	resp, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		metrics.RecordRecommendRequest("error", time.Since(start), 0)
		internalError(w, r, err)
		return
	}
	outcome := "ok"
	if len(resp.Recommendations) == 0 {
		outcome = "empty"
	}
	metrics.RecordRecommendRequest(outcome, time.Since(start), resp.TotalCandidates)

	respond(w, r, http.StatusOK, resp)
}

// GetProfile handles GET /api/v1/profile/{userID}. An unknown user is
// not an error; the profile is simply empty.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		badRequest(w, r, "userID is required", "")
		return
	}

	start := time.Now()
	profile, err := h.engine.BuildProfile(r.Context(), userID)
	if err != nil {
		metrics.RecordProfileBuild("error", time.Since(start))
		internalError(w, r, err)
		return
	}
	outcome := "ok"
	if profile.Taste.IsZero() {
		outcome = "empty"
	}
	metrics.RecordProfileBuild(outcome, time.Since(start))

	respond(w, r, http.StatusOK, profile)
}

// PostPlay handles POST /api/v1/plays. The play is published to the
// in-process bus and folded into the signal store asynchronously, so the
// endpoint answers 202.
func (h *Handler) PostPlay(w http.ResponseWriter, r *http.Request) {
	var event signals.PlayEvent
	if err := decodeBody(w, r, &event); err != nil {
		badRequest(w, r, "invalid play event", err.Error())
		return
	}
	if err := event.Validate(); err != nil {
		badRequest(w, r, "invalid play event", err.Error())
		return
	}
	if err := h.bus.PublishPlay(r.Context(), event); err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusAccepted, map[string]string{
		"user_id":  event.UserID,
		"track_id": event.TrackID,
	})
}

// starRequest is the body of PUT /api/v1/stars/{userID}/{trackID}.
type starRequest struct {
	Starred bool `json:"starred"`
}

// PutStar handles PUT /api/v1/stars/{userID}/{trackID}.
func (h *Handler) PutStar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	trackID := chi.URLParam(r, "trackID")

	var req starRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, r, "invalid star request", err.Error())
		return
	}
	if err := h.signals.SetStarred(r.Context(), userID, trackID, req.Starred); err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"starred": req.Starred})
}

// playlistRequest is the body of PUT /api/v1/playlists/{userID}/{trackID}.
type playlistRequest struct {
	Count int `json:"count"`
}

// PutPlaylistMembership handles PUT /api/v1/playlists/{userID}/{trackID}.
// A count of zero removes the membership entry.
func (h *Handler) PutPlaylistMembership(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	trackID := chi.URLParam(r, "trackID")

	var req playlistRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, r, "invalid playlist request", err.Error())
		return
	}
	if req.Count < 0 {
		badRequest(w, r, "count must be >= 0", strconv.Itoa(req.Count))
		return
	}
	if err := h.signals.SetPlaylistMembership(r.Context(), userID, trackID, req.Count); err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]int{"count": req.Count})
}

// PutCatalogTracks handles PUT /api/v1/catalog/tracks: batch upsert from
// the tagging pipeline.
func (h *Handler) PutCatalogTracks(w http.ResponseWriter, r *http.Request) {
	var tracks []recommend.Track
	if err := decodeBody(w, r, &tracks); err != nil {
		badRequest(w, r, "invalid track batch", err.Error())
		return
	}
	if len(tracks) == 0 {
		badRequest(w, r, "track batch is empty", "")
		return
	}
	if err := h.tracks.PutBatch(r.Context(), tracks); err != nil {
		badRequest(w, r, "track batch rejected", err.Error())
		return
	}
	h.logger.Info().Int("tracks", len(tracks)).Msg("catalog batch ingested")
	respond(w, r, http.StatusOK, map[string]int{"ingested": len(tracks)})
}

// GetCatalogTrack handles GET /api/v1/catalog/tracks/{trackID}.
func (h *Handler) GetCatalogTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackID")
	track, err := h.tracks.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		notFound(w, r, fmt.Sprintf("track %s not found", id))
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, track)
}

// DeleteCatalogTrack handles DELETE /api/v1/catalog/tracks/{trackID}.
// Deleting an absent track succeeds.
func (h *Handler) DeleteCatalogTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackID")
	if err := h.tracks.Delete(r.Context(), id); err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusPayload is the body of GET /api/v1/status.
type statusPayload struct {
	CatalogTracks int64             `json:"catalog_tracks"`
	Engine        recommend.Metrics `json:"engine"`
}

// GetStatus handles GET /api/v1/status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.tracks.Count()
	if err != nil {
		internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, statusPayload{
		CatalogTracks: count,
		Engine:        h.engine.GetMetrics(),
	})
}

// GetHealthLive handles GET /api/v1/health/live.
func (h *Handler) GetHealthLive(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// GetHealthReady handles GET /api/v1/health/ready. Ready means the
// catalog store answers queries.
func (h *Handler) GetHealthReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tracks.Count(); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "catalog store unavailable", "")
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// decodeBody decodes a JSON request body with a size cap and strict
// field checking.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}
