// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/RiverAge/semantune/internal/catalog"
	"github.com/RiverAge/semantune/internal/config"
	"github.com/RiverAge/semantune/internal/recommend"
	"github.com/RiverAge/semantune/internal/signals"
	"github.com/RiverAge/semantune/internal/vocab"
)

// envelope mirrors APIResponse with raw data for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type testServer struct {
	ts       *httptest.Server
	tracks   *catalog.MemoryStore
	signals  *signals.MemoryStore
	engine   *recommend.Engine
	bus      *signals.EventBus
	consumer *signals.Consumer
	cancel   context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tracks := catalog.NewMemoryStore()
	sigStore := signals.NewMemoryStore()

	engine, err := recommend.NewEngine(recommend.DefaultConfig(), sigStore, tracks, vocab.Default(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	bus := signals.NewEventBus(signals.BusConfig{BufferSize: 8}, zerolog.Nop())
	consumer := signals.NewConsumer(bus, sigStore, engine, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = consumer.Serve(ctx) }()
	select {
	case <-consumer.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never became ready")
	}

	handler := NewHandler(engine, tracks, sigStore, bus, zerolog.Nop())
	router := NewRouter(config.APIConfig{CORSOrigins: []string{"*"}}, handler, zerolog.Nop())
	ts := httptest.NewServer(router)

	srv := &testServer{
		ts:       ts,
		tracks:   tracks,
		signals:  sigStore,
		engine:   engine,
		bus:      bus,
		consumer: consumer,
		cancel:   cancel,
	}
	t.Cleanup(func() {
		ts.Close()
		cancel()
		_ = bus.Close()
	})
	return srv
}

func (s *testServer) seedTrack(t *testing.T, id, artist, mood string) {
	t.Helper()
	err := s.tracks.Put(context.Background(), recommend.Track{
		ID:     id,
		Title:  id,
		Artist: artist,
		Album:  "album-" + artist,
		Tags:   map[string][]string{"mood": {mood}},
	})
	if err != nil {
		t.Fatalf("seed track %s: %v", id, err)
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, env
}

func TestRecommendationsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedTrack(t, "seed", "artist-x", "Happy")
	s.seedTrack(t, "match", "artist-y", "Happy")
	s.seedTrack(t, "miss", "artist-z", "Sad")

	now := time.Now().UTC()
	if err := s.signals.RecordPlay(context.Background(), "u1", "seed", now); err != nil {
		t.Fatalf("RecordPlay() error: %v", err)
	}

	resp, env := s.do(t, http.MethodGet, "/api/v1/recommendations?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.Success {
		t.Fatalf("success = false, error: %+v", env.Error)
	}
	if env.Meta == nil || env.Meta.RequestID == "" {
		t.Error("meta request ID missing")
	}

	var recs recommend.Response
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatalf("decode recommendations: %v", err)
	}
	if len(recs.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs.Recommendations))
	}
	if recs.Recommendations[0].Track.ID != "match" {
		t.Errorf("top recommendation = %s, want match", recs.Recommendations[0].Track.ID)
	}
	for _, rec := range recs.Recommendations {
		if rec.Track.ID == "seed" {
			t.Error("already played track recommended")
		}
	}
}

func TestRecommendationsValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		path string
	}{
		{"missing user_id", "/api/v1/recommendations"},
		{"bad limit", "/api/v1/recommendations?user_id=u1&limit=abc"},
		{"negative limit", "/api/v1/recommendations?user_id=u1&limit=-5"},
		{"bad filter_recent", "/api/v1/recommendations?user_id=u1&filter_recent=maybe"},
		{"bad diversity", "/api/v1/recommendations?user_id=u1&diversity=2x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := s.do(t, http.MethodGet, tc.path, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if env.Error == nil || env.Error.Code != ErrCodeBadRequest {
				t.Errorf("error = %+v, want %s", env.Error, ErrCodeBadRequest)
			}
		})
	}
}

func TestRecommendationsEmptySignal(t *testing.T) {
	s := newTestServer(t)
	s.seedTrack(t, "only", "artist-x", "Happy")

	resp, env := s.do(t, http.MethodGet, "/api/v1/recommendations?user_id=nobody", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var recs recommend.Response
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatalf("decode recommendations: %v", err)
	}
	if len(recs.Recommendations) != 0 {
		t.Errorf("got %d recommendations for user with no signal, want 0", len(recs.Recommendations))
	}
}

func TestProfileEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedTrack(t, "t1", "artist-x", "Happy")
	if err := s.signals.RecordPlay(context.Background(), "u1", "t1", time.Now().UTC()); err != nil {
		t.Fatalf("RecordPlay() error: %v", err)
	}

	resp, env := s.do(t, http.MethodGet, "/api/v1/profile/u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var profile recommend.Profile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.UserID != "u1" {
		t.Errorf("profile user = %s, want u1", profile.UserID)
	}
	if w := profile.Taste.Weight("mood", "Happy"); w != 1.0 {
		t.Errorf("Happy weight = %v, want 1.0", w)
	}
	if profile.Stats.TotalPlays != 1 {
		t.Errorf("total plays = %d, want 1", profile.Stats.TotalPlays)
	}
}

func TestPostPlayFoldsIntoStore(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/v1/plays", signals.PlayEvent{
		UserID:  "u1",
		TrackID: "t1",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if !env.Success {
		t.Fatalf("success = false, error: %+v", env.Error)
	}

	// The consumer folds the play asynchronously.
	deadline := time.After(5 * time.Second)
	for {
		history, err := s.signals.GetPlayHistory(context.Background(), "u1")
		if err != nil {
			t.Fatalf("GetPlayHistory() error: %v", err)
		}
		if history["t1"].PlayCount == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("play never folded into the signal store")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPostPlayValidation(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/v1/plays", signals.PlayEvent{TrackID: "t1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeBadRequest)
	}
}

func TestStarEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPut, "/api/v1/stars/u1/t1", starRequest{Starred: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	history, err := s.signals.GetPlayHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPlayHistory() error: %v", err)
	}
	if !history["t1"].Starred {
		t.Error("star not recorded")
	}
}

func TestPlaylistEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPut, "/api/v1/playlists/u1/t1", playlistRequest{Count: 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	memberships, err := s.signals.GetPlaylistMemberships(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPlaylistMemberships() error: %v", err)
	}
	if memberships["t1"] != 2 {
		t.Errorf("membership = %d, want 2", memberships["t1"])
	}

	resp, env := s.do(t, http.MethodPut, "/api/v1/playlists/u1/t1", playlistRequest{Count: -1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative count status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil {
		t.Error("negative count returned no error body")
	}
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)

	batch := []recommend.Track{
		{ID: "t1", Title: "One", Artist: "a", Tags: map[string][]string{"mood": {"Happy"}}},
		{ID: "t2", Title: "Two", Artist: "b", Tags: map[string][]string{"mood": {"Sad"}}},
	}
	resp, env := s.do(t, http.MethodPut, "/api/v1/catalog/tracks", batch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batch status = %d, want 200", resp.StatusCode)
	}
	var ingested map[string]int
	if err := json.Unmarshal(env.Data, &ingested); err != nil {
		t.Fatalf("decode batch response: %v", err)
	}
	if ingested["ingested"] != 2 {
		t.Errorf("ingested = %d, want 2", ingested["ingested"])
	}

	resp, env = s.do(t, http.MethodGet, "/api/v1/catalog/tracks/t1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	var track recommend.Track
	if err := json.Unmarshal(env.Data, &track); err != nil {
		t.Fatalf("decode track: %v", err)
	}
	if track.Title != "One" {
		t.Errorf("track title = %s, want One", track.Title)
	}

	resp, env = s.do(t, http.MethodGet, "/api/v1/catalog/tracks/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing track status = %d, want 404", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want %s", env.Error, ErrCodeNotFound)
	}

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/catalog/tracks/t1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	if count, _ := s.tracks.Count(); count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}
}

func TestCatalogBatchValidation(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPut, "/api/v1/catalog/tracks", []recommend.Track{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", resp.StatusCode)
	}

	resp, _ = s.do(t, http.MethodPut, "/api/v1/catalog/tracks", []recommend.Track{{Title: "no id"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing ID batch status = %d, want 400", resp.StatusCode)
	}
}

func TestStatusAndHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seedTrack(t, "t1", "artist-x", "Happy")

	resp, env := s.do(t, http.MethodGet, "/api/v1/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", resp.StatusCode)
	}
	var status statusPayload
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.CatalogTracks != 1 {
		t.Errorf("catalog tracks = %d, want 1", status.CatalogTracks)
	}

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		resp, env := s.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, resp.StatusCode)
		}
		if !env.Success {
			t.Errorf("%s success = false", path)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, s.ts.URL+"/api/v1/health/live", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(requestIDHeader, "fixed-id")
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get(requestIDHeader); got != "fixed-id" {
		t.Errorf("request ID header = %q, want fixed-id", got)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Meta == nil || env.Meta.RequestID != "fixed-id" {
		t.Errorf("meta request ID = %+v, want fixed-id", env.Meta)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.ts.Client().Get(s.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimitEnforced(t *testing.T) {
	tracks := catalog.NewMemoryStore()
	sigStore := signals.NewMemoryStore()
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), sigStore, tracks, vocab.Default(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	bus := signals.NewEventBus(signals.BusConfig{BufferSize: 8}, zerolog.Nop())
	defer func() { _ = bus.Close() }()

	handler := NewHandler(engine, tracks, sigStore, bus, zerolog.Nop())
	router := NewRouter(config.APIConfig{
		RateLimitReqs:   2,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}, handler, zerolog.Nop())
	ts := httptest.NewServer(router)
	defer ts.Close()

	var last int
	for i := 0; i < 3; i++ {
		resp, err := ts.Client().Get(ts.URL + "/api/v1/health/live")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		last = resp.StatusCode
		_ = resp.Body.Close()
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}
