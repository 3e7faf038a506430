// Semantune - Personal Music Server Tagging and Recommendations
// Copyright 2026 RiverAge
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/RiverAge/semantune

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/RiverAge/semantune/internal/logging"
)

// Error codes returned in the error envelope.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodePayloadLarge = "PAYLOAD_TOO_LARGE"
)

// APIResponse is the uniform JSON envelope for every API endpoint.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// APIMeta carries per-request diagnostics.
type APIMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeJSON serializes the envelope. Serialization failures at this
// point can only be logged; the status line has already been sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// respond writes a success envelope with the given payload.
func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, &APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			RequestID: logging.RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}

// respondError writes an error envelope. details may be empty.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	writeJSON(w, r, status, &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &APIMeta{
			RequestID: logging.RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, message, details string) {
	respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, message, details)
}

func notFound(w http.ResponseWriter, r *http.Request, message string) {
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, message, "")
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	// Internal detail stays in the log, not the response body.
	respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "internal server error", "")
}
