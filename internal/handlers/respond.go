// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the catalogd backend.
// Handlers receive their dependencies through the handler struct and
// respond with a uniform JSON envelope.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the uniform response body shape. Every endpoint answers
// with success, a human-readable message, and an optional payload.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// respondJSON writes the envelope with the given status code.
func respondJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondOK writes a successful envelope with the given payload.
func respondOK(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// respondError writes a failure envelope with no payload.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Success: false, Message: message})
}

// respondValidation writes a 422 with per-field error messages.
func respondValidation(w http.ResponseWriter, errs map[string][]string) {
	respondJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Message: "Validation failed.",
		Errors:  errs,
	})
}

// respondNotFound writes the standard 404 envelope.
func respondNotFound(w http.ResponseWriter) {
	respondError(w, http.StatusNotFound, "Category not found.")
}

// respondInternal logs the error and writes the generic 500 envelope.
// Internal details never leak to the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
