package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteDomainError maps domain error types to HTTP status codes
func WriteDomainError(w http.ResponseWriter, err error) error {
	var notFound *models.NotFoundError
	var validation *models.ValidationError
	var filterSyntax *models.FilterSyntaxError
	var noDocs *models.NoDocumentsIndexedError

	switch {
	case errors.As(err, &notFound):
		return WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation), errors.As(err, &filterSyntax):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &noDocs):
		return WriteError(w, http.StatusConflict, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// streamTurn writes generation events as chunked plain text. Deltas are
// flushed as they arrive; the stream ends with "\n[DONE]" on success or
// "\n[ERROR] <reason>" on failure.
func streamTurn(w http.ResponseWriter, stream <-chan interfaces.StreamEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for event := range stream {
		switch event.Type {
		case interfaces.StreamEventDelta:
			io.WriteString(w, event.Delta)
			flusher.Flush()
		case interfaces.StreamEventDone:
			io.WriteString(w, "\n[DONE]")
			flusher.Flush()
			return
		case interfaces.StreamEventError:
			io.WriteString(w, "\n[ERROR] "+event.Err.Error())
			flusher.Flush()
			return
		}
	}
}

// collectTurn drains a generation stream into the full answer text
func collectTurn(stream <-chan interfaces.StreamEvent) (string, error) {
	var answer []byte
	for event := range stream {
		switch event.Type {
		case interfaces.StreamEventDelta:
			answer = append(answer, event.Delta...)
		case interfaces.StreamEventDone:
			return string(answer), nil
		case interfaces.StreamEventError:
			return "", event.Err
		}
	}
	return "", fmt.Errorf("stream ended without completion")
}

// lastReferences returns the references grounding the most recent turn. The
// scan stops at the last human input so a failed turn never reports the
// previous answer's references as its own.
func lastReferences(history []models.Turn) []models.QueryReference {
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Type {
		case models.TurnAIReferences:
			return history[i].References
		case models.TurnHumanInput:
			return nil
		}
	}
	return nil
}

// GetPaginationParams extracts limit and offset from the query string.
// Defaults to limit 20, capped at 100.
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
