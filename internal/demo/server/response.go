package server

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Response is the envelope of every JSON response of the animals API.
//
// Every response echoes the request id, so a client report can be matched
// with the db events the request produced. List endpoints also report how
// many items came back, so a species without animals reads as count 0
// instead of a missing payload.
//
// Example list response:
//
//	{
//	  "data": [{"id": 1, "name": "Max", "species": "Lion"}],
//	  "meta": {"request_id": "5b0c6d0e-...", "count": 1}
//	}
//
// Example error response:
//
//	{
//	  "errors": [{"field": "species", "message": "is required"}],
//	  "message": "validation failed",
//	  "meta": {"request_id": "5b0c6d0e-..."}
//	}
type Response[T any] struct {
	Data    T       `json:"data,omitempty"`
	Errors  []Error `json:"errors,omitempty"`
	Message string  `json:"message,omitempty"`
	Meta    Meta    `json:"meta"`
}

// Meta describes the request a response answers.
type Meta struct {
	RequestID string `json:"request_id,omitempty"`

	// Count is set by WriteList only.
	Count *int `json:"count,omitempty"`
}

// Error is a single field-level error, e.g. a missing query parameter or a
// failing readiness check.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteJSON writes response with the given status code and stamps it with
// the request id carried by r.
//
// If encoding fails the error is only logged: the status line is already
// on the wire.
//
// Example:
//
//	server.WriteJSON(w, r, http.StatusOK, server.Response[database.Animal]{
//	    Data: database.Animal{ID: 1, Name: "Max", Species: "Lion"},
//	})
func WriteJSON[T any](w http.ResponseWriter, r *http.Request, statusCode int, response Response[T]) {
	if response.Meta.RequestID == "" {
		response.Meta.RequestID = RequestIDFromContext(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Err(err).
			Int("status_code", statusCode).
			Str("request_id", response.Meta.RequestID).
			Msg("failed to encode JSON response")
	}
}

// WriteError writes an error response.
//
// Example:
//
//	server.WriteError(w, r, http.StatusBadRequest, "validation failed",
//	    server.Error{Field: "species", Message: "is required"},
//	)
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, message string, errors ...Error) {
	WriteJSON(w, r, statusCode, Response[any]{
		Errors:  errors,
		Message: message,
	})
}

// WriteSuccess writes a success response carrying data.
func WriteSuccess[T any](w http.ResponseWriter, r *http.Request, statusCode int, data T, message string) {
	WriteJSON(w, r, statusCode, Response[T]{
		Data:    data,
		Message: message,
	})
}

// WriteList writes a 200 response carrying items and their count.
//
// Example:
//
//	animals, err := store.BySpecies(r.Context(), "Lion")
//	...
//	server.WriteList(w, r, animals)
func WriteList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	count := len(items)
	WriteJSON(w, r, http.StatusOK, Response[[]T]{
		Data: items,
		Meta: Meta{Count: &count},
	})
}
