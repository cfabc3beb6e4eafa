// Common helper functions shared by the HTTP handlers.

package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/clinsignal/clinsignal/pkg/errors"
)

// maxBodyBytes caps request body size; clinical notes are text and never
// legitimately approach this limit.
const maxBodyBytes = 4 << 20

// decodeJSON reads and decodes a JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return errors.InvalidInput("decode_request", "request body is not valid JSON")
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps application-level errors to HTTP status codes using
// the error taxonomy.  Internal errors are masked so stack details never
// reach the client.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, ErrorResponse{Code: code.String(), Message: msg})
}
