package handlers

import (
	"encoding/json"
	"net/http"
)

// Response bodies.
const (
	msgExecuted = "Order executed successfully"

	errInvalidJSON   = "Invalid JSON payload"
	errInvalidOrder  = "Invalid order request"
	errAuthFailed    = "Authentication failed"
	errConfigMissing = "Broker configuration incomplete"
	errOrderFailed   = "Order execution failed"
	errInternal      = "Internal error"
	errUnauthorized  = "Unauthorized"
)

type successResponse struct {
	Message string `json:"message"`
	Details any    `json:"details"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
