package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "signal_relay/internal/errors"
	"signal_relay/internal/services"
	"signal_relay/internal/telemetry"
)

const (
	tokenHeader = "X-Webhook-Token"
	tokenField  = "token"

	maxPayloadBytes = 64 << 10
)

// WebhookHandler turns alert payloads into brokerage orders.
type WebhookHandler struct {
	relay   *services.RelayService
	metrics *telemetry.Metrics
	token   string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(deps *Dependencies) *WebhookHandler {
	return &WebhookHandler{
		relay:   deps.Relay,
		metrics: deps.Metrics,
		token:   deps.WebhookToken,
	}
}

// ServeHTTP handles POST /webhook. Pipeline outcomes are always answered
// with HTTP 200; only a failed token check changes the status.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := telemetry.L(r.Context())

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("webhook panic", "panic", rec)
			h.metrics.ObserveWebhook("internal")
			writeJSON(w, http.StatusOK, errorResponse{Error: errInternal})
		}
	}()

	payload, err := decodePayload(w, r)
	if err != nil {
		log.Warn("undecodable webhook payload", "error", err)
		h.metrics.ObserveWebhook("invalid_json")
		writeJSON(w, http.StatusOK, errorResponse{Error: errInvalidJSON})
		return
	}

	if !h.authorized(r, payload) {
		log.Warn("webhook token mismatch", "remote", r.RemoteAddr)
		h.metrics.ObserveWebhook("unauthorized")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errUnauthorized})
		return
	}
	delete(payload, tokenField)

	out := h.relay.Relay(r.Context(), payload)
	w.Header().Set("X-Signal-ID", out.SignalID)

	if out.Executed() {
		writeJSON(w, http.StatusOK, successResponse{Message: msgExecuted, Details: out.Result.Details()})
		return
	}
	writeJSON(w, http.StatusOK, failureResponse(out))
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return payload, nil
}

func (h *WebhookHandler) authorized(r *http.Request, payload map[string]any) bool {
	if h.token == "" {
		return true
	}
	got := r.Header.Get(tokenHeader)
	if got == "" {
		got, _ = payload[tokenField].(string)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func failureResponse(out services.Outcome) errorResponse {
	err := out.Err
	appErr, _ := apperrors.As(err)

	switch {
	case apperrors.IsValidation(err):
		return errorResponse{Error: errInvalidOrder, Details: appErr.Message}
	case apperrors.IsConfiguration(err):
		return errorResponse{Error: errConfigMissing, Details: appErr.Detail("missing")}
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return errorResponse{Error: errAuthFailed}
	case apperrors.IsAuthentication(err):
		return errorResponse{Error: errAuthFailed, Details: err.Error()}
	case apperrors.IsSubmission(err):
		var details any = err.Error()
		if out.Result != nil {
			details = out.Result.Details()
		}
		return errorResponse{Error: errOrderFailed, Details: details}
	default:
		return errorResponse{Error: errInternal}
	}
}
