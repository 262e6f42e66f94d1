// Package handlers provides HTTP handlers for the signal relay.
package handlers

import (
	"signal_relay/internal/services"
	"signal_relay/internal/telemetry"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Relay   *services.RelayService
	Metrics *telemetry.Metrics

	// WebhookToken, when non-empty, must accompany every webhook call.
	WebhookToken string
}

// NewDependencies creates an empty Dependencies container.
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// WithRelay sets the relay pipeline.
func (d *Dependencies) WithRelay(r *services.RelayService) *Dependencies {
	d.Relay = r
	return d
}

// WithMetrics sets the metrics collectors.
func (d *Dependencies) WithMetrics(m *telemetry.Metrics) *Dependencies {
	d.Metrics = m
	return d
}

// WithWebhookToken sets the shared webhook token.
func (d *Dependencies) WithWebhookToken(token string) *Dependencies {
	d.WebhookToken = token
	return d
}
