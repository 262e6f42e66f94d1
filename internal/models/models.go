// Package models contains the records kept by the signal journal.
package models

import "time"

// Pipeline stages a signal passes through.
const (
	StageValidating     = "validating"
	StageAuthenticating = "authenticating"
	StageSubmitting     = "submitting"
	StageDone           = "done"
)

// Signal statuses.
const (
	StatusReceived = "received"
	StatusExecuted = "executed"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Signal is one webhook invocation and what became of it.
type Signal struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id,omitempty"`
	Action        string     `json:"action,omitempty"`
	Symbol        string     `json:"symbol,omitempty"`
	Size          string     `json:"size,omitempty"`
	TakeProfit    string     `json:"take_profit,omitempty"`
	StopLoss      string     `json:"stop_loss,omitempty"`
	Stage         string     `json:"stage"`
	Status        string     `json:"status"`
	ErrorCategory string     `json:"error_category,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	BrokerStatus  int        `json:"broker_status,omitempty"`
	BrokerBody    string     `json:"broker_body,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DurationMs    int64      `json:"duration_ms,omitempty"`
}
