// Package services contains the signal relay pipeline.
package services

import (
	"context"
	"log/slog"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"signal_relay/internal/broker"
	apperrors "signal_relay/internal/errors"
	"signal_relay/internal/ids"
	"signal_relay/internal/models"
	"signal_relay/internal/order"
	"signal_relay/internal/telemetry"
)

// SessionProvider hands out brokerage sessions.
type SessionProvider interface {
	Session(ctx context.Context) (*broker.Session, error)
	Invalidate(stale *broker.Session)
}

// Journal records each signal as it moves through the pipeline.
// *repository.SignalRepository satisfies it.
type Journal interface {
	Start(id, requestID string, receivedAt time.Time) error
	SetOrder(id, action, symbol, size, takeProfit, stopLoss string) error
	Advance(id, stage string) error
	Complete(id string, brokerStatus int, brokerBody string) error
	Fail(id, status, category, errorMsg string, brokerStatus int, brokerBody string) error
}

// Outcome is the terminal state of one relayed signal.
type Outcome struct {
	SignalID string
	// Stage is where the pipeline stopped.
	Stage  string
	Intent *order.Intent
	// Result is set once the order reached the brokerage.
	Result *order.Result
	// Err is nil only when the order was executed.
	Err error
}

// Executed reports whether the brokerage accepted the order.
func (o Outcome) Executed() bool {
	return o.Err == nil && o.Result != nil && o.Result.Outcome == order.Executed
}

// RelayService validates a signal, obtains a session and submits the order.
type RelayService struct {
	sessions  SessionProvider
	submitter *order.Submitter
	journal   Journal
	metrics   *telemetry.Metrics
}

// NewRelayService creates a new RelayService. journal and metrics may be nil.
func NewRelayService(sessions SessionProvider, submitter *order.Submitter, journal Journal, metrics *telemetry.Metrics) *RelayService {
	return &RelayService{
		sessions:  sessions,
		submitter: submitter,
		journal:   journal,
		metrics:   metrics,
	}
}

// Relay runs one signal through validation, authentication and submission.
// Failures in the first two stages short-circuit; nothing is retried.
func (s *RelayService) Relay(ctx context.Context, raw map[string]any) Outcome {
	out := Outcome{SignalID: ids.New(), Stage: models.StageValidating}
	requestID := chimw.GetReqID(ctx)

	log := telemetry.L(ctx).With("signal_id", out.SignalID)
	if requestID != "" {
		log = log.With("request_id", requestID)
	}
	ctx = telemetry.WithLogger(ctx, log)

	s.record(log, "start", func(j Journal) error { return j.Start(out.SignalID, requestID, time.Now()) })
	log.Info("signal received", "stage", out.Stage)

	intent, err := order.Validate(raw)
	if err != nil {
		return s.fail(ctx, out, err)
	}
	out.Intent = &intent
	s.record(log, "set order", func(j Journal) error {
		return j.SetOrder(out.SignalID, string(intent.Direction), intent.Instrument,
			intent.Size.String(), decimalString(intent.TakeProfit), decimalString(intent.StopLoss))
	})

	out = s.advance(ctx, out, models.StageAuthenticating)
	session, err := s.sessions.Session(ctx)
	if err != nil {
		return s.fail(ctx, out, err)
	}

	out = s.advance(ctx, out, models.StageSubmitting)
	res := s.submitter.Submit(ctx, intent, session)
	out.Result = &res

	if res.Outcome != order.Executed {
		if res.Unauthorized() {
			log.Warn("brokerage refused session tokens, dropping cached session")
			s.sessions.Invalidate(session)
		}
		s.metrics.ObserveOrder(string(order.Rejected))
		return s.fail(ctx, out, res.Err)
	}

	out.Stage = models.StageDone
	s.metrics.ObserveOrder(string(order.Executed))
	s.metrics.ObserveWebhook("executed")
	s.record(log, "complete", func(j Journal) error {
		return j.Complete(out.SignalID, res.Status, string(res.Body))
	})
	log.Info("order executed",
		"direction", intent.Direction,
		"instrument", intent.Instrument,
		"size", intent.Size.String(),
	)
	return out
}

func (s *RelayService) advance(ctx context.Context, out Outcome, stage string) Outcome {
	out.Stage = stage
	log := telemetry.L(ctx)
	s.record(log, "advance", func(j Journal) error { return j.Advance(out.SignalID, stage) })
	log.Debug("signal stage", "stage", stage)
	return out
}

func (s *RelayService) fail(ctx context.Context, out Outcome, err error) Outcome {
	out.Err = err
	category := apperrors.Category(err)

	status := models.StatusFailed
	var brokerStatus int
	var brokerBody string
	if out.Result != nil {
		status = models.StatusRejected
		brokerStatus = out.Result.Status
		brokerBody = string(out.Result.Body)
	}

	log := telemetry.L(ctx)
	s.record(log, "fail", func(j Journal) error {
		return j.Fail(out.SignalID, status, category, err.Error(), brokerStatus, brokerBody)
	})
	s.metrics.ObserveWebhook(category)

	level := slog.LevelWarn
	if category == "internal" {
		level = slog.LevelError
	}
	log.Log(ctx, level, "signal not executed",
		"stage", out.Stage,
		"category", category,
		"error", err,
	)
	return out
}

// record writes to the journal if there is one. Journal failures never
// change the outcome of a signal.
func (s *RelayService) record(log *slog.Logger, op string, fn func(Journal) error) {
	if s.journal == nil {
		return
	}
	if err := fn(s.journal); err != nil {
		log.Warn("journal write failed", "op", op, "error", err)
	}
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
