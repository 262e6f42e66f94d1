package order

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"signal_relay/internal/broker"
	apperrors "signal_relay/internal/errors"
)

// SubmitTimeout bounds a single order call.
const SubmitTimeout = 10 * time.Second

// Outcome is the terminal state of a submission.
type Outcome string

const (
	Executed Outcome = "EXECUTED"
	Rejected Outcome = "REJECTED"
)

// Result describes what the brokerage did with an order.
type Result struct {
	Outcome Outcome
	// Status is the brokerage HTTP status, zero if no response was received.
	Status int
	// Body is the raw brokerage response body.
	Body []byte
	// Err is set for every rejection.
	Err error
}

// Details returns the brokerage body as JSON when it parses, or as a string.
func (r Result) Details() any {
	if len(r.Body) == 0 {
		if r.Err != nil {
			return r.Err.Error()
		}
		return nil
	}
	var v any
	if err := json.Unmarshal(r.Body, &v); err == nil {
		return v
	}
	return string(r.Body)
}

// Unauthorized reports whether the brokerage refused the session tokens.
func (r Result) Unauthorized() bool {
	return r.Status == http.StatusUnauthorized
}

// Submitter places market orders.
type Submitter struct {
	creator  broker.PositionCreator
	currency string
}

// NewSubmitter creates a submitter that prices orders in currency.
func NewSubmitter(creator broker.PositionCreator, currency string) *Submitter {
	if currency == "" {
		currency = "USD"
	}
	return &Submitter{creator: creator, currency: currency}
}

// BuildRequest maps an intent onto the brokerage order body.
func (s *Submitter) BuildRequest(intent Intent) broker.PositionRequest {
	req := broker.PositionRequest{
		Epic:         intent.Instrument,
		Size:         intent.Size.InexactFloat64(),
		Direction:    intent.Direction,
		OrderType:    broker.OrderTypeMarket,
		CurrencyCode: s.currency,
	}
	if intent.TakeProfit != nil {
		v := intent.TakeProfit.InexactFloat64()
		req.LimitLevel = &v
	}
	if intent.StopLoss != nil {
		v := intent.StopLoss.InexactFloat64()
		req.StopLevel = &v
	}
	return req
}

// Submit sends the order once. It never retries.
func (s *Submitter) Submit(ctx context.Context, intent Intent, session *broker.Session) Result {
	// Once sent, a market order may fill; a departing caller must not turn
	// that into a reported rejection.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SubmitTimeout)
	defer cancel()

	body, status, err := s.creator.CreatePosition(submitCtx, session, s.BuildRequest(intent))
	if err != nil {
		return Result{Outcome: Rejected, Status: status, Body: body, Err: apperrors.SubmissionUnavailable(err)}
	}
	if status != http.StatusOK {
		return Result{Outcome: Rejected, Status: status, Body: body, Err: apperrors.Rejected(status, string(body))}
	}
	return Result{Outcome: Executed, Status: status, Body: body}
}
