// Package broker holds the brokerage-facing types shared by the session
// manager, the order submitter and the brokerage client.
package broker

import (
	"context"
	"time"
)

// Session is an authenticated brokerage session.
type Session struct {
	CST           string
	SecurityToken string
	ExpiresAt     time.Time
}

// Valid reports whether both tokens are present and the session has not expired at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.CST != "" && s.SecurityToken != "" && now.Before(s.ExpiresAt)
}

// Direction is the side of a market order.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// OrderTypeMarket is the only order type the relay submits.
const OrderTypeMarket = "MARKET"

// PositionRequest is the body of a brokerage order call.
type PositionRequest struct {
	Epic         string    `json:"epic"`
	Size         float64   `json:"size"`
	Direction    Direction `json:"direction"`
	OrderType    string    `json:"orderType"`
	CurrencyCode string    `json:"currencyCode"`
	LimitLevel   *float64  `json:"limitLevel,omitempty"`
	StopLevel    *float64  `json:"stopLevel,omitempty"`
}

// Authenticator performs a brokerage login.
type Authenticator interface {
	// Login returns a session whose ExpiresAt is left for the caller to set.
	Login(ctx context.Context) (*Session, error)
}

// PositionCreator sends an order to the brokerage. It returns the raw response
// body and status; err is set only when no response was received.
type PositionCreator interface {
	CreatePosition(ctx context.Context, session *Session, req PositionRequest) (body []byte, status int, err error)
}
