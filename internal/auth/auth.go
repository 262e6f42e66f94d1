// Package auth provides brokerage session management.
package auth

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"signal_relay/internal/broker"
	apperrors "signal_relay/internal/errors"
	"signal_relay/internal/telemetry"
)

const (
	// DefaultSessionDuration is how long a brokerage session is reused.
	DefaultSessionDuration = 10 * time.Minute

	// LoginTimeout bounds a single login attempt.
	LoginTimeout = 10 * time.Second
)

// SessionManager caches one brokerage session and refreshes it on demand.
// Concurrent callers that find no valid session share a single login.
type SessionManager struct {
	authenticator broker.Authenticator
	duration      time.Duration
	now           func() time.Time
	metrics       *telemetry.Metrics

	current atomic.Pointer[broker.Session]
	group   singleflight.Group
}

// NewSessionManager creates a new session manager.
func NewSessionManager(a broker.Authenticator) *SessionManager {
	return &SessionManager{
		authenticator: a,
		duration:      DefaultSessionDuration,
		now:           time.Now,
	}
}

// WithClock replaces the time source.
func (sm *SessionManager) WithClock(now func() time.Time) *SessionManager {
	sm.now = now
	return sm
}

// WithMetrics records login outcomes.
func (sm *SessionManager) WithMetrics(m *telemetry.Metrics) *SessionManager {
	sm.metrics = m
	return sm
}

// Session returns the cached session if it is still valid, otherwise logs in.
func (sm *SessionManager) Session(ctx context.Context) (*broker.Session, error) {
	if s := sm.current.Load(); s.Valid(sm.now()) {
		return s, nil
	}

	ch := sm.group.DoChan("login", func() (any, error) {
		// A caller that queued behind a finished login finds its result here.
		if s := sm.current.Load(); s.Valid(sm.now()) {
			return s, nil
		}
		return sm.login(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*broker.Session), nil
	case <-ctx.Done():
		return nil, apperrors.AuthUnavailable(0, "", ctx.Err())
	}
}

func (sm *SessionManager) login(ctx context.Context) (*broker.Session, error) {
	// The login is shared, so it must outlive the caller that started it.
	loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoginTimeout)
	defer cancel()

	s, err := sm.authenticator.Login(loginCtx)
	if err != nil {
		sm.metrics.ObserveLogin(apperrors.Category(err))
		return nil, err
	}
	if s == nil || s.CST == "" || s.SecurityToken == "" {
		sm.metrics.ObserveLogin("malformed")
		return nil, apperrors.MalformedResponse("session token")
	}

	session := &broker.Session{
		CST:           s.CST,
		SecurityToken: s.SecurityToken,
		ExpiresAt:     sm.now().Add(sm.duration),
	}
	sm.current.Store(session)
	sm.metrics.ObserveLogin("success")
	telemetry.L(ctx).Debug("brokerage session cached", "expires_at", session.ExpiresAt)
	return session, nil
}

// Invalidate drops the cached session so the next call logs in again. It
// only drops stale if it is still the cached session; a nil stale drops
// whatever is cached.
func (sm *SessionManager) Invalidate(stale *broker.Session) {
	if stale == nil {
		sm.current.Store(nil)
		return
	}
	sm.current.CompareAndSwap(stale, nil)
}

// Probe obtains a session without submitting anything. It keeps the cache warm.
func (sm *SessionManager) Probe(ctx context.Context) error {
	_, err := sm.Session(ctx)
	return err
}

// Cached returns the cached session, valid or not, or nil.
func (sm *SessionManager) Cached() *broker.Session {
	return sm.current.Load()
}
