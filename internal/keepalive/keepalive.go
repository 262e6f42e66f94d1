// Package keepalive runs a periodic liveness ping, independent of order handling.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	apperrors "signal_relay/internal/errors"
	"signal_relay/internal/telemetry"
)

const pingTimeout = 10 * time.Second

// Prober warms the brokerage session. *auth.SessionManager satisfies it.
type Prober interface {
	Probe(ctx context.Context) error
}

// Pinger hits a URL on a fixed interval and optionally probes the session.
// Its failures are logged and counted, never propagated.
type Pinger struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	prober     Prober
	metrics    *telemetry.Metrics
	// probeOff latches once the brokerage rejects the credentials; they
	// cannot change for the life of the process.
	probeOff atomic.Bool
}

// NewPinger creates a Pinger. prober and metrics may be nil.
func NewPinger(url string, interval time.Duration, prober Prober, metrics *telemetry.Metrics) *Pinger {
	return &Pinger{
		url:        url,
		interval:   interval,
		httpClient: &http.Client{Timeout: pingTimeout},
		prober:     prober,
		metrics:    metrics,
	}
}

// Run pings until ctx is cancelled. The first ping fires immediately.
func (p *Pinger) Run(ctx context.Context) {
	if p.interval <= 0 {
		telemetry.L(ctx).Warn("keep-alive disabled: interval must be positive", "interval", p.interval)
		return
	}

	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	log := telemetry.L(ctx).With("component", "keepalive")
	log.Info("keep-alive started", "url", p.url, "interval", p.interval, "probe_session", p.prober != nil)

	for {
		if err := limiter.Wait(ctx); err != nil {
			log.Info("keep-alive stopped")
			return
		}
		p.Tick(ctx)
	}
}

// Tick performs one ping and, if configured, one session probe.
func (p *Pinger) Tick(ctx context.Context) {
	log := telemetry.L(ctx).With("component", "keepalive")

	if p.url != "" {
		if err := p.ping(ctx); err != nil {
			log.Warn("keep-alive ping failed", "error", err)
			p.metrics.ObservePing("error")
		} else {
			log.Debug("keep-alive ping ok")
			p.metrics.ObservePing("ok")
		}
	}

	if p.prober != nil && !p.probeOff.Load() {
		p.probe(ctx, log)
	}
}

func (p *Pinger) probe(ctx context.Context, log *slog.Logger) {
	err := p.prober.Probe(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		p.metrics.ObservePing("probe_error")
		if p.probeOff.CompareAndSwap(false, true) {
			log.Error("brokerage rejected credentials, session probes stopped", "error", err)
		}
	default:
		log.Warn("session probe failed", "error", err)
		p.metrics.ObservePing("probe_error")
	}
}

func (p *Pinger) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
