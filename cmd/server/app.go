package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"signal_relay/internal/auth"
	"signal_relay/internal/broker"
	"signal_relay/internal/broker/capital"
	"signal_relay/internal/config"
	"signal_relay/internal/database"
	"signal_relay/internal/handlers"
	"signal_relay/internal/keepalive"
	"signal_relay/internal/middleware"
	"signal_relay/internal/order"
	"signal_relay/internal/repository"
	"signal_relay/internal/services"
	"signal_relay/internal/telemetry"
)

// App holds the application dependencies.
type App struct {
	config         *config.Config
	logger         *slog.Logger
	db             *database.DB
	metrics        *telemetry.Metrics
	client         *capital.Client
	sessionManager *auth.SessionManager
	relay          *services.RelayService
	webhookHandler *handlers.WebhookHandler
	pinger         *keepalive.Pinger
	router         *chi.Mux
}

// newApp wires every component from cfg. The journal is opened only when a
// path is configured.
func newApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	for _, name := range cfg.MissingBroker() {
		logger.Warn("brokerage setting not set; orders will fail until it is provided", "setting", name)
	}

	creds, err := broker.NewCredentials(cfg.Broker.Identifier, cfg.Broker.Password, cfg.Broker.APIKey)
	if err != nil {
		return nil, fmt.Errorf("sealing credentials: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
	}

	app.client = capital.NewClient(cfg.Broker.BaseURL, creds)
	app.sessionManager = auth.NewSessionManager(app.client).WithMetrics(app.metrics)

	var journal services.Journal
	if cfg.Journal.Path != "" {
		db, err := database.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("opening signal journal: %w", err)
		}
		app.db = db
		journal = repository.NewSignalRepository(db)
		logger.Info("signal journal enabled", "path", cfg.Journal.Path)
	}

	submitter := order.NewSubmitter(app.client, cfg.Broker.Currency)
	app.relay = services.NewRelayService(app.sessionManager, submitter, journal, app.metrics)

	deps := handlers.NewDependencies().
		WithRelay(app.relay).
		WithMetrics(app.metrics).
		WithWebhookToken(cfg.Server.WebhookToken)
	app.webhookHandler = handlers.NewWebhookHandler(deps)

	if cfg.Keepalive.URL != "" || cfg.Keepalive.ProbeSession {
		var prober keepalive.Prober
		if cfg.Keepalive.ProbeSession {
			prober = app.sessionManager
		}
		app.pinger = keepalive.NewPinger(cfg.Keepalive.URL, cfg.Keepalive.Interval, prober, app.metrics)
	}

	app.setupRouter()
	return app, nil
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	r.Use(app.withLogger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Instrument(app.metrics))
	r.Use(middleware.SecurityHeaders)

	r.Get("/", handlers.Health)
	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	r.Method(http.MethodPost, "/webhook", app.webhookHandler)

	app.router = r
}

func (app *App) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(telemetry.WithLogger(r.Context(), app.logger)))
	})
}

// startBackground launches the keep-alive loop, if configured.
func (app *App) startBackground(ctx context.Context) {
	if app.pinger == nil {
		return
	}
	go app.pinger.Run(telemetry.WithLogger(ctx, app.logger))
}

// Close releases the journal connection.
func (app *App) Close() error {
	if app.db != nil {
		return app.db.Close()
	}
	return nil
}
