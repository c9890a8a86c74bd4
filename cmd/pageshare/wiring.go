package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/raveportal/pageshare/internal/config"
	"github.com/raveportal/pageshare/internal/metrics"
	"github.com/raveportal/pageshare/internal/ratelimit"
	"github.com/raveportal/pageshare/internal/rpc"
	"github.com/raveportal/pageshare/internal/session"
	"github.com/raveportal/pageshare/internal/ui"
)

// newLogger builds the process logger from the log section.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// stack is everything a front end needs to host sessions.
type stack struct {
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	transport *rpc.Transport
	templates *ui.Registry
	sessions  *session.Manager
}

func buildStack(cfg *config.Config, logger *slog.Logger, transportOpts ...rpc.TransportOption) (*stack, error) {
	m := metrics.New()
	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	opts := append([]rpc.TransportOption{
		rpc.WithLimiter(limiter),
		rpc.WithObserver(m),
		rpc.WithLogger(logger),
	}, transportOpts...)
	transport, err := rpc.NewTransport(cfg.Portal.BaseURL, cfg.Portal.Timeout, opts...)
	if err != nil {
		return nil, err
	}

	msgs, err := ui.NewMessages(cfg.Templates.Locale)
	if err != nil {
		return nil, fmt.Errorf("loading messages for %q: %w", cfg.Templates.Locale, err)
	}
	templates, err := ui.NewRegistry(
		ui.WithDir(cfg.Templates.Dir),
		ui.WithMessages(msgs),
		ui.WithRegistryLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	sessions := session.NewManager(transport, templates.Lookup(ui.ShareViewTemplate), session.Config{
		TTL:                   cfg.Sessions.TTL,
		SweepInterval:         cfg.Sessions.SweepInterval,
		MaxSessions:           cfg.Sessions.MaxSessions,
		DiscardStaleResponses: cfg.Users.DiscardStaleResponses,
	},
		session.WithForgetter(limiter),
		session.WithObserver(m),
		session.WithLogger(logger),
	)

	return &stack{
		metrics:   m,
		limiter:   limiter,
		transport: transport,
		templates: templates,
		sessions:  sessions,
	}, nil
}
