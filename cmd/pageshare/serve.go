package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raveportal/pageshare/internal/api"
	"github.com/raveportal/pageshare/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pageshare server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	go st.sessions.Start(ctx)

	if cfg.Templates.Watch {
		go func() {
			if err := st.templates.Watch(ctx); err != nil {
				slog.Error("template watcher stopped", "error", err)
			}
		}()
	}

	router := api.NewRouter(api.RouterDeps{
		Sessions:       st.sessions,
		Metrics:        st.metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Limiter:        st.limiter,
		CreateRPM:      cfg.RateLimit.CreateSession,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "portal", cfg.Portal.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	st.sessions.Shutdown()
	return err
}
