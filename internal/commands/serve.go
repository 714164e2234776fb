package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/config"
	"github.com/balkashynov/mentalbank/internal/db"
	"github.com/balkashynov/mentalbank/internal/sessions"
	"github.com/balkashynov/mentalbank/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sessions API",
	Long: `Run the sessions HTTP API on MBB_ADDR (default :8080).

Configuration comes from the environment, optionally loaded from a .env file:
  MBB_ADDR            listen address
  MBB_DATABASE_PATH   SQLite file (default ~/.mentalbank/mentalbank.db)
  MBB_PROFILE         production | development (development returns error details)
  MBB_LIST_LIMIT_MAX  largest page size for session lists
  MBB_OTEL_ENDPOINT   OTLP gRPC collector for metrics (disabled when empty)
  MBB_OTEL_INSECURE   dial the collector without TLS`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		cfg, err := config.LoadServer()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Server) error {
	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[serve] failed to close database: %v", err)
		}
	}()

	metrics, err := telemetry.New(ctx, telemetry.Config{
		Endpoint: cfg.OTelEndpoint,
		Insecure: cfg.OTelInsecure,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.Printf("[serve] failed to flush metrics: %v", err)
		}
	}()

	svc := sessions.NewService(store, metrics, sessions.Config{MaxListLimit: cfg.ListLimitMax})
	router := api.NewRouter(svc, store, api.Options{Development: cfg.Development()})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("[serve] listening on %s (profile %s, database %s)", cfg.Addr, cfg.Profile, cfg.DatabasePath)
	return runServer(ctx, srv)
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[serve] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func init() {
	serveCmd.Flags().String("env-file", ".env", "Optional .env file to load before reading the environment")
}
