package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/affiliateops/backend/internal/auth"
	"github.com/affiliateops/backend/internal/config"
	"github.com/affiliateops/backend/internal/dashboard"
	"github.com/affiliateops/backend/internal/database"
	"github.com/affiliateops/backend/internal/execution"
	"github.com/affiliateops/backend/internal/jobs"
	"github.com/affiliateops/backend/internal/middleware"
	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/router"
)

var configPath string

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:           "ledger",
		Short:         "Conversion ingestion and attribution ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file (env vars override it)")

	rootCmd.AddCommand(serveCmd(logger))
	rootCmd.AddCommand(migrateCmd(logger))
	rootCmd.AddCommand(syncCmd(logger))
	rootCmd.AddCommand(createOperatorCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled sync worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger)
		},
	}
}

func migrateCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger and River schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			pool, err := database.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			return database.Migrate(cmd.Context(), pool, logger)
		},
	}
}

// syncableNetwork resolves a --network flag to a network the sync orchestrator polls.
func syncableNetwork(name string) (models.NetworkName, error) {
	n, ok := models.ParseNetwork(name)
	if !ok || !slices.Contains(models.SyncNetworks, n) {
		return "", fmt.Errorf("unknown sync network %q", name)
	}
	return n, nil
}

func syncCmd(logger *slog.Logger) *cobra.Command {
	var network string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync now and print the per-network summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var run *models.SyncRun
			if network == "" {
				run = a.syncSvc.SyncAll(cmd.Context(), models.SyncTriggerCLI)
			} else {
				n, err := syncableNetwork(network)
				if err != nil {
					return err
				}
				if run, err = a.syncSvc.SyncNetwork(cmd.Context(), n, models.SyncTriggerCLI); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}
	cmd.Flags().StringVar(&network, "network", "", "sync only this network")
	return cmd
}

func createOperatorCmd(logger *slog.Logger) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-operator",
		Short: "Create an operator account for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("OPERATOR_PASSWORD")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			pool, err := database.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
			op, err := svc.CreateOperator(cmd.Context(), email, password)
			if errors.Is(err, auth.ErrDuplicateEmail) {
				return fmt.Errorf("operator %s already exists", email)
			}
			if err != nil {
				return err
			}
			logger.Info("operator created", "operator_id", op.ID, "email", op.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "operator email")
	cmd.Flags().StringVar(&password, "password", "", "operator password (or OPERATOR_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func serve(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewSyncConversionsWorker(a.syncSvc, 0, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(a.pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{execution.PeriodicSync(cfg.SyncInterval)},
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	enqueue := func(ctx context.Context, args execution.SyncConversionsArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}

	authSvc := auth.NewService(auth.NewRepository(a.pool), cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)
	dashHandler := dashboard.NewHandler(a.reports, a.pipeline, a.validator, logger)
	syncHandler := jobs.NewHandler(a.syncSvc, enqueue, logger)

	apiV1Router := router.New(authHandler, dashHandler, syncHandler, middleware.OperatorAuth(authSvc))

	mux := http.NewServeMux()
	mux.Handle("/api/", apiV1Router)
	RegisterPublicRoutes(mux, a.webhookHandler(cfg), a.pool)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Token"},
		AllowCredentials: true,
	}).Handler(middleware.RequestLog(logger)(mux))

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	slog.Info("River client started", "sync_interval", cfg.SyncInterval.String())

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River stop failed", "error", err)
	}
	return nil
}
