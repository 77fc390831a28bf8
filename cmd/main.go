package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/microlearn-backend/internal/app"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "microlearn",
		Short:         "Micro-learning course backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			return app.LoadEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (env vars take precedence)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := bootstrap(app.ModeMigrate)
			if err != nil {
				return err
			}
			defer log.Sync()
			return app.Migrate(log, cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("microlearn version %s\n", app.Version)
		},
	})
	return cmd
}

func bootstrap(mode string) (*logger.Logger, app.Config, error) {
	log, err := logger.NewWithOptions(logger.Options{
		Mode:   os.Getenv("LOG_MODE"),
		Level:  os.Getenv("LOG_LEVEL"),
		Redact: true,
	})
	if err != nil {
		return nil, app.Config{}, fmt.Errorf("init logger: %w", err)
	}
	cfg := app.LoadConfig(log)
	if err := cfg.Validate(mode); err != nil {
		log.Sync()
		return nil, app.Config{}, err
	}
	return log, cfg, nil
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, cfg, err := bootstrap(app.ModeServe)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return err
	}
	if err := a.Start(); err != nil {
		a.Close(context.Background())
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error("HTTP server stopped", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Close(shutdownCtx)
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
