package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"deployclean/internal/config"
	"deployclean/internal/server"
	"deployclean/internal/tasks"

	"github.com/spf13/cobra"
)

var (
	serveHost      string
	servePort      int
	serveLogFile   string
	serveStaticDir string
	testMode       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API",
	Long: `Start the HTTP server exposing the deployment operations as a JSON API.

Routes:
  GET    /health
  GET    /api/deployments
  POST   /api/deployments/{id}/mark_inactive
  DELETE /api/deployments/{id}
  POST   /api/clean               (runs in the background, returns a job id)
  GET    /api/jobs/{id}
  GET    /api/history

Every /api route accepts ?username=&repo= to target another repository and an
X-GitHub-Token header to use another token.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config, 127.0.0.1)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 5000)")
	serveCmd.Flags().StringVar(&serveLogFile, "log", "", "Also write JSON logs to this file")
	serveCmd.Flags().StringVar(&serveStaticDir, "static", "", "Serve a front end from this directory at /")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("DEPLOYCLEAN_TEST_MODE") == "1", "Enable test mode (no rate limiting)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cfg)

	if err := config.ValidationError(cfg.Validate()); err != nil {
		return err
	}

	// Set up logging
	logger, closeLog, err := setupLogging(cfg.Server.LogFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	logger.Info("Starting deployclean", "version", version)

	if cfg.Owner == "" || cfg.Repo == "" {
		logger.Warn("No default repository configured; requests must pass username and repo")
	}

	// Initialize history database
	if cfg.DBPath != "" {
		logger.Info("Initializing history database", "db", cfg.DBPath)
	}
	hist, err := openHistory(cfg)
	if err != nil {
		logger.Error("Failed to initialize history database", "error", err)
		return err
	}

	pool := tasks.NewPool(cfg.Server.Workers, cfg.Server.QueueSize)

	factory := func(token string) (server.GitHub, error) {
		client, err := newClient(cfg, token, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	srv := server.NewServer(cfg, factory, hist, pool, logger, testMode)

	ctx := cmd.Context()
	startErr := srv.Start(ctx, cfg.Server.Host, cfg.Server.Port)
	if startErr != nil {
		logger.Error("Server failed", "error", startErr)
	}

	logger.Info("Waiting for background jobs")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down cleanly", "error", err)
	}

	if startErr != nil {
		return fmt.Errorf("server failed: %w", startErr)
	}
	return nil
}

func applyServeFlags(cfg *config.Config) {
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveLogFile != "" {
		cfg.Server.LogFile = serveLogFile
	}
	if serveStaticDir != "" {
		cfg.Server.StaticDir = serveStaticDir
	}
}

// setupLogging configures slog JSON logging to stdout and, when logPath is
// set, to that file as well. The returned func closes the file.
func setupLogging(logPath string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	closeFn := func() {}

	if logPath != "" {
		// Create log directory if needed
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Open log file with secure permissions
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		w = io.MultiWriter(os.Stdout, file)
		closeFn = func() { file.Close() }
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(handler), closeFn, nil
}
