package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"deployclean/internal/config"
	"deployclean/internal/ghclient"
	"deployclean/internal/history"
)

// app is what every GitHub-facing command needs.
type app struct {
	cfg    *config.Config
	target config.Target
	client *ghclient.Client
	logger *slog.Logger
}

// loadConfig runs the configuration chain with the global flags on top.
func loadConfig() (*config.Config, error) {
	return config.Load(configFile, config.Overrides{
		Token:  flagToken,
		Owner:  flagOwner,
		Repo:   flagRepo,
		APIURL: flagAPIURL,
		DBPath: flagDBPath,
	})
}

// newApp loads and validates the configuration and builds the client for
// the configured repository.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := config.ValidationError(cfg.Validate()); err != nil {
		return nil, err
	}

	target := cfg.Resolve("", "", "")
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set --owner/--repo, %s/%s or owner/repo in the config file)",
			err, config.EnvOwner, config.EnvRepo)
	}

	logger := cliLogger(os.Stderr, flagVerbose)

	client, err := newClient(cfg, target.Token, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, target: target, client: client, logger: logger}, nil
}

func newClient(cfg *config.Config, token string, logger *slog.Logger) (*ghclient.Client, error) {
	client, err := ghclient.New(token,
		ghclient.WithAPIURL(cfg.APIURL),
		ghclient.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
		ghclient.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return client, nil
}

// cliLogger logs text to w. Only warnings and errors are shown unless
// verbose is set.
func cliLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openHistory opens the audit history, or returns nil when it is disabled.
func openHistory(cfg *config.Config) (*history.History, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	hist, err := history.NewHistory(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	return hist, nil
}
