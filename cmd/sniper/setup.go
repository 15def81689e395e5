package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/trogers1052/stock-sniper-dashboard/internal/client"
	"github.com/trogers1052/stock-sniper-dashboard/internal/config"
	"github.com/trogers1052/stock-sniper-dashboard/internal/dashboard"
)

// loadConfig reads and validates the configuration named by -config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(client.Config{
		BaseURL:    cfg.Service.BaseURL,
		SectorsURL: cfg.SectorsBaseURL(),
		Timeout:    cfg.Service.RequestTimeout.Duration,
	})
}

// dashboardFactory builds unmounted dashboards sharing one client
func dashboardFactory(cfg *config.Config, c *client.Client, logger *slog.Logger) func() (*dashboard.Dashboard, error) {
	return func() (*dashboard.Dashboard, error) {
		d, err := dashboard.New(c, dashboard.Options{
			Sectors:  cfg.SectorList(),
			Interval: cfg.Poll.Interval.Duration,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build dashboard: %w", err)
		}
		return d, nil
	}
}
