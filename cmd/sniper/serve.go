package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/stock-sniper-dashboard/internal/api"
	"github.com/trogers1052/stock-sniper-dashboard/internal/kafka"
	"github.com/trogers1052/stock-sniper-dashboard/internal/stream"
)

// serveCmd runs the HTTP API, live sessions and the optional Kafka consumer
type serveCmd struct {
	shutdownTimeout time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard API and live sessions" }
func (*serveCmd) Usage() string {
	return `sniper [-config <file>] serve [-shutdown-timeout d]

  Serves the dashboard over HTTP and websockets. Admin writes are proxied
  to the data service and announced on Kafka when brokers are configured.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 5*time.Second, "grace period for in-flight requests")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	logger := newLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)

	svc := newClient(cfg)
	factory := dashboardFactory(cfg, svc, logger)

	dash, err := factory()
	if err != nil {
		logger.Error("serve: failed to build dashboard", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	hub := stream.NewHub(factory, logger)

	var producer api.EventPublisher
	if cfg.Kafka.Enabled() {
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer p.Close()
		producer = p
	}

	handler := api.NewHandler(dash, svc, producer, logger, hub)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, http.HandlerFunc(hub.HandleWS), cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	dash.Mount(gctx)
	defer dash.Unmount()
	defer hub.Close()

	g.Go(func() error {
		logger.Info("serve: listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger, dash, hub)
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("serve: stopped with error", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	logger.Info("serve: stopped")
	return subcommands.ExitSuccess
}
