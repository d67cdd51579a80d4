package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blurt-dev/blurt/admin"
	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/poller"
	"github.com/blurt-dev/blurt/publisher"
	_ "github.com/blurt-dev/blurt/publisher/sink"
	_ "github.com/blurt-dev/blurt/publisher/transformer"
	"github.com/blurt-dev/blurt/store"
	"github.com/blurt-dev/blurt/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [webhook-url]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Streams new macOS notifications as JSON lines, or POSTs them to webhook-url.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Logs go to stderr; stdout carries only notifications
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := cfg.Load(*cfg.ConfigPathFlag); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.ApplyArgs(flag.Args()); err != nil {
		flag.Usage()
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	setupLogging()

	log.Info().Str("version", cfg.Version).Msg("Blurt - notification watcher")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Blurt stopped")
	}

	log.Info().Msg("Shutdown complete")
}

func setupLogging() {
	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stderr
	}

	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("instance_id", cfg.Config.InstanceID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}
}

// run wires the store, sink and poller and blocks until ctx is cancelled or
// polling fails. Cancellation is a clean exit.
func run(ctx context.Context) error {
	st, err := store.Open(cfg.Config.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	dispatcher, err := publisher.NewDispatcherFromConfig(cfg.Config.Sink)
	if err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close sink")
		}
	}()

	interval := time.Duration(cfg.Config.PollIntervalSeconds) * time.Second
	p, err := poller.New(poller.Config{
		Store:      st,
		Dispatcher: dispatcher,
		Interval:   interval,
	})
	if err != nil {
		return err
	}

	if telemetry.Enabled() {
		collector := telemetry.NewMetricsCollector(st, 30*time.Second)
		collector.Start()
		defer collector.Stop()
	}

	if cfg.Config.Admin.Enabled {
		srv, err := admin.NewServer(cfg.Config.Admin, admin.NewAdminHandlers(p, 3*interval))
		if err != nil {
			return err
		}
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Admin server shutdown failed")
			}
		}()
	}

	err = p.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
