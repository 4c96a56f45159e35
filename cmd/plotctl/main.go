package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/plotctl/internal/observability"
	"github.com/danmuck/plotctl/internal/server"
	"github.com/danmuck/plotctl/internal/stream"
	"github.com/danmuck/plotctl/internal/transport"
	"github.com/danmuck/plotctl/internal/window"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "plotctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	every, err := cfg.RenderEvery()
	if err != nil {
		return err
	}

	logger := observability.InitLogger("plotctl")
	logger.Info().
		Str("transport", cfg.Transport).
		Int("baud", cfg.Baud).
		Int("window", cfg.Window).
		Msg("plotctl config resolved")

	rwc, err := transport.Open(cfg.Transport, cfg.Baud)
	if err != nil {
		return err
	}
	defer rwc.Close()

	latest := &stream.Latest{}
	console := newConsoleRenderer(os.Stdout, every, cfg.Axis())
	sink := stream.SinkFunc(func(s window.Snapshot) {
		latest.Notify(s)
		console.Notify(s)
	})

	pipeline, err := stream.New(cfg.Stream(), sink, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		srv, err := server.New(server.Options{
			Addr:        cfg.HTTPAddr,
			Axis:        cfg.Axis(),
			CorsOrigins: cfg.CorsOrigins,
			Token:       cfg.HTTPToken,
		}, latest, pipeline)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("plotctl http surface stopped")
			}
		}()
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("plotctl http surface listening")
	}

	// A blocked read only returns once the transport is closed.
	go func() {
		<-ctx.Done()
		_ = rwc.Close()
	}()

	err = pipeline.Run(ctx, rwc)
	console.Flush()
	return err
}
