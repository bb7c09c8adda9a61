package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/d-buckner/appscout"
	"codeberg.org/d-buckner/appscout/internal/config"
	"codeberg.org/d-buckner/appscout/internal/system"
)

// runWatch handles the "watch" subcommand: stream change events as
// line-delimited JSON on stdout until interrupted.
func runWatch(args []string) int {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	debounce := flags.Duration("debounce", 0, "override the change batching window")
	flags.Parse(args)

	cfg := config.Load()
	logger := newLogger(cfg)

	if *debounce > 0 {
		cfg.Debounce = *debounce
	}

	info := system.Describe()
	logger.Info("watching for application changes",
		"os", info.OS,
		"platform", info.Platform,
		"platform_version", info.PlatformVersion,
	)

	watcher, err := appscout.Watch(&appscout.Options{
		SearchPaths: cfg.SearchPaths,
		IconTheme:   cfg.IconTheme,
		Debounce:    cfg.Debounce,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("watch setup failed", "error", err)
		return 1
	}
	defer watcher.Stop()

	// Graceful shutdown on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return 0
		case ev, ok := <-watcher.Events():
			if !ok {
				return 0
			}
			if err := enc.Encode(ev); err != nil {
				logger.Error("encoding event failed", "error", err)
				return 1
			}
		}
	}
}
