// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cachedepot/filecached/internal/core"
	"github.com/cachedepot/filecached/internal/notify"
	"github.com/cachedepot/filecached/lib/clock"
	"github.com/cachedepot/filecached/lib/config"
	"github.com/cachedepot/filecached/lib/service"
	"github.com/cachedepot/filecached/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to filecached.yaml (defaults to $FILECACHED_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("filecached %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		levelName := cfg.DebugLevel
		if levelName == "" {
			levelName = "debug"
		}
		level = service.ParseLevel(levelName)
	}
	logger := service.NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := core.New(*cfg, logger, clock.Real(), notify.NewHTTPSender())
	if err != nil {
		return fmt.Errorf("initializing core: %w", err)
	}

	go c.Run(ctx)

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.HTTPAddress,
		Handler: newRouter(c, *cfg, logger),
		Logger:  logger,
	})

	logger.Info("filecached starting", "directory", cfg.Directory, "address", cfg.HTTPAddress)

	return httpServer.Serve(ctx)
}
