package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/app"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/server"
)

var (
	configFile   = flag.String("config", "", "Configuration file path (TOML)")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	listenAddr   = flag.String("listen", "", "Listen address (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Scriba version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}

	// Auto-discover config file if not specified
	if configPath == "" {
		if _, err := os.Stat("scriba.toml"); err == nil {
			configPath = "scriba.toml"
		} else if _, err := os.Stat("deployments/local/scriba.toml"); err == nil {
			configPath = "deployments/local/scriba.toml"
		}
	}

	// Startup sequence: defaults -> file -> env -> CLI overrides, then logger
	// and banner.
	var err error
	config, err = common.LoadFromFile(configPath)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Str("path", configPath).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *listenAddr)
	common.SetSnapshot(config)

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", configPath).
		Str("listen_addr", config.Server.ListenAddr).
		Str("environment", config.Environment).
		Msg("Application configuration loaded")

	application := app.New(config, configPath, logger)
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start background services")
		os.Exit(1)
	}
	defer application.Stop()

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", "http://"+config.Server.ListenAddr).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
