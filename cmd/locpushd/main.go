// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the locpush service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wneessen/locpush/internal/config"
	"github.com/wneessen/locpush/internal/i18n"
	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/service"
	"github.com/wneessen/locpush/internal/settings"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGKILL,
		syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// A .env file is optional, environment overrides still apply without one
	_ = godotenv.Load()

	// Initialize Logger
	log := logger.NewLogger(slog.LevelError)

	// Read config
	confRead := false
	confPath := flag.String("config", "", "path to the config file")
	apiURL := flag.String("set-api-url", "", "persist a new endpoint URL and exit")
	flag.Parse()

	// Read default config
	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	// If config file was specified, read it
	if *confPath != "" {
		file := filepath.Base(*confPath)
		path := filepath.Dir(*confPath)
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
		confRead = true
	}

	// Check if we have a config file in the default location
	if path, file := findConfigFile(); !confRead && (path != "" && file != "") {
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
	}

	log = logger.NewLogger(conf.LogLevel)

	// Persist a new endpoint URL and exit when requested
	if *apiURL != "" {
		if err = persistEndpoint(ctx, conf, *apiURL); err != nil {
			log.Error("failed to persist endpoint URL", logger.Err(err))
			os.Exit(1)
		}
		log.Info("endpoint URL updated", slog.String("url", *apiURL))
		return
	}

	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	// Initialize the service
	serv, err := service.New(ctx, conf, log, t)
	if err != nil {
		log.Error("failed to initialize locpush service", logger.Err(err))
		os.Exit(1)
	}

	// Start the service loop
	log.Info(t.Get("starting locpush service"), slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error(t.Get("failed to start locpush service"), logger.Err(err))
	}
	log.Info(t.Get("shutting down locpush service"))
}

// persistEndpoint writes the given endpoint URL to the settings store. The
// running daemon picks it up on the next session start or background wake.
func persistEndpoint(ctx context.Context, conf *config.Config, url string) error {
	store, err := settings.Open(conf.Settings.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()
	if err = store.InitSchema(ctx); err != nil {
		return err
	}
	return store.SetAPIURL(ctx, url)
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "locpush", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
