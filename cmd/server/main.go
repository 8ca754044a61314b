// Package main is the entry point for the snipmart server. It reads
// configuration, builds the logger, and hands off to internal/server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/snipmart/snipmart/internal/config"
	"github.com/snipmart/snipmart/internal/server"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(cfg.DBPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
