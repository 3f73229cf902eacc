// Command ladderlog-mcp serves the local workout history to AI assistants
// over MCP on stdio. Logs go to stderr; stdout carries the protocol.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/ladderlog/internal/config"
	"github.com/meltforce/ladderlog/internal/localstore"
	"github.com/meltforce/ladderlog/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	defaultConfig := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultConfig = filepath.Join(home, ".ladderlog", "config.yaml")
	}
	configPath := flag.String("config", defaultConfig, "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := localstore.Open(cfg.Client.DataDir)
	if err != nil {
		log.Error("failed to open local store", "dir", cfg.Client.DataDir, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	s := mcp.New(store, Version, log)
	log.Info("serving MCP on stdio", "version", Version, "data_dir", cfg.Client.DataDir)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
