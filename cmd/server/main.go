package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/calibre-mcp/pkg/catalog"
	"github.com/hazyhaar/calibre-mcp/pkg/config"
	"github.com/hazyhaar/calibre-mcp/pkg/logging"
	"github.com/spf13/afero"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "call":
		cmdCall(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: calibre-mcp <command>

Commands:
  serve     Serve the catalog over MCP (stdio, http or quic)
  stats     Print library statistics as JSON
  call      Call a tool on a running QUIC server
  version   Print the version
`)
}

// setup loads and validates the configuration, builds the logger and opens
// the catalog. Failures are fatal.
func setup(cfgPath, envPath string) (*config.Config, *logging.Logger, *catalog.Reader) {
	boot := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, sources, err := config.NewLoader().Load(cfgPath, envPath)
	if err != nil {
		boot.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(afero.NewOsFs()); err != nil {
		boot.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, os.Stderr)
	if err != nil {
		boot.Error("logger", "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		logger.Info("no config file, using defaults and environment")
	} else {
		logger.Info("config loaded", "sources", sources)
	}

	reader, err := catalog.Open(cfg.LibraryPath, cfg.DBFilename, catalog.WithLogger(logger.Logger))
	if err != nil {
		logger.Error("open catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog opened", "db", reader.DBPath())
	return cfg, logger, reader
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	envPath := fs.String("env", ".env", "path to .env file")
	fs.Parse(args)

	_, logger, reader := setup(*cfgPath, *envPath)
	defer logger.Close()
	defer reader.Close()

	stats, err := reader.Stats(context.Background())
	if err != nil {
		logger.Error("stats", "error", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(stats)
}
