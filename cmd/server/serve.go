package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/calibre-mcp/pkg/api"
	"github.com/hazyhaar/calibre-mcp/pkg/chassis"
	"github.com/hazyhaar/calibre-mcp/pkg/config"
	"github.com/hazyhaar/calibre-mcp/pkg/kit"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	envPath := fs.String("env", ".env", "path to .env file")
	fs.Parse(args)

	cfg, logger, reader := setup(*cfgPath, *envPath)
	defer logger.Close()
	defer reader.Close()

	mcpSrv := server.NewMCPServer(cfg.ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	eps := api.MakeEndpoints(reader, logger.Logger)
	api.RegisterMCPTools(mcpSrv, eps)

	// SIGHUP: rotate the log file.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			if err := logger.Rotate(); err != nil {
				logger.Error("log rotate failed", "error", err)
			} else {
				logger.Info("log file rotated")
			}
		}
	}()

	var err error
	switch cfg.Transport {
	case config.TransportHTTP:
		err = serveHTTP(ctx, cfg, logger.Logger, api.NewRouter(eps, reader, streamableHandler(mcpSrv)))
	case config.TransportQUIC:
		err = serveQUIC(ctx, cfg, logger.Logger, api.NewRouter(eps, reader, streamableHandler(mcpSrv)), mcpSrv)
	default:
		err = serveStdio(ctx, logger.Logger, mcpSrv)
	}
	if err != nil {
		logger.Error("server error", "transport", cfg.Transport, "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

func streamableHandler(mcpSrv *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(mcpSrv,
		server.WithHTTPContextFunc(func(ctx context.Context, _ *http.Request) context.Context {
			return kit.WithTransport(ctx, "mcp_http")
		}),
	)
}

func serveStdio(ctx context.Context, logger *slog.Logger, mcpSrv *server.MCPServer) error {
	logger.Info("serving MCP on stdio")
	stdio := server.NewStdioServer(mcpSrv)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return kit.WithTransport(ctx, "stdio")
	})
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("calibre-mcp listening", "addr", srv.Addr, "mcp", "/mcp")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serveQUIC(ctx context.Context, cfg *config.Config, logger *slog.Logger, handler http.Handler, mcpSrv *server.MCPServer) error {
	ch, err := chassis.New(chassis.Config{
		Addr:      cfg.QUIC.Addr,
		CertFile:  cfg.QUIC.CertFile,
		KeyFile:   cfg.QUIC.KeyFile,
		Handler:   handler,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ch.Start(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return ch.Stop(shutdownCtx)
	})
	return g.Wait()
}
