package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groundctl/groundctl/internal/config"
	"github.com/groundctl/groundctl/internal/dispatch"
	"github.com/groundctl/groundctl/internal/engine"
	"github.com/groundctl/groundctl/internal/server"
	"github.com/groundctl/groundctl/internal/store"
	"github.com/spf13/cobra"
)

var (
	configPath string
	listenAddr string
	dbPath     string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the groundctl daemon",
	Long:  `Starts the groundctl daemon which provides the HTTP API for agent coordination.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting groundctl daemon", "addr", cfg.Server.Addr, "db", cfg.Database.Path)

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}

	eng := engine.New(st)
	srv := server.NewServer(eng, st, cfg.Server.Addr, logger)

	var transport dispatch.Transport
	switch cfg.Dispatch.Transport {
	case "webhook":
		transport = dispatch.NewWebhookTransport(cfg.Dispatch.WebhookURL)
	default:
		transport = dispatch.NewLogTransport(logger)
	}
	dispatcher := dispatch.New(eng, transport, cfg.Dispatch.Interval.Std(), logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", fmt.Sprint(sig))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			st.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
