package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/gateway"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/server"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/widgets"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboardd",
		Short: "Dashboard editing and widget data-binding server",
		Long: `An IoT dashboard backend serving dashboard persistence, widget
rendering, live telemetry subscriptions, and device RPC forwarding.`,
		Version: server.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")

	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() error {
	config, err := server.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFormat != "" {
		config.LogFormat = logFormat
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logger := setupLogger(config.LogLevel, config.LogFormat)
	logger.WithFields(logrus.Fields{
		"version":   server.Version,
		"commit":    server.GitCommit,
		"buildDate": server.BuildDate,
	}).Info("Starting dashboard server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewDashboardStore(config.Dashboards, logger)
	if err != nil {
		return err
	}
	if err := store.Connect(ctx); err != nil {
		return err
	}
	defer store.Close()

	telemetry, err := storage.NewTelemetryBackend(config.Telemetry, logger)
	if err != nil {
		return err
	}
	if err := telemetry.Connect(ctx); err != nil {
		return err
	}
	defer telemetry.Close()

	reg, err := widgets.NewBuiltinRegistry(logger)
	if err != nil {
		return err
	}

	var sender interfaces.CommandSender
	if config.GatewayURL != "" {
		sender = gateway.NewSender(&gateway.SenderConfig{BaseURL: config.GatewayURL}, logger)
	}

	srv, err := server.NewServer(config, server.Dependencies{
		Store:     store,
		Telemetry: telemetry,
		Registry:  reg,
		Sender:    sender,
	}, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server failed")
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
	return logger
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version:    %s\n", server.Version)
			fmt.Printf("Git Commit: %s\n", server.GitCommit)
			fmt.Printf("Build Date: %s\n", server.BuildDate)
			fmt.Printf("Go Version: %s\n", runtime.Version())
			fmt.Printf("Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
