// Package main is the entry point for the gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/gateway"
	"github.com/nexhop/gateway/internal/health"
	"github.com/nexhop/gateway/internal/middleware"
	"github.com/nexhop/gateway/internal/observability"
	"github.com/nexhop/gateway/internal/proxy"
	"github.com/nexhop/gateway/internal/router"
	gwtls "github.com/nexhop/gateway/internal/tls"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	logLevel    string
	logFormat   string
	watch       bool
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.FromEnv(logger)
	if err != nil {
		logger.Fatal("failed to load server configuration", observability.Error(err))
	}

	entries, err := config.LoadRoutes(cfg.ProxyConfigPath)
	if err != nil {
		logger.Fatal("failed to load route configuration",
			observability.String("path", cfg.ProxyConfigPath),
			observability.Error(err),
		)
	}

	table, err := router.Build(entries)
	if err != nil {
		logger.Fatal("failed to build routing table", observability.Error(err))
	}
	logger.Info("routing table built",
		observability.Int("routes", table.Len()),
	)

	runGateway(cfg, table, flags, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	watch := flag.Bool("watch", true, "Reload routes when the config file changes")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		watch:       *watch,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("gateway version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// runGateway wires the pipeline, starts serving, and blocks until a
// shutdown signal arrives.
func runGateway(cfg *config.ServerConfig, table *router.Table, flags cliFlags, logger observability.Logger) {
	ctx := context.Background()

	metrics := observability.NewMetrics("gateway")
	metrics.SetBuildInfo(version)

	handle := router.NewHandle(table)

	forwarder := proxy.NewForwarder(handle,
		proxy.WithLogger(logger),
		proxy.WithMetrics(metrics),
	)

	handler := middleware.Chain(forwarder,
		middleware.RequestID(),
		middleware.Metrics(metrics),
		middleware.Logging(logger),
	)

	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithHandler(handler),
		gateway.WithReloadHook(forwarder.Reset),
		gateway.WithShutdownTimeout(30 * time.Second),
	}

	if cfg.TLSEnabled() {
		tlsConfig, err := gwtls.LoadServerConfig(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			logger.Fatal("failed to load TLS configuration", observability.Error(err))
		}
		opts = append(opts, gateway.WithTLSConfig(tlsConfig))
	}

	gw, err := gateway.New(cfg, handle, opts...)
	if err != nil {
		logger.Fatal("failed to create gateway", observability.Error(err))
	}

	if err := gw.Start(ctx); err != nil {
		logger.Fatal("failed to start gateway", observability.Error(err))
	}

	var watcher *config.Watcher
	if flags.watch {
		watcher, err = config.NewWatcher(cfg.ProxyConfigPath, func(entries []config.RouteEntry) {
			if reloadErr := gw.Reload(entries); reloadErr != nil {
				logger.Error("route reload rejected", observability.Error(reloadErr))
			}
		}, config.WithWatcherLogger(logger))
		if err != nil {
			logger.Fatal("failed to create route watcher", observability.Error(err))
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Fatal("failed to start route watcher", observability.Error(err))
		}
	}

	var adminServer *http.Server
	if cfg.MetricsPort > 0 {
		adminServer = startAdminServer(cfg.MetricsPort, metrics, health.NewHandler(version, gw, handle), logger)
	}

	waitForShutdown(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Error("failed to stop route watcher", observability.Error(err))
		}
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop admin server", observability.Error(err))
		}
	}
	if err := gw.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop gateway", observability.Error(err))
	}
}

// startAdminServer serves the Prometheus endpoint and health probes on
// their own port.
func startAdminServer(port int, metrics *observability.Metrics, probes *health.Handler, logger observability.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	probes.Register(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("admin server started", observability.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server error", observability.Error(err))
		}
	}()

	return srv
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown(logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutdown signal received", observability.String("signal", sig.String()))
}

// getEnvOrDefault returns the environment value or a default.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
