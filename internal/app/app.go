package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/shubhamrasal/jetwatch/internal/config"
	"github.com/shubhamrasal/jetwatch/internal/nats"
	"github.com/shubhamrasal/jetwatch/internal/plugins"
	"github.com/shubhamrasal/jetwatch/internal/ui"
)

// Run starts the jetwatch application.
func Run(serverURL, configPath string, readOnly bool) error {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath, serverURL)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := prometheus.NewRegistry()
	startMetricsServer(cfg.GetMetricsAddr(), registry, logger)

	nc, err := nats.NewClient(cfg.CurrentContext(), logger, registry)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	pluginMgr := plugins.NewManager()
	if err := pluginMgr.LoadPlugins(); err != nil {
		logger.Warn("failed to load plugins", zap.Error(err))
	}

	app := tview.NewApplication()
	uiManager := ui.NewUIManager(app, nc, cfg, pluginMgr, readOnly)

	if err := uiManager.Start(); err != nil {
		return fmt.Errorf("failed to start UI: %w", err)
	}

	return nil
}

// startMetricsServer exposes the delivery core's Prometheus counters on a
// best-effort background HTTP server; a bind failure is logged, not fatal,
// since the TUI itself does not depend on it.
func startMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
