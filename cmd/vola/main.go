package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/volaengine/vola/internal/chart"
	"github.com/volaengine/vola/internal/collector"
	"github.com/volaengine/vola/internal/config"
	"github.com/volaengine/vola/internal/logging"
	"github.com/volaengine/vola/internal/model"
	"github.com/volaengine/vola/internal/orchestrator"
	"github.com/volaengine/vola/internal/scheduler"
	"github.com/volaengine/vola/internal/view"
)

const tuiLogFile = "vola.log"

func main() {
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("VOLA_CONFIG"); v != "" {
		defaultCfg = v
	}
	cfgPath := flag.String("config", defaultCfg, "path to config file")
	once := flag.String("once", "", "analyze SYMBOL, print the report and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	// The alt screen owns the terminal in interactive mode.
	if *once == "" && cfg.Logging.Output == "" {
		cfg.Logging.Output = tuiLogFile
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	var client collector.AnalyticsClient
	if cfg.API.Mock {
		client = collector.NewMockClient()
	} else {
		client = collector.NewHTTPClient(cfg.API, logger)
	}
	logger.Info("vola starting",
		zap.String("source", client.Name()),
		zap.String("base_url", cfg.API.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	if *once != "" {
		code = runOnce(ctx, cfg, client, logger, *once)
	} else if err := runTUI(ctx, cfg, client, logger); err != nil {
		logger.Error("tui exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "vola: %v\n", err)
		code = 1
	}
	logger.Info("vola stopped")
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func runOnce(ctx context.Context, cfg *config.Config, client collector.AnalyticsClient, logger *zap.Logger, symbol string) int {
	orch := orchestrator.New(client, logger, orchestrator.WithOnSettle(chartWriter(cfg, logger)))
	if !orch.RunQuery(ctx, symbol) {
		fmt.Fprintln(os.Stderr, "vola: empty symbol")
		return 2
	}
	st := orch.State()
	fmt.Print(view.RenderReport(st))
	if st.HasError() {
		return 1
	}
	return 0
}

func runTUI(ctx context.Context, cfg *config.Config, client collector.AnalyticsClient, logger *zap.Logger) error {
	// p is assigned before any query runs: the first one starts from Init.
	var p *tea.Program
	orch := orchestrator.New(client, logger,
		orchestrator.WithOnChange(func() {
			if p != nil {
				p.Send(view.StateChangedMsg{})
			}
		}),
		orchestrator.WithOnSettle(chartWriter(cfg, logger)),
	)

	p = tea.NewProgram(
		view.NewModel(ctx, orch, cfg.Dashboard.DefaultSymbol),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if cfg.Dashboard.RefreshCron != "" {
		sched := scheduler.New(ctx, orch, logger)
		if err := sched.Register(cfg.Dashboard.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// Interrupted by signal.
		return nil
	}
	return err
}

// chartWriter returns the settle hook that writes the volatility PNG, or
// nil when no chart directory is configured.
func chartWriter(cfg *config.Config, logger *zap.Logger) func(model.DashboardState) {
	dir := cfg.Dashboard.ChartDir
	if dir == "" {
		return nil
	}
	return func(st model.DashboardState) {
		if st.Stock == nil {
			return
		}
		series := chart.SeriesFor(st.Stock.Volatility30d)
		if series == nil {
			return
		}
		path, err := chart.WriteVolatilityChart(dir, st.Stock.Ticker, series)
		if err != nil {
			logger.Warn("write volatility chart", zap.Error(err))
			return
		}
		logger.Info("volatility chart written", zap.String("path", path))
	}
}
