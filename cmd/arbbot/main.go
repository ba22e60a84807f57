package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/config"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/httpapi"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/notify"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/polymarket"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/adapters/storage"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/detector"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/executor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/monitor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/risk"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/state"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one monitor cycle and exit")
	mock := flag.Bool("mock", false, "use synthetic markets instead of the real API")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full opportunity table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *mock {
		cfg.API.MockMode = true
	}
	setupLogger(cfg.Log)

	slog.Info("arbbot starting",
		"config", *configPath,
		"interval", cfg.PollInterval(),
		"mock", cfg.API.MockMode,
		"trading_enabled", cfg.Trading.Enabled,
		"once", *once,
	)

	var exchange ports.Exchange
	if cfg.API.MockMode {
		exchange = polymarket.NewMockClient(8, 0)
	} else {
		exchange = polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	}

	var store ports.Storage
	if !*once {
		sqlite, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlite.Close()
		store = sqlite
	}

	notifier := notify.NewConsole(*table)
	prices := state.NewStore(cfg.Monitor.HistoryCapacity)

	det := detector.New(detector.Config{
		MinProfitThreshold: cfg.Detector.MinProfitThreshold,
		MinConfidence:      cfg.Detector.MinConfidence,
		MaxSlippage:        cfg.Detector.MaxSlippage,
		MaxPositionSize:    cfg.Detector.MaxCapital,
		DedupTTL:           cfg.DedupTTL(),
	})

	ledger := risk.New(risk.Config{
		MaxPositionSize:  cfg.Risk.MaxPositionSize,
		MaxTotalExposure: cfg.Risk.MaxTotalExposure,
		MinProfitPct:     cfg.Detector.MinProfitThreshold,
	})

	exec := executor.New(executor.Config{
		TradingEnabled: cfg.Trading.Enabled,
		MaxRetries:     cfg.Trading.MaxRetries,
		MaxPending:     cfg.Trading.MaxPending,
	}, executor.NewSimulatedSubmitter(0, 0, 0), ledger)

	bus := monitor.NewBus()
	defer bus.Close()

	mon := monitor.New(monitor.Config{
		Interval:          cfg.PollInterval(),
		MarketLimit:       cfg.Monitor.MarketLimit,
		SpikeThresholdPct: cfg.Monitor.SpikeThresholdPct,
		Workers:           cfg.Monitor.Workers,
	}, exchange, prices, det, ledger, exec, notifier, store, bus)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		events := bus.Subscribe()
		mon.RunOnce(ctx)

		var trades []domain.Trade
	drain:
		for {
			select {
			case ev := <-events:
				if ev.Kind == domain.EventTradeExecuted && ev.Trade != nil {
					trades = append(trades, *ev.Trade)
				}
			default:
				break drain
			}
		}
		notifier.PrintTrades(trades)

		stats := mon.Snapshot()
		slog.Info("single cycle complete",
			"opportunities", stats.OpportunitiesFound,
			"trades", stats.TradesExecuted,
			"fetch_errors", stats.FetchErrors,
		)
		return
	}

	if cfg.HTTP.Enabled {
		api := httpapi.New(cfg.HTTP.Addr, exchange, prices, ledger, exec, mon, store,
			cfg.Trading.Enabled, cfg.API.MockMode)
		go func() {
			if err := api.Run(ctx); err != nil {
				slog.Error("http api exited with error", "err", err)
			}
		}()
	}

	go logEvents(ctx, bus)

	if err := mon.Run(ctx); err != nil {
		slog.Error("monitor exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("arbbot stopped cleanly",
		"total_profit", exec.TotalProfit(),
		"success_rate", exec.SuccessRate(),
	)
}

// logEvents drena el bus de eventos hacia el log estructurado.
func logEvents(ctx context.Context, bus *monitor.Bus) {
	events := bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case domain.EventMonitorError:
				slog.Warn("monitor error", "err", ev.Err)
			case domain.EventPriceSpike:
				slog.Info("price spike event",
					"market", ev.MarketID, "outcome", ev.Outcome,
					"change_pct", ev.ChangePercent)
			default:
				slog.Debug("event", "kind", ev.Kind.String(), "market", ev.MarketID)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
