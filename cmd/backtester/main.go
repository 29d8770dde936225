package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"tickbacktest/internal/archive"
	"tickbacktest/internal/bars"
	"tickbacktest/internal/config"
	"tickbacktest/internal/engine"
	"tickbacktest/internal/ledger"
	"tickbacktest/internal/logger"
	"tickbacktest/internal/matching"
	"tickbacktest/internal/publish"
	"tickbacktest/internal/replay"
	"tickbacktest/internal/repository"
	"tickbacktest/strategies/donchian"
	"tickbacktest/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.App.LogLevel, cfg.App.Environment, logger.WithFields(zap.String("app", cfg.App.Name)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("backtest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var (
		sources    []replay.Source
		securities types.Securities
	)
	switch cfg.Replay.Source {
	case "db":
		db, err := repository.NewDatabase(ctx, cfg.DB.URL, cfg.DB.MaxConns)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.DB.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
		securities, err = db.LoadSecurities(ctx, cfg.Replay.Symbols)
		if err != nil {
			return err
		}
		for _, sym := range cfg.Replay.Symbols {
			sources = append(sources, db.NewTickSource(ctx, log, sym, cfg.Replay.StartDate, cfg.Replay.EndDate))
		}
	case "archive":
		files, err := archive.OpenSymbols(log, cfg.Replay.ArchiveDir, cfg.Replay.Symbols, cfg.Replay.StartDate, cfg.Replay.EndDate)
		if err != nil {
			return err
		}
		for _, src := range files {
			sources = append(sources, src)
		}
	}

	simOpts, err := cfg.Sim.Options()
	if err != nil {
		return err
	}
	intervals, err := cfg.Bars.ParseIntervals()
	if err != nil {
		return err
	}
	stratInterval, err := types.ParseInterval(cfg.Strategy.Interval)
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithSources(sources...),
		engine.WithPortfolio(engine.NewPortfolioConfig(cfg.Sim.InitialCash, cfg.Sim.Account)),
		engine.WithReporting(engine.NewReportingConfig(cfg.Report.RiskFreeRate, cfg.Report.WriteTrades, cfg.Report.Name, cfg.Report.Dir), os.Stdout),
		engine.WithBars(bars.WithIntervals(intervals...), bars.WithMaxHistory(cfg.Bars.MaxHistory)),
	}
	if securities != nil {
		simOpts = append(simOpts, matching.WithSecurities(securities))
		opts = append(opts, engine.WithLedger(ledger.WithSecurities(securities)))
	}
	opts = append(opts, engine.WithSimulator(simOpts...))
	if cfg.Replay.Progress {
		opts = append(opts, engine.WithReplay(replay.WithProgress(os.Stderr)))
	}
	if cfg.Kafka.Enabled {
		pub := publish.NewPublisher(publish.Config{
			Brokers:   cfg.Kafka.Brokers,
			FillTopic: cfg.Kafka.FillTopic,
			BarTopic:  cfg.Kafka.BarTopic,
			RunID:     cfg.Report.Name,
		}, log)
		defer pub.Close()
		opts = append(opts, engine.WithSink(pub))
	}

	alloc := donchian.NewLongOnlyAllocator(cfg.Strategy.AllocPct)
	if cfg.Strategy.AllowShort {
		alloc = donchian.NewReversingAllocator(cfg.Strategy.AllocPct)
	}
	strat := donchian.NewStrategy(log, cfg.Replay.Symbols,
		donchian.WithInterval(stratInterval),
		donchian.WithLookback(cfg.Strategy.Lookback),
		donchian.WithAllocator(alloc))

	eng := engine.NewEngine(log, strat, opts...)
	if err := eng.Run(ctx); err != nil {
		return err
	}

	if cfg.Report.BarsFile != "" {
		return exportBars(eng.Bars(), cfg.Report.Dir, cfg.Report.BarsFile, stratInterval, log)
	}
	return nil
}

// exportBars writes one parquet file per symbol, named <symbol>_<file>.
func exportBars(be *bars.Engine, dir, file string, interval types.Interval, log *zap.Logger) error {
	for _, sym := range be.Symbols() {
		series, ok := be.Series(sym, interval)
		if !ok {
			continue
		}
		path := filepath.Join(dir, sym+"_"+file)
		if err := archive.WriteBars(path, series.Bars()); err != nil {
			return err
		}
		log.Info("bars exported", zap.String("path", path), zap.Int("bars", series.Len()))
	}
	return nil
}
