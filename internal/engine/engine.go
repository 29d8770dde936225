package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbacktest/internal/bars"
	"tickbacktest/internal/ledger"
	"tickbacktest/internal/matching"
	"tickbacktest/internal/replay"
	"tickbacktest/types"
)

var ErrNoStrategy = errors.New("engine needs a strategy")

// Engine drives one backtest. Every tick from the scheduler goes through the
// simulator, the ledger marks, the bar engine and finally the strategy, all
// before the next tick is read.
type Engine struct {
	log       *zap.Logger
	strategy  strategy
	sink      eventSink
	portfolio *PortfolioConfig
	reporting *ReportingConfig
	reportOut io.Writer

	sources    []replay.Source
	replayOpts []replay.Option
	barOpts    []bars.Option
	simOpts    []matching.Option
	ledgerOpts []ledger.Option

	scheduler *replay.Scheduler
	bars      *bars.Engine
	sim       *matching.Simulator
	ledger    *ledger.Ledger

	initialized bool
	finished    bool
	firstDate   int
	firstTime   int
	date        int
	ftime       int
	err         error
}

func NewEngine(log *zap.Logger, strat strategy, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:       log,
		strategy:  strat,
		portfolio: NewPortfolioConfig(decimal.Zero, ""),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.scheduler = replay.NewScheduler(log.Named("replay"), e.replayOpts...)
	for _, src := range e.sources {
		e.scheduler.AddSource(src)
	}
	e.bars = bars.NewEngine(log.Named("bars"), e.barOpts...)
	e.sim = matching.NewSimulator(log.Named("matching"), e.simOpts...)
	ledgerOpts := append([]ledger.Option{ledger.WithInitialCash(e.portfolio.initialCash)}, e.ledgerOpts...)
	e.ledger = ledger.NewLedger(log.Named("ledger"), ledgerOpts...)

	e.scheduler.OnTick(e.onTick)
	e.sim.OnFill(e.onFill)
	e.bars.OnNewBar(e.onBar)
	return e
}

// Run plays every source to the end.
func (e *Engine) Run(ctx context.Context) error {
	return e.RunUntil(ctx, replay.EndOfSimulation)
}

// RunUntil plays ticks up to and including the cutoff stamp. It may be called
// again with a later cutoff to continue. Once all sources are drained the
// final snapshot is taken, the sink is flushed and the report is printed.
func (e *Engine) RunUntil(ctx context.Context, cutoff int64) error {
	if e.strategy == nil {
		return ErrNoStrategy
	}
	if !e.initialized {
		if err := e.strategy.Init(&strategyAPI{e: e}); err != nil {
			return fmt.Errorf("init strategy: %w", err)
		}
		e.initialized = true
	}

	n, err := e.scheduler.Play(ctx, cutoff)
	e.log.Debug("playback paused", zap.Int("ticks", n), zap.Int("date", e.date), zap.Int("time", e.ftime))
	if e.err != nil {
		return e.err
	}
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if e.scheduler.Done() && !e.finished {
		return e.finish(ctx)
	}
	return nil
}

// Stop halts the run after the current tick.
func (e *Engine) Stop() {
	e.scheduler.Stop()
}

// Reset returns the engine to its state before the first run. Sources are
// reopened from the start and the strategy is initialized again.
func (e *Engine) Reset() {
	e.scheduler.Reset()
	e.bars.Reset()
	e.sim.Reset()
	e.ledger.Reset()
	e.initialized = false
	e.finished = false
	e.firstDate, e.firstTime = 0, 0
	e.date, e.ftime = 0, 0
	e.err = nil
}

func (e *Engine) Fills() []types.Trade {
	return e.sim.Fills("")
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

func (e *Engine) Bars() *bars.Engine {
	return e.bars
}

func (e *Engine) Simulator() *matching.Simulator {
	return e.sim
}

func (e *Engine) onTick(tick types.Tick) {
	if e.date != 0 && tick.Date != e.date {
		e.ledger.Snapshot(e.date, e.ftime)
	}
	if e.firstDate == 0 {
		e.firstDate, e.firstTime = tick.Date, tick.Time
	}
	e.date, e.ftime = tick.Date, tick.Time

	e.sim.Execute(tick)
	e.ledger.Mark(tick)
	e.bars.NewTick(tick)
	e.strategy.OnTick(tick)
}

func (e *Engine) onFill(t types.Trade, o types.Order) {
	if _, err := e.ledger.Adjust(t); err != nil {
		e.log.Error("fill could not be booked", zap.Stringer("trade", t), zap.Error(err))
		if e.err == nil {
			e.err = fmt.Errorf("book fill %s: %w", t.ID, err)
		}
		e.scheduler.Stop()
		return
	}
	if e.sink != nil {
		e.sink.PublishFill(t, o)
	}
}

func (e *Engine) onBar(symbol string, interval types.Interval) {
	if e.sink != nil {
		if s, ok := e.bars.Series(symbol, interval); ok {
			if b, ok := s.Recent(1); ok {
				e.sink.PublishBar(b)
			}
		}
	}
	e.strategy.OnBar(symbol, interval)
}

func (e *Engine) finish(ctx context.Context) error {
	e.finished = true
	if e.date != 0 {
		e.ledger.Snapshot(e.date, e.ftime)
	}
	e.log.Info("backtest finished",
		zap.Int("expected", e.scheduler.Expected()),
		zap.Int("delivered", e.scheduler.Delivered()),
		zap.Int("outOfOrder", e.scheduler.OutOfOrder()),
		zap.Int("fills", len(e.sim.Fills(""))),
	)

	if e.sink != nil {
		if err := e.sink.Flush(ctx); err != nil {
			return fmt.Errorf("flush events: %w", err)
		}
	}
	if e.reporting == nil {
		return nil
	}
	report := e.Report()
	if e.reportOut != nil {
		e.printReport(e.reportOut, report)
	}
	if e.reporting.writeTrades {
		if err := e.writeReportFiles(); err != nil {
			return err
		}
	}
	return nil
}
