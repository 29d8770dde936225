package engine

import (
	"io"

	"github.com/shopspring/decimal"

	"tickbacktest/internal/bars"
	"tickbacktest/internal/ledger"
	"tickbacktest/internal/matching"
	"tickbacktest/internal/replay"
)

type PortfolioConfig struct {
	account     string
	initialCash decimal.Decimal
}

func NewPortfolioConfig(initialCash decimal.Decimal, account string) *PortfolioConfig {
	if account == "" {
		account = matching.DefaultAccount
	}
	return &PortfolioConfig{
		account:     account,
		initialCash: initialCash,
	}
}

type ReportingConfig struct {
	riskFreeRate decimal.Decimal
	writeTrades  bool
	reportName   string
	filePath     string
}

// NewReportingConfig sets the annual risk free rate used for the Sharpe
// ratio. With writeTrades the fills and round turns are written as CSV files
// named after reportName under filePath.
func NewReportingConfig(riskFreeRate decimal.Decimal, writeTrades bool, reportName string, filePath string) *ReportingConfig {
	return &ReportingConfig{
		riskFreeRate: riskFreeRate,
		writeTrades:  writeTrades,
		reportName:   reportName,
		filePath:     filePath,
	}
}

type Option func(*Engine)

func WithSources(sources ...replay.Source) Option {
	return func(e *Engine) {
		e.sources = append(e.sources, sources...)
	}
}

func WithPortfolio(cfg *PortfolioConfig) Option {
	return func(e *Engine) {
		e.portfolio = cfg
	}
}

// WithReporting prints a report to out when playback finishes.
func WithReporting(cfg *ReportingConfig, out io.Writer) Option {
	return func(e *Engine) {
		e.reporting = cfg
		e.reportOut = out
	}
}

func WithSimulator(opts ...matching.Option) Option {
	return func(e *Engine) {
		e.simOpts = append(e.simOpts, opts...)
	}
}

func WithBars(opts ...bars.Option) Option {
	return func(e *Engine) {
		e.barOpts = append(e.barOpts, opts...)
	}
}

func WithLedger(opts ...ledger.Option) Option {
	return func(e *Engine) {
		e.ledgerOpts = append(e.ledgerOpts, opts...)
	}
}

func WithReplay(opts ...replay.Option) Option {
	return func(e *Engine) {
		e.replayOpts = append(e.replayOpts, opts...)
	}
}

// WithSink forwards fills and closed bars to sink.
func WithSink(sink eventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}
