package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"tickbacktest/internal/ledger"
	"tickbacktest/types"
)

type Report struct {
	// Meta / period info
	StartDate   time.Time
	EndDate     time.Time
	TotalPeriod time.Duration
	TotalFills  int

	// Replay quality
	ExpectedTicks  int
	DeliveredTicks int
	OutOfOrder     int
	InvalidTicks   int
	FailedSources  []string

	ledger.Results
}

// Report computes the statistics of the portfolio account so far.
func (e *Engine) Report() *Report {
	rf := decimal.Zero
	if e.reporting != nil {
		rf = e.reporting.riskFreeRate
	}
	account := e.portfolio.account

	report := &Report{
		StartDate:      types.ToTime(e.firstDate, e.firstTime),
		EndDate:        types.ToTime(e.date, e.ftime),
		TotalFills:     len(e.sim.Fills(account)),
		ExpectedTicks:  e.scheduler.Expected(),
		DeliveredTicks: e.scheduler.Delivered(),
		OutOfOrder:     e.scheduler.OutOfOrder(),
		InvalidTicks:   e.scheduler.Invalid(),
		FailedSources:  e.scheduler.Failed(),
		Results:        e.ledger.Results(account, rf),
	}
	if e.firstDate != 0 {
		report.TotalPeriod = report.EndDate.Sub(report.StartDate).Truncate(24 * time.Hour)
	}
	return report
}

func (e *Engine) printReport(w io.Writer, report *Report) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("===== Trading Report =====\n")
	p("Account:               %s\n", report.Account)
	p("Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
	p("Total Period:          %d days\n", report.TotalPeriod/(24*time.Hour))
	p("Total Fills:           %d\n", report.TotalFills)
	p("Round Turns:           %d\n", report.RoundTurns)

	p("\n-- Replay --\n")
	p("Ticks:                 %d of %d\n", report.DeliveredTicks, report.ExpectedTicks)
	p("Out Of Order:          %d\n", report.OutOfOrder)
	p("Invalid:               %d\n", report.InvalidTicks)
	if len(report.FailedSources) > 0 {
		p("Failed Sources:        %v\n", report.FailedSources)
	}

	p("\n-- Absolute Performance --\n")
	p("Gross Profit:          %s\n", report.GrossPnL.StringFixed(2))
	p("Net Profit:            %s\n", report.NetPnL.StringFixed(2))
	p("CAGR:                  %s\n", report.CAGR.StringFixed(4))

	p("\n-- Trade-Level Metrics --\n")
	p("Wins / Losses:         %d / %d\n", report.Wins, report.Losses)
	p("Avg Win:               %s\n", report.AvgWin.StringFixed(2))
	p("Avg Loss:              %s\n", report.AvgLoss.StringFixed(2))

	p("\n-- Drawdown Metrics --\n")
	p("Max Drawdown:          %s\n", report.MaxDrawdown.Amount.StringFixed(2))
	p("Max Drawdown %%:        %s\n", report.MaxDrawdown.Percent.Shift(2).StringFixed(2))
	p("Equity Drawdown:       %s\n", report.EquityDrawdown.Amount.StringFixed(2))
	p("Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)

	p("\n-- Risk-Adjusted Metrics --\n")
	p("Sharpe Ratio:          %s\n", report.SharpeRatio.StringFixed(4))
	p("Sortino Ratio:         %s\n", report.SortinoRatio.StringFixed(4))
	p("Monthly Sharpe:        %s\n", report.MonthlySharpe.StringFixed(4))
	p("Profit Factor:         %s\n", report.ProfitFactor.StringFixed(4))

	p("\n-- Costs --\n")
	p("Total Commission:      %s\n", report.Commissions.StringFixed(2))

	p("==========================\n")
}
