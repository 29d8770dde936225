package ledger

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

// Drawdown is the largest fall from a running peak to a later trough. Peak
// and Trough index the series it was measured on; both are -1 when the
// series never fell.
type Drawdown struct {
	Amount  decimal.Decimal
	Percent decimal.Decimal
	Peak    int
	Trough  int
}

type Results struct {
	Account     string
	RoundTurns  int
	Wins        int
	Losses      int
	GrossPnL    decimal.Decimal
	NetPnL      decimal.Decimal
	Commissions decimal.Decimal

	AvgWin               decimal.Decimal
	AvgLoss              decimal.Decimal
	MaxConsecutiveLosses int

	ProfitFactor decimal.Decimal
	SharpeRatio  decimal.Decimal
	SortinoRatio decimal.Decimal
	// MonthlySharpe is the annualized Sharpe ratio of month-end equity.
	MonthlySharpe decimal.Decimal

	// MaxDrawdown is measured on cumulative net PnL per round turn, starting
	// from the initial cash.
	MaxDrawdown Drawdown
	// EquityDrawdown is measured on the recorded snapshots.
	EquityDrawdown Drawdown
	CAGR           decimal.Decimal
}

// Results computes the statistics of account. Round turns have no common
// holding period, so their Sharpe and Sortino ratios use raw returns;
// annualRiskFree only applies to MonthlySharpe.
func (l *Ledger) Results(account string, annualRiskFree decimal.Decimal) Results {
	var turns []RoundTurn
	for _, rt := range l.roundTurns {
		if rt.Account == account {
			turns = append(turns, rt)
		}
	}
	snaps := l.Snapshots(account)

	res := Results{
		Account:     account,
		RoundTurns:  len(turns),
		Commissions: l.Commissions(account),
	}

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		res.GrossPnL, res.NetPnL = calcPnL(turns, &wg)
	}()
	go func() {
		res.Wins, res.Losses, res.AvgWin, res.AvgLoss, res.ProfitFactor = calcWinLoss(turns, &wg)
	}()
	go func() {
		res.MaxConsecutiveLosses = calcMaxConsecutiveLosses(turns, &wg)
	}()
	go func() {
		res.SharpeRatio, res.SortinoRatio = calcRiskAdjusted(turns, &wg)
	}()
	go func() {
		res.MaxDrawdown = calcPnLDrawdown(l.initialCash, turns, &wg)
	}()
	go func() {
		defer wg.Done()
		equity := make([]decimal.Decimal, len(snaps))
		for i, s := range snaps {
			equity[i] = s.Equity()
		}
		res.EquityDrawdown = MaxDrawdown(equity)
		res.CAGR = CAGR(snaps)
		res.MonthlySharpe = MonthlySharpe(snaps, annualRiskFree)
	}()
	wg.Wait()

	return res
}

func calcPnL(turns []RoundTurn, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()
	gross, net := decimal.Zero, decimal.Zero
	for _, rt := range turns {
		gross = gross.Add(rt.GrossPnL)
		net = net.Add(rt.NetPnL())
	}
	return gross, net
}

func calcWinLoss(turns []RoundTurn, wg *sync.WaitGroup) (int, int, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	sumWins := decimal.Zero
	sumLosses := decimal.Zero // absolute
	wins, losses := 0, 0
	for _, rt := range turns {
		net := rt.NetPnL()
		switch {
		case net.IsPositive():
			sumWins = sumWins.Add(net)
			wins++
		case net.IsNegative():
			sumLosses = sumLosses.Add(net.Abs())
			losses++
		}
	}

	avgWin, avgLoss, factor := decimal.Zero, decimal.Zero, decimal.Zero
	if wins > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(losses)))
	}
	if sumLosses.IsPositive() {
		factor = sumWins.Div(sumLosses)
	}
	return wins, losses, avgWin, avgLoss, factor
}

func calcMaxConsecutiveLosses(turns []RoundTurn, wg *sync.WaitGroup) int {
	defer wg.Done()

	maxLossStreak, currentStreak := 0, 0
	for _, rt := range turns {
		if rt.NetPnL().IsNegative() {
			currentStreak++
			maxLossStreak = max(maxLossStreak, currentStreak)
		} else {
			currentStreak = 0
		}
	}
	return maxLossStreak
}

// calcRiskAdjusted returns the Sharpe and Sortino ratios of the round-turn
// returns. Both are zero with fewer than two round turns.
func calcRiskAdjusted(turns []RoundTurn, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()
	if len(turns) < 2 {
		return decimal.Zero, decimal.Zero
	}

	excess := make([]float64, len(turns))
	var sum float64
	for i, rt := range turns {
		excess[i] = rt.Return().InexactFloat64()
		sum += excess[i]
	}
	mean := sum / float64(len(excess))

	var varianceSum, downsideSum float64
	for _, x := range excess {
		diff := x - mean
		varianceSum += diff * diff
		if x < 0 {
			downsideSum += x * x
		}
	}

	sharpe, sortino := decimal.Zero, decimal.Zero
	if std := math.Sqrt(varianceSum / float64(len(excess)-1)); std > 0 {
		sharpe = decimal.NewFromFloat(mean / std)
	}
	if downside := math.Sqrt(downsideSum / float64(len(excess))); downside > 0 {
		sortino = decimal.NewFromFloat(mean / downside)
	}
	return sharpe, sortino
}

func calcPnLDrawdown(initialCash decimal.Decimal, turns []RoundTurn, wg *sync.WaitGroup) Drawdown {
	defer wg.Done()
	series := make([]decimal.Decimal, 0, len(turns)+1)
	cum := initialCash
	series = append(series, cum)
	for _, rt := range turns {
		cum = cum.Add(rt.NetPnL())
		series = append(series, cum)
	}
	return MaxDrawdown(series)
}

// MaxDrawdown scans series once, tracking the running peak and the worst
// peak-to-trough decline seen so far. Percent is relative to the peak and is
// zero when the peak is not positive.
func MaxDrawdown(series []decimal.Decimal) Drawdown {
	dd := Drawdown{Peak: -1, Trough: -1}
	if len(series) == 0 {
		return dd
	}

	peak := 0
	for i, v := range series {
		if v.GreaterThan(series[peak]) {
			peak = i
			continue
		}
		fall := series[peak].Sub(v)
		if fall.GreaterThan(dd.Amount) {
			dd.Amount = fall
			dd.Peak, dd.Trough = peak, i
			dd.Percent = decimal.Zero
			if series[peak].IsPositive() {
				dd.Percent = fall.Div(series[peak])
			}
		}
	}
	return dd
}

// CAGR is the compound annual growth of equity between the first and last
// snapshot.
func CAGR(snapshots []types.PortfolioView) decimal.Decimal {
	if len(snapshots) < 2 {
		return decimal.Zero
	}
	first, last := snapshots[0], snapshots[len(snapshots)-1]
	startVal, endVal := first.Equity(), last.Equity()
	if !startVal.IsPositive() {
		return decimal.Zero
	}

	duration := last.Timestamp().Sub(first.Timestamp())
	years := duration.Hours() / (24.0 * 365.25)
	if years <= 0 {
		return decimal.Zero
	}

	ratio := endVal.Div(startVal)
	if !ratio.IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0)
}

// MonthlySharpe annualizes the Sharpe ratio of the returns between month-end
// equity values. annualRiskFree is converted to a monthly rate first.
func MonthlySharpe(snapshots []types.PortfolioView, annualRiskFree decimal.Decimal) decimal.Decimal {
	monthlyReturns := MonthlyReturns(snapshots)
	if len(monthlyReturns) < 2 {
		return decimal.Zero
	}

	// rf_monthly = (1 + rf_annual)^(1/12) - 1
	rfMonthly := math.Pow(1.0+annualRiskFree.InexactFloat64(), 1.0/12.0) - 1.0

	excess := make([]float64, 0, len(monthlyReturns))
	var sum float64
	for _, r := range monthlyReturns {
		x := r.InexactFloat64() - rfMonthly
		excess = append(excess, x)
		sum += x
	}
	mean := sum / float64(len(excess))

	var varianceSum float64
	for _, x := range excess {
		diff := x - mean
		varianceSum += diff * diff
	}
	std := math.Sqrt(varianceSum / float64(len(excess)-1))
	if std == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(mean / std * math.Sqrt(12.0))
}

// MonthlyReturns returns the change between the last snapshot of each
// calendar month and the last snapshot of the month before. Snapshots must
// be in time order.
func MonthlyReturns(snapshots []types.PortfolioView) []decimal.Decimal {
	var monthEnds []decimal.Decimal
	lastMonth := -1
	for _, snap := range snapshots {
		month := snap.Date / 100
		if month == lastMonth {
			monthEnds[len(monthEnds)-1] = snap.Equity()
			continue
		}
		monthEnds = append(monthEnds, snap.Equity())
		lastMonth = month
	}
	if len(monthEnds) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(monthEnds)-1)
	prev := monthEnds[0]
	for _, curr := range monthEnds[1:] {
		if !prev.IsPositive() {
			prev = curr
			continue
		}
		returns = append(returns, curr.Div(prev).Sub(decimal.NewFromInt(1)))
		prev = curr
	}
	return returns
}
