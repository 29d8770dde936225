package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbacktest/types"
)

// AdjustListener observes every applied fill with the resulting position and
// the PnL the fill realized.
type AdjustListener func(pos types.PositionSnapshot, trade types.Trade, realized decimal.Decimal)

// SecurityDirectory resolves point values.
type SecurityDirectory interface {
	Lookup(symbol string) (types.Security, bool)
}

type Option func(*Ledger)

// WithInitialCash sets the starting cash of every account.
func WithInitialCash(cash decimal.Decimal) Option {
	return func(l *Ledger) {
		l.initialCash = cash
	}
}

func WithSecurities(dir SecurityDirectory) Option {
	return func(l *Ledger) {
		l.securities = dir
	}
}

type account struct {
	name        string
	cash        decimal.Decimal
	commissions decimal.Decimal
	swaps       decimal.Decimal
	positions   map[string]*Position
	open        map[string]*RoundTurn
}

// Ledger keeps positions and cash per account from the fills it is given.
type Ledger struct {
	log         *zap.Logger
	initialCash decimal.Decimal
	securities  SecurityDirectory

	accounts   map[string]*account
	marks      map[string]decimal.Decimal
	roundTurns []RoundTurn
	snapshots  []types.PortfolioView
	listeners  []AdjustListener
}

func NewLedger(log *zap.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{log: log}
	for _, opt := range opts {
		opt(l)
	}
	l.Reset()
	return l
}

// Reset drops all accounts, marks and history.
func (l *Ledger) Reset() {
	l.accounts = make(map[string]*account)
	l.marks = make(map[string]decimal.Decimal)
	l.roundTurns = nil
	l.snapshots = nil
}

func (l *Ledger) OnAdjust(fn AdjustListener) {
	l.listeners = append(l.listeners, fn)
}

// Adjust books a fill against its account and returns the realized PnL.
// Commission and swap are charged to cash, not to the realized PnL.
func (l *Ledger) Adjust(t types.Trade) (decimal.Decimal, error) {
	if t.Account == "" {
		return decimal.Zero, fmt.Errorf("trade without account: %w", ErrInvalidTrade)
	}
	if err := t.Validate(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrInvalidTrade, err)
	}
	acct := l.account(t.Account)
	pos := l.position(acct, t.Symbol)
	before := pos.Size()

	realized, err := pos.Adjust(t)
	if err != nil {
		return decimal.Zero, err
	}

	notional := t.Price.Mul(decimal.NewFromInt(t.SignedSize())).Mul(pos.PointValue())
	acct.cash = acct.cash.Sub(notional).Sub(t.Commission).Sub(t.Swap)
	acct.commissions = acct.commissions.Add(t.Commission)
	acct.swaps = acct.swaps.Add(t.Swap)
	l.marks[t.Symbol] = t.Price

	l.trackRoundTurn(acct, pos, before, t, realized)

	snap := pos.Snapshot(t.Price)
	for _, fn := range l.listeners {
		fn(snap, t, realized)
	}
	return realized, nil
}

// AdjustPosition applies delta to the matching position of delta's account.
func (l *Ledger) AdjustPosition(delta *Position) (decimal.Decimal, error) {
	if delta == nil || delta.IsFlat() {
		return decimal.Zero, nil
	}
	side := types.SideTypeBuy
	if delta.IsShort() {
		side = types.SideTypeSell
	}
	date, ftime := delta.LastModified()
	return l.Adjust(types.Trade{
		Symbol:  delta.Symbol(),
		Account: delta.Account(),
		Side:    side,
		Price:   delta.AvgPrice(),
		Size:    abs(delta.Size()),
		Date:    date,
		Time:    ftime,
	})
}

// Mark records the last price of the tick's symbol for valuation. Trades win
// over quotes; a two sided quote marks at the mid.
func (l *Ledger) Mark(tick types.Tick) {
	switch {
	case tick.IsTrade():
		l.marks[tick.Symbol] = tick.Trade
	case tick.IsFullQuote():
		l.marks[tick.Symbol] = tick.Bid.Add(tick.Ask).Div(decimal.NewFromInt(2))
	case tick.HasBid():
		l.marks[tick.Symbol] = tick.Bid
	case tick.HasAsk():
		l.marks[tick.Symbol] = tick.Ask
	}
}

// LastPrice is the current mark of symbol.
func (l *Ledger) LastPrice(symbol string) (decimal.Decimal, bool) {
	p, ok := l.marks[symbol]
	return p, ok
}

// Position returns the position of account in symbol, flat if never traded.
func (l *Ledger) Position(account, symbol string) types.PositionSnapshot {
	acct, ok := l.accounts[account]
	if !ok {
		return NewPosition(account, symbol).Snapshot(l.marks[symbol])
	}
	pos, ok := acct.positions[symbol]
	if !ok {
		return NewPosition(account, symbol).Snapshot(l.marks[symbol])
	}
	return pos.Snapshot(l.marks[symbol])
}

// Positions lists every position of account ordered by symbol, including
// flat ones that traded before.
func (l *Ledger) Positions(account string) []types.PositionSnapshot {
	acct, ok := l.accounts[account]
	if !ok {
		return nil
	}
	symbols := make([]string, 0, len(acct.positions))
	for s := range acct.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	out := make([]types.PositionSnapshot, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, acct.positions[s].Snapshot(l.marks[s]))
	}
	return out
}

// Accounts lists accounts that have traded, sorted.
func (l *Ledger) Accounts() []string {
	names := make([]string, 0, len(l.accounts))
	for name := range l.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Ledger) Cash(account string) decimal.Decimal {
	if acct, ok := l.accounts[account]; ok {
		return acct.cash
	}
	return l.initialCash
}

// Commissions is the total commission paid by account.
func (l *Ledger) Commissions(account string) decimal.Decimal {
	if acct, ok := l.accounts[account]; ok {
		return acct.commissions
	}
	return decimal.Zero
}

// ClosedPnL sums realized PnL over every position of account.
func (l *Ledger) ClosedPnL(account string) decimal.Decimal {
	total := decimal.Zero
	if acct, ok := l.accounts[account]; ok {
		for _, pos := range acct.positions {
			total = total.Add(pos.ClosedPnL())
		}
	}
	return total
}

// Equity is cash plus marked positions of account.
func (l *Ledger) Equity(account string) decimal.Decimal {
	return l.view(account, 0, 0).Equity()
}

// Snapshot records a view of every account at date and time and returns
// the views in account order.
func (l *Ledger) Snapshot(date, ftime int) []types.PortfolioView {
	names := l.Accounts()
	views := make([]types.PortfolioView, 0, len(names))
	for _, name := range names {
		views = append(views, l.view(name, date, ftime))
	}
	l.snapshots = append(l.snapshots, views...)
	return views
}

// Snapshots returns the recorded views of account in order.
func (l *Ledger) Snapshots(account string) []types.PortfolioView {
	var out []types.PortfolioView
	for _, v := range l.snapshots {
		if v.Account == account {
			out = append(out, v)
		}
	}
	return out
}

// RoundTurns returns every completed round turn in close order.
func (l *Ledger) RoundTurns() []RoundTurn {
	out := make([]RoundTurn, len(l.roundTurns))
	copy(out, l.roundTurns)
	return out
}

func (l *Ledger) view(name string, date, ftime int) types.PortfolioView {
	v := types.PortfolioView{
		Account:   name,
		Cash:      l.Cash(name),
		Positions: make(map[string]types.PositionSnapshot),
		Date:      date,
		Time:      ftime,
	}
	if acct, ok := l.accounts[name]; ok {
		for sym, pos := range acct.positions {
			if !pos.IsFlat() {
				v.Positions[sym] = pos.Snapshot(l.marks[sym])
			}
		}
	}
	return v
}

func (l *Ledger) account(name string) *account {
	acct, ok := l.accounts[name]
	if !ok {
		acct = &account{
			name:      name,
			cash:      l.initialCash,
			positions: make(map[string]*Position),
			open:      make(map[string]*RoundTurn),
		}
		l.accounts[name] = acct
	}
	return acct
}

func (l *Ledger) position(acct *account, symbol string) *Position {
	pos, ok := acct.positions[symbol]
	if !ok {
		pv := decimal.NewFromInt(1)
		if l.securities != nil {
			if sec, found := l.securities.Lookup(symbol); found {
				pv = sec.PointValue()
			}
		}
		pos = newPositionWithPointValue(acct.name, symbol, pv)
		acct.positions[symbol] = pos
	}
	return pos
}
