package matching

import (
	"errors"
	"slices"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbacktest/types"
)

// DefaultAccount owns orders submitted without an account.
const DefaultAccount = "DEFAULT"

// DefaultCloseTime is the session close used for market-on-close orders.
const DefaultCloseTime = 160000000

var defaultNamespace = uuid.MustParse("6f1c3e0a-5b7d-4c1e-9a55-2f0d8b1e7c44")

type FillMode int

const (
	// TradeFill matches orders against trade prints.
	TradeFill FillMode = iota
	// QuoteFill matches buys against the ask and sells against the bid.
	QuoteFill
)

type FillListener func(types.Trade, types.Order)
type OrderListener func(types.Order)

// SecurityDirectory resolves contract data for order size checks.
type SecurityDirectory interface {
	Lookup(symbol string) (types.Security, bool)
}

type Option func(*Simulator)

func WithFillMode(mode FillMode) Option {
	return func(s *Simulator) {
		s.mode = mode
	}
}

// WithCloseTime sets the HHMMSSmmm time from which market-on-close orders fill.
func WithCloseTime(ftime int) Option {
	return func(s *Simulator) {
		s.closeTime = ftime
	}
}

// WithHighLiquidityEOD fills limit and stop orders in full against the day's
// open/high/low/close instead of sequential tick crossings.
func WithHighLiquidityEOD(enabled bool) Option {
	return func(s *Simulator) {
		s.highLiquidity = enabled
	}
}

// WithPartialFills caps each fill at the size printed or quoted on the tick.
func WithPartialFills(enabled bool) Option {
	return func(s *Simulator) {
		s.partial = enabled
	}
}

func WithCommission(model CommissionModel) Option {
	return func(s *Simulator) {
		if model != nil {
			s.commission = model
		}
	}
}

func WithSecurities(dir SecurityDirectory) Option {
	return func(s *Simulator) {
		s.securities = dir
	}
}

// WithNamespace seeds the generated order and trade IDs. IDs are derived from
// the namespace and a sequence number so identical runs produce identical IDs.
func WithNamespace(ns uuid.UUID) Option {
	return func(s *Simulator) {
		s.namespace = ns
	}
}

// Simulator is a synthetic broker: it keeps a book of pending orders per
// symbol and fills them against incoming ticks.
type Simulator struct {
	log           *zap.Logger
	mode          FillMode
	closeTime     int
	highLiquidity bool
	partial       bool
	commission    CommissionModel
	securities    SecurityDirectory
	namespace     uuid.UUID

	books      map[string]*book
	active     map[string]*entry
	statuses   map[string]types.OrderStatus
	fills      []types.Trade
	opened     map[string]int
	days       map[string]*dayBar
	benchmarks map[string]map[int]dayBar
	orderSeq   uint64
	tradeSeq   uint64
	nowDate    int
	nowTime    int

	fillListeners   []FillListener
	orderListeners  []OrderListener
	cancelListeners []OrderListener
}

func NewSimulator(log *zap.Logger, opts ...Option) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Simulator{
		log:        log,
		mode:       TradeFill,
		closeTime:  DefaultCloseTime,
		partial:    true,
		commission: NoCommission,
		namespace:  defaultNamespace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset clears books, fills and market state. Options and listeners stay.
func (s *Simulator) Reset() {
	s.books = make(map[string]*book)
	s.active = make(map[string]*entry)
	s.statuses = make(map[string]types.OrderStatus)
	s.fills = nil
	s.opened = make(map[string]int)
	s.days = make(map[string]*dayBar)
	s.benchmarks = make(map[string]map[int]dayBar)
	s.orderSeq = 0
	s.tradeSeq = 0
	s.nowDate, s.nowTime = 0, 0
}

// OnFill is called with the trade and the order after the fill was applied.
func (s *Simulator) OnFill(l FillListener) {
	s.fillListeners = append(s.fillListeners, l)
}

// OnOrder is called when an order is accepted or updated.
func (s *Simulator) OnOrder(l OrderListener) {
	s.orderListeners = append(s.orderListeners, l)
}

// OnCancel is called when an order is cancelled or expires.
func (s *Simulator) OnCancel(l OrderListener) {
	s.cancelListeners = append(s.cancelListeners, l)
}

// SendOrder validates o and rests it in the book. On success o is updated
// with its ID, account, status and acceptance time.
func (s *Simulator) SendOrder(o *types.Order) Status {
	if o == nil {
		return EmptyOrder
	}
	if st := s.validate(*o); st != OK {
		s.log.Warn("order rejected", zap.Stringer("status", st), zap.Stringer("order", o))
		return st
	}
	if o.ID == "" {
		o.ID = s.nextID("order")
	}
	if _, seen := s.statuses[o.ID]; seen {
		return DuplicateOrder
	}
	if o.Account == "" {
		o.Account = DefaultAccount
	}
	if o.Instruction == "" {
		o.Instruction = types.InstructionDay
	}
	o.Status = types.OrderNew
	o.Filled = 0
	if o.Date == 0 {
		o.Date, o.Time = s.nowDate, s.nowTime
	}

	s.orderSeq++
	e := &entry{order: *o, seq: s.orderSeq}
	s.active[o.ID] = e
	s.statuses[o.ID] = types.OrderNew
	bk, ok := s.books[o.Symbol]
	if !ok {
		bk = &book{}
		s.books[o.Symbol] = bk
	}
	bk.add(e)

	for _, l := range s.orderListeners {
		l(e.order)
	}
	return OK
}

// CancelOrder removes a resting order. It leaves the BBO at once.
func (s *Simulator) CancelOrder(id string) Status {
	e, ok := s.active[id]
	if !ok {
		return s.inactiveStatus(id)
	}
	s.cancel(e)
	return OK
}

// CancelAll cancels every resting order of account and returns how many.
func (s *Simulator) CancelAll(account string) int {
	n := 0
	for _, e := range s.sortedActive() {
		if e.order.Account == account {
			s.cancel(e)
			n++
		}
	}
	return n
}

// UpdateOrder replaces the price, size or instruction of a resting order. The
// replacement is validated like a new order and loses its queue position.
// Symbol, side and account cannot change.
func (s *Simulator) UpdateOrder(o types.Order) Status {
	e, ok := s.active[o.ID]
	if !ok {
		return s.inactiveStatus(o.ID)
	}
	if o.Account == "" {
		o.Account = DefaultAccount
	}
	if o.Instruction == "" {
		o.Instruction = e.order.Instruction
	}
	if o.Symbol != e.order.Symbol || o.Side != e.order.Side || o.Account != e.order.Account {
		return InvalidOrder
	}
	if st := s.validate(o); st != OK {
		return st
	}
	if o.Size <= e.order.Filled {
		return InvalidSize
	}

	o.Filled = e.order.Filled
	o.Status = e.order.Status
	o.Date, o.Time = e.order.Date, e.order.Time
	s.orderSeq++
	e.order = o
	e.seq = s.orderSeq
	e.triggered = false
	bk := s.books[o.Symbol]
	bk.remove(o.ID)
	bk.add(e)

	for _, l := range s.orderListeners {
		l(e.order)
	}
	return OK
}

// BestBid is the highest visible buy limit and the size resting there.
func (s *Simulator) BestBid(symbol string) (decimal.Decimal, int64, bool) {
	return s.BestBidOrOffer(symbol, types.SideTypeBuy)
}

// BestOffer is the lowest visible sell limit and the size resting there.
func (s *Simulator) BestOffer(symbol string) (decimal.Decimal, int64, bool) {
	return s.BestBidOrOffer(symbol, types.SideTypeSell)
}

func (s *Simulator) BestBidOrOffer(symbol string, side types.Side) (decimal.Decimal, int64, bool) {
	bk, ok := s.books[symbol]
	if !ok {
		return decimal.Zero, 0, false
	}
	return bk.best(side)
}

// Orders lists the resting orders of account in acceptance order. An empty
// account lists every order.
func (s *Simulator) Orders(account string) []types.Order {
	var out []types.Order
	for _, e := range s.sortedActive() {
		if account == "" || e.order.Account == account {
			out = append(out, e.order)
		}
	}
	return out
}

// Order looks up a resting order.
func (s *Simulator) Order(id string) (types.Order, bool) {
	e, ok := s.active[id]
	if !ok {
		return types.Order{}, false
	}
	return e.order, true
}

// OrderStatus reports the last known status of any order ever accepted.
func (s *Simulator) OrderStatus(id string) (types.OrderStatus, bool) {
	st, ok := s.statuses[id]
	return st, ok
}

// Fills lists executed trades for account, or all trades for "".
func (s *Simulator) Fills(account string) []types.Trade {
	if account == "" {
		return slices.Clone(s.fills)
	}
	var out []types.Trade
	for _, f := range s.fills {
		if f.Account == account {
			out = append(out, f)
		}
	}
	return out
}

// SetBenchmark records the official open/high/low/close of symbol on date,
// used by high liquidity EOD fills in place of the running day range.
func (s *Simulator) SetBenchmark(symbol string, date int, open, high, low, close decimal.Decimal) {
	days, ok := s.benchmarks[symbol]
	if !ok {
		days = make(map[int]dayBar)
		s.benchmarks[symbol] = days
	}
	days[date] = dayBar{date: date, open: open, high: high, low: low, close: close, set: true}
}

func (s *Simulator) validate(o types.Order) Status {
	if err := o.Validate(); err != nil {
		switch {
		case errors.Is(err, types.ErrEmptyOrder):
			return EmptyOrder
		case errors.Is(err, types.ErrInvalidSize):
			return InvalidSize
		default:
			return InvalidOrder
		}
	}
	if s.securities != nil {
		if sec, ok := s.securities.Lookup(o.Symbol); ok && !sec.AcceptsSize(o.Size) {
			return InvalidSize
		}
	}
	return OK
}

func (s *Simulator) inactiveStatus(id string) Status {
	switch s.statuses[id] {
	case types.OrderCanceled:
		return AlreadyCancelled
	case types.OrderFilled:
		return AlreadyFilled
	default:
		return UnknownOrder
	}
}

func (s *Simulator) cancel(e *entry) {
	e.order.Status = types.OrderCanceled
	s.statuses[e.order.ID] = types.OrderCanceled
	delete(s.active, e.order.ID)
	if bk, ok := s.books[e.order.Symbol]; ok {
		bk.remove(e.order.ID)
	}
	for _, l := range s.cancelListeners {
		l(e.order)
	}
}

func (s *Simulator) sortedActive() []*entry {
	out := make([]*entry, 0, len(s.active))
	for _, e := range s.active {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *Simulator) nextID(kind string) string {
	var n uint64
	if kind == "order" {
		n = s.orderSeq + 1
	} else {
		s.tradeSeq++
		n = s.tradeSeq
	}
	return uuid.NewSHA1(s.namespace, []byte(kind+"-"+strconv.FormatUint(n, 10))).String()
}
