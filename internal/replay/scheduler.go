package replay

import (
	"container/heap"
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"tickbacktest/types"
)

// EndOfSimulation is the cutoff that plays every remaining tick.
const EndOfSimulation int64 = math.MaxInt64

var ErrNoSources = errors.New("no tick source could be opened")

// TickHandler receives every tick the scheduler emits.
type TickHandler func(types.Tick)

type Option func(*Scheduler)

// WithProgress draws a progress bar sized by the pre-scan estimate.
func WithProgress(w io.Writer) Option {
	return func(s *Scheduler) {
		s.progressOut = w
	}
}

// Scheduler merges several sources into one stream ordered by tick stamp.
// Ties go to the source registered first. Handlers run synchronously in
// registration order and each tick is fully handled before the next is read.
type Scheduler struct {
	log         *zap.Logger
	sources     []Source
	handlers    []TickHandler
	progressOut io.Writer
	progress    *progressbar.ProgressBar

	queue    cursorQueue
	prepared bool
	stopped  atomic.Bool
	failed   []string

	expected   int
	delivered  int
	outOfOrder int
	invalid    int
	last       int64
}

func NewScheduler(log *zap.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{log: log, last: math.MinInt64}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSource registers a source. Sources added after playback started are
// picked up on the next Reset.
func (s *Scheduler) AddSource(src Source) {
	s.sources = append(s.sources, src)
}

func (s *Scheduler) OnTick(h TickHandler) {
	s.handlers = append(s.handlers, h)
}

// Prepare opens every source, sums the estimates and reads the first tick of
// each. Sources that fail to open are logged and left out of the merge.
func (s *Scheduler) Prepare() error {
	stopped := s.stopped.Load()
	s.Reset()
	s.stopped.Store(stopped)
	for i, src := range s.sources {
		if err := src.Open(); err != nil {
			s.log.Warn("tick source excluded", zap.String("source", src.Name()), zap.Error(err))
			s.failed = append(s.failed, src.Name())
			continue
		}
		s.expected += src.Estimate()
		c := &cursor{src: src, index: i, prev: math.MinInt64}
		if s.advance(c) {
			s.queue = append(s.queue, c)
		} else {
			_ = src.Close()
		}
	}
	heap.Init(&s.queue)
	s.prepared = true
	if s.progressOut != nil {
		s.progress = initProgressBar(s.expected, s.progressOut)
	}
	if len(s.sources) > 0 && len(s.failed) == len(s.sources) {
		return ErrNoSources
	}
	return nil
}

// PlayAll plays until every source is exhausted or Stop is called.
func (s *Scheduler) PlayAll(ctx context.Context) (int, error) {
	return s.Play(ctx, EndOfSimulation)
}

// Play emits ticks whose stamp is at or before cutoff and returns how many
// were delivered. A later call continues where this one left off.
func (s *Scheduler) Play(ctx context.Context, cutoff int64) (int, error) {
	if !s.prepared {
		if err := s.Prepare(); err != nil {
			return 0, err
		}
	}
	n := 0
	for s.queue.Len() > 0 {
		if s.stopped.CompareAndSwap(true, false) {
			break
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		c := s.queue[0]
		if c.next.Stamp() > cutoff {
			break
		}
		t := c.next
		if s.advance(c) {
			heap.Fix(&s.queue, 0)
		} else {
			heap.Pop(&s.queue)
			_ = c.src.Close()
		}

		if t.Stamp() < s.last {
			s.flagOutOfOrder(c.src, t)
			continue
		}
		s.last = t.Stamp()
		s.delivered++
		n++
		for _, h := range s.handlers {
			h(t)
		}
		if s.progress != nil {
			_ = s.progress.Add(1)
		}
	}
	if s.queue.Len() == 0 && s.progress != nil {
		_ = s.progress.Finish()
	}
	return n, nil
}

// Stop halts playback once the tick being handled is done. It is safe to call
// from a handler or another goroutine. A Stop issued while nothing is playing
// holds until the next Play, which returns at once; only Reset discards it.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
}

// Reset closes all sources and clears counters. The next Play reopens them
// from the start.
func (s *Scheduler) Reset() {
	for _, c := range s.queue {
		_ = c.src.Close()
	}
	s.queue = nil
	s.prepared = false
	s.stopped.Store(false)
	s.failed = nil
	s.expected = 0
	s.delivered = 0
	s.outOfOrder = 0
	s.invalid = 0
	s.last = math.MinInt64
	s.progress = nil
}

// NextStamp is the stamp of the next tick to be emitted.
func (s *Scheduler) NextStamp() (int64, bool) {
	if s.queue.Len() == 0 {
		return 0, false
	}
	return s.queue[0].next.Stamp(), true
}

// Done is true once every source has been drained.
func (s *Scheduler) Done() bool {
	return s.prepared && s.queue.Len() == 0
}

// Expected is the sum of the source estimates taken by Prepare.
func (s *Scheduler) Expected() int {
	return s.expected
}

func (s *Scheduler) Delivered() int {
	return s.delivered
}

// OutOfOrder counts ticks dropped because they went back in time.
func (s *Scheduler) OutOfOrder() int {
	return s.outOfOrder
}

// Invalid counts ticks dropped because they carried no usable price.
func (s *Scheduler) Invalid() int {
	return s.invalid
}

// Failed lists the sources excluded from the merge.
func (s *Scheduler) Failed() []string {
	return append([]string(nil), s.failed...)
}

// advance loads the next usable tick of c. It returns false once the source
// is exhausted or broken.
func (s *Scheduler) advance(c *cursor) bool {
	for {
		t, err := c.src.Next()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			s.log.Warn("tick source read failed", zap.String("source", c.src.Name()), zap.Error(err))
			s.failed = append(s.failed, c.src.Name())
			return false
		}
		if !t.IsValid() {
			s.invalid++
			continue
		}
		if t.Stamp() < c.prev {
			s.flagOutOfOrder(c.src, t)
			continue
		}
		c.prev = t.Stamp()
		c.next = t
		return true
	}
}

func (s *Scheduler) flagOutOfOrder(src Source, t types.Tick) {
	s.outOfOrder++
	s.log.Warn("out of order tick dropped",
		zap.String("source", src.Name()),
		zap.String("symbol", t.Symbol),
		zap.Int("date", t.Date),
		zap.Int("time", t.Time),
	)
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Replaying ticks..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
