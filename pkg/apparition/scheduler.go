package apparition

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("apparition scheduler already started")

// Scheduler emits apparition pulses on a fixed tick. Every state change is
// reported to the change callback from the scheduler's own goroutine.
//
// Each pulse schedules its own hide and pulses carry no identity, so an
// earlier pulse's hide can end a later pulse early. Nothing observes the
// apparition except the view, so that is left alone.
type Scheduler struct {
	interval time.Duration
	rng      Rand
	clock    Clock
	onChange func(Pulse)
	logger   *slog.Logger

	mu      sync.Mutex
	current Pulse
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides TickInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithRand sets the random source. The scheduler only calls it from its
// own goroutine.
func WithRand(r Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a stopped scheduler. onChange may be nil.
func New(onChange func(Pulse), opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: TickInterval,
		clock:    SystemClock{},
		onChange: onChange,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return s
}

// Start begins ticking. The scheduler runs until Stop is called or ctx is
// done, whichever comes first. Once it has stopped either way it can be
// started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.current = Pulse{}

	ticker := s.clock.NewTicker(s.interval)
	go s.run(ctx, ticker, s.done)

	s.logger.Debug("Apparition scheduler started", "interval", s.interval)
	return nil
}

// Stop cancels the ticker and every pending hide, then waits for the
// scheduler goroutine to exit. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Debug("Apparition scheduler stopped")
}

// Current returns the most recently displayed state.
func (s *Scheduler) Current() Pulse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Scheduler) run(ctx context.Context, ticker Ticker, done chan struct{}) {
	hides := make(map[uint64]Timer)
	hideCh := make(chan uint64)
	var next uint64

	defer func() {
		ticker.Stop()
		for _, t := range hides {
			t.Stop()
		}
		// A Stop and a new Start may already have replaced this run.
		s.mu.Lock()
		if s.done == done && s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C():
			p, ok := Roll(s.rng)
			if !ok {
				continue
			}
			next++
			id := next
			hides[id] = s.clock.AfterFunc(p.VisibleDuration, func() {
				select {
				case hideCh <- id:
				case <-ctx.Done():
				}
			})
			s.logger.Debug("Apparition appeared",
				"top_percent", p.TopPercent,
				"left_percent", p.LeftPercent,
				"mirrored", p.Mirrored,
				"visible_ms", p.VisibleDuration.Milliseconds())
			s.set(p)

		case id := <-hideCh:
			delete(hides, id)
			p := s.Current()
			p.Visible = false
			s.set(p)
		}
	}
}

func (s *Scheduler) set(p Pulse) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(p)
	}
}
