package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"SynthFeed/internal/domain/models"
	drepo "SynthFeed/internal/domain/repository"
	"SynthFeed/pkg/logger"
)

// ErrRunnerBusy is returned by Run when the runner is already running.
var ErrRunnerBusy = errors.New("feed runner already running")

// TickSink receives every tick the runner produces. Process must not block
// for long; the publish pipeline queues and returns.
type TickSink interface {
	Process(ctx context.Context, t *models.Tick) error
}

// FeedRunner steps a feed at a fixed rate and hands each tick to a sink.
//
// The feed is only touched while holding feedMu, by the goroutine inside Run
// or by RequestReset while Run is not active. Snapshot and History are safe to
// call concurrently.
type FeedRunner struct {
	feed       drepo.Feed
	sink       TickSink
	metrics    drepo.Metrics
	l          *logger.Logger
	limiter    *rate.Limiter
	maxSteps   int64
	loop       bool
	sourceType string
	assets     []string

	// feedMu serializes feed access. RequestReset holds it across its running
	// check and the reset, and Run holds it while claiming the runner.
	feedMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	resetReq string
	steps    int64
	last     *models.Tick
	dataEnd  bool
	history  *tickRing
}

type RunnerOption func(*FeedRunner)

// WithRate paces the runner at perSecond ticks; 0 runs unpaced.
func WithRate(perSecond float64, burst int) RunnerOption {
	return func(r *FeedRunner) {
		if perSecond <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxSteps stops the runner after n ticks; 0 means unbounded.
func WithMaxSteps(n int64) RunnerOption {
	return func(r *FeedRunner) { r.maxSteps = n }
}

// WithLoop rewinds a finite feed when it ends instead of stopping.
func WithLoop(loop bool) RunnerOption {
	return func(r *FeedRunner) { r.loop = loop }
}

// WithHistory sets how many recent ticks are retained.
func WithHistory(n int) RunnerOption {
	return func(r *FeedRunner) {
		if n > 0 {
			r.history = newTickRing(n)
		}
	}
}

func WithSink(s TickSink) RunnerOption {
	return func(r *FeedRunner) { r.sink = s }
}

func WithSourceType(t string) RunnerOption {
	return func(r *FeedRunner) { r.sourceType = t }
}

func WithRunnerLogger(l *logger.Logger) RunnerOption {
	return func(r *FeedRunner) {
		if l != nil {
			r.l = l
		}
	}
}

// NewFeedRunner creates a runner for feed. Without options it runs unpaced
// and unbounded with no sink.
func NewFeedRunner(feed drepo.Feed, metrics drepo.Metrics, opts ...RunnerOption) *FeedRunner {
	r := &FeedRunner{
		feed:    feed,
		metrics: metrics,
		l:       logger.Nop(),
		history: newTickRing(1000),
		assets:  feed.Assets().Names(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.dataEnd = feed.DataEnd()
	return r
}

// Name returns the feed name.
func (r *FeedRunner) Name() string { return r.feed.Name() }

// Assets returns the feed's asset list.
func (r *FeedRunner) Assets() models.Assets { return r.feed.Assets() }

// Run steps the feed until ctx is done, the step limit is reached, or a
// non-looping feed ends. It returns nil on those exits and the step error
// otherwise.
func (r *FeedRunner) Run(ctx context.Context) error {
	r.feedMu.Lock()
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.feedMu.Unlock()
		return ErrRunnerBusy
	}
	r.running = true
	r.mu.Unlock()
	r.feedMu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.l.Info("Feed runner started",
		logger.String("feed", r.feed.Name()),
		logger.Int("assets", r.feed.NAssets()),
		logger.Int("feats", r.feed.NFeats()),
		logger.Int64("max_steps", r.maxSteps),
		logger.Bool("loop", r.loop),
	)

	for {
		if ctx.Err() != nil {
			r.l.Info("Feed runner stopped", logger.String("feed", r.feed.Name()), logger.Int64("steps", r.Steps()))
			return nil
		}
		if reason, ok := r.takeReset(); ok {
			r.feedMu.Lock()
			err := r.reset(reason)
			r.feedMu.Unlock()
			if err != nil {
				return err
			}
		}
		if r.maxSteps > 0 && r.Steps() >= r.maxSteps {
			r.l.Info("Feed runner reached step limit", logger.String("feed", r.feed.Name()), logger.Int64("steps", r.maxSteps))
			return nil
		}
		if r.ended() {
			if !r.loop {
				snap := r.Snapshot()
				r.l.Info("Feed ended",
					logger.String("feed", snap.Feed),
					logger.Int64("steps", snap.Steps),
					logger.Floats64("last_prices", snap.Prices),
				)
				return nil
			}
			if err := r.rewind(); err != nil {
				return err
			}
			continue
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				continue
			}
		}
		if err := r.step(ctx); err != nil {
			return err
		}
	}
}

func (r *FeedRunner) ended() bool {
	r.feedMu.Lock()
	defer r.feedMu.Unlock()
	return r.feed.DataEnd()
}

func (r *FeedRunner) step(ctx context.Context) error {
	start := time.Now()
	t, err := r.advance()
	if err != nil || t == nil {
		return err
	}

	r.metrics.RecordTick(t.Feed)
	for i, p := range t.Prices {
		if i < len(r.assets) {
			r.metrics.RecordLastPrice(r.assets[i], p)
		}
	}
	r.metrics.RecordLatency("step", time.Since(start).Seconds())

	if r.sink != nil {
		if err := r.sink.Process(ctx, t); err != nil {
			r.metrics.RecordError("publish")
			r.l.Debug("Tick not queued for publishing", logger.Int64("step", t.Step), logger.Error(err))
		}
	}
	return nil
}

// advance steps the feed and records the tick. It returns a nil tick when the
// feed has already ended.
func (r *FeedRunner) advance() (*models.Tick, error) {
	r.feedMu.Lock()
	defer r.feedMu.Unlock()

	data, err := r.feed.Step()
	if errors.Is(err, models.ErrDataEnd) {
		return nil, nil
	}
	if err != nil {
		r.metrics.RecordError("step")
		r.l.Error("Feed step failed", logger.String("feed", r.feed.Name()), logger.Error(err))
		return nil, fmt.Errorf("step %s: %w", r.feed.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps++
	t := &models.Tick{
		Feed:       r.feed.Name(),
		Step:       r.steps,
		Time:       r.feed.CurrentTime(),
		IsDateTime: r.feed.IsDateTime(),
		Assets:     r.assets,
		Prices:     r.feed.CurrentPrices().Clone(),
		Data:       append([]float64(nil), data...),
	}
	r.last = t
	r.dataEnd = r.feed.DataEnd()
	r.history.push(t)
	return t, nil
}

func (r *FeedRunner) rewind() error {
	r.feedMu.Lock()
	defer r.feedMu.Unlock()
	if err := r.feed.Reset(); err != nil {
		r.metrics.RecordError("reset")
		return fmt.Errorf("rewind %s: %w", r.feed.Name(), err)
	}
	if r.feed.DataEnd() {
		return fmt.Errorf("rewind %s: feed has no data", r.feed.Name())
	}
	r.mu.Lock()
	r.dataEnd = false
	r.mu.Unlock()
	r.l.Debug("Feed rewound", logger.String("feed", r.feed.Name()), logger.Int64("steps", r.Steps()))
	return nil
}

// RequestReset rewinds the feed to its initial state and clears the step
// count and history. A running runner applies it before its next step.
func (r *FeedRunner) RequestReset(reason string) error {
	r.feedMu.Lock()
	defer r.feedMu.Unlock()
	r.mu.Lock()
	if r.running {
		r.resetReq = reason
		if r.resetReq == "" {
			r.resetReq = "manual"
		}
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	return r.reset(reason)
}

func (r *FeedRunner) takeReset() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reason := r.resetReq
	r.resetReq = ""
	return reason, reason != ""
}

// reset requires feedMu.
func (r *FeedRunner) reset(reason string) error {
	if err := r.feed.Reset(); err != nil {
		r.metrics.RecordError("reset")
		return fmt.Errorf("reset %s: %w", r.feed.Name(), err)
	}
	r.mu.Lock()
	r.steps = 0
	r.last = nil
	r.dataEnd = r.feed.DataEnd()
	r.history.clear()
	r.mu.Unlock()
	r.l.Info("Feed reset", logger.String("feed", r.feed.Name()), logger.String("reason", reason))
	return nil
}

// Steps returns the number of ticks produced since the last reset.
func (r *FeedRunner) Steps() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.steps
}

// Running reports whether Run is active.
func (r *FeedRunner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Snapshot returns the state after the latest tick.
func (r *FeedRunner) Snapshot() models.FeedSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := models.FeedSnapshot{
		Feed:    r.feed.Name(),
		Source:  r.sourceType,
		Steps:   r.steps,
		DataEnd: r.dataEnd,
		Running: r.running,
		NAssets: r.feed.NAssets(),
		NFeats:  r.feed.NFeats(),
		Assets:  r.feed.Assets(),
	}
	if r.last != nil {
		s.Time = r.last.Time
		s.IsDateTime = r.last.IsDateTime
		s.Prices = r.last.Prices
		s.Data = r.last.Data
	}
	return s
}

// History returns up to n of the most recent ticks, oldest first.
func (r *FeedRunner) History(n int) []*models.Tick {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.last(n)
}

type tickRing struct {
	buf  []*models.Tick
	next int
	size int
}

func newTickRing(n int) *tickRing {
	return &tickRing{buf: make([]*models.Tick, n)}
}

func (r *tickRing) push(t *models.Tick) {
	r.buf[r.next] = t
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

func (r *tickRing) last(n int) []*models.Tick {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return []*models.Tick{}
	}
	out := make([]*models.Tick, n)
	start := r.next - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func (r *tickRing) clear() {
	clear(r.buf)
	r.next, r.size = 0, 0
}
