package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SynthFeed/internal/domain/models"
	domrepo "SynthFeed/internal/domain/repository"
	"SynthFeed/pkg/logger"
)

// ErrBufferFull is returned by Process when the tick could not be queued.
var ErrBufferFull = errors.New("publish buffer full")

// PublishPipeline sits between the feed runner and the publishers.
// Ticks are queued and delivered by a background worker, so a slow or
// failing sink never blocks the runner.
type PublishPipeline struct {
	sinks      []domrepo.Publisher
	metrics    domrepo.Metrics
	l          *logger.Logger
	bufSize    int
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	bufCh   chan *models.Tick
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
}

type PipelineOption func(*PublishPipeline)

// WithBufferSize sets how many ticks may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *PublishPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTimeout bounds a single publish call.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *PublishPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetry sets the retry count and the backoff range between attempts.
func WithRetry(maxRetries int, backoff, maxBackoff time.Duration) PipelineOption {
	return func(p *PublishPipeline) {
		if maxRetries >= 0 {
			p.maxRetries = maxRetries
		}
		if backoff > 0 {
			p.backoff = backoff
		}
		if maxBackoff >= p.backoff {
			p.maxBackoff = maxBackoff
		}
	}
}

func WithLogger(l *logger.Logger) PipelineOption {
	return func(p *PublishPipeline) {
		if l != nil {
			p.l = l
		}
	}
}

// NewPublishPipeline creates a pipeline delivering to every sink in order.
func NewPublishPipeline(metrics domrepo.Metrics, sinks []domrepo.Publisher, opts ...PipelineOption) *PublishPipeline {
	p := &PublishPipeline{
		sinks:      sinks,
		metrics:    metrics,
		l:          logger.Nop(),
		bufSize:    1000,
		timeout:    5 * time.Second,
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Tick, p.bufSize)
	return p
}

// Sinks returns the names of the configured publishers.
func (p *PublishPipeline) Sinks() []string {
	out := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		out[i] = s.Name()
	}
	return out
}

// Start launches the delivery worker.
func (p *PublishPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-p.stopCh:
				p.drain(ctx)
				return
			case <-ctx.Done():
				p.drain(context.Background())
				return
			case t := <-p.bufCh:
				p.deliver(ctx, t, true)
			}
		}
	}()
}

// Stop flushes queued ticks once, without retries, and waits for the worker.
func (p *PublishPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Close stops the pipeline and closes every sink.
func (p *PublishPipeline) Close() error {
	p.Stop()
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Process validates t and queues it for delivery. It never blocks.
func (p *PublishPipeline) Process(ctx context.Context, t *models.Tick) error {
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	select {
	case p.bufCh <- t:
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return ErrBufferFull
	}
}

// Pending returns the number of queued ticks.
func (p *PublishPipeline) Pending() int { return len(p.bufCh) }

func (p *PublishPipeline) drain(ctx context.Context) {
	for {
		select {
		case t := <-p.bufCh:
			p.deliver(ctx, t, false)
		default:
			return
		}
	}
}

func (p *PublishPipeline) deliver(ctx context.Context, t *models.Tick, retry bool) {
	for _, s := range p.sinks {
		start := time.Now()
		if err := p.publish(ctx, s, t, retry); err != nil {
			p.metrics.RecordError("publish_" + s.Name())
			p.l.Warn("Dropping tick after publish failure",
				logger.String("sink", s.Name()),
				logger.String("feed", t.Feed),
				logger.Int64("step", t.Step),
				logger.Error(err),
			)
			continue
		}
		p.metrics.RecordPublished(s.Name())
		p.metrics.RecordLatency("publish_"+s.Name(), time.Since(start).Seconds())
	}
}

func (p *PublishPipeline) publish(ctx context.Context, s domrepo.Publisher, t *models.Tick, retry bool) error {
	backoff := p.backoff
	attempts := 1
	if retry {
		attempts += p.maxRetries
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-p.stopCh:
				return fmt.Errorf("pipeline stopped: %w", err)
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < p.maxBackoff {
				backoff = min(backoff*2, p.maxBackoff)
			}
		}
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		err = s.Publish(pctx, t)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Feed == "" {
		return fmt.Errorf("feed name empty")
	}
	if t.Step <= 0 {
		return fmt.Errorf("step invalid")
	}
	return nil
}
