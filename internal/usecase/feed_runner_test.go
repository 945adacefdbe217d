package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SynthFeed/internal/datasource"
	"SynthFeed/internal/domain/models"
	drepo "SynthFeed/internal/domain/repository"
	"SynthFeed/internal/generator"
	"SynthFeed/internal/reader"
	internalrepo "SynthFeed/internal/repository"
)

type runnerMetrics struct {
	mu     sync.Mutex
	ticks  int
	errors map[string]int
	last   map[string]float64
}

func newRunnerMetrics() *runnerMetrics {
	return &runnerMetrics{errors: map[string]int{}, last: map[string]float64{}}
}

func (m *runnerMetrics) RecordTick(string)              { m.mu.Lock(); m.ticks++; m.mu.Unlock() }
func (m *runnerMetrics) RecordWindowRefill(string, int) {}
func (m *runnerMetrics) RecordPublished(string)         {}
func (m *runnerMetrics) RecordError(kind string)        { m.mu.Lock(); m.errors[kind]++; m.mu.Unlock() }
func (m *runnerMetrics) RecordLatency(string, float64)  {}
func (m *runnerMetrics) RecordLastPrice(asset string, p float64) {
	m.mu.Lock()
	m.last[asset] = p
	m.mu.Unlock()
}

type recordingSink struct {
	mu    sync.Mutex
	ticks []*models.Tick
	err   error
}

func (s *recordingSink) Process(_ context.Context, t *models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, t)
	return s.err
}

func synthFeed(t *testing.T, seed uint64) drepo.Feed {
	t.Helper()
	p := generator.DefaultPeriodicParams()
	p.Noise = 0.2
	p.Seed = seed
	g, err := generator.NewSynth(p)
	require.NoError(t, err)
	return datasource.NewTickFeed("synth", g)
}

func finiteFeed(t *testing.T, n int) drepo.Feed {
	t.Helper()
	ts := make([]int64, n)
	prices := make([][]float64, n)
	for i := range ts {
		ts[i] = int64(1000 + i)
		prices[i] = []float64{float64(i)}
	}
	store, err := internalrepo.NewMemoryStore(ts, prices, nil)
	require.NoError(t, err)
	s, err := reader.NewSingle(store, reader.WithName("file"), reader.WithCacheSize(2))
	require.NoError(t, err)
	return datasource.NewTickFeed("", s)
}

func TestRunnerStopsAtMaxSteps(t *testing.T) {
	m := newRunnerMetrics()
	sink := &recordingSink{}
	r := NewFeedRunner(synthFeed(t, 9), m, WithMaxSteps(25), WithSink(sink), WithHistory(10))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, int64(25), r.Steps())
	assert.Equal(t, 25, m.ticks)
	require.Len(t, sink.ticks, 25)

	// ticks own their data: later steps do not rewrite earlier ticks
	ref := synthFeed(t, 9)
	for i, tk := range sink.ticks {
		v, err := ref.Step()
		require.NoError(t, err)
		assert.Equal(t, v, tk.Data, "tick %d", i)
		assert.Equal(t, int64(i+1), tk.Step)
		assert.Equal(t, "synth", tk.Feed)
	}

	hist := r.History(100)
	require.Len(t, hist, 10)
	assert.Equal(t, int64(16), hist[0].Step)
	assert.Equal(t, int64(25), hist[9].Step)
	assert.Len(t, r.History(3), 3)

	snap := r.Snapshot()
	assert.Equal(t, int64(25), snap.Steps)
	assert.False(t, snap.Running)
	assert.Equal(t, sink.ticks[24].Data, snap.Data)
	assert.Equal(t, sink.ticks[24].Prices[0], m.last[snap.Assets[0].Name])
}

func TestRunnerEndsWithFiniteFeed(t *testing.T) {
	r := NewFeedRunner(finiteFeed(t, 5), newRunnerMetrics())
	require.NoError(t, r.Run(context.Background()))

	snap := r.Snapshot()
	assert.Equal(t, "file", snap.Feed)
	assert.Equal(t, int64(5), snap.Steps)
	assert.True(t, snap.DataEnd)
	assert.True(t, snap.IsDateTime)
	assert.Equal(t, int64(1004), snap.Time)
	assert.Equal(t, []float64{4}, snap.Prices)
}

func TestRunnerLoopsFiniteFeed(t *testing.T) {
	sink := &recordingSink{}
	r := NewFeedRunner(finiteFeed(t, 3), newRunnerMetrics(), WithLoop(true), WithMaxSteps(7), WithSink(sink))
	require.NoError(t, r.Run(context.Background()))

	var got []float64
	for _, tk := range sink.ticks {
		got = append(got, tk.Prices[0])
	}
	assert.Equal(t, []float64{0, 1, 2, 0, 1, 2, 0}, got)
}

func TestRunnerResetWhileIdle(t *testing.T) {
	r := NewFeedRunner(finiteFeed(t, 4), newRunnerMetrics(), WithMaxSteps(3))
	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, int64(3), r.Steps())

	require.NoError(t, r.RequestReset("test"))
	assert.Zero(t, r.Steps())
	assert.Empty(t, r.History(10))
	assert.Nil(t, r.Snapshot().Data)

	require.NoError(t, r.Run(context.Background()))
	first := r.History(3)[0]
	assert.Equal(t, int64(1), first.Step)
	assert.Equal(t, []float64{0}, first.Prices)
}

func TestRunnerResetWhileRunning(t *testing.T) {
	sink := &recordingSink{}
	r := NewFeedRunner(synthFeed(t, 5), newRunnerMetrics(), WithRate(100, 1), WithSink(sink))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.Steps() >= 5 }, 2*time.Second, time.Millisecond)
	assert.True(t, r.Running())
	assert.ErrorIs(t, r.Run(ctx), ErrRunnerBusy)
	require.NoError(t, r.RequestReset(""))
	require.Eventually(t, func() bool {
		h := r.History(1000)
		return len(h) > 0 && h[0].Step == 1 && r.Steps() < 5
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, r.Running())
}

// gatedFeed holds its first Reset until release is closed and records any
// overlap between Reset and Step.
type gatedFeed struct {
	drepo.Feed
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	active  atomic.Int32
	overlap atomic.Bool
	steps   atomic.Int32
}

func (f *gatedFeed) enter() {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
}

func (f *gatedFeed) Reset() error {
	f.enter()
	defer f.active.Add(-1)
	f.once.Do(func() {
		close(f.entered)
		<-f.release
	})
	return f.Feed.Reset()
}

func (f *gatedFeed) Step() ([]float64, error) {
	f.enter()
	defer f.active.Add(-1)
	f.steps.Add(1)
	return f.Feed.Step()
}

func TestRunnerStartWaitsForIdleReset(t *testing.T) {
	feed := &gatedFeed{Feed: synthFeed(t, 3), entered: make(chan struct{}), release: make(chan struct{})}
	r := NewFeedRunner(feed, newRunnerMetrics(), WithMaxSteps(3))

	resetDone := make(chan error, 1)
	go func() { resetDone <- r.RequestReset("idle") }()
	<-feed.entered

	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, feed.steps.Load())
	assert.False(t, r.Running())

	close(feed.release)
	require.NoError(t, <-resetDone)
	require.NoError(t, <-runDone)
	assert.False(t, feed.overlap.Load())
	assert.EqualValues(t, 3, feed.steps.Load())
	assert.Equal(t, int64(3), r.Steps())
}

func TestRunnerSinkErrorsDoNotStop(t *testing.T) {
	m := newRunnerMetrics()
	sink := &recordingSink{err: errors.New("queue full")}
	r := NewFeedRunner(synthFeed(t, 1), m, WithMaxSteps(4), WithSink(sink))
	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, sink.ticks, 4)
	assert.Equal(t, 4, m.errors["publish"])
}

type brokenFeed struct{ drepo.Feed }

func (brokenFeed) Step() ([]float64, error) { return nil, errors.New("disk gone") }

func TestRunnerReturnsStepErrors(t *testing.T) {
	m := newRunnerMetrics()
	r := NewFeedRunner(brokenFeed{synthFeed(t, 1)}, m)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, 1, m.errors["step"])
}

func TestTickRing(t *testing.T) {
	r := newTickRing(3)
	assert.Empty(t, r.last(5))
	for i := int64(1); i <= 5; i++ {
		r.push(&models.Tick{Step: i})
	}
	steps := func(ts []*models.Tick) []int64 {
		var out []int64
		for _, tk := range ts {
			out = append(out, tk.Step)
		}
		return out
	}
	assert.Equal(t, []int64{3, 4, 5}, steps(r.last(10)))
	assert.Equal(t, []int64{4, 5}, steps(r.last(2)))
	r.clear()
	assert.Empty(t, r.last(1))
}
