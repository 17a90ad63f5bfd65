package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/p2"
	"github.com/failsafe-go/p2/internal/util"
)

// ErrInvalidWindow is returned when a Tracker is built with an empty exceedance window.
var ErrInvalidWindow = errors.New("window size must be > 0")

const defaultWindowSize = 100

// Tracker estimates a latency quantile, such as the p90 of request durations, using a P² estimator. Along with the
// estimate, a Tracker reports how often recent samples exceeded the estimate that was current when they were recorded,
// which for a well calibrated estimate should approach 1 - Quantile().
//
// This type is concurrency safe.
type Tracker interface {
	// Record records a latency sample.
	Record(latency time.Duration)

	// Quantile returns the quantile being tracked.
	Quantile() float64

	// Estimate returns the current quantile estimate, or 0 if no samples were recorded.
	Estimate() time.Duration

	// Count returns the number of samples recorded.
	Count() uint64

	// ExceedanceRate returns the ratio of recent samples that exceeded the estimate at the time they were recorded. Samples
	// recorded before the estimator is filled are not counted.
	ExceedanceRate() float64

	// State returns a snapshot of the underlying estimator.
	State() p2.State

	// Reset discards all samples.
	Reset()
}

// ExceededEvent indicates a sample exceeded the quantile estimate.
type ExceededEvent struct {
	// The recorded sample.
	Sample time.Duration
	// The estimate before the sample was recorded.
	Estimate time.Duration
}

/*
Builder builds Tracker instances.

This type is not concurrency safe.
*/
type Builder interface {
	// WithWindow configures the number of recent samples to compute the ExceedanceRate over.
	// The default value is 100.
	WithWindow(size uint) Builder

	// WithLogger configures a logger which provides debug logging of estimator fills and exceedances.
	WithLogger(logger *slog.Logger) Builder

	// OnExceeded registers the listener to be called when a sample exceeds the quantile estimate. The listener is called
	// after the sample is recorded, outside of the Tracker's lock.
	OnExceeded(listener func(ExceededEvent)) Builder

	// Build returns a new Tracker using the builder's configuration. Returns p2.ErrInvalidQuantile if the quantile is not
	// within [0, 1], or ErrInvalidWindow if the window size is 0.
	Build() (Tracker, error)
}

type config struct {
	quantile   float64
	windowSize uint
	logger     *slog.Logger
	onExceeded func(ExceededEvent)
}

var _ Builder = &config{}

// New returns a new Tracker for the quantile with the default configuration.
func New(quantile float64) (Tracker, error) {
	return NewBuilder(quantile).Build()
}

// NewBuilder returns a Builder for Trackers that estimate the quantile, which must be within [0, 1].
func NewBuilder(quantile float64) Builder {
	return &config{
		quantile:   quantile,
		windowSize: defaultWindowSize,
	}
}

func (c *config) WithWindow(size uint) Builder {
	c.windowSize = size
	return c
}

func (c *config) WithLogger(logger *slog.Logger) Builder {
	c.logger = logger
	return c
}

func (c *config) OnExceeded(listener func(ExceededEvent)) Builder {
	c.onExceeded = listener
	return c
}

func (c *config) Build() (Tracker, error) {
	estimator, err := p2.New(c.quantile)
	if err != nil {
		return nil, err
	}
	if c.windowSize == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, c.windowSize)
	}
	cCopy := *c
	return &tracker{
		config:    &cCopy,
		estimator: estimator,
		window:    util.NewCountingWindow(c.windowSize),
	}, nil
}

type tracker struct {
	*config

	mu        sync.Mutex
	estimator *p2.Estimator        // Guarded by mu
	window    *util.CountingWindow // Guarded by mu
}

func (t *tracker) Record(latency time.Duration) {
	if event, exceeded := t.record(latency); exceeded && t.onExceeded != nil {
		t.onExceeded(event)
	}
}

func (t *tracker) record(latency time.Duration) (ExceededEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasFilled := t.estimator.Filled()
	estimate := t.estimator.Value()
	t.estimator.Add(float64(latency))
	if !wasFilled {
		if t.estimator.Filled() && t.debugEnabled() {
			t.logger.Debug("estimator filled",
				"quantile", t.quantile,
				"estimate", time.Duration(t.estimator.Value()))
		}
		return ExceededEvent{}, false
	}

	exceeded := float64(latency) > estimate
	t.window.Record(exceeded)
	if !exceeded {
		return ExceededEvent{}, false
	}
	if t.debugEnabled() {
		t.logger.Debug("quantile exceeded",
			"quantile", t.quantile,
			"sample", latency,
			"estimate", time.Duration(estimate),
			"exceedanceRate", t.window.Rate())
	}
	return ExceededEvent{
		Sample:   latency,
		Estimate: time.Duration(estimate),
	}, true
}

func (t *tracker) debugEnabled() bool {
	return t.logger != nil && t.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (t *tracker) Quantile() float64 {
	return t.quantile
}

func (t *tracker) Estimate() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.estimator.Value())
}

func (t *tracker) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimator.Count()
}

func (t *tracker) ExceedanceRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.window.Rate()
}

func (t *tracker) State() p2.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimator.State()
}

func (t *tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.estimator.Reset()
	t.window.Reset()
}
