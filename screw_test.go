package nutrunner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"
)

// fakeWrist is a stateful wrist joint: Angle reports wherever the last
// MoveToAngle left it.
type fakeWrist struct {
	mu    sync.Mutex
	angle float64
	moves []float64
}

func (w *fakeWrist) Angle(ctx context.Context) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.angle, nil
}

func (w *fakeWrist) MoveToAngle(ctx context.Context, radians float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.angle = radians
	w.moves = append(w.moves, radians)
	return nil
}

type fakeGrip struct {
	mu     sync.Mutex
	opens  int
	closes int
}

func (g *fakeGrip) Open(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opens++
	return nil
}

func (g *fakeGrip) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closes++
	return nil
}

func (g *fakeGrip) openCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opens
}

// fakeHeights replays a scripted sequence of height samples. The last value
// repeats once the script runs out.
type fakeHeights struct {
	samples []float64
	next    int
	onCall  func(sample int)
}

func (h *fakeHeights) NextHeight(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if h.onCall != nil {
		h.onCall(h.next)
	}
	i := h.next
	if i >= len(h.samples) {
		i = len(h.samples) - 1
	}
	h.next++
	return h.samples[i], nil
}

func testTightenConfig() TightenConfig {
	cfg := DefaultTightenConfig()
	cfg.SettleDelay = 0
	return cfg
}

func TestScrewController_SeatsAtThreshold(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testTightenConfig()

	wrist := &fakeWrist{angle: cfg.RewindAngleRad}
	grip := &fakeGrip{}
	// Entry sample 0.100, then one sample per iteration. Cumulative descent
	// crosses the 0.006 threshold on the fourth sample (0.100 - 0.093).
	heights := &fakeHeights{samples: []float64{0.100, 0.100, 0.098, 0.096, 0.093}}

	// Keep the wrist below its forward limit so every iteration engages.
	c := NewScrewController(&noLimitWrist{wrist}, grip, heights, cfg, logger)
	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.Iterations)
	assert.Equal(t, 0, result.Resets)
	assert.Equal(t, PhaseDone, result.Phase)
	assert.InDelta(t, 0.007, result.ProgressM, 1e-9)
}

// noLimitWrist reports the rewind angle regardless of drive commands, so the
// controller never sees the forward limit.
type noLimitWrist struct {
	inner *fakeWrist
}

func (w *noLimitWrist) Angle(ctx context.Context) (float64, error) {
	return DefaultTightenConfig().RewindAngleRad, nil
}

func (w *noLimitWrist) MoveToAngle(ctx context.Context, radians float64) error {
	return w.inner.MoveToAngle(ctx, radians)
}

func TestScrewController_ResetDoesNotCreditProgress(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testTightenConfig()

	// Starting from the rewind angle, the first engage drives the wrist to
	// 7pi/8, past the pi/2 limit, so the second iteration must reset. The
	// height holds at 0.098 across the reset: a reset repositions the jaws
	// without advancing the screw.
	wrist := &fakeWrist{angle: cfg.RewindAngleRad}
	grip := &fakeGrip{}
	heights := &fakeHeights{samples: []float64{0.100, 0.098, 0.098, 0.094}}

	c := NewScrewController(wrist, grip, heights, cfg, logger)
	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 1, result.Resets)
	assert.Equal(t, PhaseDone, result.Phase)
	assert.InDelta(t, 0.006, result.ProgressM, 1e-9)

	// Reset sequence: engage drive, rewind, engage drive.
	require.Equal(t, []float64{cfg.DriveAngleRad, cfg.RewindAngleRad, cfg.DriveAngleRad}, wrist.moves)
	assert.Equal(t, 1, grip.openCount())
}

func TestScrewController_NoProgressExhaustsBudget(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testTightenConfig()
	cfg.MaxIterations = 5

	wrist := &fakeWrist{angle: cfg.RewindAngleRad}
	grip := &fakeGrip{}
	// Screw never descends: a cross-threaded or slipping fastener.
	heights := &fakeHeights{samples: []float64{0.100, 0.100}}

	c := NewScrewController(&noLimitWrist{wrist}, grip, heights, cfg, logger)
	result, err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProgress)
	assert.Equal(t, 5, result.Iterations)
	assert.NotEqual(t, PhaseDone, result.Phase)
	assert.InDelta(t, 0.0, result.ProgressM, 1e-9)
}

func TestScrewController_ReleasesGripperOnCancel(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testTightenConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrist := &fakeWrist{angle: cfg.RewindAngleRad}
	grip := &fakeGrip{}
	heights := &fakeHeights{
		samples: []float64{0.100, 0.100},
		// Cancel after the entry sample so the loop aborts on its first pass.
		onCall: func(sample int) {
			if sample == 1 {
				cancel()
			}
		},
	}

	c := NewScrewController(&noLimitWrist{wrist}, grip, heights, cfg, logger)
	_, err := c.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The abort path must leave the cell with open jaws.
	assert.GreaterOrEqual(t, grip.openCount(), 1)
}

func TestDefaultTightenConfig(t *testing.T) {
	cfg := DefaultTightenConfig()
	assert.Less(t, cfg.ForwardLimitRad, cfg.DriveAngleRad,
		"drive target must overshoot the limit so every engage ends in a rewind-eligible pose")
	assert.Less(t, cfg.RewindAngleRad, cfg.ForwardLimitRad)
	assert.Positive(t, cfg.ProgressThresholdM)
	assert.Positive(t, cfg.MaxIterations)
}
