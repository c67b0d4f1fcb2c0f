package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfeed/gridfeed/pkg/roster"
)

var testGrid = []string{"VER", "NOR", "LEC", "HAM", "SAI", "PIA", "RUS", "ALO", "STR", "GAS"}

// fakeProvider counts fetches and serves whatever fetch function is
// currently installed.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context) ([]string, error)
}

func newFakeProvider(drivers []string) *fakeProvider {
	p := &fakeProvider{}
	p.Serve(drivers)
	return p
}

func (p *fakeProvider) Fetch(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	p.calls++
	fetch := p.fetch
	p.mu.Unlock()
	return fetch(ctx)
}

func (p *fakeProvider) Serve(drivers []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetch = func(ctx context.Context) ([]string, error) {
		out := make([]string, len(drivers))
		copy(out, drivers)
		return out, nil
	}
}

func (p *fakeProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetch = func(ctx context.Context) ([]string, error) { return nil, err }
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestController(p roster.Provider, clk *fakeClock) *Controller {
	return New(p,
		WithClock(clk.Now),
		WithRandSource(rand.NewSource(7)),
	)
}

func TestIdleReadsSkipProvider(t *testing.T) {
	p := newFakeProvider(testGrid)
	ctrl := newTestController(p, newFakeClock())

	for i := 0; i < 10; i++ {
		snap, err := ctrl.Positions(context.Background(), TopSize)
		require.NoError(t, err)
		assert.False(t, snap.Live)
		assert.Empty(t, snap.Order)
	}
	assert.Zero(t, p.Calls(), "idle reads must never hit the provider")
}

func TestStartLoadsGridAndAssignsRaceID(t *testing.T) {
	p := newFakeProvider(testGrid)
	ctrl := newTestController(p, newFakeClock())

	raceID, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, raceID)

	st := ctrl.Status()
	assert.True(t, st.On)
	assert.Equal(t, raceID, st.RaceID)
	assert.Equal(t, len(testGrid), st.GridSize)
	assert.False(t, st.LoadedAt.IsZero())
	assert.Equal(t, 1, p.Calls())
}

func TestStartFailsWhenProviderUnavailable(t *testing.T) {
	p := newFakeProvider(testGrid)
	p.Fail(fmt.Errorf("%w: connection refused", roster.ErrUnavailable))
	ctrl := newTestController(p, newFakeClock())

	_, err := ctrl.Start(context.Background())
	assert.ErrorIs(t, err, roster.ErrUnavailable)

	st := ctrl.Status()
	assert.False(t, st.On, "a failed start must leave the simulation off")
	assert.Zero(t, st.GridSize)
}

func TestStartFailsOnShortRoster(t *testing.T) {
	p := newFakeProvider(testGrid[:5])
	ctrl := newTestController(p, newFakeClock())

	_, err := ctrl.Start(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientRoster)
	assert.False(t, ctrl.Status().On)
}

func TestFirstReadRecordsBaselineWithoutSwapping(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	snap, err := ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)
	assert.True(t, snap.Live)
	require.Len(t, snap.Order, TopSize)
	for i, pos := range snap.Order {
		assert.Equal(t, i+1, pos.Rank)
		assert.Equal(t, testGrid[i], pos.Driver, "baseline read must return the freshly loaded order")
	}
	assert.Equal(t, 0, ctrl.Status().TickCount)
}

func TestLazyIntervalGate(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	// Baseline.
	_, err = ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)

	// Under the interval: no tick, any number of times.
	clk.Advance(2 * time.Second)
	for i := 0; i < 5; i++ {
		_, err = ctrl.Positions(context.Background(), TopSize)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, ctrl.Status().TickCount)

	// Past the interval: exactly one tick, then gated again.
	clk.Advance(4 * time.Second)
	for i := 0; i < 5; i++ {
		_, err = ctrl.Positions(context.Background(), TopSize)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, ctrl.Status().TickCount)

	clk.Advance(5 * time.Second)
	_, err = ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)
	assert.Equal(t, 2, ctrl.Status().TickCount)
}

func TestGridFloorInvariant(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(testGrid), ctrl.Status().GridSize)

	// Provider degrades below the floor: every reload attempt must fail
	// and the existing grid must survive untouched.
	p.Serve(testGrid[:5])
	for i := 0; i < 3; i++ {
		err = ctrl.Reset(context.Background())
		assert.ErrorIs(t, err, ErrInsufficientRoster)
		assert.Equal(t, len(testGrid), ctrl.Status().GridSize)
	}

	snap, err := ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)
	assert.True(t, snap.Live)
	assert.Len(t, snap.Order, TopSize)
}

func TestResetZeroesTicksAndRestoresBaseline(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	// Accumulate a few ticks.
	_, err = ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		clk.Advance(5 * time.Second)
		_, err = ctrl.Positions(context.Background(), TopSize)
		require.NoError(t, err)
	}
	require.Equal(t, 3, ctrl.Status().TickCount)

	require.NoError(t, ctrl.Reset(context.Background()))

	st := ctrl.Status()
	assert.True(t, st.On, "reset must not flip the on flag")
	assert.Equal(t, 0, st.TickCount)

	// Next read is a baseline again: no tick even far past the interval.
	clk.Advance(time.Hour)
	snap, err := ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)
	assert.True(t, snap.Live)
	assert.Equal(t, 0, ctrl.Status().TickCount)
}

func TestStopLeavesStateButGoesQuiet(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	callsAfterStart := p.Calls()

	ctrl.Stop()

	st := ctrl.Status()
	assert.False(t, st.On)
	assert.Equal(t, len(testGrid), st.GridSize, "stop must not drop the grid")

	snap, err := ctrl.Positions(context.Background(), TopSize)
	require.NoError(t, err)
	assert.False(t, snap.Live)
	assert.Equal(t, callsAfterStart, p.Calls())
}

func TestRacingReadsProduceOneTick(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	_, err = ctrl.Positions(context.Background(), TopSize) // baseline
	require.NoError(t, err)

	clk.Advance(10 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ctrl.Positions(context.Background(), TopSize)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ctrl.Status().TickCount,
		"racing tick-eligible reads must elect exactly one winner")
}

func TestConcurrentReadsSeeConsistentGrid(t *testing.T) {
	p := newFakeProvider(testGrid)
	clk := newFakeClock()
	ctrl := newTestController(p, clk)

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	want := append([]string(nil), testGrid...)
	sort.Strings(want)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap, err := ctrl.Positions(context.Background(), len(testGrid))
				if !assert.NoError(t, err) {
					return
				}
				got := make([]string, len(snap.Order))
				for k, pos := range snap.Order {
					got[k] = pos.Driver
				}
				sort.Strings(got)
				if !assert.Equal(t, want, got, "torn read observed") {
					return
				}
			}
		}()
	}
	// Keep the clock moving so ticks actually interleave with readers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	for {
		select {
		case <-done:
			return
		default:
			clk.Advance(5 * time.Second)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestConcurrentReloadLastWriterWins(t *testing.T) {
	gridA := testGrid
	gridB := []string{"P01", "P02", "P03", "P04", "P05", "P06", "P07", "P08"}

	gate := make(chan []string, 2)
	p := &fakeProvider{}
	p.mu.Lock()
	p.fetch = func(ctx context.Context) ([]string, error) {
		return <-gate, nil
	}
	p.mu.Unlock()

	ctrl := newTestController(p, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ctrl.Reset(context.Background()))
		}()
	}
	gate <- gridA
	gate <- gridB
	wg.Wait()

	// Whichever apply ran last won; either way the grid holds one full
	// roster and never dips below the floor.
	st := ctrl.Status()
	assert.GreaterOrEqual(t, st.GridSize, MinGridSize)
	top := ctrl.TopPositions(1)
	require.Len(t, top, 1)
	assert.Contains(t, []string{gridA[0], gridB[0]}, top[0].Driver)
}

func TestTopPositionsClampsToGridSize(t *testing.T) {
	p := newFakeProvider(testGrid[:8])
	ctrl := newTestController(p, newFakeClock())

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	top := ctrl.TopPositions(50)
	assert.Len(t, top, 8)
}

func TestSnapshotTopRanksAfterMidfieldSwap(t *testing.T) {
	// Grid [A..J] after one adjacent swap at index 3.
	swapped := []string{"A", "B", "C", "E", "D", "F", "G", "H", "I", "J"}
	p := newFakeProvider(swapped)
	ctrl := newTestController(p, newFakeClock())

	_, err := ctrl.Start(context.Background())
	require.NoError(t, err)

	want := []Position{
		{1, "A"}, {2, "B"}, {3, "C"}, {4, "E"},
		{5, "D"}, {6, "F"}, {7, "G"}, {8, "H"},
	}
	assert.Equal(t, want, ctrl.TopPositions(8))
}
