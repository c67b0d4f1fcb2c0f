// Package sim holds the simulation core: the grid of competitor
// identifiers, the lazily-advanced tick engine, and the controller
// mediating start/stop/reset. One mutex guards the combined state; all
// mutation happens synchronously inside the caller's request, never on
// a background timer.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridfeed/gridfeed/pkg/logging"
	"github.com/gridfeed/gridfeed/pkg/roster"
)

const (
	// MinGridSize is the floor the grid never drops below once loaded.
	MinGridSize = 8

	// TopSize is how many positions the public feed exposes.
	TopSize = 8

	// DefaultTickInterval is the minimum time between two ticks.
	DefaultTickInterval = 5 * time.Second

	// DefaultFetchTimeout bounds a roster reload.
	DefaultFetchTimeout = 10 * time.Second
)

// ErrInsufficientRoster indicates the provider returned fewer than
// MinGridSize identifiers. The existing grid, if any, is preserved.
var ErrInsufficientRoster = errors.New("insufficient roster size")

// Position pairs a 1-based rank with a driver identifier.
type Position struct {
	Rank   int
	Driver string
}

// Snapshot is the result of a public read. Live is false while the
// simulation is off; Order is empty in that case.
type Snapshot struct {
	Live   bool
	RaceID string
	Order  []Position
}

// Status describes the controller state for the admin API.
type Status struct {
	On        bool
	RaceID    string
	TickCount int
	GridSize  int
	LoadedAt  time.Time // zero if the grid was never loaded
}

// Controller owns the grid, the tick bookkeeping, and the on/off flag.
// All fields below mu form one shared unit; every read-modify step
// acquires mu. The roster fetch is the only operation running outside
// the lock.
type Controller struct {
	provider     roster.Provider
	interval     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *slog.Logger

	mu       sync.Mutex
	grid     []string
	loadedAt time.Time
	on       bool
	raceID   string
	tick     tickState
	rng      *rand.Rand
}

// Option configures a Controller.
type Option func(*Controller)

// WithTickInterval overrides the minimum time between ticks.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithFetchTimeout overrides the roster reload timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) { c.fetchTimeout = d }
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRandSource injects the randomness source so tests can seed the
// swap draws deterministically.
func WithRandSource(src rand.Source) Option {
	return func(c *Controller) { c.rng = rand.New(src) }
}

// WithClock injects the time source, for deterministic interval tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller over the given roster provider. The
// simulation starts off with an empty grid.
func New(provider roster.Provider, opts ...Option) *Controller {
	c := &Controller{
		provider:     provider,
		interval:     DefaultTickInterval,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          logging.Nop(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start forces a grid reload and turns the simulation on. If the reload
// fails the simulation stays off and the error is returned. Each
// successful start begins a new race with a fresh race ID.
func (c *Controller) Start(ctx context.Context) (string, error) {
	if err := c.ensureLoaded(ctx, true); err != nil {
		c.log.Warn("start refused, roster reload failed", "error", err)
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = true
	c.raceID = uuid.NewString()
	// Clear the baseline so the first read after turning on records a
	// timestamp instead of ticking instantly. The tick counter is only
	// zeroed by Reset.
	c.tick.lastTick = time.Time{}
	c.log.Info("simulation started", "race_id", c.raceID, "grid_size", len(c.grid))
	return c.raceID, nil
}

// Stop turns the simulation off. It never fails and leaves the grid and
// tick counters untouched.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = false
	c.log.Info("simulation stopped", "race_id", c.raceID, "ticks", c.tick.count)
}

// Reset forces a grid reload and, on success, zeroes the tick counter
// and clears the baseline so the next read behaves like a first tick.
// The on/off flag is unchanged either way.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.ensureLoaded(ctx, true); err != nil {
		c.log.Warn("reset refused, roster reload failed", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tickState{}
	c.log.Info("simulation reset", "race_id", c.raceID, "grid_size", len(c.grid))
	return nil
}

// Status returns the controller state. Pure read, no side effects.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		On:        c.on,
		RaceID:    c.raceID,
		TickCount: c.tick.count,
		GridSize:  len(c.grid),
		LoadedAt:  c.loadedAt,
	}
}

// Positions is the public read path. While the simulation is off it
// returns a non-live snapshot without touching the provider or the tick
// engine. While on, it lazily ensures the grid is loaded, gives the
// tick engine a chance to advance, and returns the top k positions.
func (c *Controller) Positions(ctx context.Context, k int) (Snapshot, error) {
	c.mu.Lock()
	on := c.on
	c.mu.Unlock()
	if !on {
		return Snapshot{}, nil
	}

	if err := c.ensureLoaded(ctx, false); err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.on {
		// Stopped while we were loading.
		return Snapshot{}, nil
	}

	st, ticked := advance(c.grid, c.tick, c.now(), c.interval, c.rng)
	c.tick = st
	if ticked {
		c.log.Debug("tick", "race_id", c.raceID, "count", c.tick.count)
	}

	return Snapshot{
		Live:   true,
		RaceID: c.raceID,
		Order:  c.topLocked(k),
	}, nil
}

// TopPositions returns the first k grid entries with 1-based ranks,
// without advancing the simulation.
func (c *Controller) TopPositions(k int) []Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topLocked(k)
}

func (c *Controller) topLocked(k int) []Position {
	if k > len(c.grid) {
		k = len(c.grid)
	}
	out := make([]Position, k)
	for i := 0; i < k; i++ {
		out[i] = Position{Rank: i + 1, Driver: c.grid[i]}
	}
	return out
}

// ensureLoaded reloads the grid from the provider when forced or when
// the grid is below MinGridSize. The fetch runs outside the lock;
// racing reloads are last-writer-wins, and a failed or undersized fetch
// leaves the existing grid untouched, so a loaded grid can never be
// observed below MinGridSize.
func (c *Controller) ensureLoaded(ctx context.Context, force bool) error {
	c.mu.Lock()
	if !force && len(c.grid) >= MinGridSize {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	ids, err := c.provider.Fetch(fctx)
	if err != nil {
		return err
	}
	if len(ids) < MinGridSize {
		return fmt.Errorf("%w: got %d drivers, need %d", ErrInsufficientRoster, len(ids), MinGridSize)
	}

	grid := make([]string, len(ids))
	copy(grid, ids)

	c.mu.Lock()
	c.grid = grid
	c.loadedAt = c.now()
	c.mu.Unlock()
	return nil
}
