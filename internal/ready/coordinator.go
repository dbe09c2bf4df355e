// Package ready runs the all-ready check and the countdown sequence that
// transitions a race to started.
package ready

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/clock"
	"github.com/racebothq/racebot/internal/race"
)

// ErrCountdownInFlight is returned when a countdown for the race is
// already running. A second trigger must never launch a second countdown.
var ErrCountdownInFlight = errors.New("countdown already in flight")

// Announcer delivers countdown ticks to the race's room. The coordinator
// never talks to the chat platform directly.
type Announcer interface {
	Announce(ctx context.Context, roomID, text string)
}

// AnnouncerFunc adapts a function to the Announcer interface.
type AnnouncerFunc func(ctx context.Context, roomID, text string)

func (f AnnouncerFunc) Announce(ctx context.Context, roomID, text string) {
	f(ctx, roomID, text)
}

// Coordinator owns the per-race countdown-in-flight guard and the tick
// sequence. One coordinator serves all races in the process.
type Coordinator struct {
	clk       clock.Clock
	announcer Announcer
	from      int
	interval  time.Duration

	mu        sync.Mutex
	inFlight  map[string]bool
	onStarted func(r *race.Race)
}

// New creates a coordinator counting down from 10 with one-second ticks.
func New(clk clock.Clock, announcer Announcer) *Coordinator {
	return &Coordinator{
		clk:       clk,
		announcer: announcer,
		from:      10,
		interval:  time.Second,
		inFlight:  make(map[string]bool),
	}
}

// OnStarted registers a hook invoked after a countdown successfully
// starts its race. Set during wiring, before any command is served.
func (c *Coordinator) OnStarted(fn func(r *race.Race)) {
	c.onStarted = fn
}

// Evaluate runs the debounced all-ready check for r after any ready,
// unready, or removal event. When the roster is non-empty and fully ready
// it launches the countdown exactly once and reports true; a roster that
// is not all ready is a no-op. While a countdown is running, further
// triggers return ErrCountdownInFlight.
//
// The guard is set under the coordinator lock, atomically with the
// readiness observation, so two triggers racing each other cannot both
// launch. The countdown itself runs until completion or until ctx is
// cancelled at process shutdown; no user action cancels it.
func (c *Coordinator) Evaluate(ctx context.Context, r *race.Race) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !r.AllReady() || r.Started() {
		return false, nil
	}
	if c.inFlight[r.ID()] {
		return false, ErrCountdownInFlight
	}
	c.inFlight[r.ID()] = true
	go c.run(ctx, r)
	return true, nil
}

// InFlight reports whether a countdown is currently running for roomID.
func (c *Coordinator) InFlight(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[roomID]
}

func (c *Coordinator) run(ctx context.Context, r *race.Race) {
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, r.ID())
		c.mu.Unlock()
	}()

	log.Info().Str("room_id", r.ID()).Str("race", r.Name()).Msg("countdown started")

	timer := c.clk.NewTimer(c.interval)
	defer timer.Stop()
	for i := c.from; i >= 1; i-- {
		c.announcer.Announce(ctx, r.ID(), strconv.Itoa(i))
		select {
		case <-timer.Chan():
			timer.Reset(c.interval)
		case <-ctx.Done():
			log.Info().Str("room_id", r.ID()).Msg("countdown cancelled by shutdown")
			return
		}
	}
	c.announcer.Announce(ctx, r.ID(), "go!")

	if err := r.Start(); err != nil {
		log.Error().Err(err).Str("room_id", r.ID()).Msg("countdown finished but race failed to start")
		return
	}
	log.Info().Str("room_id", r.ID()).Int("runners", r.NumRunners()).Msg("race started")
	if c.onStarted != nil {
		c.onStarted(r)
	}
}
