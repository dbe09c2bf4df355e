// Package race implements the state machine for one timed competition:
// roster and readiness bookkeeping, monotonic timing, forfeiture, and the
// ranked result. Side effects that touch the chat platform are never
// performed here; methods return rendered text for the caller to deliver.
package race

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/racebothq/racebot/internal/clock"
)

// Outcome tags how a runner's race ended. The zero value means the runner
// is still going (or the race has not started).
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeFinished
	OutcomeForfeited
)

// Runner is one roster slot: a solo entrant or a team sharing a clock slot.
type Runner struct {
	DisplayName string
	Ready       bool
	Outcome     Outcome
	Elapsed     time.Duration // valid only when Outcome is OutcomeFinished
}

// Entry is an insertion-ordered snapshot of a roster slot.
type Entry struct {
	ID          string
	DisplayName string
	Ready       bool
	Outcome     Outcome
	Elapsed     time.Duration
}

// Race models one room's competition from formation through ranked result.
// All methods are safe for concurrent use; each call is one atomic state
// transition.
type Race struct {
	mu sync.Mutex

	id       string
	name     string
	lockable bool
	locked   bool

	started   bool
	startedAt time.Time

	owner    string
	restream string

	runners    map[string]*Runner
	order      []string
	readyCount int

	clk clock.Clock
}

// New creates a race in its forming state with an empty roster.
func New(id, name string, lockable bool, clk clock.Clock) *Race {
	return &Race{
		id:       id,
		name:     name,
		lockable: lockable,
		runners:  make(map[string]*Runner),
		clk:      clk,
	}
}

func (r *Race) ID() string   { return r.id }
func (r *Race) Name() string { return r.name }

func (r *Race) SetOwner(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = id
}

func (r *Race) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

func (r *Race) SetRestream(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restream = url
}

func (r *Race) Restream() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restream
}

// AddRunner inserts a fresh roster entry for id, preserving insertion
// order. Joining again before the start resets the entry in place.
func (r *Race) AddRunner(id, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrRaceAlreadyStarted
	}
	if r.locked {
		return ErrRaceLocked
	}
	if prev, ok := r.runners[id]; ok {
		if prev.Ready {
			r.readyCount--
		}
		*prev = Runner{DisplayName: displayName}
		return nil
	}
	r.runners[id] = &Runner{DisplayName: displayName}
	r.order = append(r.order, id)
	return nil
}

// RemoveRunner deletes the entry for id. A ready runner leaving also gives
// back its ready count, so the readiness invariant holds at every instant;
// re-evaluating whether the remaining roster is now all ready belongs to
// the ready coordinator.
func (r *Race) RemoveRunner(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runners[id]
	if !ok {
		return ErrParticipantNotInRace
	}
	if rn.Ready {
		r.readyCount--
	}
	delete(r.runners, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetReady marks id ready. Readying an already-ready runner is a no-op.
func (r *Race) SetReady(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runners[id]
	if !ok {
		return ErrParticipantNotInRace
	}
	if rn.Ready {
		return nil
	}
	rn.Ready = true
	r.readyCount++
	return nil
}

// SetUnready clears the ready mark. Idempotent like SetReady.
func (r *Race) SetUnready(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runners[id]
	if !ok {
		return ErrParticipantNotInRace
	}
	if !rn.Ready {
		return nil
	}
	rn.Ready = false
	r.readyCount--
	return nil
}

func (r *Race) ReadyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyCount
}

func (r *Race) NumRunners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runners)
}

// AllReady reports whether every runner on a non-empty roster is ready.
func (r *Race) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runners) > 0 && r.readyCount == len(r.runners)
}

// Start transitions the race to started, capturing one shared start
// instant for all entrants. Runners cannot be added past this point.
func (r *Race) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrRaceAlreadyStarted
	}
	if len(r.runners) == 0 {
		return ErrEmptyRoster
	}
	r.started = true
	r.startedAt = r.clk.Now()
	return nil
}

func (r *Race) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// StartedAt returns the shared start instant. Zero until Start succeeds.
func (r *Race) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// Has reports whether id holds a roster slot.
func (r *Race) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runners[id]
	return ok
}

// RecordDone stamps id's elapsed time and returns the individual result
// line. Calling done again overwrites the previous time: last call wins.
// The caller must check IsFinished afterwards and finalize when true.
func (r *Race) RecordDone(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return "", ErrRaceNotStarted
	}
	rn, ok := r.runners[id]
	if !ok {
		return "", ErrParticipantNotInRace
	}
	rn.Outcome = OutcomeFinished
	rn.Elapsed = r.clk.Now().Sub(r.startedAt)
	return rn.DisplayName + ": " + FormatDuration(rn.Elapsed), nil
}

// RecordForfeit marks id as forfeited. A forfeit ranks after every real
// elapsed time regardless of when it arrived.
func (r *Race) RecordForfeit(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return "", ErrRaceNotStarted
	}
	rn, ok := r.runners[id]
	if !ok {
		return "", ErrParticipantNotInRace
	}
	rn.Outcome = OutcomeForfeited
	rn.Elapsed = 0
	return rn.DisplayName + " forfeited", nil
}

// Undone clears a done or forfeited mark, re-admitting the runner to
// "still going".
func (r *Race) Undone(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runners[id]
	if !ok {
		return "", ErrParticipantNotInRace
	}
	rn.Outcome = OutcomeNone
	rn.Elapsed = 0
	return rn.DisplayName + " is back in the race!", nil
}

// IsFinished reports whether every runner has an outcome, real or forfeit.
func (r *Race) IsFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rn := range r.runners {
		if rn.Outcome == OutcomeNone {
			return false
		}
	}
	return len(r.runners) > 0
}

// Elapsed returns the time since the shared start instant.
func (r *Race) Elapsed() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return 0, ErrRaceNotStarted
	}
	return r.clk.Now().Sub(r.startedAt), nil
}

// StatusReport renders one line per runner in insertion order: readiness
// before the start, progress after it.
func (r *Race) StatusReport() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	b.WriteString("Current Entrants:\n")
	for _, id := range r.order {
		rn := r.runners[id]
		b.WriteString(rn.DisplayName)
		b.WriteString(" ")
		switch {
		case !r.started && rn.Ready:
			b.WriteString("ready")
		case !r.started:
			b.WriteString("not ready")
		case rn.Outcome == OutcomeForfeited:
			b.WriteString("forfeited")
		case rn.Outcome == OutcomeFinished:
			b.WriteString("done: " + FormatDuration(rn.Elapsed))
		default:
			b.WriteString("still going")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Ranking returns the roster stable-sorted into finish order: elapsed
// time ascending with forfeits last, insertion order breaking ties.
// Places are positions 1..n in the returned slice.
func (r *Race) Ranking() []Entry {
	ranked := r.Entries()
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if (a.Outcome == OutcomeForfeited) != (b.Outcome == OutcomeForfeited) {
			return b.Outcome == OutcomeForfeited
		}
		if a.Outcome == OutcomeForfeited {
			return false
		}
		return a.Elapsed < b.Elapsed
	})
	return ranked
}

// Finalize renders the ranked result. This is the race's terminal output;
// the caller tears the room down after emitting it.
func (r *Race) Finalize(spoiler bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Race %s results:\n\n", r.name)
	if spoiler {
		b.WriteString("||")
	}
	for place, rn := range r.Ranking() {
		fmt.Fprintf(&b, "%d) %s: ", place+1, rn.DisplayName)
		if rn.Outcome == OutcomeForfeited {
			b.WriteString("Forfeited\n")
		} else {
			b.WriteString(FormatDuration(rn.Elapsed) + "\n")
		}
	}
	if spoiler {
		b.WriteString("||")
	}
	return b.String()
}

// Lock closes the roster to new runners. Only races opened as lockable
// may be locked.
func (r *Race) Lock() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.lockable {
		return ErrRaceNotLockable
	}
	r.locked = true
	return nil
}

// Unlock reopens the roster. Unlocking an unlocked race is a no-op.
func (r *Race) Unlock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = false
}

func (r *Race) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

func (r *Race) Lockable() bool { return r.lockable }

// Entries returns an insertion-ordered snapshot of the roster.
func (r *Race) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		rn := r.runners[id]
		out = append(out, Entry{
			ID:          id,
			DisplayName: rn.DisplayName,
			Ready:       rn.Ready,
			Outcome:     rn.Outcome,
			Elapsed:     rn.Elapsed,
		})
	}
	return out
}
