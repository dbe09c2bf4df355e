package race

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRace(t *testing.T, lockable bool) (*Race, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	return New("room-1", "glitchless", lockable, fc), fc
}

func TestAddRunnerOrderingAndRejoin(t *testing.T) {
	r, _ := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.SetReady("a"))

	// Rejoining resets the entry without duplicating the slot or leaking
	// the ready count.
	require.NoError(t, r.AddRunner("a", "Alice2"))
	assert.Equal(t, 2, r.NumRunners())
	assert.Equal(t, 0, r.ReadyCount())

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice2", entries[0].DisplayName)
	assert.Equal(t, "Bob", entries[1].DisplayName)
}

func TestAddRunnerAfterStart(t *testing.T) {
	r, _ := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.AddRunner("b", "Bob"), ErrRaceAlreadyStarted)
}

func TestReadyCountInvariant(t *testing.T) {
	r, _ := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))

	require.NoError(t, r.SetReady("a"))
	require.NoError(t, r.SetReady("a")) // idempotent
	assert.Equal(t, 1, r.ReadyCount())

	require.NoError(t, r.SetUnready("a"))
	require.NoError(t, r.SetUnready("a"))
	assert.Equal(t, 0, r.ReadyCount())

	assert.ErrorIs(t, r.SetReady("ghost"), ErrParticipantNotInRace)
}

func TestRemoveReadyRunnerGivesBackCount(t *testing.T) {
	r, _ := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.SetReady("a"))
	require.NoError(t, r.SetReady("b"))

	require.NoError(t, r.RemoveRunner("a"))
	assert.Equal(t, 1, r.ReadyCount())
	assert.True(t, r.AllReady())

	assert.ErrorIs(t, r.RemoveRunner("a"), ErrParticipantNotInRace)
}

func TestAllReadyEmptyRoster(t *testing.T) {
	r, _ := newTestRace(t, false)
	assert.False(t, r.AllReady())
	assert.False(t, r.IsFinished())
	assert.ErrorIs(t, r.Start(), ErrEmptyRoster)
}

func TestStartCapturesSharedInstant(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrRaceAlreadyStarted)
	assert.Equal(t, fc.Now(), r.StartedAt())

	fc.Advance(90 * time.Second)
	elapsed, err := r.Elapsed()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, elapsed)
}

func TestRecordDoneLastCallWins(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.Start())

	fc.Advance(time.Minute)
	msg, err := r.RecordDone("a")
	require.NoError(t, err)
	assert.Equal(t, "Alice: 0:01:00", msg)

	fc.Advance(time.Minute)
	msg, err = r.RecordDone("a")
	require.NoError(t, err)
	assert.Equal(t, "Alice: 0:02:00", msg)

	_, err = r.RecordDone("ghost")
	assert.ErrorIs(t, err, ErrParticipantNotInRace)
}

func TestRecordDoneBeforeStart(t *testing.T) {
	r, _ := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	_, err := r.RecordDone("a")
	assert.ErrorIs(t, err, ErrRaceNotStarted)
	_, err = r.RecordForfeit("a")
	assert.ErrorIs(t, err, ErrRaceNotStarted)
}

func TestForfeitAndUndone(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.Start())

	fc.Advance(time.Minute)
	msg, err := r.RecordForfeit("a")
	require.NoError(t, err)
	assert.Equal(t, "Alice forfeited", msg)
	assert.False(t, r.IsFinished())

	msg, err = r.Undone("a")
	require.NoError(t, err)
	assert.Equal(t, "Alice is back in the race!", msg)

	// Forfeit after done clears the stored time.
	_, err = r.RecordDone("b")
	require.NoError(t, err)
	_, err = r.RecordForfeit("b")
	require.NoError(t, err)
	_, err = r.RecordDone("a")
	require.NoError(t, err)
	assert.True(t, r.IsFinished())

	ranked := r.Ranking()
	require.Len(t, ranked, 2)
	assert.Equal(t, "Alice", ranked[0].DisplayName)
	assert.Equal(t, OutcomeForfeited, ranked[1].Outcome)
}

func TestRankingForfeitsLastInsertionTieBreak(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.AddRunner("c", "Carol"))
	require.NoError(t, r.AddRunner("d", "Dave"))
	require.NoError(t, r.Start())

	// Carol forfeits first but still ranks after every finisher.
	_, err := r.RecordForfeit("c")
	require.NoError(t, err)

	fc.Advance(time.Minute)
	_, err = r.RecordDone("b")
	require.NoError(t, err)
	_, err = r.RecordDone("a") // identical time, Bob recorded first
	require.NoError(t, err)
	_, err = r.RecordForfeit("d")
	require.NoError(t, err)

	ranked := r.Ranking()
	require.Len(t, ranked, 4)
	// Identical elapsed times keep insertion order.
	assert.Equal(t, "Alice", ranked[0].DisplayName)
	assert.Equal(t, "Bob", ranked[1].DisplayName)
	assert.Equal(t, "Carol", ranked[2].DisplayName)
	assert.Equal(t, "Dave", ranked[3].DisplayName)
}

func TestFinalizeSpoiler(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.Start())

	fc.Advance(time.Minute + 30*time.Second)
	_, err := r.RecordDone("a")
	require.NoError(t, err)
	_, err = r.RecordForfeit("b")
	require.NoError(t, err)

	want := "Race glitchless results:\n\n||1) Alice: 0:01:30\n2) Bob: Forfeited\n||"
	assert.Equal(t, want, r.Finalize(true))

	plain := "Race glitchless results:\n\n1) Alice: 0:01:30\n2) Bob: Forfeited\n"
	assert.Equal(t, plain, r.Finalize(false))
}

func TestStatusReport(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.AddRunner("c", "Carol"))
	require.NoError(t, r.SetReady("a"))

	assert.Equal(t, "Current Entrants:\nAlice ready\nBob not ready\nCarol not ready\n", r.StatusReport())

	require.NoError(t, r.SetReady("b"))
	require.NoError(t, r.SetReady("c"))
	require.NoError(t, r.Start())
	fc.Advance(42 * time.Second)
	_, err := r.RecordDone("a")
	require.NoError(t, err)
	_, err = r.RecordForfeit("b")
	require.NoError(t, err)

	assert.Equal(t, "Current Entrants:\nAlice done: 0:00:42\nBob forfeited\nCarol still going\n", r.StatusReport())
}

func TestLockLifecycle(t *testing.T) {
	r, _ := newTestRace(t, true)
	require.NoError(t, r.AddRunner("a", "Alice"))

	require.NoError(t, r.Lock())
	assert.True(t, r.Locked())
	assert.ErrorIs(t, r.AddRunner("b", "Bob"), ErrRaceLocked)

	r.Unlock()
	r.Unlock() // no-op
	assert.False(t, r.Locked())
	require.NoError(t, r.AddRunner("b", "Bob"))

	plain, _ := newTestRace(t, false)
	assert.ErrorIs(t, plain.Lock(), ErrRaceNotLockable)
}

func TestFullRaceLifecycle(t *testing.T) {
	r, fc := newTestRace(t, false)
	require.NoError(t, r.AddRunner("a", "Alice"))
	require.NoError(t, r.AddRunner("b", "Bob"))
	require.NoError(t, r.SetReady("a"))
	assert.False(t, r.AllReady())
	require.NoError(t, r.SetReady("b"))
	require.True(t, r.AllReady())

	require.NoError(t, r.Start())
	fc.Advance(10 * time.Minute)
	_, err := r.RecordDone("b")
	require.NoError(t, err)
	fc.Advance(time.Second)
	_, err = r.RecordDone("a")
	require.NoError(t, err)
	require.True(t, r.IsFinished())

	ranked := r.Ranking()
	assert.Equal(t, "Bob", ranked[0].DisplayName)
	assert.Equal(t, "Alice", ranked[1].DisplayName)
	assert.Equal(t, 10*time.Minute+time.Second, ranked[1].Elapsed)
}
