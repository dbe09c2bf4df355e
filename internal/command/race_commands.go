package command

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/chat"
	"github.com/racebothq/racebot/internal/events"
	"github.com/racebothq/racebot/internal/race"
	"github.com/racebothq/racebot/internal/ready"
	"github.com/racebothq/racebot/internal/registry"
)

const (
	joinMessage = "A new race has been started!\nJoin this race with the" +
		" ?join command, @ any people that will be on your team if playing coop."
	joinMultiworldMessage = "join this multiworld with the ?join command, @ any" +
		" people that will be on your team if playing coop. "
	rejoinMessage = "join this multiworld/race with the ?join command, @ any" +
		" people that will be on your team if playing coop. "

	closeRaceDelay = 5 * time.Minute
)

// StartRace opens a new race room under the calling channel.
func (a *App) StartRace(ctx context.Context, inv Invocation) error {
	if !a.isCallChannel(inv.RoomName) || !a.racesAllowed() {
		return nil
	}
	name := strings.TrimSpace(inv.Text)
	if name == "" {
		a.dm(ctx, inv.Actor.ID, "you forgot to name your race")
		return nil
	}

	roomID, err := a.chat.CreateRoom(ctx, inv.RoomID, name)
	if err != nil {
		return err
	}
	room, err := a.registry.Open(roomID, name, false)
	if err != nil {
		return err
	}
	room.Race.SetOwner(inv.Actor.ID)

	msgID := a.send(ctx, roomID, joinMessage)
	if msgID != "" {
		a.setPinned(roomID, msgID)
		if err := a.chat.Pin(ctx, roomID, msgID); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to pin welcome message")
		}
	}
	a.publish(ctx, events.TypeRaceOpened, roomID, events.RaceOpenedPayload{
		Name:    name,
		OwnerID: inv.Actor.ID,
	})
	return nil
}

// StartMultiworld opens a lockable race room for a multiworld session.
func (a *App) StartMultiworld(ctx context.Context, inv Invocation) error {
	if !a.isCallChannel(inv.RoomName) || !a.racesAllowed() {
		return nil
	}
	name := strings.TrimSpace(inv.Text)
	if name == "" {
		a.dm(ctx, inv.Actor.ID, "you forgot to name your multiworld")
		return nil
	}

	roomID, err := a.chat.CreateRoom(ctx, inv.RoomID, name)
	if err != nil {
		return err
	}
	room, err := a.registry.Open(roomID, name, true)
	if err != nil {
		return err
	}
	room.Race.SetOwner(inv.Actor.ID)

	if msgID := a.send(ctx, roomID, joinMultiworldMessage); msgID != "" {
		a.setPinned(roomID, msgID)
	}
	a.publish(ctx, events.TypeRaceOpened, roomID, events.RaceOpenedPayload{
		Name:     name,
		OwnerID:  inv.Actor.ID,
		Lockable: true,
	})
	return nil
}

// CloseRace tears an unstarted race down after a grace period.
func (a *App) CloseRace(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() || room.Race.Owner() != inv.Actor.ID {
		return nil
	}
	a.send(ctx, inv.RoomID, "deleting this race in 5 minutes")
	go a.closeAfter(ctx, inv.RoomID, closeRaceDelay)
	return nil
}

func (a *App) closeAfter(ctx context.Context, roomID string, delay time.Duration) {
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}
	unlock := a.lockRoom(roomID)
	defer unlock()
	a.registry.Close(roomID)
	a.forgetRoom(roomID)
	a.publish(ctx, events.TypeRaceClosed, roomID, events.RaceClosedPayload{Reason: "closed by owner"})
}

// LockRace closes the roster of a lockable race to new runners.
func (a *App) LockRace(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() || room.Race.Owner() != inv.Actor.ID {
		return nil
	}
	if err := room.Race.Lock(); err != nil {
		if errors.Is(err, race.ErrRaceNotLockable) {
			a.send(ctx, inv.RoomID, "This race cannot be locked")
			return nil
		}
		return err
	}
	if msgID, ok := a.pinnedMessage(inv.RoomID); ok {
		a.edit(ctx, inv.RoomID, msgID, "Race: "+room.Race.Name()+" is now locked! ")
	}
	a.send(ctx, inv.RoomID, "Race is now locked. New players cannot be added.")
	return nil
}

// UnlockRace reopens the roster of a locked race.
func (a *App) UnlockRace(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() || room.Race.Owner() != inv.Actor.ID {
		return nil
	}
	if !room.Race.Locked() {
		a.send(ctx, inv.RoomID, "Race is already unlocked.")
		return nil
	}
	room.Race.Unlock()
	if msgID, ok := a.pinnedMessage(inv.RoomID); ok {
		a.edit(ctx, inv.RoomID, msgID, rejoinMessage)
	}
	a.send(ctx, inv.RoomID, "This race is now unlocked. New players can join again.")
	return nil
}

// Join enters the caller in a race, with mentioned participants attached
// as co-op teammates sharing the caller's clock slot.
func (a *App) Join(ctx context.Context, inv Invocation) error {
	if !a.isRaceRoom(inv.RoomID) {
		a.dm(ctx, inv.Actor.ID, "Join command must be used in an active race channel or thread")
		return nil
	}

	targetID := inv.RoomID
	if len(inv.Args) > 0 {
		targetID = inv.Args[0]
	}
	room, err := a.registry.Lookup(targetID)
	if err != nil {
		a.dm(ctx, inv.Actor.ID, "That id doesnt exist")
		return nil
	}
	if room.Race.Started() {
		a.send(ctx, inv.RoomID, "This race has already started")
		return nil
	}
	if room.Race.Locked() {
		a.send(ctx, inv.RoomID, "This race is locked. No new racers can join.")
		return nil
	}

	name := inv.Actor.DisplayName
	if len(inv.Args) > 1 {
		name = inv.Args[1]
	}

	if err := room.Race.AddRunner(inv.Actor.ID, name); err != nil {
		return err
	}
	room.Roster.JoinAsPrimary(inv.Actor.ID, name)

	welcome := "Welcome! " + chat.MentionTag(inv.Actor.ID)
	teammates := make([]string, 0, len(inv.Actor.Mentions))
	for _, m := range inv.Actor.Mentions {
		if err := room.Roster.AttachSecondary(inv.Actor.ID, m.ID, m.DisplayName); err != nil {
			return err
		}
		welcome += chat.MentionTag(m.ID) + " "
		teammates = append(teammates, m.ID)
	}
	a.send(ctx, targetID, welcome)
	a.publish(ctx, events.TypeRunnerJoined, targetID, events.RunnerJoinedPayload{
		RunnerID:    inv.Actor.ID,
		DisplayName: name,
		Teammates:   teammates,
	})
	return nil
}

// Unjoin removes the caller from an unstarted race. If the remaining
// roster is now fully ready the countdown starts.
func (a *App) Unjoin(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() || !room.Roster.IsParticipant(inv.Actor.ID) {
		return nil
	}

	if err := room.Race.RemoveRunner(inv.Actor.ID); err != nil && !errors.Is(err, race.ErrParticipantNotInRace) {
		return err
	}
	room.Roster.Detach(inv.Actor.ID, inv.Actor.DisplayName)
	room.Roster.RemoveTeam(inv.Actor.ID)

	a.send(ctx, inv.RoomID, inv.Actor.DisplayName+
		" has left the race and is now cheering from the sidelines.")
	a.publish(ctx, events.TypeRunnerLeft, inv.RoomID, events.RunnerLeftPayload{
		RunnerID:    inv.Actor.ID,
		DisplayName: inv.Actor.DisplayName,
	})

	// The departed runner may have been the last holdout.
	a.evaluateCountdown(ctx, room)
	return nil
}

// Spectate announces a spectator in the race room.
func (a *App) Spectate(ctx context.Context, inv Invocation) error {
	if !a.isCallChannel(inv.RoomName) || len(inv.Args) == 0 {
		return nil
	}
	if _, err := a.registry.Lookup(inv.Args[0]); err != nil {
		return nil
	}
	a.send(ctx, inv.Args[0], chat.MentionTag(inv.Actor.ID)+
		" is now cheering you on from the sidelines")
	return nil
}

// Ready marks the caller's roster entry ready and runs the all-ready
// check.
func (a *App) Ready(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() {
		return nil
	}
	primary, err := room.Roster.ResolvePrimary(inv.Actor.ID)
	if err != nil {
		return nil
	}
	if err := room.Race.SetReady(primary); err != nil {
		return err
	}
	remaining := room.Race.NumRunners() - room.Race.ReadyCount()
	a.send(ctx, inv.RoomID, inv.Actor.DisplayName+" is READY! "+strconv.Itoa(remaining)+" remaining.")

	a.evaluateCountdown(ctx, room)
	return nil
}

// Unready clears the caller's ready mark.
func (a *App) Unready(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() {
		return nil
	}
	primary, err := room.Roster.ResolvePrimary(inv.Actor.ID)
	if err != nil {
		return nil
	}
	if err := room.Race.SetUnready(primary); err != nil {
		return err
	}
	remaining := room.Race.NumRunners() - room.Race.ReadyCount()
	a.send(ctx, inv.RoomID, inv.Actor.DisplayName+" is no longer READY. "+strconv.Itoa(remaining)+" remaining.")
	return nil
}

// Entrants posts the current roster status.
func (a *App) Entrants(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil {
		return nil
	}
	a.send(ctx, inv.RoomID, room.Race.StatusReport())
	return nil
}

// Done stamps the caller's finish time. The last runner in triggers the
// ranked result and tears the room down.
func (a *App) Done(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || !room.Race.Started() {
		return nil
	}
	primary, err := room.Roster.ResolvePrimary(inv.Actor.ID)
	if err != nil {
		return nil
	}
	msg, err := room.Race.RecordDone(primary)
	if err != nil {
		return err
	}
	a.publish(ctx, events.TypeRunnerFinished, inv.RoomID, runnerFinishedPayload(room.Race, primary))

	if room.Race.IsFinished() {
		a.finishRace(ctx, room, true)
		return nil
	}
	a.send(ctx, inv.RoomID, msg)
	return nil
}

// Undone re-admits the caller to "still going" after a premature done or
// forfeit.
func (a *App) Undone(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || !room.Race.Started() {
		return nil
	}
	primary, err := room.Roster.ResolvePrimary(inv.Actor.ID)
	if err != nil {
		return nil
	}
	msg, err := room.Race.Undone(primary)
	if err != nil {
		return err
	}
	a.send(ctx, inv.RoomID, msg)
	return nil
}

// Forfeit marks the caller out of the race, ranking after every finisher.
func (a *App) Forfeit(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || !room.Race.Started() {
		return nil
	}
	primary, err := room.Roster.ResolvePrimary(inv.Actor.ID)
	if err != nil {
		return nil
	}
	msg, err := room.Race.RecordForfeit(primary)
	if err != nil {
		return err
	}
	a.publish(ctx, events.TypeRunnerForfeited, inv.RoomID, runnerForfeitedPayload(room.Race, primary))

	if room.Race.IsFinished() {
		a.finishRace(ctx, room, true)
		return nil
	}
	a.send(ctx, inv.RoomID, msg)
	return nil
}

// Time posts the elapsed time since the shared start instant.
func (a *App) Time(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil {
		return nil
	}
	elapsed, err := room.Race.Elapsed()
	if err != nil {
		return nil
	}
	a.send(ctx, inv.RoomID, race.FormatDuration(elapsed))
	return nil
}

// Races lists the currently open races.
func (a *App) Races(ctx context.Context, inv Invocation) error {
	if !a.isCallChannel(inv.RoomName) {
		return nil
	}
	var b strings.Builder
	b.WriteString("Current races:\n")
	for _, info := range a.registry.List() {
		b.WriteString("name: " + info.Name + " - id: " + info.ID + "\n")
	}
	a.send(ctx, inv.RoomID, b.String())
	return nil
}

// evaluateCountdown runs the debounced all-ready check and, when the
// countdown launches, announces the watch link on the pinned message.
func (a *App) evaluateCountdown(ctx context.Context, room *registry.Room) {
	launched, err := a.coord.Evaluate(ctx, room.Race)
	if err != nil {
		if errors.Is(err, ready.ErrCountdownInFlight) {
			return
		}
		log.Error().Err(err).Str("room_id", room.Race.ID()).Msg("countdown evaluation failed")
		return
	}
	if !launched {
		return
	}

	watch := room.Race.Restream()
	if watch == "" {
		watch = a.localMultistream(room)
	}
	if msgID, ok := a.pinnedMessage(room.Race.ID()); ok {
		a.edit(ctx, room.Race.ID(), msgID,
			"Race: "+room.Race.Name()+" has started! \nWatch the race at: "+watch)
	}
	a.publish(ctx, events.TypeCountdownStarted, room.Race.ID(), events.CountdownStartedPayload{
		From:    10,
		Runners: room.Race.NumRunners(),
	})
}

// finishRace emits the ranked result, forwards it to the results channel,
// and tears the room down. A torn-down race is not reusable.
func (a *App) finishRace(ctx context.Context, room *registry.Room, spoiler bool) {
	roomID := room.Race.ID()
	results := room.Race.Finalize(spoiler)

	if msgID := a.send(ctx, roomID, results); msgID != "" {
		if err := a.chat.Pin(ctx, roomID, msgID); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to pin results")
		}
	}
	if a.cfg.ResultsRoomID != "" {
		a.send(ctx, a.cfg.ResultsRoomID, results+"\n===================================")
	}

	a.publish(ctx, events.TypeRaceFinalized, roomID, finalizedPayload(room.Race))
	a.registry.Close(roomID)
	a.forgetRoom(roomID)
	a.publish(ctx, events.TypeRaceClosed, roomID, events.RaceClosedPayload{Reason: "finished"})
}

func (a *App) edit(ctx context.Context, roomID, messageID, text string) {
	if err := a.chat.EditText(ctx, roomID, messageID, text); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to edit message")
	}
}

func runnerFinishedPayload(r *race.Race, runnerID string) events.RunnerFinishedPayload {
	for _, e := range r.Entries() {
		if e.ID == runnerID {
			return events.RunnerFinishedPayload{
				RunnerID:    e.ID,
				DisplayName: e.DisplayName,
				Elapsed:     race.FormatDuration(e.Elapsed),
			}
		}
	}
	return events.RunnerFinishedPayload{RunnerID: runnerID}
}

func runnerForfeitedPayload(r *race.Race, runnerID string) events.RunnerForfeitedPayload {
	for _, e := range r.Entries() {
		if e.ID == runnerID {
			return events.RunnerForfeitedPayload{RunnerID: e.ID, DisplayName: e.DisplayName}
		}
	}
	return events.RunnerForfeitedPayload{RunnerID: runnerID}
}

func finalizedPayload(r *race.Race) events.RaceFinalizedPayload {
	ranked := r.Ranking()
	payload := events.RaceFinalizedPayload{Placements: make([]events.Placement, 0, len(ranked))}
	for i, e := range ranked {
		p := events.Placement{Place: i + 1, DisplayName: e.DisplayName}
		if e.Outcome == race.OutcomeForfeited {
			p.Forfeited = true
		} else {
			p.Elapsed = race.FormatDuration(e.Elapsed)
		}
		payload.Placements = append(payload.Placements, p)
	}
	return payload
}
