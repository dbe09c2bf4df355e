package command

import (
	"context"

	"github.com/racebothq/racebot/internal/events"
	"github.com/racebothq/racebot/internal/race"
)

// ForceStart launches the countdown regardless of ready state.
func (a *App) ForceStart(ctx context.Context, inv Invocation) error {
	if !a.isAdmin(inv.Actor.ID) {
		return nil
	}
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() {
		return nil
	}
	for _, e := range room.Race.Entries() {
		if !e.Ready {
			if err := room.Race.SetReady(e.ID); err != nil {
				return err
			}
		}
	}
	a.evaluateCountdown(ctx, room)
	return nil
}

// ForceClose tears a race room down immediately, results or not.
func (a *App) ForceClose(ctx context.Context, inv Invocation) error {
	if !a.isAdmin(inv.Actor.ID) {
		return nil
	}
	if _, err := a.registry.Lookup(inv.RoomID); err != nil {
		return nil
	}
	a.registry.Close(inv.RoomID)
	a.forgetRoom(inv.RoomID)
	a.publish(ctx, events.TypeRaceClosed, inv.RoomID, events.RaceClosedPayload{Reason: "force closed"})
	return nil
}

// ForceEnd forfeits every runner still going and posts the final result
// without a spoiler wrap.
func (a *App) ForceEnd(ctx context.Context, inv Invocation) error {
	if !a.isAdmin(inv.Actor.ID) {
		return nil
	}
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || !room.Race.Started() {
		return nil
	}
	for _, e := range room.Race.Entries() {
		if e.Outcome == race.OutcomeNone {
			if _, err := room.Race.RecordForfeit(e.ID); err != nil {
				return err
			}
		}
	}
	a.finishRace(ctx, room, false)
	return nil
}

// ForceRemove drops each mentioned participant from the race and its
// teams.
func (a *App) ForceRemove(ctx context.Context, inv Invocation) error {
	if !a.isAdmin(inv.Actor.ID) {
		return nil
	}
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil {
		return nil
	}
	for _, m := range inv.Actor.Mentions {
		if err := room.Race.RemoveRunner(m.ID); err != nil {
			continue
		}
		room.Roster.Detach(m.ID, m.DisplayName)
		room.Roster.RemoveTeam(m.ID)
		a.publish(ctx, events.TypeRunnerLeft, inv.RoomID, events.RunnerLeftPayload{
			RunnerID:    m.ID,
			DisplayName: m.DisplayName,
		})
	}
	return nil
}

// ToggleRaces flips whether new races may be opened.
func (a *App) ToggleRaces(ctx context.Context, inv Invocation) error {
	if !a.isAdmin(inv.Actor.ID) {
		return nil
	}
	a.mu.Lock()
	a.allowRaces = !a.allowRaces
	allowed := a.allowRaces
	a.mu.Unlock()
	if allowed {
		a.send(ctx, inv.RoomID, "races enabled")
	} else {
		a.send(ctx, inv.RoomID, "races disabled")
	}
	return nil
}
