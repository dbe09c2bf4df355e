package command

import (
	"context"
)

// TeamList posts the current team roster.
func (a *App) TeamList(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil {
		return nil
	}
	a.send(ctx, inv.RoomID, room.Roster.TeamReport())
	return nil
}

// TeamAdd attaches each mentioned participant to the caller's team. Only
// a team leader can add members.
func (a *App) TeamAdd(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() {
		return nil
	}
	if !room.Roster.IsLeader(inv.Actor.ID) {
		a.send(ctx, inv.RoomID, "Only a team leader can add teammates. Join the race first.")
		return nil
	}
	if len(inv.Actor.Mentions) == 0 {
		a.send(ctx, inv.RoomID, "@ the people you want to add to your team.")
		return nil
	}
	added := ""
	for _, m := range inv.Actor.Mentions {
		if err := room.Roster.AttachSecondary(inv.Actor.ID, m.ID, m.DisplayName); err != nil {
			return err
		}
		added += m.DisplayName + " "
	}
	a.send(ctx, inv.RoomID, added+"joined team "+inv.Actor.DisplayName)
	return nil
}

// TeamRemove detaches each mentioned participant from the caller's team.
func (a *App) TeamRemove(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil || room.Race.Started() {
		return nil
	}
	if !room.Roster.IsLeader(inv.Actor.ID) {
		return nil
	}
	if len(inv.Actor.Mentions) == 0 {
		a.send(ctx, inv.RoomID, "@ the people you want to remove from your team.")
		return nil
	}
	removed := ""
	for _, m := range inv.Actor.Mentions {
		room.Roster.Detach(m.ID, m.DisplayName)
		removed += m.DisplayName + " "
	}
	a.send(ctx, inv.RoomID, removed+"left team "+inv.Actor.DisplayName)
	return nil
}
