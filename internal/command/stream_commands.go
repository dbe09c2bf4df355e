package command

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/chat"
	"github.com/racebothq/racebot/internal/directory"
	"github.com/racebothq/racebot/internal/registry"
	"github.com/racebothq/racebot/internal/seedgen"
)

// Restream records the restream link for the race and surfaces it on the
// pinned welcome message.
func (a *App) Restream(ctx context.Context, inv Invocation) error {
	room, err := a.registry.Lookup(inv.RoomID)
	if err != nil {
		a.send(ctx, inv.RoomID, "this isnt a race channel, cant set restream here")
		return nil
	}
	if len(inv.Args) == 0 {
		return nil
	}
	room.Race.SetRestream(inv.Args[0])
	a.send(ctx, inv.RoomID, "restream set to: "+room.Race.Restream())
	if msgID, ok := a.pinnedMessage(inv.RoomID); ok {
		a.edit(ctx, inv.RoomID, msgID,
			rejoinMessage+"\nWatch the race at: "+room.Race.Restream())
	}
	return nil
}

// Multi posts a multistream link. With no argument it covers the current
// room's roster; with a race code it asks the legacy directory for all
// entrants regardless of ready state.
func (a *App) Multi(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		room, err := a.registry.Lookup(inv.RoomID)
		if err != nil {
			a.dm(ctx, inv.Actor.ID, "You need to supply the race id to get the multistream link.")
			return nil
		}
		a.send(ctx, inv.RoomID, a.localMultistream(room))
		return nil
	}
	if room, err := a.registry.Lookup(inv.Args[0]); err == nil {
		a.send(ctx, inv.RoomID, a.localMultistream(room))
		return nil
	}

	handles, err := a.directory.FetchEntrants(ctx, inv.Args[0], true)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownRaceCode) {
			a.send(ctx, inv.RoomID, "There is no race with that 5 character id")
			return nil
		}
		return err
	}
	a.send(ctx, inv.RoomID, directory.MultistreamURL(handles))
	return nil
}

// MultiReadied posts a multistream link covering only the readied
// entrants of a directory race.
func (a *App) MultiReadied(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		a.dm(ctx, inv.Actor.ID, "You need to supply the race id to get the multistream link.")
		return nil
	}
	handles, err := a.directory.FetchEntrants(ctx, inv.Args[0], false)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownRaceCode) {
			a.send(ctx, inv.RoomID, `There is no race with that 5 character id, try remove "srl-" from the room id.`)
			return nil
		}
		return err
	}
	a.send(ctx, inv.RoomID, directory.MultistreamURL(handles))
	return nil
}

// SetStreamHandle saves the caller's stream handle, in memory and in the
// store.
func (a *App) SetStreamHandle(ctx context.Context, inv Invocation) error {
	handle := ""
	if len(inv.Args) > 0 {
		handle = inv.Args[0]
	}
	a.mu.Lock()
	a.handles[inv.Actor.ID] = handle
	a.mu.Unlock()
	if a.store != nil {
		if err := a.store.Set(ctx, inv.Actor.ID, handle); err != nil {
			log.Error().Err(err).Str("participant_id", inv.Actor.ID).Msg("failed to persist stream handle")
		}
	}
	a.send(ctx, inv.RoomID, "twitch id set to: "+handle)
	return nil
}

// Stream posts the stream link of each mentioned participant.
func (a *App) Stream(ctx context.Context, inv Invocation) error {
	for _, m := range inv.Actor.Mentions {
		handle, ok := a.handleFor(m.ID)
		if !ok {
			a.send(ctx, inv.RoomID, chat.MentionTag(m.ID)+
				" has not set their twitchid\nset it with the following command:\n`?twitchid your_twitch_username`")
			continue
		}
		a.send(ctx, inv.RoomID, "https://www.twitch.tv/"+handle)
	}
	return nil
}

// RollSeedURL rolls a fresh seed for the flag string carried by the given
// randomizer URL and pins the result.
func (a *App) RollSeedURL(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		a.dm(ctx, inv.Actor.ID, "You need to supply the url to roll a seed for.")
		return nil
	}
	site, flags, err := seedgen.FlagsFromURL(inv.Args[0])
	if err != nil {
		a.dm(ctx, inv.Actor.ID, "You need to supply the url to roll a seed for.")
		return nil
	}
	msgID := a.send(ctx, inv.RoomID, seedgen.RolledURL(site, flags))
	if msgID != "" {
		if err := a.chat.Pin(ctx, inv.RoomID, msgID); err != nil {
			log.Error().Err(err).Str("room_id", inv.RoomID).Msg("failed to pin seed")
		}
	}
	return nil
}

// RollSeed posts a bare seed value.
func (a *App) RollSeed(ctx context.Context, inv Invocation) error {
	a.send(ctx, inv.RoomID, seedgen.Roll())
	return nil
}

// localMultistream builds a multistream link from the saved handles of
// the room's roster, listing anyone without one.
func (a *App) localMultistream(room *registry.Room) string {
	var handles []string
	var missing []string
	for _, m := range room.Roster.AllMembers() {
		if h, ok := a.handleFor(m.ID); ok {
			handles = append(handles, h)
			continue
		}
		missing = append(missing, m.DisplayName)
	}
	link := directory.MultistreamURL(handles)
	if len(missing) != 0 {
		link += "\nRunners without a set twitch Id: \n" + strings.Join(missing, ", ")
	}
	return link
}
