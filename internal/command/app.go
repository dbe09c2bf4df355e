// Package command implements the bot's command surface: it authorizes the
// caller, invokes the race core, renders user-facing text, performs chat
// side effects through the adapter, and publishes domain events. All race
// semantics live in the core packages; this layer is bookkeeping.
package command

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/chat"
	"github.com/racebothq/racebot/internal/events"
	"github.com/racebothq/racebot/internal/ready"
	"github.com/racebothq/racebot/internal/registry"
)

// Invocation carries one inbound command: where it was issued, by whom,
// and with what arguments.
type Invocation struct {
	RoomID   string
	RoomName string
	Actor    chat.Participant
	Args     []string
	Text     string // raw remainder after the command word, for names
}

// StreamStore is what the command layer needs from the stream-handle
// store.
type StreamStore interface {
	Set(ctx context.Context, participantID, handle string) error
	LoadAll(ctx context.Context) (map[string]string, error)
}

// Directory is what the command layer needs from the legacy race
// directory.
type Directory interface {
	FetchEntrants(ctx context.Context, raceCode string, includeAll bool) ([]string, error)
}

// Config holds the channel and role wiring for the command surface.
type Config struct {
	// CallChannels are the channel names where races may be opened and
	// listed.
	CallChannels []string
	// ResultsRoomID receives the ranked result of every finished race.
	ResultsRoomID string
	// Admins are participant ids allowed to run force commands.
	Admins []string
}

// App dispatches bot commands against the race core.
type App struct {
	registry  *registry.Registry
	coord     *ready.Coordinator
	chat      chat.Adapter
	bus       events.Bus
	store     StreamStore
	directory Directory
	cfg       Config

	mu         sync.Mutex
	handles    map[string]string // participant id -> stream handle
	pinned     map[string]string // room id -> welcome message id
	roomLocks  map[string]*sync.Mutex
	allowRaces bool
}

// NewApp wires the command layer. Call LoadHandles before serving
// commands so stream lookups see persisted handles.
func NewApp(reg *registry.Registry, coord *ready.Coordinator, adapter chat.Adapter, bus events.Bus, store StreamStore, dir Directory, cfg Config) *App {
	return &App{
		registry:   reg,
		coord:      coord,
		chat:       adapter,
		bus:        bus,
		store:      store,
		directory:  dir,
		cfg:        cfg,
		handles:    make(map[string]string),
		pinned:     make(map[string]string),
		roomLocks:  make(map[string]*sync.Mutex),
		allowRaces: true,
	}
}

// LoadHandles primes the stream-handle cache from the store. Called once
// at startup.
func (a *App) LoadHandles(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	handles, err := a.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.handles = handles
	a.mu.Unlock()
	log.Info().Int("count", len(handles)).Msg("loaded saved stream handles")
	return nil
}

// Announce implements ready.Announcer: countdown ticks go straight to the
// room.
func (a *App) Announce(ctx context.Context, roomID, text string) {
	a.send(ctx, roomID, text)
}

// commandAliases maps every accepted spelling to its canonical command.
var commandAliases = map[string]string{
	"sr":                "startrace",
	"ap":                "startmultiworld",
	"multiworld":        "startmultiworld",
	"archipelago":       "startmultiworld",
	"cr":                "closerace",
	"enter":             "join",
	"quit":              "unjoin",
	"s":                 "spectate",
	"r":                 "ready",
	"ur":                "unready",
	"e":                 "entrants",
	"unforfeit":         "undone",
	"t":                 "time",
	"tl":                "teamlist",
	"ta":                "teamadd",
	"tr":                "teamremove",
	"ff1url":            "rollseed",
	"ff1roll":           "rollseed",
	"ffrroll":           "rollseed",
	"ffrurl":            "rollseed",
	"rollseedurl":       "rollseed",
	"roll_ffr_url_seed": "rollseed",
}

// Dispatch routes a command by name. Unknown commands are ignored so the
// bot can share channels with other bots.
//
// Commands for the same room run one at a time, to completion, in arrival
// order. Handlers are multi-step (record, check finished, tear down), and
// without this two finishing runners could both observe the race as
// finished and finalize it twice.
func (a *App) Dispatch(ctx context.Context, name string, inv Invocation) error {
	if canonical, ok := commandAliases[name]; ok {
		name = canonical
	}

	unlock := a.lockRoom(inv.RoomID)
	defer unlock()

	switch name {
	case "startrace":
		return a.StartRace(ctx, inv)
	case "startmultiworld":
		return a.StartMultiworld(ctx, inv)
	case "closerace":
		return a.CloseRace(ctx, inv)
	case "lockrace":
		return a.LockRace(ctx, inv)
	case "unlockrace":
		return a.UnlockRace(ctx, inv)
	case "join":
		return a.Join(ctx, inv)
	case "unjoin":
		return a.Unjoin(ctx, inv)
	case "spectate":
		return a.Spectate(ctx, inv)
	case "ready":
		return a.Ready(ctx, inv)
	case "unready":
		return a.Unready(ctx, inv)
	case "entrants":
		return a.Entrants(ctx, inv)
	case "done":
		return a.Done(ctx, inv)
	case "undone":
		return a.Undone(ctx, inv)
	case "forfeit":
		return a.Forfeit(ctx, inv)
	case "time":
		return a.Time(ctx, inv)
	case "teamlist":
		return a.TeamList(ctx, inv)
	case "teamadd":
		return a.TeamAdd(ctx, inv)
	case "teamremove":
		return a.TeamRemove(ctx, inv)
	case "races":
		return a.Races(ctx, inv)
	case "restream":
		return a.Restream(ctx, inv)
	case "multi":
		return a.Multi(ctx, inv)
	case "multireadied":
		return a.MultiReadied(ctx, inv)
	case "twitchid":
		return a.SetStreamHandle(ctx, inv)
	case "stream":
		return a.Stream(ctx, inv)
	case "rollseed":
		return a.RollSeedURL(ctx, inv)
	case "ff1seed":
		return a.RollSeed(ctx, inv)
	case "forcestart":
		return a.ForceStart(ctx, inv)
	case "forceclose":
		return a.ForceClose(ctx, inv)
	case "forceend":
		return a.ForceEnd(ctx, inv)
	case "forceremove":
		return a.ForceRemove(ctx, inv)
	case "toggleraces":
		return a.ToggleRaces(ctx, inv)
	default:
		return nil
	}
}

// send posts to a room, logging delivery failures instead of propagating
// them; a dropped chat message never corrupts race state.
func (a *App) send(ctx context.Context, roomID, text string) string {
	id, err := a.chat.SendText(ctx, roomID, text)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to send message")
		return ""
	}
	return id
}

func (a *App) dm(ctx context.Context, participantID, text string) {
	if err := a.chat.SendDirect(ctx, participantID, text); err != nil {
		log.Error().Err(err).Str("participant_id", participantID).Msg("failed to send direct message")
	}
}

func (a *App) publish(ctx context.Context, eventType, roomID string, payload any) {
	if err := a.bus.Publish(ctx, eventType, roomID, payload); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("room_id", roomID).Msg("failed to publish event")
	}
}

func (a *App) isAdmin(id string) bool {
	return slices.Contains(a.cfg.Admins, id)
}

func (a *App) isCallChannel(roomName string) bool {
	return slices.Contains(a.cfg.CallChannels, roomName)
}

func (a *App) isRaceRoom(roomID string) bool {
	_, err := a.registry.Lookup(roomID)
	return err == nil
}

func (a *App) racesAllowed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allowRaces
}

func (a *App) handleFor(participantID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.handles[participantID]
	return h, ok && h != ""
}

func (a *App) pinnedMessage(roomID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.pinned[roomID]
	return id, ok
}

func (a *App) setPinned(roomID, messageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pinned[roomID] = messageID
}

// lockRoom serializes work on one room. Locks live for the process; rooms
// are ephemeral and the table stays small.
func (a *App) lockRoom(roomID string) func() {
	a.mu.Lock()
	l, ok := a.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		a.roomLocks[roomID] = l
	}
	a.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (a *App) forgetRoom(roomID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pinned, roomID)
}
