// Package registry maps room identifiers to their races for the life of
// the process. Races are not persisted; a room that closes is gone.
package registry

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/clock"
	"github.com/racebothq/racebot/internal/race"
)

var (
	// ErrRoomNotFound is returned when no race is open for the room id.
	ErrRoomNotFound = errors.New("no race open for room")
	// ErrDuplicateRoom is returned when a room id is already in use.
	ErrDuplicateRoom = errors.New("room already has a race")
)

// Room bundles a race with its team roster. The two are created and torn
// down together.
type Room struct {
	Race   *race.Race
	Roster *race.Roster
}

// RoomInfo is one row of the open-races listing.
type RoomInfo struct {
	ID   string
	Name string
}

// Registry is the process-wide race table. It replaces ambient global
// state: one instance is constructed at startup and injected into the
// command layer.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	order []string
	clk   clock.Clock
}

func New(clk clock.Clock) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		clk:   clk,
	}
}

// Open creates the race and its roster for a room atomically.
func (g *Registry) Open(id, name string, lockable bool) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[id]; ok {
		return nil, ErrDuplicateRoom
	}
	room := &Room{
		Race:   race.New(id, name, lockable, g.clk),
		Roster: race.NewRoster(),
	}
	g.rooms[id] = room
	g.order = append(g.order, id)
	log.Info().Str("room_id", id).Str("race", name).Bool("lockable", lockable).Msg("race opened")
	return room, nil
}

// Lookup returns the room's race and roster.
func (g *Registry) Lookup(id string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Close tears down the room's race and roster together. Closing a room
// that is already gone is a no-op.
func (g *Registry) Close(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[id]; !ok {
		return
	}
	delete(g.rooms, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	log.Info().Str("room_id", id).Msg("race closed")
}

// List snapshots the open rooms in insertion order.
func (g *Registry) List() []RoomInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]RoomInfo, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, RoomInfo{ID: id, Name: g.rooms[id].Race.Name()})
	}
	return out
}
