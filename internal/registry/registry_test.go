package registry

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLookupClose(t *testing.T) {
	g := New(clockwork.NewFakeClock())

	room, err := g.Open("room-1", "glitchless", false)
	require.NoError(t, err)
	require.NotNil(t, room.Race)
	require.NotNil(t, room.Roster)

	_, err = g.Open("room-1", "other", false)
	assert.ErrorIs(t, err, ErrDuplicateRoom)

	got, err := g.Lookup("room-1")
	require.NoError(t, err)
	assert.Same(t, room, got)

	g.Close("room-1")
	_, err = g.Lookup("room-1")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// Closing an already-closed room is a no-op.
	g.Close("room-1")
}

func TestListInsertionOrder(t *testing.T) {
	g := New(clockwork.NewFakeClock())
	_, err := g.Open("room-2", "any%", false)
	require.NoError(t, err)
	_, err = g.Open("room-1", "glitchless", false)
	require.NoError(t, err)
	_, err = g.Open("room-3", "100%", true)
	require.NoError(t, err)
	g.Close("room-1")

	infos := g.List()
	require.Len(t, infos, 2)
	assert.Equal(t, RoomInfo{ID: "room-2", Name: "any%"}, infos[0])
	assert.Equal(t, RoomInfo{ID: "room-3", Name: "100%"}, infos[1])
}
