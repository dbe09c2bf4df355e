package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racebothq/racebot/internal/events"
)

func TestBroadcastReachesRoomSpectators(t *testing.T) {
	m := NewManager(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	srv := httptest.NewServer(m)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?room=room-1", nil)
	require.NoError(t, err)
	defer conn.Close()

	other, _, err := websocket.DefaultDialer.Dial(wsURL+"?room=room-2", nil)
	require.NoError(t, err)
	defer other.Close()

	env := &events.Envelope{
		EventID:   "evt-1",
		EventType: events.TypeRunnerJoined,
		RoomID:    "room-1",
		Timestamp: time.Now(),
	}
	// Registration races the broadcast; retry until the spectator is
	// wired in.
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.roomConns["room-1"]) == 1 && len(m.roomConns["room-2"]) == 1
	}, 5*time.Second, time.Millisecond)
	m.Broadcast(env)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got events.Envelope
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, events.TypeRunnerJoined, got.EventType)

	// The other room's spectator sees nothing.
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestSendAfterUnregisterIsSafe(t *testing.T) {
	m := NewManager(DefaultConfig())
	c := &Connection{
		ID:      "conn-1",
		RoomID:  "room-1",
		send:    make(chan []byte, 1),
		manager: m,
	}
	m.register(c)

	// A broadcast may snapshot the room's connections just before one of
	// them disconnects. Queueing to the unregistered connection must be
	// a no-op rather than a send on a closed channel.
	m.unregister(c)
	assert.NotPanics(t, func() {
		assert.True(t, c.trySend([]byte(`{}`)))
	})

	// A live connection with a full buffer reports the overflow.
	live := &Connection{
		ID:      "conn-2",
		RoomID:  "room-1",
		send:    make(chan []byte, 1),
		manager: m,
	}
	m.register(live)
	require.True(t, live.trySend([]byte(`{}`)))
	assert.False(t, live.trySend([]byte(`{}`)))
}

func TestMissingRoomParameter(t *testing.T) {
	m := NewManager(DefaultConfig())
	srv := httptest.NewServer(m)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
