// Package gateway streams race events to spectators over WebSocket.
// Clients subscribe to a room and receive every event envelope published
// for it.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/events"
)

// Manager fans race events out to the WebSocket connections watching
// each room.
type Manager struct {
	roomConns map[string]map[*Connection]bool
	mu        sync.RWMutex

	upgrader websocket.Upgrader
	config   Config

	broadcastCh chan broadcast
}

// Connection is one spectator socket, pinned to a single room.
type Connection struct {
	ID     string
	RoomID string

	conn    *websocket.Conn
	send    chan []byte
	manager *Manager

	sendMu sync.Mutex
	closed bool
}

// Config holds the socket timeouts and buffer sizes.
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
}

type broadcast struct {
	roomID   string
	envelope *events.Envelope
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 512,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewManager(config Config) *Manager {
	return &Manager{
		roomConns: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcast, 256),
	}
}

// Run processes broadcasts until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	log.Info().Msg("gateway manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway manager shutting down")
			return
		case b := <-m.broadcastCh:
			m.handleBroadcast(b)
		}
	}
}

// ServeHTTP upgrades a spectator request. The room id comes from the
// "room" query parameter.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, "missing room parameter", http.StatusBadRequest)
		return
	}
	if err := m.upgrade(w, r, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to upgrade spectator connection")
	}
}

func (m *Manager) upgrade(w http.ResponseWriter, r *http.Request, roomID string) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	c := &Connection{
		ID:      uuid.New().String(),
		RoomID:  roomID,
		conn:    conn,
		send:    make(chan []byte, 64),
		manager: m,
	}
	m.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("room_id", roomID).
		Msg("spectator connected")
	return nil
}

// Broadcast queues an event envelope for every spectator of its room.
func (m *Manager) Broadcast(env *events.Envelope) {
	select {
	case m.broadcastCh <- broadcast{roomID: env.RoomID, envelope: env}:
	default:
		log.Warn().Str("room_id", env.RoomID).Msg("broadcast channel full, dropping event")
	}
}

func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomConns[c.RoomID] == nil {
		m.roomConns[c.RoomID] = make(map[*Connection]bool)
	}
	m.roomConns[c.RoomID][c] = true
}

func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.roomConns[c.RoomID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	c.sendMu.Lock()
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()
	if len(conns) == 0 {
		delete(m.roomConns, c.RoomID)
	}
	log.Info().
		Str("connection_id", c.ID).
		Str("room_id", c.RoomID).
		Msg("spectator disconnected")
}

func (m *Manager) handleBroadcast(b broadcast) {
	m.mu.RLock()
	conns, ok := m.roomConns[b.roomID]
	if !ok {
		m.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(conns))
	for c := range conns {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	data, err := json.Marshal(b.envelope)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, c := range targets {
		if !c.trySend(data) {
			log.Warn().Str("connection_id", c.ID).Msg("send buffer full, closing connection")
			m.unregister(c)
			c.conn.Close()
		}
	}
}

// trySend queues data for the connection without blocking. A connection
// unregistered after the broadcast snapshot was taken has a closed send
// channel; sending to it is a no-op. Returns false only when the buffer
// is full on a live connection.
func (c *Connection) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the socket so control frames are processed. Spectators
// have nothing to say; any payload is discarded.
func (c *Connection) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
