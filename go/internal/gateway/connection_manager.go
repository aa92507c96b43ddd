package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the websocket connections and knows which one
// currently speaks for each player.
type ConnectionManager struct {
	mu      sync.RWMutex
	conns   map[string]*Connection
	players map[string]*Connection

	upgrader websocket.Upgrader
	config   ConnectionConfig

	onMessage func(c *Connection, msg ClientMessage)
	onClose   func(c *Connection)
}

// Connection is one websocket client, identified by its transport handle.
type Connection struct {
	Handle  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	mu       sync.Mutex
	playerID string
	closed   bool
}

// PlayerID is the player the connection authenticated as, if any.
func (c *Connection) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. Handlers are attached
// by the gateway before connections are accepted.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns:   make(map[string]*Connection),
		players: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:    config,
		onMessage: func(*Connection, ClientMessage) {},
		onClose:   func(*Connection) {},
	}
}

// UpgradeConnection upgrades an HTTP request and starts the connection's
// read and write pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		Handle:      uuid.NewString(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[c.Handle] = c
	total := len(cm.conns)
	cm.mu.Unlock()

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("handle", c.Handle).
		Int("total_connections", total).
		Msg("websocket connection established")
	return nil
}

// Bind makes c the connection that speaks for playerID. A previous
// connection of the same player stays open but no longer receives the
// player's messages.
func (cm *ConnectionManager) Bind(c *Connection, playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c.mu.Lock()
	prev := c.playerID
	c.playerID = playerID
	c.mu.Unlock()

	if prev != "" && prev != playerID && cm.players[prev] == c {
		delete(cm.players, prev)
	}
	cm.players[playerID] = c
}

// HandleFor returns the handle of the player's current connection.
func (cm *ConnectionManager) HandleFor(playerID string) (string, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.players[playerID]
	if !ok {
		return "", false
	}
	return c.Handle, true
}

// unregister forgets c. It reports false when c was already gone.
func (cm *ConnectionManager) unregister(c *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.conns[c.Handle]; !ok {
		return false
	}
	delete(cm.conns, c.Handle)
	if pid := c.PlayerID(); pid != "" && cm.players[pid] == c {
		delete(cm.players, pid)
	}

	c.mu.Lock()
	c.closed = true
	close(c.Send)
	c.mu.Unlock()
	return true
}

// SendToPlayer queues a message for the player's current connection. Players
// without a connection are skipped.
func (cm *ConnectionManager) SendToPlayer(playerID string, typ MessageType, data interface{}) {
	cm.mu.RLock()
	c, ok := cm.players[playerID]
	cm.mu.RUnlock()
	if !ok {
		log.Debug().Str("player_id", playerID).Str("type", string(typ)).Msg("no connection for player, dropping message")
		return
	}
	c.send(typ, data)
}

// send queues a message. A connection whose buffer is full is closed.
func (c *Connection) send(typ MessageType, data interface{}) {
	payload, err := json.Marshal(ServerMessage{Type: typ, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("failed to marshal message")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.Send <- payload:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		log.Warn().
			Str("handle", c.Handle).
			Str("player_id", c.PlayerID()).
			Msg("connection send buffer full, closing connection")
		_ = c.Conn.Close()
	}
}

func (c *Connection) sendError(message string) {
	c.send(TypeError, NoticeData{Message: message})
}

// Stats returns connection counts.
func (cm *ConnectionManager) Stats() (connections, players int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns), len(cm.players)
}

// CloseAll closes every connection. Their read pumps then run the close
// handler.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		_ = c.Conn.Close()
	}
}

// writePump handles sending messages to the websocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("handle", c.Handle).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("handle", c.Handle).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the websocket connection. It runs
// the close handler once the connection ends.
func (c *Connection) readPump() {
	defer func() {
		_ = c.Conn.Close()
		if c.Manager.unregister(c) {
			log.Info().
				Str("handle", c.Handle).
				Str("player_id", c.PlayerID()).
				Msg("websocket connection closed")
			c.Manager.onClose(c)
		}
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("handle", c.Handle).Msg("unexpected websocket close")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.sendError("malformed message")
			continue
		}
		c.Manager.onMessage(c, msg)
	}
}
