package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/trivia/internal/models"
)

// ConnectionManager manages live websocket connections, indexed by the
// resolved display identity so user-addressed pushes find every connection
// the user holds.
type ConnectionManager struct {
	mu     sync.RWMutex
	conns  map[*Connection]bool
	byUser map[string]map[*Connection]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcastMessage
}

// Connection represents one websocket connection to a client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	identityMu sync.RWMutex
	identity   models.Identity

	ConnectedAt time.Time
	LastPing    time.Time
}

// Identity returns the connection's current identity. A control frame may
// upgrade it after the handshake.
func (c *Connection) Identity() models.Identity {
	c.identityMu.RLock()
	defer c.identityMu.RUnlock()
	return c.identity
}

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

type broadcastMessage struct {
	user     string // empty: send to every connection
	envelope []byte
}

// NewConnectionManager creates a new websocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns:  make(map[*Connection]bool),
		byUser: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to a websocket bound to the
// given identity and starts its pumps. The controlFrame hook runs on each
// inbound client frame.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, identity models.Identity, onFrame func(*Connection, []byte)) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		identity:    identity,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump(onFrame)

	log.Info().
		Str("connection_id", connection.ID).
		Str("user", identity.Name).
		Bool("authenticated", identity.Authenticated).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.conns[conn] = true
	user := conn.Identity().Name
	if cm.byUser[user] == nil {
		cm.byUser[user] = make(map[*Connection]bool)
	}
	cm.byUser[user][conn] = true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.conns[conn] {
		return
	}
	delete(cm.conns, conn)
	close(conn.Send)

	user := conn.Identity().Name
	if set, ok := cm.byUser[user]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(cm.byUser, user)
		}
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user", user).
		Msg("websocket connection unregistered")
}

// Rebind moves a connection to a new identity. Used by the control-frame
// interceptor when a credential arrives after the handshake.
func (cm *ConnectionManager) Rebind(conn *Connection, identity models.Identity) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	old := conn.Identity().Name
	if set, ok := cm.byUser[old]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(cm.byUser, old)
		}
	}

	conn.identityMu.Lock()
	conn.identity = identity
	conn.identityMu.Unlock()

	if cm.byUser[identity.Name] == nil {
		cm.byUser[identity.Name] = make(map[*Connection]bool)
	}
	cm.byUser[identity.Name][conn] = true

	log.Info().
		Str("connection_id", conn.ID).
		Str("user", identity.Name).
		Msg("connection identity rebound")
}

// SendToUser queues an envelope for every connection held by the user.
func (cm *ConnectionManager) SendToUser(user string, envelope []byte) {
	select {
	case cm.broadcastCh <- broadcastMessage{user: user, envelope: envelope}:
	default:
		log.Warn().Str("user", user).Msg("broadcast channel full, dropping message")
	}
}

// Broadcast queues an envelope for every live connection.
func (cm *ConnectionManager) Broadcast(envelope []byte) {
	select {
	case cm.broadcastCh <- broadcastMessage{envelope: envelope}:
	default:
		log.Warn().Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if message.user != "" {
		for conn := range cm.byUser[message.user] {
			targets = append(targets, conn)
		}
	} else {
		for conn := range cm.conns {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.envelope:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// Stats returns counts of live connections and distinct users.
func (cm *ConnectionManager) Stats() (connections, users int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns), len(cm.byUser)
}

// writePump handles sending messages to the websocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the websocket connection.
func (c *Connection) readPump(onFrame func(*Connection, []byte)) {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		if onFrame != nil {
			onFrame(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
