package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nmoreno/gringo/internal/game"
)

const writeTimeout = 3 * time.Second

// GameServer tracks live WebSocket connections and the room membership used
// to target broadcasts, and owns the session registry. It supplies the
// registry's sessions with their sinks.
type GameServer struct {
	Registry *game.SessionRegistry
	logger   *logrus.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*websocket.Conn
	rooms map[string]map[uuid.UUID]struct{}
}

// NewGameServer wires a registry to WebSocket-backed sinks.
func NewGameServer(logger *logrus.Logger, clock game.Clock) *GameServer {
	srv := &GameServer{
		logger: logger,
		conns:  make(map[uuid.UUID]*websocket.Conn),
		rooms:  make(map[string]map[uuid.UUID]struct{}),
	}
	srv.Registry = game.NewSessionRegistry(clock, srv.sinksFor)
	return srv
}

func (s *GameServer) sinksFor(sessionID string) (game.BroadcastSink, game.DirectSink) {
	return &roomSink{srv: s, sessionID: sessionID}, &connSink{srv: s}
}

// Register makes a connection addressable by its connection id.
func (s *GameServer) Register(connID uuid.UUID, c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = c
}

// Unregister drops a connection and its room memberships.
func (s *GameServer) Unregister(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
	for sessionID, members := range s.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(s.rooms, sessionID)
		}
	}
}

// JoinRoom subscribes a connection to a session's broadcasts.
func (s *GameServer) JoinRoom(sessionID string, connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, found := s.rooms[sessionID]
	if !found {
		members = make(map[uuid.UUID]struct{})
		s.rooms[sessionID] = members
	}
	members[connID] = struct{}{}
}

// broadcastToRoom marshals once and fans out to every room member. The
// writes happen on their own goroutines so callers holding a session lock
// are never blocked on a slow client.
func (s *GameServer) broadcastToRoom(sessionID string, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Errorf("failed to marshal %s event for session %s: %v", ev.Type, sessionID, err)
		return
	}
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.rooms[sessionID]))
	for connID := range s.rooms[sessionID] {
		if c, connected := s.conns[connID]; connected {
			conns = append(conns, c)
		}
	}
	s.mu.Unlock()
	for _, c := range conns {
		go s.write(c, data)
	}
}

// sendToConn marshals and sends one event to a single connection.
func (s *GameServer) sendToConn(connID uuid.UUID, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Errorf("failed to marshal %s event for conn %s: %v", ev.Type, connID, err)
		return
	}
	s.mu.Lock()
	c := s.conns[connID]
	s.mu.Unlock()
	if c == nil {
		return
	}
	go s.write(c, data)
}

// write pushes one frame with a bounded deadline. Failures are logged and
// left for the read loop to surface as a disconnect.
func (s *GameServer) write(c *websocket.Conn, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Warnf("websocket write failed: %v", err)
	}
}

// roomSink publishes to every connection subscribed to one session.
type roomSink struct {
	srv       *GameServer
	sessionID string
}

func (rs *roomSink) Broadcast(ev game.Event) {
	rs.srv.broadcastToRoom(rs.sessionID, ev)
}

// connSink publishes to a single connection.
type connSink struct {
	srv *GameServer
}

func (cs *connSink) Direct(connID uuid.UUID, ev game.Event) {
	cs.srv.sendToConn(connID, ev)
}
