package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nmoreno/gringo/internal/game"
	"github.com/nmoreno/gringo/internal/models"
)

// ClientMessage is the inbound WebSocket frame. Type selects the operation;
// the remaining fields are that operation's parameters.
type ClientMessage struct {
	Type       string       `json:"type"`
	SessionID  string       `json:"sessionId,omitempty"`
	PlayerName string       `json:"playerName,omitempty"`
	Card       *models.Card `json:"card,omitempty"`
}

// WSHandler upgrades the HTTP connection to WebSocket, mints the connection
// id that identifies this client in every session, and runs the message
// loop until the client goes away.
func WSHandler(logger *logrus.Logger, srv *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		connID := uuid.New()
		srv.Register(connID, c)
		logger.Infof("Client %s connected from %s", connID, r.RemoteAddr)

		readMessages(r.Context(), c, srv, connID, logger)

		srv.disconnect(connID)
		logger.Infof("Client %s cleanup complete", connID)
	}
}

// readMessages reads frames off one client connection and routes them until
// the connection errors, closes or its context is cancelled.
func readMessages(ctx context.Context, c *websocket.Conn, srv *GameServer, connID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for client %s", connID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for client %s", connID)
			} else {
				logger.Warnf("Error reading from WebSocket for client %s: %v", connID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			logger.Warnf("Ignoring non-text message from client %s", connID)
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from client %s: %v", connID, err)
			continue
		}
		logger.Debugf("Received %q from client %s", msg.Type, connID)
		srv.route(connID, msg)
	}
}

// route dispatches one inbound message to the session core and relays the
// outcome per the wire contract. Failures of turn-gated actions are silent;
// only join rejections earn an error event.
func (s *GameServer) route(connID uuid.UUID, msg ClientMessage) {
	switch msg.Type {
	case "createSession":
		sess := s.Registry.Create(msg.PlayerName, connID)
		s.JoinRoom(sess.ID, connID)
		s.sendToConn(connID, game.Event{Type: game.EventSessionCreated, SessionID: sess.ID})

	case "joinSession":
		s.handleJoin(connID, msg)

	case "setReady", "setUnready":
		s.handleReady(connID, msg)

	case "startSession":
		s.handleStart(connID, msg)

	case "drawFromDeck", "exchangeCard", "playCard", "callGringo":
		s.handleTurnAction(connID, msg)

	default:
		s.logger.Warnf("Unknown message type %q from client %s", msg.Type, connID)
	}
}

func (s *GameServer) handleJoin(connID uuid.UUID, msg ClientMessage) {
	sess, found := s.Registry.Get(msg.SessionID)
	if !found {
		s.sendToConn(connID, game.Event{
			Type:    game.EventError,
			Message: game.Result{Reason: game.ReasonSessionNotFound}.Message(),
		})
		return
	}
	res := sess.AddPlayer(msg.PlayerName, connID)
	if !res.OK {
		s.sendToConn(connID, game.Event{Type: game.EventError, Message: res.Message()})
		return
	}
	s.JoinRoom(sess.ID, connID)
	s.broadcastToRoom(sess.ID, game.Event{Type: game.EventPlayerJoined, Snapshot: sess.PublicSnapshot()})
}

func (s *GameServer) handleReady(connID uuid.UUID, msg ClientMessage) {
	sess, found := s.Registry.Get(msg.SessionID)
	if !found {
		return
	}
	var res game.Result
	if msg.Type == "setReady" {
		res = sess.SetReady(connID)
	} else {
		res = sess.SetUnready(connID)
	}
	if !res.OK {
		return
	}
	s.broadcastToRoom(sess.ID, game.Event{Type: game.EventReadyStateChanged, Snapshot: sess.PublicSnapshot()})

	// The session reports the aggregate; the decision to auto-start is ours.
	if msg.Type == "setReady" && sess.AllPlayersReady() && sess.PlayerCount() >= 2 {
		sess.Start()
	}
}

func (s *GameServer) handleStart(connID uuid.UUID, msg ClientMessage) {
	sess, found := s.Registry.Get(msg.SessionID)
	if !found {
		return
	}
	if sess.OwnerConnID != connID {
		s.logger.Warnf("Non-owner %s attempted to start session %s", connID, sess.ID)
		return
	}
	sess.Start()
}

func (s *GameServer) handleTurnAction(connID uuid.UUID, msg ClientMessage) {
	sess, found := s.Registry.Get(msg.SessionID)
	if !found {
		return
	}
	var res game.Result
	switch msg.Type {
	case "drawFromDeck":
		_, res = sess.DrawFromDeck(connID)
	case "exchangeCard":
		if msg.Card == nil {
			return
		}
		res = sess.ExchangeCard(connID, msg.Card.ID)
	case "playCard":
		if msg.Card == nil {
			return
		}
		res = sess.PlayCard(connID, msg.Card.ID)
	case "callGringo":
		res = sess.CallGringo(connID)
	}
	if res.OK {
		s.broadcastToRoom(sess.ID, game.Event{Type: game.EventSessionUpdated, Snapshot: sess.PublicSnapshot()})
	}
}

// disconnect tears down everything tied to a connection: session seats,
// room memberships and the connection entry itself.
func (s *GameServer) disconnect(connID uuid.UUID) {
	affected := s.Registry.HandleDisconnect(connID)
	s.Unregister(connID)
	for _, sess := range affected {
		s.broadcastToRoom(sess.ID, game.Event{Type: game.EventSessionUpdated, Snapshot: sess.PublicSnapshot()})
	}
}
