package game

import (
	"github.com/google/uuid"

	"github.com/nmoreno/gringo/internal/models"
)

// EventType tags outbound messages. The names are part of the existing wire
// contract and must not change.
type EventType string

const (
	EventSessionCreated    EventType = "sessionCreated"
	EventPlayerJoined      EventType = "playerJoined"
	EventReadyStateChanged EventType = "readyStateChanged"
	EventSessionStarted    EventType = "sessionStarted"
	EventYourHand          EventType = "yourHand"
	EventSessionUpdated    EventType = "sessionUpdated"
	EventCardDrawn         EventType = "cardDrawn"
	EventYourTurn          EventType = "yourTurn"
	EventTurnChanged       EventType = "turnChanged"
	EventTurnTimeout       EventType = "turnTimeout"
	EventTimerTick         EventType = "timerTick"
	EventError             EventType = "error"
)

// Event is the single outbound message envelope. Exactly one payload field
// is populated per event type; the rest are omitted from the JSON.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`

	Snapshot *Snapshot      `json:"snapshot,omitempty"`
	Hand     *HandNotice    `json:"hand,omitempty"`
	Card     *models.Card   `json:"card,omitempty"`
	Turn     *TurnNotice    `json:"turn,omitempty"`
	Change   *TurnChange    `json:"turnChange,omitempty"`
	Timeout  *TimeoutNotice `json:"timeout,omitempty"`

	SecondsRemaining *int   `json:"secondsRemaining,omitempty"`
	Message          string `json:"message,omitempty"`
}

// HandNotice carries a player's own hand, delivered privately.
type HandNotice struct {
	Hand      []*models.Card `json:"hand"`
	SessionID string         `json:"sessionId"`
}

// TurnNotice tells the new turn holder their time budget.
type TurnNotice struct {
	Message     string `json:"message"`
	TimeLimitMs int64  `json:"timeLimitMs"`
}

// TurnChange announces a rotation to the whole room.
type TurnChange struct {
	NewPlayerID   uuid.UUID `json:"newPlayerId"`
	NewPlayerName string    `json:"newPlayerName"`
}

// TimeoutNotice announces an expired turn and whether the forced fallback
// action drew a card.
type TimeoutNotice struct {
	PlayerID    uuid.UUID `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	ActionTaken bool      `json:"actionTaken"`
	Action      string    `json:"action"`
}

// PlayerSummary is the per-player slice of the public snapshot. Hand
// contents never appear here, only the count.
type PlayerSummary struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	HandSize int    `json:"cardsCount"`
	Ready    bool   `json:"ready"`
}

// Snapshot is the point-in-time public view of a session, safe to broadcast
// to every participant.
type Snapshot struct {
	ID              string          `json:"id"`
	State           State           `json:"state"`
	Players         []PlayerSummary `json:"players"`
	CurrentTurn     uuid.UUID       `json:"currentTurn"`
	Started         bool            `json:"started"`
	LastCard        *models.Card    `json:"lastCard"`
	TurnRemainingMs int64           `json:"turnRemainingMs,omitempty"`
}

// BroadcastSink publishes an event to every participant of one session.
type BroadcastSink interface {
	Broadcast(ev Event)
}

// DirectSink publishes an event to a single participant.
type DirectSink interface {
	Direct(connID uuid.UUID, ev Event)
}

// SinkFactory builds the sink pair for a newly created session. Both sinks
// are mandatory collaborators; sessions never check them for nil.
type SinkFactory func(sessionID string) (BroadcastSink, DirectSink)
