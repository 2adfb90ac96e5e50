package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/nmoreno/gringo/internal/models"
)

// State tags the session's turn-machine phase.
type State string

const (
	StateNormal State = "normal"
	// StatePutCard is declared by the legacy wire contract but no transition
	// enters it. Kept for client compatibility.
	StatePutCard State = "putCard"
	StateGringo  State = "gringo"
)

// DefaultTurnTimeout is the per-turn budget before the forced fallback
// action fires on the holder's behalf.
const DefaultTurnTimeout = 30 * time.Second

// MaxPlayers caps the roster.
const MaxPlayers = 4

const dealSize = 4

// Clock abstracts time for the turn machinery.
// In production, use clockwork.NewRealClock(). In tests, a fake clock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
	NewTicker(d time.Duration) clockwork.Ticker
}

// GameSession owns one match: roster, deck, turn pointer, last played card
// and the single pending turn timer. A mutex serializes every mutation, so
// operations on one session never interleave; distinct sessions are fully
// independent.
type GameSession struct {
	ID          string
	OwnerConnID uuid.UUID

	// TurnTimeout may be adjusted before Start; after that the value is fixed
	// for the life of the session.
	TurnTimeout time.Duration

	mu       sync.Mutex
	players  []*models.Player
	deck     *Deck
	lastCard *models.Card
	started  bool
	state    State
	closed   bool

	currentTurn uuid.UUID

	clock        Clock
	turnSeq      int // bumped on every timer arm; stale callbacks check it
	timerStop    chan struct{}
	turnDeadline time.Time
	tickerStop   chan struct{}

	broadcast BroadcastSink
	direct    DirectSink
}

// NewGameSession creates an unstarted session seating only the owner, who
// also holds the first turn. The sinks are mandatory collaborators.
func NewGameSession(id, ownerName string, ownerConnID uuid.UUID, clock Clock, broadcast BroadcastSink, direct DirectSink) *GameSession {
	r := rand.New(rand.NewSource(clock.Now().UnixNano()))
	return &GameSession{
		ID:          id,
		OwnerConnID: ownerConnID,
		TurnTimeout: DefaultTurnTimeout,
		players: []*models.Player{
			{Name: ownerName, ConnID: ownerConnID, Hand: []*models.Card{}},
		},
		deck:        NewDeck(r),
		state:       StateNormal,
		currentTurn: ownerConnID,
		clock:       clock,
		broadcast:   broadcast,
		direct:      direct,
	}
}

// findPlayer returns the seat for a connection id. Assumes the lock is held.
func (g *GameSession) findPlayer(connID uuid.UUID) *models.Player {
	for _, p := range g.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// AddPlayer seats a new player. Lobby-only: joins are refused once the
// session has started, at the roster cap, or when the connection id or the
// display name is already seated.
func (g *GameSession) AddPlayer(name string, connID uuid.UUID) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return fail(ReasonAlreadyStarted)
	}
	if len(g.players) >= MaxPlayers {
		return fail(ReasonRosterFull)
	}
	for _, p := range g.players {
		if p.ConnID == connID || p.Name == name {
			return fail(ReasonDuplicateJoin)
		}
	}
	g.players = append(g.players, &models.Player{Name: name, ConnID: connID, Hand: []*models.Card{}})
	return ok()
}

// SetReady flags a seated player as ready. Lobby-only.
func (g *GameSession) SetReady(connID uuid.UUID) Result {
	return g.setReady(connID, true)
}

// SetUnready clears a seated player's ready flag. Lobby-only.
func (g *GameSession) SetUnready(connID uuid.UUID) Result {
	return g.setReady(connID, false)
}

func (g *GameSession) setReady(connID uuid.UUID, ready bool) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return fail(ReasonAlreadyStarted)
	}
	p := g.findPlayer(connID)
	if p == nil {
		return fail(ReasonUnknownPlayer)
	}
	p.Ready = ready
	return ok()
}

// AllPlayersReady reports whether every seated player has flagged ready.
// The decision to auto-start on that aggregate belongs to the caller.
func (g *GameSession) AllPlayersReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.players) == 0 {
		return false
	}
	for _, p := range g.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// PlayerCount returns the current roster size.
func (g *GameSession) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// Start deals four cards to each player in roster order, marks the session
// started and arms the first turn timer. One-way; a second call is refused.
func (g *GameSession) Start() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return fail(ReasonAlreadyStarted)
	}
	g.started = true
	for _, p := range g.players {
		p.Hand = make([]*models.Card, 0, dealSize)
		for i := 0; i < dealSize; i++ {
			c, drew := g.deck.DrawTop()
			if !drew {
				break
			}
			p.Hand = append(p.Hand, c)
		}
	}
	log.Printf("session %s started with %d players, %d cards left in deck", g.ID, len(g.players), g.deck.Size())
	g.armTurnTimer()
	g.startTicker()
	g.broadcast.Broadcast(Event{Type: EventSessionStarted, Snapshot: g.snapshotLocked()})
	for _, p := range g.players {
		g.direct.Direct(p.ConnID, Event{
			Type: EventYourHand,
			Hand: &HandNotice{Hand: p.Hand, SessionID: g.ID},
		})
	}
	return ok()
}

// turnGate validates a turn-consuming action. Assumes the lock is held.
func (g *GameSession) turnGate(connID uuid.UUID) (*models.Player, Result) {
	if !g.started {
		return nil, fail(ReasonNotStarted)
	}
	p := g.findPlayer(connID)
	if p == nil {
		return nil, fail(ReasonUnknownPlayer)
	}
	if connID != g.currentTurn {
		return nil, fail(ReasonNotYourTurn)
	}
	return p, ok()
}

// DrawFromDeck moves the deck's top card into the caller's hand and advances
// the turn. The card's identity goes back to the caller only.
func (g *GameSession) DrawFromDeck(connID uuid.UUID) (*models.Card, Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, res := g.turnGate(connID)
	if !res.OK {
		return nil, res
	}
	c, drew := g.deck.DrawTop()
	if !drew {
		return nil, fail(ReasonEmptyDeck)
	}
	p.Hand = append(p.Hand, c)
	g.direct.Direct(connID, Event{Type: EventCardDrawn, SessionID: g.ID, Card: c})
	g.nextTurn()
	return c, ok()
}

// handIndex locates a card in a hand by identity.
func handIndex(p *models.Player, cardID int) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// ExchangeCard replaces the named hand card in place with the deck's top
// card; the replaced card becomes the session's last card and the turn
// advances. The replacement's identity goes back to the caller only.
func (g *GameSession) ExchangeCard(connID uuid.UUID, cardID int) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, res := g.turnGate(connID)
	if !res.OK {
		return res
	}
	idx := handIndex(p, cardID)
	if idx < 0 {
		return fail(ReasonUnknownCard)
	}
	top, drew := g.deck.DrawTop()
	if !drew {
		return fail(ReasonEmptyDeck)
	}
	g.lastCard = p.Hand[idx]
	p.Hand[idx] = top
	g.direct.Direct(connID, Event{Type: EventCardDrawn, SessionID: g.ID, Card: top})
	g.nextTurn()
	return ok()
}

// PlayCard removes the named card from the caller's hand, makes it the
// session's last card and advances the turn. No replacement is drawn.
func (g *GameSession) PlayCard(connID uuid.UUID, cardID int) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, res := g.turnGate(connID)
	if !res.OK {
		return res
	}
	idx := handIndex(p, cardID)
	if idx < 0 {
		return fail(ReasonUnknownCard)
	}
	g.lastCard = p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	g.nextTurn()
	return ok()
}

// CallGringo declares end-of-round. The state tag sticks until round
// resolution outside this core; later turn advances never reset it.
func (g *GameSession) CallGringo(connID uuid.UUID) Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, res := g.turnGate(connID)
	if !res.OK {
		return res
	}
	g.state = StateGringo
	log.Printf("session %s: gringo called by %s", g.ID, connID)
	g.nextTurn()
	return ok()
}

// RemovePlayer drops a player in any phase. If they held the turn, the
// rotation advances to a remaining player. An emptied roster is the
// registry's cue to destroy the session.
func (g *GameSession) RemovePlayer(connID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.players[:0]
	removed := false
	for _, p := range g.players {
		if p.ConnID == connID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return false
	}
	g.players = kept
	if connID == g.currentTurn {
		if len(g.players) == 0 {
			g.cancelTurnTimer()
		} else {
			g.nextTurn()
		}
	}
	return true
}

// nextTurn rotates to the next seat, resets a non-gringo state tag to
// normal, notifies the new holder privately and the room generally, then
// re-arms the turn timer. Assumes the lock is held and the roster is
// non-empty.
func (g *GameSession) nextTurn() {
	g.cancelTurnTimer()
	idx := -1
	for i, p := range g.players {
		if p.ConnID == g.currentTurn {
			idx = i
			break
		}
	}
	// A removed turn holder is not found; (-1+1) lands on the first seat.
	next := g.players[(idx+1)%len(g.players)]
	g.currentTurn = next.ConnID
	if g.state != StateGringo {
		g.state = StateNormal
	}
	g.direct.Direct(next.ConnID, Event{
		Type: EventYourTurn,
		Turn: &TurnNotice{Message: "it's your turn", TimeLimitMs: g.TurnTimeout.Milliseconds()},
	})
	g.broadcast.Broadcast(Event{
		Type:   EventTurnChanged,
		Change: &TurnChange{NewPlayerID: next.ConnID, NewPlayerName: next.Name},
	})
	g.armTurnTimer()
}

// armTurnTimer replaces any pending timer with a fresh one for the current
// holder. The watcher goroutine re-validates the turn sequence under the
// lock before acting, so a callback armed for an older turn can never fire
// into a newer one. Assumes the lock is held.
func (g *GameSession) armTurnTimer() {
	g.cancelTurnTimer()
	if g.closed || !g.started || len(g.players) == 0 {
		return
	}
	g.turnSeq++
	seq := g.turnSeq
	holder := g.currentTurn
	g.turnDeadline = g.clock.Now().Add(g.TurnTimeout)
	timer := g.clock.NewTimer(g.TurnTimeout)
	stop := make(chan struct{})
	g.timerStop = stop
	go func() {
		select {
		case <-timer.Chan():
			g.onTurnTimeout(holder, seq)
		case <-stop:
			timer.Stop()
		}
	}()
}

// cancelTurnTimer stops the pending timer, if any. Safe to call redundantly.
// Assumes the lock is held.
func (g *GameSession) cancelTurnTimer() {
	if g.timerStop != nil {
		close(g.timerStop)
		g.timerStop = nil
	}
	g.turnDeadline = time.Time{}
}

// onTurnTimeout performs the forced fallback action for an expired turn:
// draw a card if the deck allows it, announce the timeout, then rotate.
func (g *GameSession) onTurnTimeout(holder uuid.UUID, seq int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || seq != g.turnSeq || g.currentTurn != holder {
		log.Printf("session %s: stale turn timer for %s ignored", g.ID, holder)
		return
	}
	p := g.findPlayer(holder)
	if p == nil {
		return
	}
	actionTaken := false
	if c, drew := g.deck.DrawTop(); drew {
		p.Hand = append(p.Hand, c)
		g.direct.Direct(holder, Event{Type: EventCardDrawn, SessionID: g.ID, Card: c})
		actionTaken = true
	}
	action := "noAction"
	if actionTaken {
		action = "drewCard"
	}
	log.Printf("session %s: turn timeout for %s (%s)", g.ID, p.Name, action)
	g.broadcast.Broadcast(Event{
		Type: EventTurnTimeout,
		Timeout: &TimeoutNotice{
			PlayerID:    holder,
			PlayerName:  p.Name,
			ActionTaken: actionTaken,
			Action:      action,
		},
	})
	g.nextTurn()
}

// startTicker launches the best-effort once-a-second countdown broadcast.
// It is a display aid only; the turn timer is the authority. Assumes the
// lock is held.
func (g *GameSession) startTicker() {
	if g.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	g.tickerStop = stop
	ticker := g.clock.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				g.broadcastTick()
			case <-stop:
				return
			}
		}
	}()
}

func (g *GameSession) broadcastTick() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.turnDeadline.IsZero() {
		return
	}
	remaining := g.turnDeadline.Sub(g.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	secs := int(remaining / time.Second)
	g.broadcast.Broadcast(Event{Type: EventTimerTick, SessionID: g.ID, SecondsRemaining: &secs})
}

// Close cancels the pending timer and the tick heartbeat. Called by the
// registry when the session is destroyed.
func (g *GameSession) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cancelTurnTimer()
	if g.tickerStop != nil {
		close(g.tickerStop)
		g.tickerStop = nil
	}
}

// PublicSnapshot returns the all-players view. Hand contents and deck order
// never appear in it.
func (g *GameSession) PublicSnapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *GameSession) snapshotLocked() *Snapshot {
	players := make([]PlayerSummary, 0, len(g.players))
	for _, p := range g.players {
		players = append(players, PlayerSummary{
			Name:     p.Name,
			Score:    p.Score,
			HandSize: len(p.Hand),
			Ready:    p.Ready,
		})
	}
	snap := &Snapshot{
		ID:          g.ID,
		State:       g.state,
		Players:     players,
		CurrentTurn: g.currentTurn,
		Started:     g.started,
		LastCard:    g.lastCard,
	}
	if !g.turnDeadline.IsZero() {
		remaining := g.turnDeadline.Sub(g.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
		snap.TurnRemainingMs = remaining.Milliseconds()
	}
	return snap
}

// HandFor returns a copy of one player's hand, for private relay to that
// player only.
func (g *GameSession) HandFor(connID uuid.UUID) ([]*models.Card, Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.findPlayer(connID)
	if p == nil {
		return nil, fail(ReasonUnknownPlayer)
	}
	hand := make([]*models.Card, len(p.Hand))
	copy(hand, p.Hand)
	return hand, ok()
}

// IsEmpty reports an empty roster.
func (g *GameSession) IsEmpty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players) == 0
}

// Started reports whether Start has run.
func (g *GameSession) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// CurrentTurn returns the connection id of the turn holder.
func (g *GameSession) CurrentTurn() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTurn
}

// State returns the state tag.
func (g *GameSession) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// DeckSize returns the number of undrawn cards.
func (g *GameSession) DeckSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deck.Size()
}

// LastCard returns the most recently played or exchanged-out card.
func (g *GameSession) LastCard() *models.Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCard
}
