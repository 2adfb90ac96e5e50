package game

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*SessionRegistry, *sinkRecorder) {
	sr := newSinkRecorder()
	reg := NewSessionRegistry(clockwork.NewFakeClock(), func(string) (BroadcastSink, DirectSink) {
		return sr, sr
	})
	return reg, sr
}

func TestCreateAndResolve(t *testing.T) {
	reg, _ := newTestRegistry()
	owner := uuid.New()

	s := reg.Create("ana", owner)
	require.NotNil(t, s)
	assert.Regexp(t, regexp.MustCompile("^[A-Z0-9]{6}$"), s.ID)
	assert.Equal(t, owner, s.OwnerConnID)
	assert.Equal(t, 1, s.PlayerCount())
	assert.Equal(t, owner, s.CurrentTurn(), "owner holds the first turn")

	got, found := reg.Get(s.ID)
	require.True(t, found)
	assert.Same(t, s, got)

	_, found = reg.Get("NOPE99")
	assert.False(t, found)
}

func TestSessionIDsAreUnique(t *testing.T) {
	reg, _ := newTestRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := reg.Create("ana", uuid.New())
		assert.False(t, seen[s.ID], "duplicate session id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestDestroyForgetsSession(t *testing.T) {
	reg, _ := newTestRegistry()
	s := reg.Create("ana", uuid.New())

	reg.Destroy(s.ID)
	_, found := reg.Get(s.ID)
	assert.False(t, found)
	assert.Equal(t, 0, reg.Count())

	reg.Destroy(s.ID) // idempotent
}

func TestDisconnectDestroysEmptySession(t *testing.T) {
	reg, _ := newTestRegistry()
	owner := uuid.New()
	s := reg.Create("ana", owner)

	affected := reg.HandleDisconnect(owner)
	assert.Empty(t, affected, "destroyed sessions are not reported as surviving")
	_, found := reg.Get(s.ID)
	assert.False(t, found, "empty session no longer resolves")
}

func TestDisconnectReportsSurvivingSessions(t *testing.T) {
	reg, _ := newTestRegistry()
	owner := uuid.New()
	joiner := uuid.New()

	s := reg.Create("ana", owner)
	require.True(t, s.AddPlayer("bea", joiner).OK)

	affected := reg.HandleDisconnect(joiner)
	require.Len(t, affected, 1)
	assert.Same(t, s, affected[0])
	assert.Equal(t, 1, s.PlayerCount())

	_, found := reg.Get(s.ID)
	assert.True(t, found)
}

func TestDisconnectSpansSessions(t *testing.T) {
	reg, _ := newTestRegistry()
	owner := uuid.New()
	drifter := uuid.New()

	s1 := reg.Create("ana", owner)
	s2 := reg.Create("bea", drifter)
	require.True(t, s1.AddPlayer("bea", drifter).OK)

	reg.HandleDisconnect(drifter)

	assert.Equal(t, 1, s1.PlayerCount(), "removed from the session it joined")
	_, found := reg.Get(s2.ID)
	assert.False(t, found, "its own emptied session is destroyed")
}

func TestRegistryTurnTimeoutAppliesToNewSessions(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.TurnTimeout = DefaultTurnTimeout / 2

	s := reg.Create("ana", uuid.New())
	assert.Equal(t, DefaultTurnTimeout/2, s.TurnTimeout)
}
