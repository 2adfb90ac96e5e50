package game

// FailReason classifies why an operation was refused. Every refusal is a
// no-op on session state.
type FailReason string

const (
	ReasonSessionNotFound FailReason = "sessionNotFound"
	ReasonAlreadyStarted  FailReason = "alreadyStarted"
	ReasonNotStarted      FailReason = "notStarted"
	ReasonRosterFull      FailReason = "rosterFull"
	ReasonDuplicateJoin   FailReason = "duplicateJoin"
	ReasonUnknownPlayer   FailReason = "unknownPlayer"
	ReasonNotYourTurn     FailReason = "notYourTurn"
	ReasonUnknownCard     FailReason = "unknownCard"
	ReasonEmptyDeck       FailReason = "emptyDeck"
)

// Result reports the outcome of a session operation.
type Result struct {
	OK     bool
	Reason FailReason
}

func ok() Result               { return Result{OK: true} }
func fail(r FailReason) Result { return Result{Reason: r} }

var reasonMessages = map[FailReason]string{
	ReasonSessionNotFound: "session not found",
	ReasonAlreadyStarted:  "session already started",
	ReasonNotStarted:      "session has not started",
	ReasonRosterFull:      "session is full",
	ReasonDuplicateJoin:   "you are already in this session",
	ReasonUnknownPlayer:   "you are not in this session",
	ReasonNotYourTurn:     "it's not your turn",
	ReasonUnknownCard:     "card not in your hand",
	ReasonEmptyDeck:       "the deck is empty",
}

// Message renders a reason for relay to the failing caller.
func (r Result) Message() string {
	if r.OK {
		return ""
	}
	if msg, found := reasonMessages[r.Reason]; found {
		return msg
	}
	return "operation failed"
}
