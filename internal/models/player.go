package models

import "github.com/google/uuid"

// Player is one seat in a session. ConnID is the transport connection
// identifier and doubles as the authorization token for every mutating call.
// Hand order is insertion order and is meaningful for in-place replacement.
type Player struct {
	Name   string    `json:"name"`
	ConnID uuid.UUID `json:"connId"`
	Hand   []*Card   `json:"hand"`
	Score  int       `json:"score"`
	Ready  bool      `json:"ready"`
}
