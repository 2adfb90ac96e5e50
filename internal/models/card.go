package models

// Card is a single playing card. ID is assigned at deck generation time and
// is stable for the card's lifetime; clients reference cards by it, never by
// suit/value equality.
type Card struct {
	ID    int    `json:"id"`
	Suit  string `json:"suit"`
	Value string `json:"value"`
}
