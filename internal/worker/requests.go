package worker

import (
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
)

// Request is one operation the worker can run. The set of variants is closed:
// only types in this package implement it.
type Request interface {
	Kind() string
	isRequest()
}

// LoadHelvault imports an export and stores it as the latest session
type LoadHelvault struct {
	Data   []byte
	Source string
}

// QueryCards searches the cards of a session
type QueryCards struct {
	SessionID string
	Filter    services.CardFilter
}

// QueryInventory lists inventory rows of a session, optionally for one collection
type QueryInventory struct {
	SessionID    string
	CollectionID string
}

// ComputeMatches resolves a decklist against a session. Entries take
// precedence over Decklist text when both are set.
type ComputeMatches struct {
	SessionID string
	Decklist  string
	Entries   []models.DeckListEntry
}

func (LoadHelvault) Kind() string   { return "load-helvault" }
func (QueryCards) Kind() string     { return "query-cards" }
func (QueryInventory) Kind() string { return "query-inventory" }
func (ComputeMatches) Kind() string { return "compute-matches" }

func (LoadHelvault) isRequest()   {}
func (QueryCards) isRequest()     {}
func (QueryInventory) isRequest() {}
func (ComputeMatches) isRequest() {}

// Response payloads, one per request kind

type InventoryResult struct {
	SessionID string                 `json:"session_id"`
	Inventory []models.InventoryItem `json:"inventory"`
}

type CardsResult struct {
	SessionID string        `json:"session_id"`
	Cards     []models.Card `json:"cards"`
	Total     int           `json:"total"`
}
