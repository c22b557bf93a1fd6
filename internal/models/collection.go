package models

// Collection is a prioritized binder of physical inventory.
// Lower Priority values are allocated first.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority"`
}

// InventoryItem is one Helvault copy row: a printing in a finish held in one
// collection. ScryfallID may carry the oracle id when the printing is unknown.
type InventoryItem struct {
	ScryfallID      string   `json:"scryfall_id"`
	Set             string   `json:"set"`
	CollectorNumber string   `json:"collector_number"`
	Lang            string   `json:"lang"`
	Finishes        []string `json:"finishes"`
	CollectionID    string   `json:"collection_id"`
	Copies          int      `json:"copies"`
}

// InventoryAggregate groups copy rows by printing, finish and collection name
type InventoryAggregate struct {
	ScryfallID      string   `json:"scryfall_id"`
	Set             string   `json:"set"`
	CollectorNumber string   `json:"collector_number"`
	Lang            string   `json:"lang"`
	Finishes        []string `json:"finishes"`
	Collection      string   `json:"collection"`
	Copies          int      `json:"copies"`
}

// CollectionStats summarizes the inventory held in one collection
type CollectionStats struct {
	Collection  Collection `json:"collection"`
	Rows        int        `json:"rows"`
	TotalCopies int        `json:"total_copies"`
	UniqueCards int        `json:"unique_cards"`
}

// ImportSummary is the response shape of a Helvault import
type ImportSummary struct {
	SessionID     string               `json:"session_id"`
	Source        string               `json:"source,omitempty"`
	InventoryRows []InventoryItem      `json:"inventoryRows"`
	Aggregates    []InventoryAggregate `json:"aggregates"`
	Collections   int                  `json:"collections"`
	Cards         int                  `json:"cards"`
	SkippedRows   int                  `json:"skipped_rows"`
}
