package models

// DeckListEntry is one parsed decklist line
type DeckListEntry struct {
	Name            string `json:"name"`
	Qty             int    `json:"qty"`
	Set             string `json:"set,omitempty"`
	CollectorNumber string `json:"collector_number,omitempty"`
	ScryfallID      string `json:"scryfall_id,omitempty"`
}

// MatchResult resolves one decklist entry against the inventory.
// The copies in Owned plus Missing always add up to Entry.Qty.
type MatchResult struct {
	Entry   DeckListEntry   `json:"entry"`
	Owned   []InventoryItem `json:"owned"`
	Missing int             `json:"missing"`
	Bling   []Card          `json:"bling"`
}

// OwnedCopies returns the number of copies allocated to the entry
func (m MatchResult) OwnedCopies() int {
	total := 0
	for _, item := range m.Owned {
		total += item.Copies
	}
	return total
}

type MatchRequest struct {
	Decklist string          `json:"decklist"`
	Entries  []DeckListEntry `json:"entries"`
}

type MatchResponse struct {
	SessionID string        `json:"session_id"`
	Matches   []MatchResult `json:"matches"`
	Requested int           `json:"requested"`
	Owned     int           `json:"owned"`
	Missing   int           `json:"missing"`
}
