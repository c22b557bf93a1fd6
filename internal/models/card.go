package models

// Finish labels used by Helvault copies and Scryfall printings
const (
	FinishNonfoil = "nonfoil"
	FinishFoil    = "foil"
	FinishEtched  = "etched"
)

// Card is one known printing of a card. Several printings share an OracleID.
type Card struct {
	ScryfallID      string   `json:"scryfall_id"`
	OracleID        string   `json:"oracle_id"`
	Name            string   `json:"name"`
	Set             string   `json:"set"`
	CollectorNumber string   `json:"collector_number"`
	Lang            string   `json:"lang"`
	Finishes        []string `json:"finishes"`
	Rarity          string   `json:"rarity"`
	ManaCost        string   `json:"mana_cost,omitempty"`
	CMC             float64  `json:"cmc"`
	Colors          []string `json:"colors"`
	TypeLine        string   `json:"type_line"`
}

// Identity returns the printing identity, falling back to the card identity
// when the printing is unknown. Inventory rows use the same fallback.
func (c Card) Identity() string {
	if c.ScryfallID != "" {
		return c.ScryfallID
	}
	return c.OracleID
}

type CardSearchResult struct {
	Cards []Card `json:"cards"`
	Total int    `json:"total"`
}
