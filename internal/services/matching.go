package services

import (
	"sort"

	"github.com/codyseavey/bag-of-holding/backend/internal/models"
)

// ComputeMatches resolves each decklist entry against the inventory and
// returns one result per entry in input order. Copies are allocated from
// collections in ascending priority order (ties keep input order). The
// inputs are never modified.
func ComputeMatches(entries []models.DeckListEntry, inventory []models.InventoryItem, cards []models.Card, collections []models.Collection) []models.MatchResult {
	idx := newCardIndex(cards)
	ordered := allocationOrder(collections)

	results := make([]models.MatchResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, matchEntry(entry, inventory, cards, idx, ordered))
	}
	return results
}

// cardIndex links inventory rows to cards. Rows normally carry the printing
// id, but carry the oracle id when the printing was absent on import, so
// cards without a printing id are also reachable through their oracle id.
type cardIndex struct {
	byScryfall map[string]models.Card
	byOracle   map[string]models.Card
}

func newCardIndex(cards []models.Card) cardIndex {
	idx := cardIndex{
		byScryfall: make(map[string]models.Card, len(cards)),
		byOracle:   make(map[string]models.Card),
	}
	for _, card := range cards {
		if card.ScryfallID != "" {
			if _, exists := idx.byScryfall[card.ScryfallID]; !exists {
				idx.byScryfall[card.ScryfallID] = card
			}
		} else if card.OracleID != "" {
			if _, exists := idx.byOracle[card.OracleID]; !exists {
				idx.byOracle[card.OracleID] = card
			}
		}
	}
	return idx
}

func (idx cardIndex) lookup(id string) (models.Card, bool) {
	if card, ok := idx.byScryfall[id]; ok {
		return card, true
	}
	card, ok := idx.byOracle[id]
	return card, ok
}

// allocationOrder returns collection ids sorted by priority. A duplicated id
// is visited once so its rows cannot be allocated twice.
func allocationOrder(collections []models.Collection) []string {
	sorted := make([]models.Collection, len(collections))
	copy(sorted, collections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	seen := make(map[string]bool, len(sorted))
	ids := make([]string, 0, len(sorted))
	for _, col := range sorted {
		if seen[col.ID] {
			continue
		}
		seen[col.ID] = true
		ids = append(ids, col.ID)
	}
	return ids
}

func matchEntry(entry models.DeckListEntry, inventory []models.InventoryItem, cards []models.Card, idx cardIndex, collectionOrder []string) models.MatchResult {
	candidates := selectCandidates(entry, inventory, idx)

	byCollection := make(map[string][]models.InventoryItem)
	for _, item := range candidates {
		byCollection[item.CollectionID] = append(byCollection[item.CollectionID], item)
	}

	owned := make([]models.InventoryItem, 0)
	needed := entry.Qty

	for _, collectionID := range collectionOrder {
		if needed <= 0 {
			break
		}
		for _, item := range byCollection[collectionID] {
			if needed <= 0 {
				break
			}
			take := min(item.Copies, needed)
			if take <= 0 {
				continue
			}
			allocated := item
			allocated.Finishes = append([]string(nil), item.Finishes...)
			allocated.Copies = take
			owned = append(owned, allocated)
			needed -= take
		}
	}

	return models.MatchResult{
		Entry:   entry,
		Owned:   owned,
		Missing: max(0, needed),
		Bling:   findBling(entry, cards, idx),
	}
}

// selectCandidates picks the inventory rows that can satisfy an entry. An
// explicit printing id bypasses name matching.
func selectCandidates(entry models.DeckListEntry, inventory []models.InventoryItem, idx cardIndex) []models.InventoryItem {
	var candidates []models.InventoryItem

	for _, item := range inventory {
		if entry.ScryfallID != "" {
			if item.ScryfallID == entry.ScryfallID {
				candidates = append(candidates, item)
			}
			continue
		}

		card, ok := idx.lookup(item.ScryfallID)
		if !ok || card.Name != entry.Name {
			continue
		}
		if entry.Set != "" && item.Set != entry.Set {
			continue
		}
		candidates = append(candidates, item)
	}

	return candidates
}

// findBling returns the other printings sharing the entry's oracle id, one
// per printing id. Without
// an explicit printing the oracle id comes from the first card with the same
// name, and every printing of that card qualifies.
func findBling(entry models.DeckListEntry, cards []models.Card, idx cardIndex) []models.Card {
	bling := make([]models.Card, 0)

	var oracleID string
	if entry.ScryfallID != "" {
		if card, ok := idx.lookup(entry.ScryfallID); ok {
			oracleID = card.OracleID
		}
	} else {
		for _, card := range cards {
			if card.Name == entry.Name {
				oracleID = card.OracleID
				break
			}
		}
	}

	if oracleID == "" {
		return bling
	}

	seen := make(map[string]bool)
	for _, card := range cards {
		if card.OracleID != oracleID {
			continue
		}
		id := card.Identity()
		if entry.ScryfallID != "" && id == entry.ScryfallID {
			continue
		}
		// A printing listed twice in the export is offered once
		if seen[id] {
			continue
		}
		seen[id] = true
		bling = append(bling, card)
	}
	return bling
}
