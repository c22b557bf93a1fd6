package services

import (
	"strings"

	"github.com/codyseavey/bag-of-holding/backend/internal/models"
)

const (
	defaultCardLimit = 100
	maxCardLimit     = 1000
)

// CardFilter narrows a card query. Zero values match everything.
type CardFilter struct {
	Name   string   `json:"name,omitempty" form:"name"`
	Set    string   `json:"set,omitempty" form:"set"`
	Colors []string `json:"colors,omitempty" form:"colors"`
	Types  []string `json:"types,omitempty" form:"types"`
	Limit  int      `json:"limit,omitempty" form:"limit"`
	Offset int      `json:"offset,omitempty" form:"offset"`
}

func (f CardFilter) matches(card models.Card) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(card.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Set != "" && !strings.EqualFold(card.Set, f.Set) {
		return false
	}
	for _, color := range f.Colors {
		if !containsFold(card.Colors, color) {
			return false
		}
	}
	if len(f.Types) > 0 {
		words := strings.Fields(strings.ToLower(card.TypeLine))
		for _, t := range f.Types {
			if !containsFold(words, t) {
				return false
			}
		}
	}
	return true
}

// QueryCards filters and pages the session's cards. Total counts every
// match before paging.
func QueryCards(session *Session, filter CardFilter) models.CardSearchResult {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCardLimit
	}
	limit = min(limit, maxCardLimit)
	offset := max(filter.Offset, 0)

	matched := make([]models.Card, 0)
	for _, card := range session.Cards {
		if filter.matches(card) {
			matched = append(matched, card)
		}
	}

	page := make([]models.Card, 0)
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page = append(page, matched[offset:end]...)
	}

	return models.CardSearchResult{
		Cards: page,
		Total: len(matched),
	}
}

// QueryInventory returns the inventory rows of one collection, or every row
// when collectionID is empty
func QueryInventory(session *Session, collectionID string) []models.InventoryItem {
	if collectionID == "" {
		return session.Inventory
	}

	items := make([]models.InventoryItem, 0)
	for _, item := range session.Inventory {
		if item.CollectionID == collectionID {
			items = append(items, item)
		}
	}
	return items
}

// CollectionStats summarizes each collection in allocation order
func CollectionStats(session *Session) []models.CollectionStats {
	stats := make([]models.CollectionStats, 0, len(session.Collections))
	for _, col := range session.Collections {
		stat := models.CollectionStats{Collection: col}
		unique := make(map[string]bool)
		for _, item := range session.Inventory {
			if item.CollectionID != col.ID {
				continue
			}
			stat.Rows++
			stat.TotalCopies += item.Copies
			unique[item.ScryfallID] = true
		}
		stat.UniqueCards = len(unique)
		stats = append(stats, stat)
	}
	return stats
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
