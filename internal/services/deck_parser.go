package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/codyseavey/bag-of-holding/backend/internal/models"
)

// ErrInvalidEntry rejects structured entries the parser would never produce
var ErrInvalidEntry = errors.New("invalid decklist entry")

// deckLineRegex matches "4 Lightning Bolt", "1x Sol Ring" and
// "2 Lightning Bolt (M11)".
// Group 1: quantity, Group 2: card name, Group 3: set code (optional)
var deckLineRegex = regexp.MustCompile(`(?i)^(\d+)x?\s+(.+?)(?:\s*\(([^)]+)\))?$`)

// ParseDeckList parses free-form decklist text. Blank lines, comment lines
// starting with // or #, lines that do not match and non-positive quantities
// are dropped without error.
func ParseDeckList(text string) []models.DeckListEntry {
	entries := make([]models.DeckListEntry, 0)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		match := deckLineRegex.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		qty, err := strconv.Atoi(match[1])
		if err != nil || qty <= 0 {
			continue
		}

		entries = append(entries, models.DeckListEntry{
			Name: strings.TrimSpace(match[2]),
			Qty:  qty,
			Set:  strings.TrimSpace(match[3]),
		})
	}

	return entries
}

// FormatDeckListEntry renders an entry as "{qty} {name}" with an optional " ({set})"
func FormatDeckListEntry(entry models.DeckListEntry) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(entry.Qty))
	b.WriteByte(' ')
	b.WriteString(entry.Name)
	if entry.Set != "" {
		b.WriteString(" (")
		b.WriteString(entry.Set)
		b.WriteByte(')')
	}
	return b.String()
}

// FormatDeckList renders entries one per line
func FormatDeckList(entries []models.DeckListEntry) string {
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = FormatDeckListEntry(entry)
	}
	return strings.Join(lines, "\n")
}

// ValidateEntries applies the parser's rules to entries that did not come
// from ParseDeckList: every entry needs a name and a positive quantity.
func ValidateEntries(entries []models.DeckListEntry) error {
	for i, entry := range entries {
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalidEntry, i)
		}
		if entry.Qty <= 0 {
			return fmt.Errorf("%w: entry %d (%s) has quantity %d", ErrInvalidEntry, i, entry.Name, entry.Qty)
		}
	}
	return nil
}
