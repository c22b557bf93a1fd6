package services

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/codyseavey/bag-of-holding/backend/internal/database"
	"github.com/codyseavey/bag-of-holding/backend/internal/metrics"
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
)

// HelvaultRows gives relational access to the three record kinds of an export
type HelvaultRows interface {
	Binders() ([]database.PersistedBinder, error)
	Cards() ([]database.PersistedCard, error)
	CopyRows() ([]database.CopyRow, error)
}

// Snapshot is the normalized content of one export
type Snapshot struct {
	Collections []models.Collection
	Cards       []models.Card
	Inventory   []models.InventoryItem
	Aggregates  []models.InventoryAggregate
	Skipped     int
}

// HelvaultImporter opens exports and normalizes them into sessions
type HelvaultImporter struct {
	tempDir string
	debug   bool
}

func NewHelvaultImporter(tempDir string, debug bool) *HelvaultImporter {
	return &HelvaultImporter{
		tempDir: tempDir,
		debug:   debug,
	}
}

// ImportFile imports an export from disk
func (i *HelvaultImporter) ImportFile(path string) (*Session, error) {
	start := time.Now()
	h, err := database.OpenHelvault(path, i.debug)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	defer h.Close()
	i.logTableCounts(h)

	return i.importRows(h, path, start)
}

// ImportBytes imports an uploaded export
func (i *HelvaultImporter) ImportBytes(data []byte, source string) (*Session, error) {
	start := time.Now()
	h, err := database.OpenHelvaultBytes(data, i.tempDir, i.debug)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	defer h.Close()
	i.logTableCounts(h)

	return i.importRows(h, source, start)
}

func (i *HelvaultImporter) importRows(rows HelvaultRows, source string, start time.Time) (*Session, error) {
	snapshot, err := Normalize(rows)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	session := NewSession(source, snapshot)

	elapsed := time.Since(start)
	metrics.ImportsTotal.WithLabelValues("success").Inc()
	metrics.ImportDuration.Observe(elapsed.Seconds())
	for _, item := range snapshot.Inventory {
		metrics.ImportedCopies.Add(float64(item.Copies))
	}

	log.Printf("Helvault import: loaded %s in %v (%d collections, %d cards, %d inventory rows, %d aggregates, %d skipped)",
		displaySource(source), elapsed.Round(time.Millisecond), len(snapshot.Collections), len(snapshot.Cards),
		len(snapshot.Inventory), len(snapshot.Aggregates), snapshot.Skipped)

	return session, nil
}

func (i *HelvaultImporter) logTableCounts(h *database.HelvaultDB) {
	if i.debug {
		log.Printf("Helvault import: table row counts %v", h.TableCounts())
	}
}

func displaySource(source string) string {
	if source == "" {
		return "upload"
	}
	return source
}

// Normalize turns export rows into collections, cards, inventory rows and
// aggregates. Copy rows without a printing id or card id are skipped with a
// warning in both the inventory and aggregate views. Rows with zero copies
// are kept; matching never allocates from them.
func Normalize(rows HelvaultRows) (*Snapshot, error) {
	binders, err := rows.Binders()
	if err != nil {
		return nil, err
	}
	persistedCards, err := rows.Cards()
	if err != nil {
		return nil, err
	}
	copyRows, err := rows.CopyRows()
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Collections: normalizeCollections(binders),
		Cards:       normalizeCards(persistedCards),
	}

	snapshot.Inventory, snapshot.Skipped = normalizeInventory(copyRows)
	snapshot.Aggregates = aggregateInventory(copyRows)

	return snapshot, nil
}

func normalizeCollections(binders []database.PersistedBinder) []models.Collection {
	collections := make([]models.Collection, 0, len(binders))
	for _, b := range binders {
		collections = append(collections, models.Collection{
			ID:       EncodeBinderID(b.BinderID),
			Name:     deref(b.Name),
			Priority: int(derefInt(b.Priority)),
		})
	}
	sort.SliceStable(collections, func(i, j int) bool {
		return collections[i].Priority < collections[j].Priority
	})
	return collections
}

func normalizeCards(rows []database.PersistedCard) []models.Card {
	cards := make([]models.Card, 0, len(rows))
	for _, row := range rows {
		manaCost := deref(row.ManaCost)
		card := models.Card{
			ScryfallID:      deref(row.ScryfallID),
			OracleID:        deref(row.OracleID),
			Name:            deref(row.Name),
			Set:             deref(row.Set),
			CollectorNumber: deref(row.CollectorNumber),
			Lang:            deref(row.Lang),
			Finishes:        []string{models.FinishNonfoil},
			Rarity:          deref(row.Rarity),
			ManaCost:        manaCost,
			Colors:          ColorsFromManaCost(manaCost),
			TypeLine:        deref(row.TypeLine),
		}
		if row.CMC != nil {
			card.CMC = *row.CMC
		}
		cards = append(cards, card)
	}
	return cards
}

// copyIdentity applies the printing id to card id fallback. ok is false when
// the row carries neither.
func copyIdentity(row database.CopyRow) (string, bool) {
	if id := deref(row.ScryfallID); id != "" {
		return id, true
	}
	if id := deref(row.OracleID); id != "" {
		return id, true
	}
	return "", false
}

func copyFinish(row database.CopyRow) string {
	if finish := deref(row.Finish); finish != "" {
		return finish
	}
	return models.FinishNonfoil
}

func normalizeInventory(rows []database.CopyRow) ([]models.InventoryItem, int) {
	items := make([]models.InventoryItem, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		id, ok := copyIdentity(row)
		if !ok {
			log.Printf("Helvault import: skipping inventory row %d without scryfall_id or oracle_id", row.CopyPK)
			metrics.ImportSkippedRows.WithLabelValues("inventory", "missing_identity").Inc()
			skipped++
			continue
		}
		copies := int(derefInt(row.Copies))

		items = append(items, models.InventoryItem{
			ScryfallID:      id,
			Set:             deref(row.Set),
			CollectorNumber: deref(row.CollectorNumber),
			Lang:            deref(row.Lang),
			Finishes:        []string{copyFinish(row)},
			CollectionID:    EncodeBinderID(row.BinderID),
			Copies:          copies,
		})
	}

	return items, skipped
}

// aggregateKey groups copies. It keys on the binder name rather than the
// binder id, so two binders with the same name share aggregates. A NULL
// finish groups apart from an explicit "nonfoil" even though both are
// reported as nonfoil.
type aggregateKey struct {
	scryfallID      string
	oracleID        string
	set             string
	collectorNumber string
	lang            string
	finish          string
	finishMissing   bool
	collection      string
}

// aggregateInventory sums copies per aggregateKey, in order of first
// appearance. Skip rules are applied here independently of normalizeInventory.
func aggregateInventory(rows []database.CopyRow) []models.InventoryAggregate {
	aggregates := make([]models.InventoryAggregate, 0)
	index := make(map[aggregateKey]int)

	for _, row := range rows {
		id, ok := copyIdentity(row)
		if !ok {
			log.Printf("Helvault import: skipping aggregate row %d without scryfall_id or oracle_id", row.CopyPK)
			metrics.ImportSkippedRows.WithLabelValues("aggregate", "missing_identity").Inc()
			continue
		}
		copies := int(derefInt(row.Copies))

		key := aggregateKey{
			scryfallID:      deref(row.ScryfallID),
			oracleID:        deref(row.OracleID),
			set:             deref(row.Set),
			collectorNumber: deref(row.CollectorNumber),
			lang:            deref(row.Lang),
			finish:          copyFinish(row),
			finishMissing:   deref(row.Finish) == "",
			collection:      deref(row.BinderName),
		}

		if i, exists := index[key]; exists {
			aggregates[i].Copies += copies
			continue
		}

		index[key] = len(aggregates)
		aggregates = append(aggregates, models.InventoryAggregate{
			ScryfallID:      id,
			Set:             key.set,
			CollectorNumber: key.collectorNumber,
			Lang:            key.lang,
			Finishes:        []string{key.finish},
			Collection:      key.collection,
			Copies:          copies,
		})
	}

	return aggregates
}

var colorOrder = []string{"W", "U", "B", "R", "G"}

// ColorsFromManaCost derives WUBRG colors from mana symbols such as
// "{2}{W/U}{G}". Exports carry no color column.
func ColorsFromManaCost(manaCost string) []string {
	colors := make([]string, 0)
	if manaCost == "" {
		return colors
	}

	symbols := strings.ToUpper(manaCost)
	for _, color := range colorOrder {
		if strings.Contains(symbols, "{"+color+"}") ||
			strings.Contains(symbols, "{"+color+"/") ||
			strings.Contains(symbols, "/"+color+"}") {
			colors = append(colors, color)
		}
	}
	return colors
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func derefInt(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}
