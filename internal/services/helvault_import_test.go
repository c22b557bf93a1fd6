package services

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/codyseavey/bag-of-holding/backend/internal/database"
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
)

// fakeRows serves export rows from memory
type fakeRows struct {
	binders []database.PersistedBinder
	cards   []database.PersistedCard
	copies  []database.CopyRow
	err     error
}

func (f *fakeRows) Binders() ([]database.PersistedBinder, error) { return f.binders, f.err }
func (f *fakeRows) Cards() ([]database.PersistedCard, error)     { return f.cards, nil }
func (f *fakeRows) CopyRows() ([]database.CopyRow, error)        { return f.copies, nil }

func copyRow(pk int64, scryfall, oracle *string, set, finish string, binder []byte, binderName string, copies int64) database.CopyRow {
	return database.CopyRow{
		CopyPK:          pk,
		ScryfallID:      scryfall,
		OracleID:        oracle,
		Set:             database.Str(set),
		CollectorNumber: database.Str("1"),
		Lang:            database.Str("en"),
		Finish:          database.Str(finish),
		BinderID:        binder,
		BinderName:      database.Str(binderName),
		Copies:          database.Int(copies),
	}
}

func TestNormalize_Collections(t *testing.T) {
	rows := &fakeRows{
		binders: []database.PersistedBinder{
			{PK: 1, BinderID: []byte("b"), Name: database.Str("Second"), Priority: database.Int(2)},
			{PK: 2, BinderID: []byte("a"), Name: database.Str("First"), Priority: database.Int(1)},
			{PK: 3, BinderID: []byte("c"), Name: database.Str("Also Second"), Priority: database.Int(2)},
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	expected := []models.Collection{
		{ID: EncodeBinderID([]byte("a")), Name: "First", Priority: 1},
		{ID: EncodeBinderID([]byte("b")), Name: "Second", Priority: 2},
		{ID: EncodeBinderID([]byte("c")), Name: "Also Second", Priority: 2},
	}
	if !reflect.DeepEqual(snapshot.Collections, expected) {
		t.Errorf("collections = %+v, want %+v", snapshot.Collections, expected)
	}
}

func TestNormalize_Cards(t *testing.T) {
	rows := &fakeRows{
		cards: []database.PersistedCard{
			{
				PK: 1, ScryfallID: database.Str("sf-1"), OracleID: database.Str("oracle-1"), Name: database.Str("Growth Spiral"),
				Set: database.Str("rna"), CollectorNumber: database.Str("178"), Lang: database.Str("en"), Rarity: database.Str("common"),
				ManaCost: database.Str("{G}{U}"), CMC: database.Float(2), TypeLine: database.Str("Instant"),
			},
			{PK: 2, OracleID: database.Str("oracle-2"), Name: database.Str("Memnite")},
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(snapshot.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(snapshot.Cards))
	}

	spiral := snapshot.Cards[0]
	if spiral.ScryfallID != "sf-1" || spiral.OracleID != "oracle-1" || spiral.CMC != 2 || spiral.ManaCost != "{G}{U}" {
		t.Errorf("unexpected card mapping %+v", spiral)
	}
	if !reflect.DeepEqual(spiral.Colors, []string{"U", "G"}) {
		t.Errorf("expected colors [U G], got %v", spiral.Colors)
	}
	for _, card := range snapshot.Cards {
		if !reflect.DeepEqual(card.Finishes, []string{"nonfoil"}) {
			t.Errorf("%s: expected default nonfoil finish, got %v", card.Name, card.Finishes)
		}
	}
	if snapshot.Cards[1].CMC != 0 || len(snapshot.Cards[1].Colors) != 0 {
		t.Errorf("expected zero cmc and no colors for null columns, got %+v", snapshot.Cards[1])
	}
}

func TestNormalize_IdentityFallback(t *testing.T) {
	rows := &fakeRows{
		copies: []database.CopyRow{
			copyRow(1, nil, database.Str("oracle-X"), "lea", "nonfoil", []byte("b1"), "Main", 2),
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(snapshot.Inventory) != 1 || snapshot.Inventory[0].ScryfallID != "oracle-X" {
		t.Errorf("expected inventory scryfall_id oracle-X, got %+v", snapshot.Inventory)
	}
	if len(snapshot.Aggregates) != 1 || snapshot.Aggregates[0].ScryfallID != "oracle-X" {
		t.Errorf("expected aggregate scryfall_id oracle-X, got %+v", snapshot.Aggregates)
	}
}

func TestNormalize_SkipsRowsWithoutIdentity(t *testing.T) {
	rows := &fakeRows{
		copies: []database.CopyRow{
			copyRow(1, database.Str("sf-1"), database.Str("oracle-1"), "lea", "nonfoil", []byte("b1"), "Main", 2),
			copyRow(2, nil, nil, "lea", "nonfoil", []byte("b1"), "Main", 5),
			copyRow(3, database.Str(""), database.Str("  "), "lea", "foil", []byte("b1"), "Main", 1),
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("rows without identity must not fail the import: %v", err)
	}
	if len(snapshot.Inventory) != 1 {
		t.Errorf("expected 1 inventory row, got %d", len(snapshot.Inventory))
	}
	if len(snapshot.Aggregates) != 1 || snapshot.Aggregates[0].Copies != 2 {
		t.Errorf("expected 1 aggregate with 2 copies, got %+v", snapshot.Aggregates)
	}
	if snapshot.Skipped != 2 {
		t.Errorf("expected 2 skipped rows, got %d", snapshot.Skipped)
	}
}

func TestNormalize_FinishAndCollectionID(t *testing.T) {
	row := copyRow(1, database.Str("sf-1"), nil, "lea", "", []byte("collection-1"), "Main", 1)
	row.Finish = nil
	rows := &fakeRows{copies: []database.CopyRow{row}}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	item := snapshot.Inventory[0]
	if !reflect.DeepEqual(item.Finishes, []string{"nonfoil"}) {
		t.Errorf("expected null finish to default to nonfoil, got %v", item.Finishes)
	}
	if item.CollectionID != "Y29sbGVjdGlvbi0x" {
		t.Errorf("expected base64 collection id, got %q", item.CollectionID)
	}
}

func TestNormalize_KeepsZeroCopyAndNullFinishRows(t *testing.T) {
	nullFinish := copyRow(2, database.Str("sf-1"), nil, "lea", "", []byte("b1"), "Main", 3)
	nullFinish.Finish = nil
	nullCopies := copyRow(4, database.Str("sf-2"), nil, "lea", "nonfoil", []byte("b1"), "Main", 0)
	nullCopies.Copies = nil

	rows := &fakeRows{
		copies: []database.CopyRow{
			copyRow(1, database.Str("sf-1"), nil, "lea", "nonfoil", []byte("b1"), "Main", 2),
			nullFinish,
			copyRow(3, database.Str("sf-1"), nil, "lea", "foil", []byte("b1"), "Main", 0),
			nullCopies,
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(snapshot.Inventory) != 4 || snapshot.Skipped != 0 {
		t.Fatalf("expected all 4 rows kept, got %d rows and %d skipped", len(snapshot.Inventory), snapshot.Skipped)
	}
	if snapshot.Inventory[2].Copies != 0 || snapshot.Inventory[3].Copies != 0 {
		t.Errorf("expected zero and NULL copies to import as 0, got %+v", snapshot.Inventory[2:])
	}

	// NULL finish groups apart from the explicit nonfoil row
	if len(snapshot.Aggregates) != 4 {
		t.Fatalf("expected 4 aggregates, got %+v", snapshot.Aggregates)
	}
	if snapshot.Aggregates[0].Copies != 2 || snapshot.Aggregates[1].Copies != 3 {
		t.Errorf("expected nonfoil and NULL finish groups of 2 and 3, got %+v", snapshot.Aggregates[:2])
	}
	if snapshot.Aggregates[1].Finishes[0] != "nonfoil" {
		t.Errorf("expected NULL finish reported as nonfoil, got %v", snapshot.Aggregates[1].Finishes)
	}

	results := ComputeMatches([]models.DeckListEntry{{Name: "Card Two", Qty: 1}}, snapshot.Inventory,
		[]models.Card{{ScryfallID: "sf-2", Name: "Card Two"}},
		[]models.Collection{{ID: EncodeBinderID([]byte("b1")), Priority: 1}})
	if len(results[0].Owned) != 0 || results[0].Missing != 1 {
		t.Errorf("expected zero-copy rows never allocated, got %+v", results[0])
	}
}

func TestNormalize_AggregatesByCollectionName(t *testing.T) {
	rows := &fakeRows{
		copies: []database.CopyRow{
			copyRow(1, database.Str("sf-1"), nil, "lea", "nonfoil", []byte("b1"), "Binder", 1),
			copyRow(2, database.Str("sf-1"), nil, "lea", "nonfoil", []byte("b2"), "Binder", 2),
			copyRow(3, database.Str("sf-1"), nil, "lea", "foil", []byte("b1"), "Binder", 4),
			copyRow(4, database.Str("sf-1"), nil, "lea", "nonfoil", []byte("b1"), "Binder", 3),
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(snapshot.Inventory) != 4 {
		t.Errorf("expected 4 raw rows, got %d", len(snapshot.Inventory))
	}

	expected := []models.InventoryAggregate{
		{ScryfallID: "sf-1", Set: "lea", CollectorNumber: "1", Lang: "en", Finishes: []string{"nonfoil"}, Collection: "Binder", Copies: 6},
		{ScryfallID: "sf-1", Set: "lea", CollectorNumber: "1", Lang: "en", Finishes: []string{"foil"}, Collection: "Binder", Copies: 4},
	}
	if !reflect.DeepEqual(snapshot.Aggregates, expected) {
		t.Errorf("aggregates = %+v, want %+v", snapshot.Aggregates, expected)
	}
}

func TestNormalize_AggregatesAreLossless(t *testing.T) {
	rows := &fakeRows{
		binders: []database.PersistedBinder{
			{PK: 1, BinderID: []byte("b1"), Name: database.Str("Main"), Priority: database.Int(1)},
			{PK: 2, BinderID: []byte("b2"), Name: database.Str("Foils"), Priority: database.Int(2)},
		},
		copies: []database.CopyRow{
			copyRow(1, database.Str("sf-1"), database.Str("o-1"), "lea", "nonfoil", []byte("b1"), "Main", 4),
			copyRow(2, database.Str("sf-1"), database.Str("o-1"), "lea", "foil", []byte("b2"), "Foils", 2),
			copyRow(3, database.Str("sf-2"), database.Str("o-2"), "lea", "nonfoil", []byte("b1"), "Main", 1),
			copyRow(4, database.Str("sf-1"), database.Str("o-1"), "lea", "nonfoil", []byte("b1"), "Main", 3),
			copyRow(5, nil, database.Str("o-3"), "m11", "nonfoil", []byte("b2"), "Foils", 7),
			copyRow(6, nil, nil, "m11", "nonfoil", []byte("b2"), "Foils", 9),
		},
	}

	snapshot, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	names := make(map[string]string)
	for _, col := range snapshot.Collections {
		names[col.ID] = col.Name
	}

	type key struct{ id, set, cn, lang, finish, collection string }
	raw := make(map[key]int)
	for _, item := range snapshot.Inventory {
		raw[key{item.ScryfallID, item.Set, item.CollectorNumber, item.Lang, item.Finishes[0], names[item.CollectionID]}] += item.Copies
	}
	agg := make(map[key]int)
	for _, a := range snapshot.Aggregates {
		agg[key{a.ScryfallID, a.Set, a.CollectorNumber, a.Lang, a.Finishes[0], a.Collection}] += a.Copies
	}

	if !reflect.DeepEqual(raw, agg) {
		t.Errorf("aggregate totals differ from raw totals:\n raw %v\n agg %v", raw, agg)
	}
}

func TestNormalize_PropagatesSourceErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	if _, err := Normalize(&fakeRows{err: boom}); !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}

func TestColorsFromManaCost(t *testing.T) {
	tests := []struct {
		manaCost string
		expected []string
	}{
		{"", []string{}},
		{"{0}", []string{}},
		{"{R}", []string{"R"}},
		{"{2}{W}{W}", []string{"W"}},
		{"{G/U}{B}", []string{"U", "B", "G"}},
		{"{2/W}{U/P}", []string{"W", "U"}},
		{"{w}{g}", []string{"W", "G"}},
	}

	for _, tt := range tests {
		t.Run(tt.manaCost, func(t *testing.T) {
			if got := ColorsFromManaCost(tt.manaCost); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ColorsFromManaCost(%q) = %v, want %v", tt.manaCost, got, tt.expected)
			}
		})
	}
}

func writeSampleExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.helvault")
	if err := database.WriteHelvault(path, database.SampleFixture()); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestHelvaultImporter_ImportFile(t *testing.T) {
	importer := NewHelvaultImporter(t.TempDir(), false)

	session, err := importer.ImportFile(writeSampleExport(t))
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if session.ID == "" {
		t.Error("expected session id")
	}
	if len(session.Collections) != 2 || session.Collections[0].Name != "Main Collection" {
		t.Errorf("unexpected collections %+v", session.Collections)
	}
	if len(session.Cards) != 2 {
		t.Errorf("expected 2 cards, got %d", len(session.Cards))
	}
	if len(session.Inventory) != 3 {
		t.Errorf("expected 3 inventory rows, got %d", len(session.Inventory))
	}
	if len(session.Aggregates) != 3 {
		t.Errorf("expected 3 aggregates, got %d", len(session.Aggregates))
	}

	ids := make(map[string]bool)
	for _, col := range session.Collections {
		ids[col.ID] = true
	}
	for _, item := range session.Inventory {
		if !ids[item.CollectionID] {
			t.Errorf("inventory collection id %q does not match any collection", item.CollectionID)
		}
	}

	summary := session.Summary()
	if summary.Collections != 2 || summary.Cards != 2 || len(summary.InventoryRows) != 3 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestHelvaultImporter_ImportBytesThenMatch(t *testing.T) {
	data, err := os.ReadFile(writeSampleExport(t))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	session, err := NewHelvaultImporter(t.TempDir(), false).ImportBytes(data, "test.helvault")
	if err != nil {
		t.Fatalf("ImportBytes failed: %v", err)
	}

	results := session.Match(ParseDeckList("5 Lightning Bolt\n1 Black Lotus\n2 Sol Ring"))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	bolt := results[0]
	if len(bolt.Owned) != 2 {
		t.Fatalf("expected 2 Lightning Bolt allocations, got %+v", bolt.Owned)
	}
	if bolt.Owned[0].Copies != 4 || bolt.Owned[0].CollectionID != session.Collections[0].ID {
		t.Errorf("expected 4 copies from Main Collection first, got %+v", bolt.Owned[0])
	}
	if bolt.Owned[1].Copies != 1 || bolt.Owned[1].Finishes[0] != "foil" {
		t.Errorf("expected 1 foil copy second, got %+v", bolt.Owned[1])
	}
	if bolt.Missing != 0 {
		t.Errorf("expected nothing missing, got %d", bolt.Missing)
	}

	if results[1].Missing != 0 || results[1].OwnedCopies() != 1 {
		t.Errorf("expected Black Lotus owned, got %+v", results[1])
	}
	if results[2].Missing != 2 {
		t.Errorf("expected 2 Sol Ring missing, got %d", results[2].Missing)
	}
}

func TestHelvaultImporter_ImportBytesInvalid(t *testing.T) {
	_, err := NewHelvaultImporter(t.TempDir(), false).ImportBytes([]byte("garbage"), "bad.helvault")
	if !errors.Is(err, database.ErrInvalidExport) {
		t.Errorf("expected ErrInvalidExport, got %v", err)
	}
}
