package database

import (
	"fmt"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Fixture is the content of a synthetic Helvault export
type Fixture struct {
	Binders []PersistedBinder
	Cards   []PersistedCard
	Faces   []PersistedCardFace
	Copies  []PersistedCopy
}

// Str and Int build nullable column values for fixtures
func Str(s string) *string { return &s }
func Int(i int64) *int64   { return &i }
func Float(f float64) *float64 {
	return &f
}

// SampleFixture mirrors a small real export: two binders, two cards and
// three copies, one of them foil in the lower priority binder
func SampleFixture() Fixture {
	return Fixture{
		Binders: []PersistedBinder{
			{PK: 1, BinderID: []byte("collection-1"), Name: Str("Main Collection"), Priority: Int(1)},
			{PK: 2, BinderID: []byte("collection-2"), Name: Str("Foils"), Priority: Int(2)},
		},
		Cards: []PersistedCard{
			{
				PK: 1, ScryfallID: Str("scryfall-lightning-bolt"), OracleID: Str("oracle-lightning-bolt"),
				Name: Str("Lightning Bolt"), Set: Str("lea"), CollectorNumber: Str("161"), Lang: Str("en"),
				Rarity: Str("common"), ManaCost: Str("{R}"), CMC: Float(1), TypeLine: Str("Instant"),
			},
			{
				PK: 2, ScryfallID: Str("scryfall-black-lotus"), OracleID: Str("oracle-black-lotus"),
				Name: Str("Black Lotus"), Set: Str("lea"), CollectorNumber: Str("232"), Lang: Str("en"),
				Rarity: Str("rare"), ManaCost: Str("{0}"), CMC: Float(0), TypeLine: Str("Artifact"),
			},
		},
		Copies: []PersistedCopy{
			{PK: 1, Card: Int(1), Binder: Int(1), Finish: Str("nonfoil"), Copies: Int(4)},
			{PK: 2, Card: Int(2), Binder: Int(1), Finish: Str("nonfoil"), Copies: Int(1)},
			{PK: 3, Card: Int(1), Binder: Int(2), Finish: Str("foil"), Copies: Int(2)},
		},
	}
}

// WriteHelvault creates a Helvault-shaped SQLite file at path, replacing any
// existing file
func WriteHelvault(path string, fixture Fixture) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing fixture: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig(false))
	if err != nil {
		return fmt.Errorf("failed to create fixture database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get fixture connection: %w", err)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&PersistedBinder{}, &PersistedCard{}, &PersistedCardFace{}, &PersistedCopy{}); err != nil {
		return fmt.Errorf("failed to create fixture tables: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if len(fixture.Binders) > 0 {
			if err := tx.Create(&fixture.Binders).Error; err != nil {
				return fmt.Errorf("failed to insert binders: %w", err)
			}
		}
		if len(fixture.Cards) > 0 {
			if err := tx.Create(&fixture.Cards).Error; err != nil {
				return fmt.Errorf("failed to insert cards: %w", err)
			}
		}
		if len(fixture.Faces) > 0 {
			if err := tx.Create(&fixture.Faces).Error; err != nil {
				return fmt.Errorf("failed to insert card faces: %w", err)
			}
		}
		if len(fixture.Copies) > 0 {
			if err := tx.Create(&fixture.Copies).Error; err != nil {
				return fmt.Errorf("failed to insert copies: %w", err)
			}
		}
		return nil
	})
}
