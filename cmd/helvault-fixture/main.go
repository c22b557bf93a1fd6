// helvault-fixture writes a small synthetic Helvault export for local testing
// and demos.
//
// Usage: go run main.go -out=<path> [-with-defects]
//
// The export holds two binders ("Main Collection" at priority 1 and "Foils" at
// priority 2), Lightning Bolt and Black Lotus, and three copy rows. With
// -with-defects it also adds awkward rows: a card without any printing id,
// which the importer skips, and a copy row holding zero copies.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/codyseavey/bag-of-holding/backend/internal/database"
)

func main() {
	out := flag.String("out", "", "Path of the export to write (required)")
	withDefects := flag.Bool("with-defects", false, "Add a row without printing id and a zero-copy row")
	flag.Parse()

	if *out == "" {
		fmt.Println("Usage: helvault-fixture -out=<path> [-with-defects]")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -out           Path of the export to write (required)")
		fmt.Println("  -with-defects  Add a row without printing id and a zero-copy row")
		os.Exit(1)
	}

	fixture := buildFixture(*withDefects)
	if err := database.WriteHelvault(*out, fixture); err != nil {
		log.Fatalf("Failed to write fixture: %v", err)
	}

	log.Printf("Wrote %s (%d binders, %d cards, %d copies)", *out, len(fixture.Binders), len(fixture.Cards), len(fixture.Copies))
}

func buildFixture(withDefects bool) database.Fixture {
	fixture := database.SampleFixture()
	fixture.Faces = append(fixture.Faces,
		database.PersistedCardFace{PK: 1, Card: database.Int(1), Name: database.Str("Lightning Bolt"), ManaCost: database.Str("{R}"), TypeLine: database.Str("Instant")},
		database.PersistedCardFace{PK: 2, Card: database.Int(2), Name: database.Str("Black Lotus"), ManaCost: database.Str("{0}"), TypeLine: database.Str("Artifact")},
	)

	if withDefects {
		fixture.Cards = append(fixture.Cards, database.PersistedCard{
			PK: 3, Name: database.Str("Mystery Card"), Set: database.Str("unk"), CollectorNumber: database.Str("0"),
		})
		fixture.Copies = append(fixture.Copies,
			database.PersistedCopy{PK: 4, Card: database.Int(3), Binder: database.Int(1), Finish: database.Str("nonfoil"), Copies: database.Int(1)},
			database.PersistedCopy{PK: 5, Card: database.Int(2), Binder: database.Int(2), Finish: database.Str("foil"), Copies: database.Int(0)},
		)
	}

	return fixture
}
