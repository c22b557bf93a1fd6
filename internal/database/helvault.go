package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Helvault exports are Core Data stores, so tables and columns carry Z prefixes
const (
	BinderTable   = "ZPERSISTEDBINDER"
	CardTable     = "ZPERSISTEDCARD"
	CardFaceTable = "ZPERSISTEDCARDFACE"
	CopyTable     = "ZPERSISTEDCOPY"
)

var (
	ErrInvalidExport = errors.New("invalid helvault export")
	ErrMissingTable  = errors.New("missing table")
)

// PersistedBinder is a row of ZPERSISTEDBINDER
type PersistedBinder struct {
	PK       int64   `gorm:"column:Z_PK;primaryKey;autoIncrement:false"`
	BinderID []byte  `gorm:"column:ZBINDERID"`
	Name     *string `gorm:"column:ZNAME"`
	Priority *int64  `gorm:"column:ZPRIORITY"`
}

func (PersistedBinder) TableName() string { return BinderTable }

// PersistedCard is a row of ZPERSISTEDCARD
type PersistedCard struct {
	PK              int64    `gorm:"column:Z_PK;primaryKey;autoIncrement:false"`
	ScryfallID      *string  `gorm:"column:ZSCRYFALLID"`
	OracleID        *string  `gorm:"column:ZORACLEID"`
	Name            *string  `gorm:"column:ZNAME"`
	Set             *string  `gorm:"column:ZSET"`
	CollectorNumber *string  `gorm:"column:ZCOLLECTORNUMBER"`
	Lang            *string  `gorm:"column:ZLANG"`
	Rarity          *string  `gorm:"column:ZRARITY"`
	ManaCost        *string  `gorm:"column:ZMANACOST"`
	CMC             *float64 `gorm:"column:ZCMC"`
	TypeLine        *string  `gorm:"column:ZTYPELINE"`
}

func (PersistedCard) TableName() string { return CardTable }

// PersistedCardFace holds the faces of split and transform cards.
// The importer does not read it; fixtures create it so exports look real.
type PersistedCardFace struct {
	PK       int64   `gorm:"column:Z_PK;primaryKey;autoIncrement:false"`
	Card     *int64  `gorm:"column:ZCARD"`
	Name     *string `gorm:"column:ZNAME"`
	ManaCost *string `gorm:"column:ZMANACOST"`
	TypeLine *string `gorm:"column:ZTYPELINE"`
}

func (PersistedCardFace) TableName() string { return CardFaceTable }

// PersistedCopy links a card to a binder with a finish and a copy count
type PersistedCopy struct {
	PK     int64   `gorm:"column:Z_PK;primaryKey;autoIncrement:false"`
	Card   *int64  `gorm:"column:ZCARD"`
	Binder *int64  `gorm:"column:ZBINDER"`
	Finish *string `gorm:"column:ZFINISH"`
	Copies *int64  `gorm:"column:ZCOPIES"`
}

func (PersistedCopy) TableName() string { return CopyTable }

// CopyRow is a copy joined against its card and binder
type CopyRow struct {
	CopyPK          int64   `gorm:"column:copy_pk"`
	ScryfallID      *string `gorm:"column:scryfall_id"`
	OracleID        *string `gorm:"column:oracle_id"`
	Set             *string `gorm:"column:set_code"`
	CollectorNumber *string `gorm:"column:collector_number"`
	Lang            *string `gorm:"column:lang"`
	Finish          *string `gorm:"column:finish"`
	BinderID        []byte  `gorm:"column:binder_id"`
	BinderName      *string `gorm:"column:binder_name"`
	Copies          *int64  `gorm:"column:copies"`
}

// HelvaultDB gives read access to the three record kinds of an export
type HelvaultDB struct {
	db      *gorm.DB
	path    string
	cleanup func()
}

func gormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}
}

// OpenHelvault opens an export file read-only and checks its layout
func OpenHelvault(path string, debug bool) (*HelvaultDB, error) {
	db, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrInvalidExport, filepath.Base(path), err)
	}

	h := &HelvaultDB{db: db, path: path}
	if err := h.ValidateSchema(); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

// OpenHelvaultBytes spools an uploaded export to tempDir and opens it.
// The spooled file is removed on Close.
func OpenHelvaultBytes(data []byte, tempDir string, debug bool) (*HelvaultDB, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidExport)
	}

	f, err := os.CreateTemp(tempDir, "upload-*.helvault")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	remove := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove spooled export %s: %v", path, err)
		}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		remove()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		remove()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	h, err := OpenHelvault(path, debug)
	if err != nil {
		remove()
		return nil, err
	}
	h.cleanup = remove
	return h, nil
}

// Close releases the connection and removes any spooled file
func (h *HelvaultDB) Close() error {
	var closeErr error
	if sqlDB, err := h.db.DB(); err == nil {
		closeErr = sqlDB.Close()
	}
	if h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
	return closeErr
}

// Binders returns binder rows in allocation order
func (h *HelvaultDB) Binders() ([]PersistedBinder, error) {
	var binders []PersistedBinder
	if err := h.db.Order("ZPRIORITY").Order("Z_PK").Find(&binders).Error; err != nil {
		return nil, fmt.Errorf("failed to query binders: %w", err)
	}
	return binders, nil
}

func (h *HelvaultDB) Cards() ([]PersistedCard, error) {
	var cards []PersistedCard
	if err := h.db.Order("Z_PK").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	return cards, nil
}

// CopyRows returns every copy inner-joined to its card and binder.
// Copies pointing at a missing card or binder are not returned.
func (h *HelvaultDB) CopyRows() ([]CopyRow, error) {
	var rows []CopyRow
	err := h.db.Table(CopyTable + " AS cp").
		Select(`cp.Z_PK AS copy_pk,
			c.ZSCRYFALLID AS scryfall_id,
			c.ZORACLEID AS oracle_id,
			c.ZSET AS set_code,
			c.ZCOLLECTORNUMBER AS collector_number,
			c.ZLANG AS lang,
			cp.ZFINISH AS finish,
			b.ZBINDERID AS binder_id,
			b.ZNAME AS binder_name,
			cp.ZCOPIES AS copies`).
		Joins("JOIN " + CardTable + " c ON cp.ZCARD = c.Z_PK").
		Joins("JOIN " + BinderTable + " b ON cp.ZBINDER = b.Z_PK").
		Order("cp.Z_PK").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query copies: %w", err)
	}
	return rows, nil
}
