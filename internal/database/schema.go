package database

import (
	"fmt"
)

// requiredColumns lists the columns the importer selects from each table
var requiredColumns = map[string][]string{
	BinderTable: {"Z_PK", "ZBINDERID", "ZNAME", "ZPRIORITY"},
	CardTable: {"Z_PK", "ZSCRYFALLID", "ZORACLEID", "ZNAME", "ZSET", "ZCOLLECTORNUMBER",
		"ZLANG", "ZRARITY", "ZMANACOST", "ZCMC", "ZTYPELINE"},
	CopyTable: {"Z_PK", "ZCARD", "ZBINDER", "ZFINISH", "ZCOPIES"},
}

// ValidateSchema checks that the export carries the binder, card and copy
// tables with the columns the importer reads
func (h *HelvaultDB) ValidateSchema() error {
	migrator := h.db.Migrator()

	for _, table := range []string{BinderTable, CardTable, CopyTable} {
		if !migrator.HasTable(table) {
			return fmt.Errorf("%w: %w %s", ErrInvalidExport, ErrMissingTable, table)
		}
		for _, column := range requiredColumns[table] {
			if !migrator.HasColumn(table, column) {
				return fmt.Errorf("%w: table %s has no column %s", ErrInvalidExport, table, column)
			}
		}
	}
	return nil
}

// TableCounts reports row counts for the export tables, for logging
func (h *HelvaultDB) TableCounts() map[string]int64 {
	counts := make(map[string]int64, 3)
	for _, table := range []string{BinderTable, CardTable, CopyTable} {
		var count int64
		if err := h.db.Table(table).Count(&count).Error; err != nil {
			count = -1
		}
		counts[table] = count
	}
	return counts
}
