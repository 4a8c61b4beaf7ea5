package catalog

import (
	"strings"

	"pagedb/pkg/dberr"
	"pagedb/pkg/primitives"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// ColumnSchema describes one column of a table.
type ColumnSchema struct {
	Name       string     `json:"name"`
	Type       types.Type `json:"type"`
	Nullable   bool       `json:"nullable"`
	PrimaryKey bool       `json:"primary_key"`
}

// TableSchema is a table's persisted definition. Column order is
// declaration order and fixes the tuple layout.
type TableSchema struct {
	ID      primitives.TableID `json:"id"`
	Name    string             `json:"name"`
	Columns []ColumnSchema     `json:"columns"`
}

// Desc derives the tuple layout from the column list.
func (s *TableSchema) Desc() (*tuple.TupleDescription, error) {
	names := make([]string, len(s.Columns))
	kinds := make([]types.Type, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
		kinds[i] = col.Type
	}
	return tuple.NewTupleDescription(names, kinds)
}

// Column resolves a column name case-insensitively to its position and
// definition.
func (s *TableSchema) Column(name string) (primitives.ColumnID, *ColumnSchema, bool) {
	for i := range s.Columns {
		if strings.EqualFold(s.Columns[i].Name, name) {
			return primitives.ColumnID(i), &s.Columns[i], true
		}
	}
	return 0, nil, false
}

// PrimaryKey returns the primary key column's position, or false when
// the table has none.
func (s *TableSchema) PrimaryKey() (primitives.ColumnID, bool) {
	for i := range s.Columns {
		if s.Columns[i].PrimaryKey {
			return primitives.ColumnID(i), true
		}
	}
	return 0, false
}

func (s *TableSchema) validate() error {
	if s.Name == "" {
		return dberr.New(dberr.CategoryUser, dberr.CodeInvalidSchema, "table name is empty")
	}
	if len(s.Columns) == 0 {
		return dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidSchema,
			"table %s has no columns", s.Name)
	}

	seen := make(map[string]bool, len(s.Columns))
	pks := 0
	for _, col := range s.Columns {
		lower := strings.ToLower(col.Name)
		if col.Name == "" {
			return dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidSchema,
				"table %s has an unnamed column", s.Name)
		}
		if seen[lower] {
			return dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidSchema,
				"duplicate column %s in table %s", col.Name, s.Name)
		}
		seen[lower] = true
		if col.PrimaryKey {
			pks++
		}
	}
	if pks > 1 {
		return dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidSchema,
			"table %s declares %d primary keys", s.Name, pks)
	}
	return nil
}

// IndexSchema is a secondary (or primary-key) index definition. Root is
// the B+Tree's root page, InvalidPageID while the index is empty.
type IndexSchema struct {
	ID     primitives.IndexID `json:"id"`
	Name   string             `json:"name"`
	Table  string             `json:"table"`
	Column string             `json:"column"`
	Root   primitives.PageID  `json:"root"`
}
