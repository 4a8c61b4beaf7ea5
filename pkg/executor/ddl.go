package executor

import (
	"pagedb/pkg/catalog"
	"pagedb/pkg/logging"
	"pagedb/pkg/parser"
	"pagedb/pkg/tuple"
)

func (e *Executor) createTable(stmt *parser.CreateTableStatement) (*Result, error) {
	columns := make([]catalog.ColumnSchema, len(stmt.Columns))
	for i, col := range stmt.Columns {
		columns[i] = catalog.ColumnSchema{
			Name:       col.Name,
			Type:       col.Type,
			Nullable:   col.Nullable,
			PrimaryKey: col.PrimaryKey,
		}
	}
	if _, err := e.catalog.CreateTable(stmt.Table, columns); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

// dropTable removes the table's definition, its heap pages, and every
// index built on it.
func (e *Executor) dropTable(stmt *parser.DropTableStatement) (*Result, error) {
	tbl, h, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	// Free the index trees while their catalog entries still exist, so
	// the root-change callback has somewhere to persist to.
	indexes := e.catalog.IndexesFor(stmt.Table)
	for _, idx := range indexes {
		tree, err := e.treeFor(idx, tbl)
		if err != nil {
			return nil, err
		}
		if err := tree.FreeAll(); err != nil {
			return nil, err
		}
	}

	dropped, _, err := e.catalog.DropTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	if err := h.FreePages(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	delete(e.tables, dropped.ID)
	e.mu.Unlock()

	logging.Info("dropped table", "table", dropped.Name, "indexes", len(indexes))
	return &Result{}, nil
}

// createIndex registers the index and backfills it from the existing
// rows. NULL keys are not indexed.
func (e *Executor) createIndex(stmt *parser.CreateIndexStatement) (*Result, error) {
	tbl, h, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	idx, err := e.catalog.RegisterIndex(stmt.Name, stmt.Table, stmt.Column)
	if err != nil {
		return nil, err
	}
	tree, err := e.treeFor(idx, tbl)
	if err != nil {
		return nil, err
	}

	colID, _, _ := tbl.Column(stmt.Column)
	var indexed int
	err = h.Scan(func(row *tuple.Tuple) error {
		key, err := row.GetField(colID)
		if err != nil {
			return err
		}
		if key == nil {
			return nil
		}
		indexed++
		return tree.Insert(key, row.RecordID)
	})
	if err != nil {
		return nil, err
	}

	logging.Info("built index", "index", idx.Name, "entries", indexed)
	return &Result{}, nil
}
