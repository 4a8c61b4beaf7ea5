package executor

import (
	"pagedb/pkg/catalog"
	"pagedb/pkg/dberr"
	"pagedb/pkg/parser"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/btree"
	"pagedb/pkg/storage/heap"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// boundIndex pairs an index's tree with the column it is keyed on, for
// maintenance during DML.
type boundIndex struct {
	schema *catalog.IndexSchema
	tree   *btree.BTree
	col    primitives.ColumnID
}

func (e *Executor) boundIndexes(tbl *catalog.TableSchema) ([]boundIndex, error) {
	var out []boundIndex
	for _, idx := range e.catalog.IndexesFor(tbl.Name) {
		tree, err := e.treeFor(idx, tbl)
		if err != nil {
			return nil, err
		}
		colID, _, ok := tbl.Column(idx.Column)
		if !ok {
			return nil, dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
				"index %s references missing column %s", idx.Name, idx.Column)
		}
		out = append(out, boundIndex{schema: idx, tree: tree, col: colID})
	}
	return out, nil
}

func (e *Executor) insert(stmt *parser.InsertStatement) (*Result, error) {
	tbl, h, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	desc := h.Desc()

	// Resolve the target column list; nil targets every column in
	// declaration order.
	targets := make([]primitives.ColumnID, 0, len(stmt.Columns))
	if stmt.Columns == nil {
		for i := primitives.ColumnID(0); i < desc.NumFields(); i++ {
			targets = append(targets, i)
		}
	} else {
		seen := make(map[primitives.ColumnID]bool)
		for _, name := range stmt.Columns {
			id, ok := desc.IndexOf(name)
			if !ok {
				return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownColumn,
					"column %s does not exist in table %s", name, tbl.Name)
			}
			if seen[id] {
				return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaViolation,
					"column %s named twice in insert", name)
			}
			seen[id] = true
			targets = append(targets, id)
		}
	}

	// Build and validate every row before touching storage, so a bad
	// row rejects the whole statement.
	rows := make([]*tuple.Tuple, 0, len(stmt.Rows))
	for rowNum, literals := range stmt.Rows {
		if len(literals) != len(targets) {
			return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaViolation,
				"row %d has %d values, expected %d", rowNum+1, len(literals), len(targets))
		}
		row := tuple.NewTuple(desc)
		for i, lit := range literals {
			if lit.Null {
				continue
			}
			if err := row.SetField(targets[i], lit.Field); err != nil {
				return nil, dberr.Wrap(err, dberr.CategoryUser, dberr.CodeSchemaViolation, "")
			}
		}
		for i, col := range tbl.Columns {
			if !col.Nullable && row.IsNull(primitives.ColumnID(i)) {
				return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaViolation,
					"column %s is NOT NULL but row %d leaves it NULL", col.Name, rowNum+1)
			}
		}
		rows = append(rows, row)
	}

	indexes, err := e.boundIndexes(tbl)
	if err != nil {
		return nil, err
	}
	if err := e.checkPrimaryKeys(tbl, indexes, rows); err != nil {
		return nil, err
	}

	for _, row := range rows {
		rid, err := h.Insert(row)
		if err != nil {
			return nil, err
		}
		for _, bi := range indexes {
			key, err := row.GetField(bi.col)
			if err != nil {
				return nil, err
			}
			if key == nil {
				continue
			}
			if err := bi.tree.Insert(key, rid); err != nil {
				return nil, err
			}
		}
	}
	return &Result{Affected: len(rows)}, nil
}

// checkPrimaryKeys rejects the insert batch when any row's primary key
// collides with a stored row or with another row of the same batch.
func (e *Executor) checkPrimaryKeys(tbl *catalog.TableSchema, indexes []boundIndex, rows []*tuple.Tuple) error {
	pkCol, ok := tbl.PrimaryKey()
	if !ok {
		return nil
	}
	pk := pkIndex(indexes, pkCol)

	batch := make(map[string]bool, len(rows))
	for _, row := range rows {
		key, err := row.GetField(pkCol)
		if err != nil {
			return err
		}
		if batch[key.String()] {
			return pkViolation(tbl, key)
		}
		batch[key.String()] = true

		if pk != nil {
			existing, err := pk.tree.Lookup(key)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return pkViolation(tbl, key)
			}
		}
	}
	return nil
}

func pkIndex(indexes []boundIndex, pkCol primitives.ColumnID) *boundIndex {
	for i := range indexes {
		if indexes[i].col == pkCol {
			return &indexes[i]
		}
	}
	return nil
}

func pkViolation(tbl *catalog.TableSchema, key types.Field) error {
	return dberr.Newf(dberr.CategoryUser, dberr.CodePrimaryKeyViolation,
		"duplicate primary key %s in table %s", key.String(), tbl.Name)
}

// collectMatching materializes the rows satisfying where, so mutation
// never races the scan producing its targets.
func (e *Executor) collectMatching(tbl *catalog.TableSchema, h *heap.Table, where parser.Expr, b *binding) ([]*tuple.Tuple, error) {
	if err := validateRefs(where, b); err != nil {
		return nil, err
	}
	var rows []*tuple.Tuple
	err := e.scanMatching(tbl, h, where, b, func(row *tuple.Tuple) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *Executor) update(stmt *parser.UpdateStatement) (*Result, error) {
	tbl, h, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	b := bindTable(tbl.Name, h.Desc())

	// Validate assignments against the schema up front.
	type change struct {
		col   primitives.ColumnID
		value types.Field
	}
	changes := make([]change, 0, len(stmt.Assignments))
	pkCol, hasPK := tbl.PrimaryKey()
	pkAssigned := false
	for _, asg := range stmt.Assignments {
		colID, col, ok := tbl.Column(asg.Column)
		if !ok {
			return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownColumn,
				"column %s does not exist in table %s", asg.Column, tbl.Name)
		}
		if asg.Value.Null {
			if !col.Nullable {
				return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaViolation,
					"column %s is NOT NULL", col.Name)
			}
			changes = append(changes, change{col: colID})
			continue
		}
		if asg.Value.Field.Type() != col.Type {
			return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeSchemaViolation,
				"column %s holds %s, got %s", col.Name, col.Type, asg.Value.Field.Type())
		}
		if hasPK && colID == pkCol {
			pkAssigned = true
		}
		changes = append(changes, change{col: colID, value: asg.Value.Field})
	}

	matches, err := e.collectMatching(tbl, h, stmt.Where, b)
	if err != nil {
		return nil, err
	}
	indexes, err := e.boundIndexes(tbl)
	if err != nil {
		return nil, err
	}
	var pk *boundIndex
	if hasPK {
		pk = pkIndex(indexes, pkCol)
	}

	for _, row := range matches {
		oldRid := row.RecordID
		updated := row.Clone()
		for _, ch := range changes {
			if err := updated.SetField(ch.col, ch.value); err != nil {
				return nil, dberr.Wrap(err, dberr.CategoryUser, dberr.CodeSchemaViolation, "")
			}
		}

		// A reassigned primary key must stay unique against every row
		// but the one being updated.
		if pkAssigned && pk != nil {
			newKey, _ := updated.GetField(pkCol)
			existing, err := pk.tree.Lookup(newKey)
			if err != nil {
				return nil, err
			}
			for _, rid := range existing {
				if !rid.Equals(oldRid) {
					return nil, pkViolation(tbl, newKey)
				}
			}
		}

		newRid, err := h.Replace(oldRid, updated)
		if err != nil {
			return nil, err
		}
		for _, bi := range indexes {
			oldKey, err := row.GetField(bi.col)
			if err != nil {
				return nil, err
			}
			newKey, err := updated.GetField(bi.col)
			if err != nil {
				return nil, err
			}
			if err := maintainIndex(bi, oldKey, oldRid, newKey, newRid); err != nil {
				return nil, err
			}
		}
	}
	return &Result{Affected: len(matches)}, nil
}

// maintainIndex reconciles one index entry after a row changed. Nothing
// happens when neither the key nor the locator moved.
func maintainIndex(bi boundIndex, oldKey types.Field, oldRid *tuple.RecordID, newKey types.Field, newRid *tuple.RecordID) error {
	same := fieldsEqual(oldKey, newKey) && oldRid.Equals(newRid)
	if same {
		return nil
	}
	if oldKey != nil {
		removed, err := bi.tree.Delete(oldKey, oldRid)
		if err != nil {
			return err
		}
		if !removed {
			return dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
				"index %s lost the entry for %s", bi.schema.Name, oldRid)
		}
	}
	if newKey != nil {
		return bi.tree.Insert(newKey, newRid)
	}
	return nil
}

func fieldsEqual(a, b types.Field) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	eq, err := a.Compare(types.Equals, b)
	return err == nil && eq
}

func (e *Executor) deleteRows(stmt *parser.DeleteStatement) (*Result, error) {
	tbl, h, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	b := bindTable(tbl.Name, h.Desc())

	matches, err := e.collectMatching(tbl, h, stmt.Where, b)
	if err != nil {
		return nil, err
	}
	indexes, err := e.boundIndexes(tbl)
	if err != nil {
		return nil, err
	}

	for _, row := range matches {
		if err := h.Delete(row.RecordID); err != nil {
			return nil, err
		}
		for _, bi := range indexes {
			key, err := row.GetField(bi.col)
			if err != nil {
				return nil, err
			}
			if key == nil {
				continue
			}
			removed, err := bi.tree.Delete(key, row.RecordID)
			if err != nil {
				return nil, err
			}
			if !removed {
				return nil, dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
					"index %s lost the entry for %s", bi.schema.Name, row.RecordID)
			}
		}
	}
	return &Result{Affected: len(matches)}, nil
}
