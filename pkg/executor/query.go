package executor

import (
	"strings"

	"pagedb/pkg/catalog"
	"pagedb/pkg/dberr"
	"pagedb/pkg/parser"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/heap"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// binding resolves column references against a row layout. For joins,
// owners records which table contributed each column, so qualified
// references disambiguate columns sharing a name.
type binding struct {
	desc   *tuple.TupleDescription
	owners []string
}

func bindTable(tableName string, desc *tuple.TupleDescription) *binding {
	owners := make([]string, desc.NumFields())
	for i := range owners {
		owners[i] = tableName
	}
	return &binding{desc: desc, owners: owners}
}

func bindJoin(leftName string, left *tuple.TupleDescription, rightName string, right *tuple.TupleDescription, combined *tuple.TupleDescription) *binding {
	owners := make([]string, 0, combined.NumFields())
	for i := primitives.ColumnID(0); i < left.NumFields(); i++ {
		owners = append(owners, leftName)
	}
	for i := primitives.ColumnID(0); i < right.NumFields(); i++ {
		owners = append(owners, rightName)
	}
	return &binding{desc: combined, owners: owners}
}

// resolve maps a reference to its column position. An unqualified name
// matching columns in both sides of a join is ambiguous.
func (b *binding) resolve(ref parser.ColumnRef) (primitives.ColumnID, error) {
	found := -1
	for i, owner := range b.owners {
		name, _ := b.desc.NameAt(primitives.ColumnID(i))
		if !strings.EqualFold(name, ref.Column) {
			continue
		}
		if ref.Table != "" && !strings.EqualFold(owner, ref.Table) {
			continue
		}
		if found >= 0 {
			return 0, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownColumn,
				"column reference %s is ambiguous", ref)
		}
		found = i
	}
	if found < 0 {
		return 0, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownColumn,
			"column %s does not exist", ref)
	}
	return primitives.ColumnID(found), nil
}

// evaluate runs a predicate tree against one row. Any comparison
// touching a NULL — on either side — is false, never true, which also
// makes `col != NULL-value` false.
func evaluate(expr parser.Expr, row *tuple.Tuple, b *binding) (bool, error) {
	switch ex := expr.(type) {
	case *parser.ComparisonExpr:
		colID, err := b.resolve(ex.Column)
		if err != nil {
			return false, err
		}
		field, err := row.GetField(colID)
		if err != nil {
			return false, err
		}
		if field == nil || ex.Value.Null {
			return false, nil
		}
		pred, ok := types.PredicateFromOperator(ex.Op)
		if !ok {
			return false, dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
				"unparsable operator %q survived parsing", ex.Op)
		}
		return field.Compare(pred, ex.Value.Field)
	case *parser.LogicalExpr:
		left, err := evaluate(ex.Left, row, b)
		if err != nil {
			return false, err
		}
		if ex.Op == parser.OpAnd && !left {
			return false, nil
		}
		if ex.Op == parser.OpOr && left {
			return true, nil
		}
		return evaluate(ex.Right, row, b)
	default:
		return false, dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
			"unhandled predicate type %T", expr)
	}
}

// validateRefs resolves every column reference in a predicate tree so
// unknown columns fail the statement even when short-circuit evaluation
// would never reach them.
func validateRefs(expr parser.Expr, b *binding) error {
	switch ex := expr.(type) {
	case *parser.ComparisonExpr:
		_, err := b.resolve(ex.Column)
		return err
	case *parser.LogicalExpr:
		if err := validateRefs(ex.Left, b); err != nil {
			return err
		}
		return validateRefs(ex.Right, b)
	case nil:
		return nil
	default:
		return nil
	}
}

func (e *Executor) selectRows(stmt *parser.SelectStatement) (*Result, error) {
	if stmt.Join != nil {
		return e.selectJoin(stmt)
	}

	tbl, h, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	b := bindTable(tbl.Name, h.Desc())
	if err := validateRefs(stmt.Where, b); err != nil {
		return nil, err
	}

	project, names, err := projection(stmt.Columns, b)
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: names}
	err = e.scanMatching(tbl, h, stmt.Where, b, func(row *tuple.Tuple) error {
		result.Rows = append(result.Rows, project(row))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// projection compiles the SELECT list into a row renderer. A nil list
// means every column.
func projection(cols []parser.ColumnRef, b *binding) (func(*tuple.Tuple) []string, []string, error) {
	if cols == nil {
		return func(row *tuple.Tuple) []string { return row.Strings() }, b.desc.Names(), nil
	}

	ids := make([]primitives.ColumnID, len(cols))
	names := make([]string, len(cols))
	for i, ref := range cols {
		id, err := b.resolve(ref)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = id
		names[i], _ = b.desc.NameAt(id)
	}
	return func(row *tuple.Tuple) []string {
		out := make([]string, len(ids))
		all := row.Strings()
		for i, id := range ids {
			out[i] = all[id]
		}
		return out
	}, names, nil
}

func (e *Executor) selectJoin(stmt *parser.SelectStatement) (*Result, error) {
	outerTbl, outer, err := e.openTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	innerTbl, inner, err := e.openTable(stmt.Join.Table)
	if err != nil {
		return nil, err
	}

	outerB := bindTable(outerTbl.Name, outer.Desc())
	innerB := bindTable(innerTbl.Name, inner.Desc())

	// The ON clause may name the tables in either order.
	outerRef, innerRef := stmt.Join.Left, stmt.Join.Right
	if _, err := outerB.resolve(outerRef); err != nil {
		outerRef, innerRef = innerRef, outerRef
	}
	outerCol, err := outerB.resolve(outerRef)
	if err != nil {
		return nil, err
	}
	innerCol, err := innerB.resolve(innerRef)
	if err != nil {
		return nil, err
	}

	probe, err := e.innerProbe(innerTbl, inner, innerCol)
	if err != nil {
		return nil, err
	}

	var joined *binding
	var project func(*tuple.Tuple) []string
	var names []string
	result := &Result{}

	err = outer.Scan(func(outerRow *tuple.Tuple) error {
		key, err := outerRow.GetField(outerCol)
		if err != nil {
			return err
		}
		if key == nil {
			return nil
		}
		innerRows, err := probe(key)
		if err != nil {
			return err
		}
		for _, innerRow := range innerRows {
			combined, err := tuple.Combine(outerRow, innerRow)
			if err != nil {
				return err
			}
			if joined == nil {
				joined = bindJoin(outerTbl.Name, outer.Desc(), innerTbl.Name, inner.Desc(), combined.Desc)
				if err := validateRefs(stmt.Where, joined); err != nil {
					return err
				}
				if project, names, err = projection(stmt.Columns, joined); err != nil {
					return err
				}
				result.Columns = names
			}
			if stmt.Where != nil {
				ok, err := evaluate(stmt.Where, combined, joined)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			result.Rows = append(result.Rows, project(combined))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// No outer row matched anything: the column list still needs
	// resolving so errors do not depend on the data.
	if joined == nil {
		innerDesc := inner.Desc()
		dummy := tuple.NewTuple(outer.Desc())
		dummyInner := tuple.NewTuple(innerDesc)
		combined, err := tuple.Combine(dummy, dummyInner)
		if err != nil {
			return nil, err
		}
		jb := bindJoin(outerTbl.Name, outer.Desc(), innerTbl.Name, innerDesc, combined.Desc)
		if err := validateRefs(stmt.Where, jb); err != nil {
			return nil, err
		}
		if _, names, err = projection(stmt.Columns, jb); err != nil {
			return nil, err
		}
		result.Columns = names
	}
	return result, nil
}

// innerProbe returns a function fetching the inner rows matching a join
// key: an index lookup when the join column is indexed, else a scan
// over a one-time in-memory materialization.
func (e *Executor) innerProbe(tbl *catalog.TableSchema, h *heap.Table, col primitives.ColumnID) (func(types.Field) ([]*tuple.Tuple, error), error) {
	name, err := h.Desc().NameAt(col)
	if err != nil {
		return nil, err
	}

	if idx, ok := e.catalog.IndexOn(tbl.Name, name); ok {
		tree, err := e.treeFor(idx, tbl)
		if err != nil {
			return nil, err
		}
		return func(key types.Field) ([]*tuple.Tuple, error) {
			rids, err := tree.Lookup(key)
			if err != nil {
				return nil, err
			}
			rows := make([]*tuple.Tuple, 0, len(rids))
			for _, rid := range rids {
				row, err := h.Get(rid)
				if err != nil {
					return nil, err
				}
				rows = append(rows, row)
			}
			return rows, nil
		}, nil
	}

	var all []*tuple.Tuple
	if err := h.Scan(func(row *tuple.Tuple) error {
		all = append(all, row)
		return nil
	}); err != nil {
		return nil, err
	}
	return func(key types.Field) ([]*tuple.Tuple, error) {
		var rows []*tuple.Tuple
		for _, row := range all {
			f, err := row.GetField(col)
			if err != nil {
				return nil, err
			}
			if f == nil {
				continue
			}
			match, err := f.Compare(types.Equals, key)
			if err != nil {
				return nil, err
			}
			if match {
				rows = append(rows, row)
			}
		}
		return rows, nil
	}, nil
}
