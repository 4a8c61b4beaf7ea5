package executor

import (
	"strings"

	"pagedb/pkg/catalog"
	"pagedb/pkg/logging"
	"pagedb/pkg/parser"
	"pagedb/pkg/storage/heap"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// accessPath is the chosen way to produce candidate rows for a
// predicate: an index equality lookup, an index range scan, or a full
// heap scan. Candidates are always re-checked against the complete
// predicate, so a path only has to be a superset of the answer.
type accessPath struct {
	index  *catalog.IndexSchema
	key    types.Field // equality lookup
	lo, hi types.Field // inclusive range bounds, nil = open
}

// scanMatching runs visit over every row of the table satisfying where.
// Rows arrive in heap order for full scans and key order for index
// paths.
func (e *Executor) scanMatching(tbl *catalog.TableSchema, h *heap.Table, where parser.Expr, b *binding, visit func(*tuple.Tuple) error) error {
	filter := func(row *tuple.Tuple) error {
		if where != nil {
			ok, err := evaluate(where, row, b)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		return visit(row)
	}

	path := e.choosePath(tbl, where)
	if path == nil {
		return h.Scan(filter)
	}

	tree, err := e.treeFor(path.index, tbl)
	if err != nil {
		return err
	}

	if path.key != nil {
		logging.Debug("index lookup", "index", path.index.Name, "key", path.key.String())
		rids, err := tree.Lookup(path.key)
		if err != nil {
			return err
		}
		for _, rid := range rids {
			row, err := h.Get(rid)
			if err != nil {
				return err
			}
			if err := filter(row); err != nil {
				return err
			}
		}
		return nil
	}

	logging.Debug("index range scan", "index", path.index.Name)
	it, err := tree.Range(path.lo, path.hi)
	if err != nil {
		return err
	}
	for {
		_, rid, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		row, err := h.Get(rid)
		if err != nil {
			return err
		}
		if err := filter(row); err != nil {
			return err
		}
	}
}

// choosePath inspects the AND-conjuncts of the predicate for
// comparisons on indexed columns. Equality wins over a range; nil means
// full scan. Strict bounds are widened to inclusive ones since every
// candidate is re-filtered.
func (e *Executor) choosePath(tbl *catalog.TableSchema, where parser.Expr) *accessPath {
	if where == nil {
		return nil
	}

	var ranged *accessPath
	for _, conjunct := range andConjuncts(where) {
		cmp, ok := conjunct.(*parser.ComparisonExpr)
		if !ok || cmp.Value.Null {
			continue
		}
		if cmp.Column.Table != "" && !strings.EqualFold(cmp.Column.Table, tbl.Name) {
			continue
		}
		_, col, ok := tbl.Column(cmp.Column.Column)
		if !ok || col.Type != cmp.Value.Field.Type() {
			continue
		}
		idx, ok := e.catalog.IndexOn(tbl.Name, col.Name)
		if !ok {
			continue
		}

		switch cmp.Op {
		case "=", "==":
			return &accessPath{index: idx, key: cmp.Value.Field}
		case ">", ">=":
			ranged = tightenLo(ranged, idx, cmp.Value.Field)
		case "<", "<=":
			ranged = tightenHi(ranged, idx, cmp.Value.Field)
		}
	}
	return ranged
}

// andConjuncts flattens the top-level AND spine of a predicate. An OR
// node is opaque: it stays one conjunct and never narrows the path.
func andConjuncts(expr parser.Expr) []parser.Expr {
	if logical, ok := expr.(*parser.LogicalExpr); ok && logical.Op == parser.OpAnd {
		return append(andConjuncts(logical.Left), andConjuncts(logical.Right)...)
	}
	return []parser.Expr{expr}
}

func tightenLo(p *accessPath, idx *catalog.IndexSchema, key types.Field) *accessPath {
	if p == nil {
		return &accessPath{index: idx, lo: key}
	}
	if p.index.ID != idx.ID {
		return p
	}
	if p.lo == nil || types.CompareKeys(key, p.lo) > 0 {
		p.lo = key
	}
	return p
}

func tightenHi(p *accessPath, idx *catalog.IndexSchema, key types.Field) *accessPath {
	if p == nil {
		return &accessPath{index: idx, hi: key}
	}
	if p.index.ID != idx.ID {
		return p
	}
	if p.hi == nil || types.CompareKeys(key, p.hi) < 0 {
		p.hi = key
	}
	return p
}
