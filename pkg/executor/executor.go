package executor

import (
	"sync"

	"pagedb/pkg/catalog"
	"pagedb/pkg/dberr"
	"pagedb/pkg/parser"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/btree"
	"pagedb/pkg/storage/heap"
	"pagedb/pkg/storage/pager"
)

// Result is the outcome of one statement. Rows and Columns are set for
// SELECT; Affected counts rows touched by DML and is zero for DDL.
type Result struct {
	Columns  []string
	Rows     [][]string
	Affected int
}

// Executor runs parsed statements against the catalog and storage. It
// is not safe for concurrent use; the database facade serializes
// writers above it.
type Executor struct {
	pager   *pager.Pager
	catalog *catalog.Catalog

	// tables caches heap bindings so repeated statements skip the
	// page-discovery scan. Guarded separately because concurrent
	// readers share one executor.
	mu     sync.Mutex
	tables map[primitives.TableID]*heap.Table
}

// New creates an executor over an opened pager and loaded catalog.
func New(p *pager.Pager, c *catalog.Catalog) *Executor {
	return &Executor{
		pager:   p,
		catalog: c,
		tables:  make(map[primitives.TableID]*heap.Table),
	}
}

// Execute dispatches one statement. The switch is exhaustive over the
// parser's statement set.
func (e *Executor) Execute(stmt parser.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStatement:
		return e.createTable(s)
	case *parser.DropTableStatement:
		return e.dropTable(s)
	case *parser.CreateIndexStatement:
		return e.createIndex(s)
	case *parser.InsertStatement:
		return e.insert(s)
	case *parser.SelectStatement:
		return e.selectRows(s)
	case *parser.UpdateStatement:
		return e.update(s)
	case *parser.DeleteStatement:
		return e.deleteRows(s)
	default:
		return nil, dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
			"unhandled statement type %T", stmt)
	}
}

// openTable resolves a table name to its schema and heap binding.
func (e *Executor) openTable(name string) (*catalog.TableSchema, *heap.Table, error) {
	tbl, err := e.catalog.GetTable(name)
	if err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.tables[tbl.ID]; ok {
		return tbl, cached, nil
	}

	desc, err := tbl.Desc()
	if err != nil {
		return nil, nil, err
	}
	h, err := heap.OpenTable(e.pager, tbl.ID, desc)
	if err != nil {
		return nil, nil, err
	}
	e.tables[tbl.ID] = h
	return tbl, h, nil
}

// treeFor binds an index definition to its B+Tree, wiring root changes
// back into the catalog.
func (e *Executor) treeFor(idx *catalog.IndexSchema, tbl *catalog.TableSchema) (*btree.BTree, error) {
	_, col, ok := tbl.Column(idx.Column)
	if !ok {
		return nil, dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
			"index %s references missing column %s.%s", idx.Name, idx.Table, idx.Column)
	}
	name := idx.Name
	return btree.New(e.pager, idx.ID, col.Type, idx.Root, func(root primitives.PageID) error {
		return e.catalog.SetIndexRoot(name, root)
	}), nil
}
