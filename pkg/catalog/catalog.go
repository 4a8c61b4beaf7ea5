package catalog

import (
	"encoding/binary"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"pagedb/pkg/dberr"
	"pagedb/pkg/log/wal"
	"pagedb/pkg/logging"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"
	"pagedb/pkg/storage/pager"
)

// Catalog holds every table and index definition. The whole catalog is
// serialized as one JSON document chained across catalog pages, rooted
// at the superblock; every mutation rewrites and persists the document
// before returning.
//
// Table and index names are case-insensitive; the declared spelling is
// preserved for display.
type Catalog struct {
	mu    sync.RWMutex
	pager *pager.Pager

	tables  map[string]*TableSchema
	indexes map[string]*IndexSchema

	nextTableID primitives.TableID
	nextIndexID primitives.IndexID

	// pages is the current catalog chain, reused across rewrites.
	pages []primitives.PageID
}

// catalogDoc is the persisted form.
type catalogDoc struct {
	NextTableID primitives.TableID `json:"next_table_id"`
	NextIndexID primitives.IndexID `json:"next_index_id"`
	Tables      []*TableSchema     `json:"tables"`
	Indexes     []*IndexSchema     `json:"indexes"`
}

// Catalog page body layout: [next u64][len u32][chunk].
const (
	chainHeaderSize = 8 + 4
	chunkCapacity   = page.PageSize - page.HeaderSize - chainHeaderSize
)

// Load reads the catalog chain rooted at the superblock. A database
// that has never seen DDL has no chain and loads empty.
func Load(p *pager.Pager) (*Catalog, error) {
	c := &Catalog{
		pager:       p,
		tables:      make(map[string]*TableSchema),
		indexes:     make(map[string]*IndexSchema),
		nextTableID: 1,
		nextIndexID: 1,
	}

	root := p.CatalogRoot()
	if root == primitives.InvalidPageID {
		return c, nil
	}

	var data []byte
	for id := root; id != primitives.InvalidPageID; {
		pg, err := p.Read(id)
		if err != nil {
			return nil, err
		}
		if pg.Type() != page.CatalogPage {
			return nil, dberr.Newf(dberr.CategoryData, dberr.CodeCorruptPage,
				"catalog chain page %d is %s", id, pg.Type())
		}
		body := pg.Body()
		next := primitives.PageID(binary.LittleEndian.Uint64(body))
		size := binary.LittleEndian.Uint32(body[8:])
		if int(size) > chunkCapacity {
			return nil, dberr.Newf(dberr.CategoryData, dberr.CodeCorruptPage,
				"catalog chunk of %d bytes in page %d", size, id)
		}
		data = append(data, body[chainHeaderSize:chainHeaderSize+size]...)
		c.pages = append(c.pages, id)
		id = next
	}

	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeCorruptPage,
			"undecodable catalog document")
	}

	c.nextTableID = doc.NextTableID
	c.nextIndexID = doc.NextIndexID
	for _, tbl := range doc.Tables {
		c.tables[strings.ToLower(tbl.Name)] = tbl
	}
	for _, idx := range doc.Indexes {
		c.indexes[strings.ToLower(idx.Name)] = idx
	}
	logging.Info("catalog loaded", "tables", len(c.tables), "indexes", len(c.indexes))
	return c, nil
}

// CreateTable registers a table and, when a primary key is declared,
// its pk_<table> index. The primary key column is implicitly NOT NULL.
func (c *Catalog) CreateTable(name string, columns []ColumnSchema) (*TableSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(name)
	if _, ok := c.tables[key]; ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeDuplicateTable,
			"table %s already exists", name)
	}

	tbl := &TableSchema{
		ID:      c.nextTableID,
		Name:    name,
		Columns: append([]ColumnSchema(nil), columns...),
	}
	if err := tbl.validate(); err != nil {
		return nil, err
	}
	for i := range tbl.Columns {
		if tbl.Columns[i].PrimaryKey {
			tbl.Columns[i].Nullable = false
		}
	}

	c.nextTableID++
	c.tables[key] = tbl

	if pkCol, ok := tbl.PrimaryKey(); ok {
		idx := &IndexSchema{
			ID:     c.nextIndexID,
			Name:   "pk_" + key,
			Table:  tbl.Name,
			Column: tbl.Columns[pkCol].Name,
			Root:   primitives.InvalidPageID,
		}
		c.nextIndexID++
		c.indexes[idx.Name] = idx
	}

	if err := c.persist(); err != nil {
		return nil, err
	}
	logging.Info("table created", "table", tbl.Name, "columns", len(tbl.Columns))
	return tbl, nil
}

// GetTable resolves a table by name.
func (c *Catalog) GetTable(name string) (*TableSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tbl, ok := c.tables[strings.ToLower(name)]
	if !ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownTable,
			"table %s does not exist", name)
	}
	return tbl, nil
}

// Tables returns every table, sorted by id.
func (c *Catalog) Tables() []*TableSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*TableSchema, 0, len(c.tables))
	for _, tbl := range c.tables {
		out = append(out, tbl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DropTable removes a table and every index on it, returning the
// removed index definitions so the caller can free their pages.
func (c *Catalog) DropTable(name string) (*TableSchema, []*IndexSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(name)
	tbl, ok := c.tables[key]
	if !ok {
		return nil, nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownTable,
			"table %s does not exist", name)
	}

	var dropped []*IndexSchema
	for idxKey, idx := range c.indexes {
		if strings.EqualFold(idx.Table, tbl.Name) {
			dropped = append(dropped, idx)
			delete(c.indexes, idxKey)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i].ID < dropped[j].ID })
	delete(c.tables, key)

	if err := c.persist(); err != nil {
		return nil, nil, err
	}
	logging.Info("table dropped", "table", tbl.Name, "indexes", len(dropped))
	return tbl, dropped, nil
}

// RegisterIndex adds a secondary index definition on one column. The
// tree itself starts empty; the caller backfills and sets the root.
func (c *Catalog) RegisterIndex(name, tableName, columnName string) (*IndexSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tbl, ok := c.tables[strings.ToLower(tableName)]
	if !ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownTable,
			"table %s does not exist", tableName)
	}
	if _, _, ok := tbl.Column(columnName); !ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownColumn,
			"column %s does not exist in table %s", columnName, tbl.Name)
	}
	key := strings.ToLower(name)
	if _, ok := c.indexes[key]; ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeDuplicateIndex,
			"index %s already exists", name)
	}

	idx := &IndexSchema{
		ID:     c.nextIndexID,
		Name:   name,
		Table:  tbl.Name,
		Column: columnName,
		Root:   primitives.InvalidPageID,
	}
	c.nextIndexID++
	c.indexes[key] = idx

	if err := c.persist(); err != nil {
		return nil, err
	}
	logging.Info("index registered", "index", idx.Name, "table", idx.Table, "column", idx.Column)
	return idx, nil
}

// GetIndex resolves an index by name.
func (c *Catalog) GetIndex(name string) (*IndexSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes[strings.ToLower(name)]
	if !ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeUnknownColumn,
			"index %s does not exist", name)
	}
	return idx, nil
}

// IndexesFor returns every index on a table, sorted by id.
func (c *Catalog) IndexesFor(tableName string) []*IndexSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*IndexSchema
	for _, idx := range c.indexes {
		if strings.EqualFold(idx.Table, tableName) {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IndexOn finds an index keyed on exactly this column, if one exists.
func (c *Catalog) IndexOn(tableName, columnName string) (*IndexSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, idx := range c.indexes {
		if strings.EqualFold(idx.Table, tableName) && strings.EqualFold(idx.Column, columnName) {
			return idx, true
		}
	}
	return nil, false
}

// SetIndexRoot durably records an index's new root page.
func (c *Catalog) SetIndexRoot(indexName string, root primitives.PageID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[strings.ToLower(indexName)]
	if !ok {
		return dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
			"root update for unregistered index %s", indexName)
	}
	if idx.Root == root {
		return nil
	}
	idx.Root = root
	return c.persist()
}

// persist rewrites the catalog chain. Existing chain pages are reused,
// the chain grows or shrinks to fit, and the superblock root is updated
// when the first page changes. Callers hold c.mu.
func (c *Catalog) persist() error {
	doc := catalogDoc{
		NextTableID: c.nextTableID,
		NextIndexID: c.nextIndexID,
	}
	for _, tbl := range c.tables {
		doc.Tables = append(doc.Tables, tbl)
	}
	for _, idx := range c.indexes {
		doc.Indexes = append(doc.Indexes, idx)
	}
	sort.Slice(doc.Tables, func(i, j int) bool { return doc.Tables[i].ID < doc.Tables[j].ID })
	sort.Slice(doc.Indexes, func(i, j int) bool { return doc.Indexes[i].ID < doc.Indexes[j].ID })

	data, err := json.Marshal(&doc)
	if err != nil {
		return dberr.Wrap(err, dberr.CategoryInternal, dberr.CodeInternal,
			"failed to encode catalog")
	}

	need := (len(data) + chunkCapacity - 1) / chunkCapacity
	if need == 0 {
		need = 1
	}
	for len(c.pages) < need {
		id, err := c.pager.Allocate(page.CatalogPage, 0)
		if err != nil {
			return err
		}
		c.pages = append(c.pages, id)
	}
	surplus := c.pages[need:]
	c.pages = c.pages[:need:need]

	for i := 0; i < need; i++ {
		pg, err := c.pager.Read(c.pages[i])
		if err != nil {
			return err
		}
		chunk := data[i*chunkCapacity : min(len(data), (i+1)*chunkCapacity)]
		next := primitives.InvalidPageID
		if i+1 < need {
			next = c.pages[i+1]
		}

		body := pg.Body()
		binary.LittleEndian.PutUint64(body, uint64(next))
		binary.LittleEndian.PutUint32(body[8:], uint32(len(chunk)))
		copy(body[chainHeaderSize:], chunk)
		if err := c.pager.Write(pg, wal.RecordPageWrite); err != nil {
			return err
		}
	}

	for _, id := range surplus {
		if err := c.pager.Free(id); err != nil {
			return err
		}
	}
	if c.pager.CatalogRoot() != c.pages[0] {
		return c.pager.SetCatalogRoot(c.pages[0])
	}
	return nil
}
