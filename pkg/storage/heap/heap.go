package heap

import (
	"fmt"

	"pagedb/pkg/log/wal"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"
	"pagedb/pkg/storage/pager"
	"pagedb/pkg/tuple"
)

// Table is one table's tuple storage: the set of data pages tagged with
// the table's id, reached only through the pager. Insertion appends to
// the newest page with room; scans visit pages in page-id order and
// slots in slot order, so repeated scans are deterministic.
type Table struct {
	pager   *pager.Pager
	tableID primitives.TableID
	desc    *tuple.TupleDescription

	pageIDs []primitives.PageID
}

// OpenTable binds a heap to a table's pages, discovering them with one
// pass over the backing file.
func OpenTable(p *pager.Pager, tableID primitives.TableID, desc *tuple.TupleDescription) (*Table, error) {
	t := &Table{pager: p, tableID: tableID, desc: desc}

	count := p.PageCount()
	for id := primitives.PageID(1); uint64(id) < count; id++ {
		pg, err := p.Read(id)
		if err != nil {
			return nil, err
		}
		if pg.Type() == page.DataPage && pg.TableID() == tableID {
			t.pageIDs = append(t.pageIDs, id)
		}
	}
	return t, nil
}

// Desc returns the table's tuple layout.
func (t *Table) Desc() *tuple.TupleDescription {
	return t.desc
}

// PageIDs returns the table's data pages in scan order.
func (t *Table) PageIDs() []primitives.PageID {
	return append([]primitives.PageID(nil), t.pageIDs...)
}

// Insert stores a tuple and stamps its record id. The payload goes into
// the newest page with room; otherwise a fresh page is allocated.
func (t *Table) Insert(row *tuple.Tuple) (*tuple.RecordID, error) {
	if !row.Desc.Equals(t.desc) {
		return nil, fmt.Errorf("tuple layout does not match table layout")
	}

	payload, err := row.Bytes()
	if err != nil {
		return nil, err
	}
	if len(payload) > page.MaxSlotPayload {
		return nil, fmt.Errorf("tuple of %d bytes exceeds page capacity", len(payload))
	}

	// Only the newest page takes inserts. Deletion gaps in older pages
	// are not backfilled; they are reclaimed when Replace compacts the
	// page in place, or when DROP TABLE frees it.
	if n := len(t.pageIDs); n > 0 {
		pg, err := t.pager.Read(t.pageIDs[n-1])
		if err != nil {
			return nil, err
		}
		if pg.HasSpaceFor(len(payload)) {
			return t.insertInto(pg, row, payload)
		}
	}

	id, err := t.pager.Allocate(page.DataPage, t.tableID)
	if err != nil {
		return nil, err
	}
	t.pageIDs = append(t.pageIDs, id)

	pg, err := t.pager.Read(id)
	if err != nil {
		return nil, err
	}
	return t.insertInto(pg, row, payload)
}

func (t *Table) insertInto(pg *page.Page, row *tuple.Tuple, payload []byte) (*tuple.RecordID, error) {
	slot, err := pg.InsertSlot(payload)
	if err != nil {
		return nil, err
	}
	if err := t.pager.Write(pg, wal.RecordInsert); err != nil {
		return nil, err
	}
	row.RecordID = tuple.NewRecordID(pg.ID(), slot)
	return row.RecordID, nil
}

// Get reads the tuple at a row locator.
func (t *Table) Get(rid *tuple.RecordID) (*tuple.Tuple, error) {
	pg, err := t.pager.Read(rid.PageID)
	if err != nil {
		return nil, err
	}
	payload, err := pg.ReadSlot(rid.SlotID)
	if err != nil {
		return nil, err
	}

	row, err := tuple.ParseBytes(payload, t.desc)
	if err != nil {
		return nil, err
	}
	row.RecordID = rid
	return row, nil
}

// Delete removes the tuple at a row locator. The slot's bytes become a
// gap; Compact on the page coalesces gaps when an insert needs room.
func (t *Table) Delete(rid *tuple.RecordID) error {
	pg, err := t.pager.Read(rid.PageID)
	if err != nil {
		return err
	}
	if err := pg.DeleteSlot(rid.SlotID); err != nil {
		return err
	}
	return t.pager.Write(pg, wal.RecordDelete)
}

// Replace swaps the tuple at rid for a new one. The locator is kept
// whenever the page can hold the new payload (compacting if needed);
// when it cannot, the row moves and the returned locator differs from
// rid, which the caller must propagate to every index.
func (t *Table) Replace(rid *tuple.RecordID, row *tuple.Tuple) (*tuple.RecordID, error) {
	if !row.Desc.Equals(t.desc) {
		return nil, fmt.Errorf("tuple layout does not match table layout")
	}
	payload, err := row.Bytes()
	if err != nil {
		return nil, err
	}

	pg, err := t.pager.Read(rid.PageID)
	if err != nil {
		return nil, err
	}

	if err := pg.ReplaceSlot(rid.SlotID, payload); err == nil {
		if err := t.pager.Write(pg, wal.RecordUpdate); err != nil {
			return nil, err
		}
		row.RecordID = rid
		return rid, nil
	}

	// The page cannot hold the grown payload: move the row.
	if err := pg.DeleteSlot(rid.SlotID); err != nil {
		return nil, err
	}
	if err := t.pager.Write(pg, wal.RecordUpdate); err != nil {
		return nil, err
	}
	return t.Insert(row)
}

// Scan visits every live tuple in (page, slot) order. Returning an
// error from visit stops the scan and propagates the error.
func (t *Table) Scan(visit func(*tuple.Tuple) error) error {
	for _, id := range t.pageIDs {
		pg, err := t.pager.Read(id)
		if err != nil {
			return err
		}
		for _, slot := range pg.LiveSlots() {
			payload, err := pg.ReadSlot(slot)
			if err != nil {
				return err
			}
			row, err := tuple.ParseBytes(payload, t.desc)
			if err != nil {
				return fmt.Errorf("failed to parse tuple at page %d slot %d: %w", id, slot, err)
			}
			row.RecordID = tuple.NewRecordID(id, slot)
			if err := visit(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// FreePages returns every data page of the table to the pager's free
// list, used by DROP TABLE.
func (t *Table) FreePages() error {
	for _, id := range t.pageIDs {
		if err := t.pager.Free(id); err != nil {
			return err
		}
	}
	t.pageIDs = nil
	return nil
}
