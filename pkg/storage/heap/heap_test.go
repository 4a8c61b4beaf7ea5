package heap

import (
	"path/filepath"
	"testing"

	"pagedb/pkg/log/wal"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"
	"pagedb/pkg/storage/pager"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) (*Table, *pager.Pager) {
	t.Helper()
	dir := t.TempDir()

	log, err := wal.Open(filepath.Join(dir, "w.wal"))
	require.NoError(t, err)
	p, err := pager.Create(filepath.Join(dir, "d.db"), log, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		p.Close()
		log.Close()
	})

	desc, err := tuple.NewTupleDescription(
		[]string{"id", "name"},
		[]types.Type{types.IntType, types.TextType},
	)
	require.NoError(t, err)

	table, err := OpenTable(p, 1, desc)
	require.NoError(t, err)
	return table, p
}

func makeRow(t *testing.T, table *Table, id int64, name string) *tuple.Tuple {
	t.Helper()
	row := tuple.NewTuple(table.Desc())
	require.NoError(t, row.SetField(0, types.NewIntField(id)))
	require.NoError(t, row.SetField(1, types.NewTextField(name)))
	return row
}

func TestInsertAndGet(t *testing.T) {
	table, _ := newTestTable(t)

	rid, err := table.Insert(makeRow(t, table, 1, "alice"))
	require.NoError(t, err)
	require.NotNil(t, rid)

	got, err := table.Get(rid)
	require.NoError(t, err)
	f, _ := got.GetField(1)
	assert.Equal(t, "alice", f.String())
}

func TestScanOrderIsPageSlotOrder(t *testing.T) {
	table, _ := newTestTable(t)

	for i := int64(1); i <= 10; i++ {
		_, err := table.Insert(makeRow(t, table, i, "row"))
		require.NoError(t, err)
	}

	var ids []int64
	require.NoError(t, table.Scan(func(row *tuple.Tuple) error {
		f, _ := row.GetField(0)
		ids = append(ids, f.(*types.IntField).Value)
		return nil
	}))
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids)
}

func TestDeleteRemovesFromScan(t *testing.T) {
	table, _ := newTestTable(t)

	rid1, err := table.Insert(makeRow(t, table, 1, "keep"))
	require.NoError(t, err)
	rid2, err := table.Insert(makeRow(t, table, 2, "drop"))
	require.NoError(t, err)

	require.NoError(t, table.Delete(rid2))

	var count int
	require.NoError(t, table.Scan(func(row *tuple.Tuple) error {
		count++
		assert.True(t, row.RecordID.Equals(rid1))
		return nil
	}))
	assert.Equal(t, 1, count)

	_, err = table.Get(rid2)
	assert.Error(t, err)
}

func TestReplaceKeepsLocatorWhenItFits(t *testing.T) {
	table, _ := newTestTable(t)

	rid, err := table.Insert(makeRow(t, table, 1, "abcdef"))
	require.NoError(t, err)

	newRid, err := table.Replace(rid, makeRow(t, table, 1, "xyzxyz"))
	require.NoError(t, err)
	assert.True(t, rid.Equals(newRid))

	got, err := table.Get(newRid)
	require.NoError(t, err)
	f, _ := got.GetField(1)
	assert.Equal(t, "xyzxyz", f.String())
}

func TestInsertSpillsToNewPage(t *testing.T) {
	table, p := newTestTable(t)

	// Wide rows force page spill well before a hundred inserts.
	wide := string(make([]byte, 200))
	for i := int64(0); i < 100; i++ {
		_, err := table.Insert(makeRow(t, table, i, wide))
		require.NoError(t, err)
	}
	require.Greater(t, len(table.PageIDs()), 1, "inserts must spill to fresh pages")

	var count int
	require.NoError(t, table.Scan(func(*tuple.Tuple) error {
		count++
		return nil
	}))
	assert.Equal(t, 100, count)
	assert.Greater(t, p.PageCount(), uint64(2))
}

func TestInsertNeverBackfillsOlderPages(t *testing.T) {
	table, _ := newTestTable(t)

	wide := string(make([]byte, 200))
	var rids []*tuple.RecordID
	for i := int64(0); i < 100; i++ {
		rid, err := table.Insert(makeRow(t, table, i, wide))
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	pages := table.PageIDs()
	require.Greater(t, len(pages), 1)

	// Empty out the first page entirely.
	firstPage := pages[0]
	for _, rid := range rids {
		if rid.PageID == firstPage {
			require.NoError(t, table.Delete(rid))
		}
	}

	rid, err := table.Insert(makeRow(t, table, 999, wide))
	require.NoError(t, err)
	assert.NotEqual(t, firstPage, rid.PageID, "inserts go to the newest page, not old gaps")
	after := table.PageIDs()
	assert.Equal(t, after[len(after)-1], rid.PageID)
}

func TestOpenTableRediscoversPages(t *testing.T) {
	table, p := newTestTable(t)

	wide := string(make([]byte, 200))
	for i := int64(0); i < 50; i++ {
		_, err := table.Insert(makeRow(t, table, i, wide))
		require.NoError(t, err)
	}
	want := table.PageIDs()

	reopened, err := OpenTable(p, 1, table.Desc())
	require.NoError(t, err)
	assert.Equal(t, want, reopened.PageIDs())
}

func TestTablesDoNotShareScans(t *testing.T) {
	table, p := newTestTable(t)
	_, err := table.Insert(makeRow(t, table, 1, "mine"))
	require.NoError(t, err)

	other, err := OpenTable(p, primitives.TableID(2), table.Desc())
	require.NoError(t, err)

	var count int
	require.NoError(t, other.Scan(func(*tuple.Tuple) error {
		count++
		return nil
	}))
	assert.Zero(t, count)
}

func TestFreePagesReturnsPagesToPager(t *testing.T) {
	table, p := newTestTable(t)
	_, err := table.Insert(makeRow(t, table, 1, "gone"))
	require.NoError(t, err)
	used := table.PageIDs()
	require.NotEmpty(t, used)

	require.NoError(t, table.FreePages())
	assert.Empty(t, table.PageIDs())

	// A new allocation reuses the freed page.
	id, err := p.Allocate(page.DataPage, 0)
	require.NoError(t, err)
	assert.Equal(t, used[len(used)-1], id)
}
