package pager

import (
	"path/filepath"
	"testing"

	"pagedb/pkg/dberr"
	"pagedb/pkg/log/wal"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir     string
	dbPath  string
	walPath string
	log     *wal.WAL
	pager   *Pager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		dbPath:  filepath.Join(dir, "pagedb.db"),
		walPath: filepath.Join(dir, "pagedb.wal"),
	}

	log, err := wal.Open(f.walPath)
	require.NoError(t, err)
	f.log = log

	p, err := Create(f.dbPath, log, 64)
	require.NoError(t, err)
	f.pager = p

	t.Cleanup(func() {
		f.pager.Close()
		f.log.Close()
	})
	return f
}

func (f *fixture) reopen(t *testing.T) {
	t.Helper()
	require.NoError(t, f.pager.Close())
	p, err := Open(f.dbPath, f.log, 64)
	require.NoError(t, err)
	f.pager = p
}

func TestAllocateReadWrite(t *testing.T) {
	f := newFixture(t)

	id, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	assert.Equal(t, primitives.PageID(1), id, "first allocation is page 1; page 0 is the superblock")

	pg, err := f.pager.Read(id)
	require.NoError(t, err)
	slot, err := pg.InsertSlot([]byte("tuple bytes"))
	require.NoError(t, err)
	require.NoError(t, f.pager.Write(pg, wal.RecordInsert))

	got, err := f.pager.Read(id)
	require.NoError(t, err)
	payload, err := got.ReadSlot(slot)
	require.NoError(t, err)
	assert.Equal(t, []byte("tuple bytes"), payload)
}

func TestPagesSurviveReopen(t *testing.T) {
	f := newFixture(t)

	id, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	pg, _ := f.pager.Read(id)
	_, err = pg.InsertSlot([]byte("durable"))
	require.NoError(t, err)
	require.NoError(t, f.pager.Write(pg, wal.RecordInsert))

	f.reopen(t)

	got, err := f.pager.Read(id)
	require.NoError(t, err)
	payloads := got.LiveSlots()
	require.Len(t, payloads, 1)
}

func TestFreeListReuse(t *testing.T) {
	f := newFixture(t)

	a, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	b, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)

	// Write data into a, then free it.
	pg, _ := f.pager.Read(a)
	_, err = pg.InsertSlot([]byte("stale secret"))
	require.NoError(t, err)
	require.NoError(t, f.pager.Write(pg, wal.RecordInsert))
	require.NoError(t, f.pager.Free(a))

	// The freed page is first-fit reused and must come back reformatted.
	c, err := f.pager.Allocate(page.IndexPage, 2)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	got, err := f.pager.Read(c)
	require.NoError(t, err)
	assert.Equal(t, page.IndexPage, got.Type())
	assert.Equal(t, primitives.SlotID(0), got.SlotCount())
	for _, byt := range got.Body() {
		require.Zero(t, byt, "reused page must not leak stale slot data")
	}

	// b was untouched.
	_, err = f.pager.Read(b)
	assert.NoError(t, err)
}

func TestStorageFull(t *testing.T) {
	dir := t.TempDir()
	log, err := wal.Open(filepath.Join(dir, "w.wal"))
	require.NoError(t, err)
	defer log.Close()

	p, err := Create(filepath.Join(dir, "d.db"), log, 3)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	_, err = p.Allocate(page.DataPage, 1)
	require.NoError(t, err)

	_, err = p.Allocate(page.DataPage, 1)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.CodeStorageFull), "got %v", err)
}

func TestReadOutOfBounds(t *testing.T) {
	f := newFixture(t)
	_, err := f.pager.Read(40)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.CodeCorruptPage), "got %v", err)
}

func TestWALPrecedesPageWrite(t *testing.T) {
	f := newFixture(t)

	id, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	pg, _ := f.pager.Read(id)
	_, err = pg.InsertSlot([]byte("logged first"))
	require.NoError(t, err)
	require.NoError(t, f.pager.Write(pg, wal.RecordInsert))

	// Every page write must appear in the log with a full image.
	var images int
	require.NoError(t, wal.Replay(f.walPath, 0, func(rec *wal.Record) error {
		if rec.PageID == id {
			require.Len(t, rec.Image, page.PageSize)
			images++
		}
		return nil
	}))
	assert.GreaterOrEqual(t, images, 2, "allocation and data write must both be logged")
}

func TestReplayReconstructsUnwrittenPage(t *testing.T) {
	f := newFixture(t)

	id, err := f.pager.Allocate(page.DataPage, 7)
	require.NoError(t, err)
	pg, _ := f.pager.Read(id)
	slot, err := pg.InsertSlot([]byte("recovered row"))
	require.NoError(t, err)

	// Crash simulation: the mutation reaches the WAL but never the
	// backing file.
	image := pg.ToBytes()
	lsn, err := f.log.Append(wal.RecordInsert, id, image)
	require.NoError(t, err)
	require.NoError(t, f.log.FlushThrough(lsn))

	f.reopen(t)

	// Before replay the page lacks the row.
	before, err := f.pager.Read(id)
	require.NoError(t, err)
	require.False(t, before.IsSlotLive(slot))

	require.NoError(t, wal.Replay(f.walPath, f.pager.CheckpointLSN(), func(rec *wal.Record) error {
		if rec.Type == wal.RecordCheckpoint {
			return nil
		}
		return f.pager.ApplyImage(rec.PageID, rec.Image)
	}))

	after, err := f.pager.Read(id)
	require.NoError(t, err)
	payload, err := after.ReadSlot(slot)
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered row"), payload)
}

func TestReplayTwiceEqualsReplayOnce(t *testing.T) {
	f := newFixture(t)

	id, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	pg, _ := f.pager.Read(id)
	_, err = pg.InsertSlot([]byte("idempotent"))
	require.NoError(t, err)
	require.NoError(t, f.pager.Write(pg, wal.RecordInsert))

	replay := func() {
		require.NoError(t, wal.Replay(f.walPath, 0, func(rec *wal.Record) error {
			if rec.Type == wal.RecordCheckpoint {
				return nil
			}
			return f.pager.ApplyImage(rec.PageID, rec.Image)
		}))
	}

	replay()
	first, err := f.pager.Read(id)
	require.NoError(t, err)
	firstBytes := first.ToBytes()

	replay()
	second, err := f.pager.Read(id)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, second.ToBytes())
}

func TestCheckpointAdvancesReplayHorizon(t *testing.T) {
	f := newFixture(t)

	_, err := f.pager.Allocate(page.DataPage, 1)
	require.NoError(t, err)
	require.NoError(t, f.pager.Checkpoint(f.log.EndLSN()))

	var replayed int
	require.NoError(t, wal.Replay(f.walPath, f.pager.CheckpointLSN(), func(*wal.Record) error {
		replayed++
		return nil
	}))
	assert.Zero(t, replayed, "nothing after a checkpoint at end-of-log")
}
