package pager

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"pagedb/pkg/dberr"
	"pagedb/pkg/log/wal"
	"pagedb/pkg/logging"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"
)

// DefaultMaxPages bounds file growth when the caller does not configure
// a limit (1 GiB of 4 KiB pages).
const DefaultMaxPages = 262144

// Pager manages fixed-size page I/O over a single backing file. Every
// page write goes through the WAL first (log-before-data); no component
// above the pager touches the file directly.
//
// Page 0 is the superblock and is never handed out. Freed pages form a
// LIFO free list threaded through the first 8 bytes of each free page's
// body.
type Pager struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	log   *wal.WAL
	super *Superblock

	maxPages uint64
}

// Create initializes a fresh backing file at path containing only the
// superblock. It fails if the file already exists.
func Create(path string, log *wal.WAL, maxPages uint64) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create backing file: %w", err)
	}

	p := &Pager{
		file: file,
		path: path,
		log:  log,
		super: &Superblock{
			Magic:     Magic,
			PageSize:  page.PageSize,
			PageCount: 1,
		},
		maxPages: normalizeMaxPages(maxPages),
	}
	if err := p.writeSuperblock(); err != nil {
		file.Close()
		return nil, err
	}
	logging.Info("created backing file", "path", path)
	return p, nil
}

// Open opens an existing backing file, validating its superblock.
func Open(path string, log *wal.WAL, maxPages uint64) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open backing file: %w", err)
	}

	raw := make([]byte, page.PageSize)
	if _, err := file.ReadAt(raw, 0); err != nil {
		file.Close()
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeCorruptPage, "unreadable superblock")
	}
	super, err := parseSuperblock(raw)
	if err != nil {
		file.Close()
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeCorruptPage, "invalid superblock")
	}

	return &Pager{
		file:     file,
		path:     path,
		log:      log,
		super:    super,
		maxPages: normalizeMaxPages(maxPages),
	}, nil
}

func normalizeMaxPages(n uint64) uint64 {
	if n == 0 {
		return DefaultMaxPages
	}
	return n
}

// Allocate reserves a page of the given type: first-fit from the free
// list, else the file grows by one page. The returned page is durable,
// zero-bodied, with a valid header.
func (p *Pager) Allocate(t page.Type, tableID primitives.TableID) (primitives.PageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if head := p.super.FreeListHead; head != primitives.InvalidPageID {
		freed, err := p.readPage(head)
		if err != nil {
			return 0, err
		}
		next := primitives.PageID(binary.LittleEndian.Uint64(freed.Body()))

		freed.Reformat(t, tableID)
		if err := p.writePage(freed, wal.RecordPageWrite); err != nil {
			return 0, err
		}

		p.super.FreeListHead = next
		if err := p.writeSuperblock(); err != nil {
			return 0, err
		}
		return head, nil
	}

	if p.super.PageCount >= p.maxPages {
		return 0, dberr.Newf(dberr.CategorySystem, dberr.CodeStorageFull,
			"backing file at configured limit of %d pages", p.maxPages)
	}

	id := primitives.PageID(p.super.PageCount)
	fresh := page.New(id, t, tableID)
	p.super.PageCount++
	if err := p.writePage(fresh, wal.RecordPageWrite); err != nil {
		p.super.PageCount--
		return 0, err
	}
	if err := p.writeSuperblock(); err != nil {
		return 0, err
	}
	return id, nil
}

// Read returns the page with the given id, failing with CORRUPT_PAGE if
// its checksum or type tag does not validate.
func (p *Pager) Read(id primitives.PageID) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readPage(id)
}

// Write makes the page durable: its after-image is appended to the WAL
// and flushed before the page bytes reach the backing file. kind tags
// the WAL record with the logical operation driving the write.
func (p *Pager) Write(pg *page.Page, kind wal.RecordType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pg.ID() == 0 || primitives.PageID(p.super.PageCount) <= pg.ID() {
		return fmt.Errorf("write to page %d out of bounds", pg.ID())
	}
	return p.writePage(pg, kind)
}

// Free reformats the page as a zero-bodied free page and pushes it on
// the free list, so stale slot data can never be read as live.
func (p *Pager) Free(id primitives.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id == 0 || primitives.PageID(p.super.PageCount) <= id {
		return fmt.Errorf("free of page %d out of bounds", id)
	}

	freed := page.New(id, page.FreePage, 0)
	binary.LittleEndian.PutUint64(freed.Body(), uint64(p.super.FreeListHead))
	if err := p.writePage(freed, wal.RecordPageWrite); err != nil {
		return err
	}

	p.super.FreeListHead = id
	return p.writeSuperblock()
}

// ApplyImage blindly overwrites a page with a WAL after-image during
// replay, growing the recorded page count when the image lies past the
// pre-crash superblock. Reapplying an image already on disk converges
// to the same state, which is what makes replay idempotent.
func (p *Pager) ApplyImage(id primitives.PageID, image []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id == 0 {
		return fmt.Errorf("replay image targets the superblock")
	}
	if len(image) != page.PageSize {
		return fmt.Errorf("replay image for page %d has size %d", id, len(image))
	}

	if _, err := p.file.WriteAt(image, int64(id)*page.PageSize); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeStorageFull,
			fmt.Sprintf("failed to apply replay image for page %d", id))
	}
	if uint64(id) >= p.super.PageCount {
		p.super.PageCount = uint64(id) + 1
		return p.writeSuperblock()
	}
	return nil
}

// PageCount returns the number of pages in the file, superblock
// included.
func (p *Pager) PageCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.super.PageCount
}

// CatalogRoot returns the first page of the catalog chain, or
// InvalidPageID before the first DDL.
func (p *Pager) CatalogRoot() primitives.PageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.super.CatalogRoot
}

// SetCatalogRoot durably records the catalog chain's first page.
func (p *Pager) SetCatalogRoot(id primitives.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.super.CatalogRoot = id
	return p.writeSuperblock()
}

// CheckpointLSN returns the LSN replay starts after.
func (p *Pager) CheckpointLSN() primitives.LSN {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.super.CheckpointLSN
}

// Checkpoint syncs the backing file and durably records lsn as the new
// replay horizon.
func (p *Pager) Checkpoint(lsn primitives.LSN) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync backing file at checkpoint: %w", err)
	}
	p.super.CheckpointLSN = lsn
	return p.writeSuperblock()
}

// Close syncs and closes the backing file. The WAL is owned by the
// caller and closed separately.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.file.Sync(); err != nil {
		return err
	}
	return p.file.Close()
}

func (p *Pager) readPage(id primitives.PageID) (*page.Page, error) {
	if id == 0 || primitives.PageID(p.super.PageCount) <= id {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeCorruptPage,
			"page %d out of bounds (file has %d pages)", id, p.super.PageCount)
	}

	raw := make([]byte, page.PageSize)
	if _, err := p.file.ReadAt(raw, int64(id)*page.PageSize); err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeCorruptPage,
			fmt.Sprintf("failed to read page %d", id))
	}

	pg, err := page.FromBytes(id, raw)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeCorruptPage, "")
	}
	return pg, nil
}

// writePage is the log-before-data section: WAL append, flush through
// the record, then the page bytes.
func (p *Pager) writePage(pg *page.Page, kind wal.RecordType) error {
	image := pg.ToBytes()
	lsn, err := p.log.Append(kind, pg.ID(), image)
	if err != nil {
		return fmt.Errorf("failed to log write of page %d: %w", pg.ID(), err)
	}
	if err := p.log.FlushThrough(lsn); err != nil {
		return fmt.Errorf("failed to flush WAL through %d: %w", lsn, err)
	}

	pg.SetLSN(lsn)
	if _, err := p.file.WriteAt(pg.ToBytes(), int64(pg.ID())*page.PageSize); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeStorageFull,
			fmt.Sprintf("failed to write page %d", pg.ID()))
	}
	return nil
}

func (p *Pager) writeSuperblock() error {
	if _, err := p.file.WriteAt(p.super.serialize(), 0); err != nil {
		return dberr.Wrap(err, dberr.CategorySystem, dberr.CodeStorageFull, "failed to write superblock")
	}
	return p.file.Sync()
}
