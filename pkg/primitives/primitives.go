package primitives

// LSN (log sequence number) uniquely identifies a WAL record.
// It is monotonically increasing and equals the byte offset of the
// record in the log file.
type LSN uint64

// PageID identifies a page within the backing file. Page 0 is the
// superblock and is never handed out by the pager.
type PageID uint64

// SlotID identifies a slot within a page's slot directory.
type SlotID uint16

// TableID identifies a table in the catalog.
type TableID uint32

// IndexID identifies a registered index in the catalog.
type IndexID uint32

// ColumnID identifies a column by its position in the table's column list.
type ColumnID uint32

const (
	// InvalidPageID marks an unset page reference (no next leaf,
	// no free-list successor, uninitialized root).
	InvalidPageID PageID = 0

	// InvalidTableID marks an unset table reference.
	InvalidTableID TableID = 0
)
