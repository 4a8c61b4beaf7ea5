package wal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"pagedb/pkg/logging"
	"pagedb/pkg/primitives"
)

// WAL is the append-only write-ahead log. An LSN is the byte offset of
// a record's frame in the log file, so LSNs are strictly increasing by
// construction. The file is opened O_SYNC: a record is durable once
// Append returns.
type WAL struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	nextLSN primitives.LSN
}

// Open opens (or creates) the log at path and positions appends at its
// end.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_SYNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek to end of WAL: %w", err)
	}

	return &WAL{
		file:    file,
		path:    path,
		nextLSN: primitives.LSN(end),
	}, nil
}

// Append writes one record and returns its LSN. The record is durable
// when Append returns.
func (w *WAL) Append(kind RecordType, pageID primitives.PageID, image []byte) (primitives.LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := &Record{Type: kind, PageID: pageID, Image: image}
	frame := rec.Serialize()

	lsn := w.nextLSN
	if _, err := w.file.WriteAt(frame, int64(lsn)); err != nil {
		return 0, fmt.Errorf("failed to append WAL record: %w", err)
	}
	w.nextLSN += primitives.LSN(len(frame))

	logging.Debug("wal append", "lsn", uint64(lsn), "kind", kind.String(), "page", uint64(pageID))
	return lsn, nil
}

// FlushThrough guarantees every record up to and including lsn is on
// disk. With O_SYNC appends the records already are; the sync covers
// metadata and keeps the log-before-data call site explicit.
func (w *WAL) FlushThrough(lsn primitives.LSN) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if lsn >= w.nextLSN {
		return fmt.Errorf("cannot flush through LSN %d: log ends at %d", lsn, w.nextLSN)
	}
	return w.file.Sync()
}

// EndLSN returns the offset one past the last durable record, the value
// a checkpoint stores in the superblock.
func (w *WAL) EndLSN() primitives.LSN {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextLSN
}

// Close flushes and closes the log file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL on close: %w", err)
	}
	return w.file.Close()
}
