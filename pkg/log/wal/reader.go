package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"pagedb/pkg/dberr"
	"pagedb/pkg/primitives"
)

// Reader iterates the log's records in LSN order starting from a given
// offset. Each call to NewReader gets an independent cursor.
type Reader struct {
	file *os.File
	pos  primitives.LSN
}

// NewReader opens a read-only cursor over the log at path, positioned
// at from.
func NewReader(path string, from primitives.LSN) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL for reading: %w", err)
	}
	return &Reader{file: file, pos: from}, nil
}

// Next returns the record at the cursor and advances past it. It
// returns (nil, nil) at the end of the log and a LOG_CORRUPTION error
// for any malformed or checksum-failing record; corruption is never
// silently skipped.
func (r *Reader) Next() (*Record, error) {
	var lenBuf [frameLenSize]byte
	n, err := r.file.ReadAt(lenBuf[:], int64(r.pos))
	if err == io.EOF && n == 0 {
		return nil, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeLogCorruption,
			fmt.Sprintf("failed to read record length at LSN %d", r.pos))
	}
	if n < frameLenSize {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeLogCorruption,
			"torn record length at LSN %d", r.pos)
	}

	payloadLen := binary.LittleEndian.Uint32(lenBuf[:])
	if payloadLen < frameFixedSize+frameCRCSize || payloadLen > 16*1024*1024 {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeLogCorruption,
			"implausible record length %d at LSN %d", payloadLen, r.pos)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(io.NewSectionReader(r.file, int64(r.pos)+frameLenSize, int64(payloadLen)), payload); err != nil {
		return nil, dberr.Newf(dberr.CategoryData, dberr.CodeLogCorruption,
			"torn record at LSN %d: %v", r.pos, err)
	}

	rec, err := parseRecord(r.pos, payload)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategoryData, dberr.CodeLogCorruption, "")
	}

	r.pos += primitives.LSN(frameLenSize + payloadLen)
	return rec, nil
}

// Close releases the cursor's file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay reads every record after from and hands it to apply in LSN
// order. It halts with the reader's LOG_CORRUPTION error rather than
// skipping a bad record.
func Replay(path string, from primitives.LSN, apply func(*Record) error) error {
	reader, err := NewReader(path, from)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		rec, err := reader.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if err := apply(rec); err != nil {
			return err
		}
	}
}
