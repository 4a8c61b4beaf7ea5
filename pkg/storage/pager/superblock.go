package pager

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"
)

// Magic identifies a pagedb backing file ("PGDB").
const Magic = 0x50474442

// Superblock is page 0 of the backing file: file-wide metadata that
// every open validates before any page is served.
type Superblock struct {
	Magic         uint32
	PageSize      uint32
	PageCount     uint64
	FreeListHead  primitives.PageID
	CatalogRoot   primitives.PageID
	CheckpointLSN primitives.LSN
}

// serialize packs the superblock into a full page-sized buffer with a
// trailing-field CRC, zero padded.
func (s *Superblock) serialize() []byte {
	out := make([]byte, page.PageSize)
	binary.LittleEndian.PutUint32(out[0:], s.Magic)
	binary.LittleEndian.PutUint32(out[4:], s.PageSize)
	binary.LittleEndian.PutUint64(out[8:], s.PageCount)
	binary.LittleEndian.PutUint64(out[16:], uint64(s.FreeListHead))
	binary.LittleEndian.PutUint64(out[24:], uint64(s.CatalogRoot))
	binary.LittleEndian.PutUint64(out[32:], uint64(s.CheckpointLSN))
	binary.LittleEndian.PutUint32(out[40:], crc32.ChecksumIEEE(out[:40]))
	return out
}

// parseSuperblock validates and decodes page 0.
func parseSuperblock(raw []byte) (*Superblock, error) {
	if len(raw) < 44 {
		return nil, fmt.Errorf("superblock truncated: %d bytes", len(raw))
	}

	stored := binary.LittleEndian.Uint32(raw[40:])
	if computed := crc32.ChecksumIEEE(raw[:40]); computed != stored {
		return nil, fmt.Errorf("superblock checksum mismatch: stored %#x, computed %#x", stored, computed)
	}

	s := &Superblock{
		Magic:         binary.LittleEndian.Uint32(raw[0:]),
		PageSize:      binary.LittleEndian.Uint32(raw[4:]),
		PageCount:     binary.LittleEndian.Uint64(raw[8:]),
		FreeListHead:  primitives.PageID(binary.LittleEndian.Uint64(raw[16:])),
		CatalogRoot:   primitives.PageID(binary.LittleEndian.Uint64(raw[24:])),
		CheckpointLSN: primitives.LSN(binary.LittleEndian.Uint64(raw[32:])),
	}

	if s.Magic != Magic {
		return nil, fmt.Errorf("invalid magic number %#x, expected %#x", s.Magic, uint32(Magic))
	}
	if s.PageSize != page.PageSize {
		return nil, fmt.Errorf("page size mismatch: file has %d, engine uses %d", s.PageSize, page.PageSize)
	}
	return s, nil
}
