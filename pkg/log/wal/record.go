package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"pagedb/pkg/primitives"
)

// RecordType classifies a WAL record by the mutation it covers.
type RecordType uint8

const (
	// RecordInsert through RecordDelete tag the logical operation whose
	// page write produced the image; replay treats them identically.
	RecordInsert RecordType = iota
	RecordUpdate
	RecordDelete

	// RecordPageWrite covers structural page writes with no single
	// logical row operation: allocations, frees, index node writes,
	// catalog writes.
	RecordPageWrite

	// RecordCheckpoint marks a durable point; records at or before it
	// are never replayed.
	RecordCheckpoint
)

func (t RecordType) String() string {
	switch t {
	case RecordInsert:
		return "INSERT"
	case RecordUpdate:
		return "UPDATE"
	case RecordDelete:
		return "DELETE"
	case RecordPageWrite:
		return "PAGE_WRITE"
	case RecordCheckpoint:
		return "CHECKPOINT"
	default:
		return "UNKNOWN"
	}
}

// Record is one WAL entry: the after-image of a page, tagged with the
// operation kind that produced it. Replaying a record overwrites the
// page with the image, which makes replay idempotent.
type Record struct {
	LSN    primitives.LSN
	Type   RecordType
	PageID primitives.PageID
	Image  []byte
}

// Frame layout:
//
//	[payloadLen u32][type u8][pageID u64][imageLen u32][image ...][crc u32]
//
// payloadLen counts everything after the length field. The CRC covers
// type through image. The record's LSN is the file offset of the frame.
const (
	frameLenSize   = 4
	frameFixedSize = 1 + 8 + 4
	frameCRCSize   = 4
)

// FrameSize returns the full on-disk size of the record's frame.
func (r *Record) FrameSize() int {
	return frameLenSize + frameFixedSize + len(r.Image) + frameCRCSize
}

// Serialize encodes the record into its frame.
func (r *Record) Serialize() []byte {
	payload := frameFixedSize + len(r.Image) + frameCRCSize
	out := make([]byte, frameLenSize+payload)

	binary.LittleEndian.PutUint32(out, uint32(payload))
	out[frameLenSize] = byte(r.Type)
	binary.LittleEndian.PutUint64(out[frameLenSize+1:], uint64(r.PageID))
	binary.LittleEndian.PutUint32(out[frameLenSize+9:], uint32(len(r.Image)))
	copy(out[frameLenSize+frameFixedSize:], r.Image)

	crcStart := frameLenSize
	crcEnd := frameLenSize + frameFixedSize + len(r.Image)
	crc := crc32.ChecksumIEEE(out[crcStart:crcEnd])
	binary.LittleEndian.PutUint32(out[crcEnd:], crc)
	return out
}

// parseRecord decodes one frame's payload (everything after the length
// field), verifying the checksum.
func parseRecord(lsn primitives.LSN, payload []byte) (*Record, error) {
	if len(payload) < frameFixedSize+frameCRCSize {
		return nil, fmt.Errorf("record at LSN %d truncated: %d bytes", lsn, len(payload))
	}

	body := payload[:len(payload)-frameCRCSize]
	stored := binary.LittleEndian.Uint32(payload[len(payload)-frameCRCSize:])
	if computed := crc32.ChecksumIEEE(body); computed != stored {
		return nil, fmt.Errorf("record at LSN %d checksum mismatch: stored %#x, computed %#x",
			lsn, stored, computed)
	}

	imageLen := binary.LittleEndian.Uint32(body[9:])
	if int(imageLen) != len(body)-frameFixedSize {
		return nil, fmt.Errorf("record at LSN %d image length %d does not match frame", lsn, imageLen)
	}

	rec := &Record{
		LSN:    lsn,
		Type:   RecordType(body[0]),
		PageID: primitives.PageID(binary.LittleEndian.Uint64(body[1:])),
	}
	if imageLen > 0 {
		rec.Image = append([]byte(nil), body[frameFixedSize:]...)
	}
	if rec.Type > RecordCheckpoint {
		return nil, fmt.Errorf("record at LSN %d has unknown type %d", lsn, body[0])
	}
	return rec, nil
}
