package page

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"pagedb/pkg/primitives"
)

const (
	// PageSize is the size of each page in bytes (4KB)
	PageSize = 4096

	// HeaderSize is the fixed page header:
	// id(8) type(1) tableID(4) slotCount(2) freeEnd(2) lsn(8) checksum(4)
	HeaderSize = 29

	// SlotPointerSize is one slot directory entry: offset(2) + length(2).
	// An offset of zero marks a free slot.
	SlotPointerSize = 4

	// MaxSlotPayload caps a single slot so the directory entry's length
	// field cannot overflow.
	MaxSlotPayload = PageSize - HeaderSize - SlotPointerSize
)

// Header field offsets within the raw page.
const (
	offID        = 0
	offType      = 8
	offTableID   = 9
	offSlotCount = 13
	offFreeEnd   = 15
	offLSN       = 17
	offChecksum  = 25
)

// Type tags a page's role in the backing file.
type Type uint8

const (
	FreePage Type = iota
	DataPage
	IndexPage
	CatalogPage
)

func (t Type) String() string {
	switch t {
	case FreePage:
		return "FREE"
	case DataPage:
		return "DATA"
	case IndexPage:
		return "INDEX"
	case CatalogPage:
		return "CATALOG"
	default:
		return "UNKNOWN"
	}
}

// Page is one fixed-size unit of file storage. Data pages use the
// slotted layout: the slot directory grows forward from the header and
// tuple payloads grow backward from the page end, with the free region
// in between. Index and catalog pages treat the area after the header
// as a raw body.
//
//	[header][slot dir ->][ free ][<- payloads]
type Page struct {
	data []byte
}

// New creates a zeroed page with a valid header.
func New(id primitives.PageID, t Type, tableID primitives.TableID) *Page {
	p := &Page{data: make([]byte, PageSize)}
	binary.LittleEndian.PutUint64(p.data[offID:], uint64(id))
	p.data[offType] = byte(t)
	binary.LittleEndian.PutUint32(p.data[offTableID:], uint32(tableID))
	p.setFreeEnd(PageSize)
	return p
}

// FromBytes reconstructs a page from raw file bytes, verifying length,
// checksum and type tag. The caller maps failures to CorruptPage.
func FromBytes(id primitives.PageID, raw []byte) (*Page, error) {
	if len(raw) != PageSize {
		return nil, fmt.Errorf("invalid page size: expected %d, got %d", PageSize, len(raw))
	}

	p := &Page{data: append([]byte(nil), raw...)}
	if stored := p.storedChecksum(); stored != p.computeChecksum() {
		return nil, fmt.Errorf("page %d checksum mismatch: stored %#x, computed %#x",
			id, stored, p.computeChecksum())
	}
	if p.ID() != id {
		return nil, fmt.Errorf("page id mismatch: header says %d, read at %d", p.ID(), id)
	}
	if p.Type() > CatalogPage {
		return nil, fmt.Errorf("page %d has invalid type tag %d", id, p.data[offType])
	}
	return p, nil
}

// ToBytes serializes the page, stamping a fresh checksum.
func (p *Page) ToBytes() []byte {
	out := append([]byte(nil), p.data...)
	binary.LittleEndian.PutUint32(out[offChecksum:], checksumOf(out))
	return out
}

func (p *Page) ID() primitives.PageID {
	return primitives.PageID(binary.LittleEndian.Uint64(p.data[offID:]))
}

func (p *Page) Type() Type {
	return Type(p.data[offType])
}

func (p *Page) SetType(t Type) {
	p.data[offType] = byte(t)
}

func (p *Page) TableID() primitives.TableID {
	return primitives.TableID(binary.LittleEndian.Uint32(p.data[offTableID:]))
}

func (p *Page) SetTableID(id primitives.TableID) {
	binary.LittleEndian.PutUint32(p.data[offTableID:], uint32(id))
}

func (p *Page) LSN() primitives.LSN {
	return primitives.LSN(binary.LittleEndian.Uint64(p.data[offLSN:]))
}

func (p *Page) SetLSN(lsn primitives.LSN) {
	binary.LittleEndian.PutUint64(p.data[offLSN:], uint64(lsn))
}

// SlotCount returns the number of slot directory entries, live or free.
func (p *Page) SlotCount() primitives.SlotID {
	return primitives.SlotID(binary.LittleEndian.Uint16(p.data[offSlotCount:]))
}

// Body exposes the raw area after the header for index and catalog
// pages, which manage their own layout. Mutations are captured by the
// next ToBytes.
func (p *Page) Body() []byte {
	return p.data[HeaderSize:]
}

func (p *Page) setSlotCount(n primitives.SlotID) {
	binary.LittleEndian.PutUint16(p.data[offSlotCount:], uint16(n))
}

func (p *Page) freeEnd() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeEnd:])
}

func (p *Page) setFreeEnd(v int) {
	binary.LittleEndian.PutUint16(p.data[offFreeEnd:], uint16(v))
}

func (p *Page) storedChecksum() uint32 {
	return binary.LittleEndian.Uint32(p.data[offChecksum:])
}

func (p *Page) computeChecksum() uint32 {
	return checksumOf(p.data)
}

// checksumOf computes the page CRC with the checksum field zeroed.
func checksumOf(data []byte) uint32 {
	crc := crc32.NewIEEE()
	crc.Write(data[:offChecksum])
	crc.Write([]byte{0, 0, 0, 0})
	crc.Write(data[offChecksum+4:])
	return crc.Sum32()
}

func (p *Page) slotEntry(i primitives.SlotID) (offset, length uint16) {
	base := HeaderSize + int(i)*SlotPointerSize
	return binary.LittleEndian.Uint16(p.data[base:]), binary.LittleEndian.Uint16(p.data[base+2:])
}

func (p *Page) setSlotEntry(i primitives.SlotID, offset, length uint16) {
	base := HeaderSize + int(i)*SlotPointerSize
	binary.LittleEndian.PutUint16(p.data[base:], offset)
	binary.LittleEndian.PutUint16(p.data[base+2:], length)
}

func (p *Page) dirEnd() int {
	return HeaderSize + int(p.SlotCount())*SlotPointerSize
}

// FreeSpace returns the contiguous bytes between the slot directory and
// the payload region.
func (p *Page) FreeSpace() int {
	return int(p.freeEnd()) - p.dirEnd()
}

// HasSpaceFor reports whether a payload of n bytes fits, including the
// directory entry a fresh slot would need. Reusable free slots make the
// entry cost zero.
func (p *Page) HasSpaceFor(n int) bool {
	need := n
	if p.firstFreeSlot() < 0 {
		need += SlotPointerSize
	}
	return p.FreeSpace() >= need
}

func (p *Page) firstFreeSlot() int {
	for i := primitives.SlotID(0); i < p.SlotCount(); i++ {
		if off, _ := p.slotEntry(i); off == 0 {
			return int(i)
		}
	}
	return -1
}

// IsSlotLive reports whether slot i holds a payload.
func (p *Page) IsSlotLive(i primitives.SlotID) bool {
	if i >= p.SlotCount() {
		return false
	}
	off, _ := p.slotEntry(i)
	return off != 0
}

// InsertSlot places a payload into the page. The payload always goes at
// the low edge of the payload region; byte gaps left by deletions are
// only recovered by Compact. The slot id of a previously deleted row may
// be reused for the new row.
func (p *Page) InsertSlot(payload []byte) (primitives.SlotID, error) {
	if len(payload) == 0 || len(payload) > MaxSlotPayload {
		return 0, fmt.Errorf("invalid payload size %d", len(payload))
	}

	slot := p.firstFreeSlot()
	needDir := slot < 0
	need := len(payload)
	if needDir {
		need += SlotPointerSize
	}
	if p.FreeSpace() < need {
		return 0, fmt.Errorf("page %d full: need %d bytes, have %d", p.ID(), need, p.FreeSpace())
	}

	if needDir {
		slot = int(p.SlotCount())
		p.setSlotCount(p.SlotCount() + 1)
	}

	offset := int(p.freeEnd()) - len(payload)
	copy(p.data[offset:], payload)
	p.setFreeEnd(offset)
	p.setSlotEntry(primitives.SlotID(slot), uint16(offset), uint16(len(payload)))
	return primitives.SlotID(slot), nil
}

// ReadSlot returns a copy of the payload in slot i.
func (p *Page) ReadSlot(i primitives.SlotID) ([]byte, error) {
	if i >= p.SlotCount() {
		return nil, fmt.Errorf("slot %d out of range (page has %d slots)", i, p.SlotCount())
	}
	off, length := p.slotEntry(i)
	if off == 0 {
		return nil, fmt.Errorf("slot %d is not live", i)
	}
	return append([]byte(nil), p.data[off:int(off)+int(length)]...), nil
}

// DeleteSlot marks slot i free. The payload bytes become a gap that
// Compact later coalesces; they are never read again because only the
// directory locates payloads.
func (p *Page) DeleteSlot(i primitives.SlotID) error {
	if !p.IsSlotLive(i) {
		return fmt.Errorf("slot %d is not live", i)
	}
	p.setSlotEntry(i, 0, 0)
	return nil
}

// ReplaceSlot swaps slot i's payload, keeping the slot id. A payload no
// larger than the old one is written in place; a larger one is placed
// in the free region, compacting first if needed.
func (p *Page) ReplaceSlot(i primitives.SlotID, payload []byte) error {
	if !p.IsSlotLive(i) {
		return fmt.Errorf("slot %d is not live", i)
	}
	if len(payload) == 0 || len(payload) > MaxSlotPayload {
		return fmt.Errorf("invalid payload size %d", len(payload))
	}

	off, length := p.slotEntry(i)
	if len(payload) <= int(length) {
		copy(p.data[off:], payload)
		p.setSlotEntry(i, off, uint16(len(payload)))
		return nil
	}

	if p.FreeSpace() < len(payload) {
		p.setSlotEntry(i, 0, 0)
		p.Compact()
		p.setSlotEntry(i, 0, 0) // keep the slot reserved, not reusable mid-replace
		if p.FreeSpace() < len(payload) {
			return fmt.Errorf("page %d full: cannot grow slot %d to %d bytes", p.ID(), i, len(payload))
		}
	}

	newOff := int(p.freeEnd()) - len(payload)
	copy(p.data[newOff:], payload)
	p.setFreeEnd(newOff)
	p.setSlotEntry(i, uint16(newOff), uint16(len(payload)))
	return nil
}

// LiveSlots returns the ids of live slots in ascending order, the order
// full scans visit rows.
func (p *Page) LiveSlots() []primitives.SlotID {
	var out []primitives.SlotID
	for i := primitives.SlotID(0); i < p.SlotCount(); i++ {
		if p.IsSlotLive(i) {
			out = append(out, i)
		}
	}
	return out
}

// Compact repacks live payloads against the page end, coalescing the
// gaps left by deleted slots. Slot ids are preserved; only byte offsets
// inside the page change, so row locators stay valid.
func (p *Page) Compact() int {
	type live struct {
		slot    primitives.SlotID
		payload []byte
	}

	var lives []live
	for i := primitives.SlotID(0); i < p.SlotCount(); i++ {
		off, length := p.slotEntry(i)
		if off == 0 {
			continue
		}
		lives = append(lives, live{
			slot:    i,
			payload: append([]byte(nil), p.data[off:int(off)+int(length)]...),
		})
	}

	before := p.FreeSpace()
	end := PageSize
	for _, l := range lives {
		end -= len(l.payload)
		copy(p.data[end:], l.payload)
		p.setSlotEntry(l.slot, uint16(end), uint16(len(l.payload)))
	}
	// Zero the reclaimed region so stale payload bytes never survive.
	for i := p.dirEnd(); i < end; i++ {
		p.data[i] = 0
	}
	p.setFreeEnd(end)
	return p.FreeSpace() - before
}

// Reformat wipes the page into a zero-bodied page of the given type,
// used when a freed page returns to circulation.
func (p *Page) Reformat(t Type, tableID primitives.TableID) {
	id := p.ID()
	for i := range p.data {
		p.data[i] = 0
	}
	binary.LittleEndian.PutUint64(p.data[offID:], uint64(id))
	p.data[offType] = byte(t)
	binary.LittleEndian.PutUint32(p.data[offTableID:], uint32(tableID))
	p.setFreeEnd(PageSize)
}
