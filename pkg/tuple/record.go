package tuple

import (
	"fmt"

	"pagedb/pkg/primitives"
)

// RecordID is a row locator: the page and slot that own the tuple.
// It is stable until the row is deleted; page compaction preserves it.
type RecordID struct {
	PageID primitives.PageID
	SlotID primitives.SlotID
}

// NewRecordID creates a row locator for the given page and slot.
func NewRecordID(pageID primitives.PageID, slotID primitives.SlotID) *RecordID {
	return &RecordID{PageID: pageID, SlotID: slotID}
}

func (r *RecordID) Equals(other *RecordID) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.PageID == other.PageID && r.SlotID == other.SlotID
}

func (r *RecordID) String() string {
	return fmt.Sprintf("(page %d, slot %d)", r.PageID, r.SlotID)
}
