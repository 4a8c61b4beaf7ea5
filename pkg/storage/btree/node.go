package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"pagedb/pkg/log/wal"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/page"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// Node body layout inside an index page:
//
//	[isLeaf u8][numKeys u16][nextLeaf u64][entries ...]
//
// Leaf entries are (key, rid) pairs: the key's field serialization
// followed by pageID(8) + slotID(2). Internal entries are child0(8)
// followed by (key, child) pairs. nextLeaf threads the leaf chain for
// range scans and is unused on internal nodes.
const (
	nodeHeaderSize = 1 + 2 + 8
	ridSize        = 8 + 2
	childPtrSize   = 8
)

// node is the in-memory form of one tree page.
type node struct {
	pg   *page.Page
	leaf bool
	next primitives.PageID

	keys     []types.Field
	rids     []*tuple.RecordID   // leaf: parallel to keys
	children []primitives.PageID // internal: len(keys)+1
}

func (n *node) id() primitives.PageID {
	return n.pg.ID()
}

// maxKeySize is the worst-case serialized size of a key of type t,
// which fixes the tree's order at build time.
func maxKeySize(t types.Type) int {
	switch t {
	case types.IntType:
		return 8
	case types.TextType:
		return 2 + types.TextMaxSize
	case types.BoolType:
		return 1
	default:
		return 8
	}
}

// orderFor computes the fan-out so a node of worst-case keys still fits
// the page body with one entry of slack, since an overfull node is
// written once before its split. Leaf entries are the larger of the two
// entry kinds, so sizing against them bounds internal nodes too.
func orderFor(keyType types.Type) int {
	entry := maxKeySize(keyType) + ridSize
	order := (page.PageSize-page.HeaderSize-nodeHeaderSize-childPtrSize)/entry - 1
	if order < 3 {
		order = 3
	}
	return order
}

func (bt *BTree) readNode(id primitives.PageID) (*node, error) {
	pg, err := bt.pager.Read(id)
	if err != nil {
		return nil, err
	}
	if pg.Type() != page.IndexPage {
		return nil, fmt.Errorf("page %d is %s, expected INDEX", id, pg.Type())
	}

	body := pg.Body()
	n := &node{
		pg:   pg,
		leaf: body[0] == 1,
		next: primitives.PageID(binary.LittleEndian.Uint64(body[3:])),
	}
	numKeys := int(binary.LittleEndian.Uint16(body[1:]))

	r := bytes.NewReader(body[nodeHeaderSize:])
	if n.leaf {
		for i := 0; i < numKeys; i++ {
			key, err := types.ParseField(r, bt.keyType)
			if err != nil {
				return nil, fmt.Errorf("bad key %d in leaf %d: %w", i, id, err)
			}
			var pid uint64
			var slot uint16
			if err := binary.Read(r, binary.LittleEndian, &pid); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.LittleEndian, &slot); err != nil {
				return nil, err
			}
			n.keys = append(n.keys, key)
			n.rids = append(n.rids, tuple.NewRecordID(primitives.PageID(pid), primitives.SlotID(slot)))
		}
		return n, nil
	}

	var child0 uint64
	if err := binary.Read(r, binary.LittleEndian, &child0); err != nil {
		return nil, err
	}
	n.children = append(n.children, primitives.PageID(child0))
	for i := 0; i < numKeys; i++ {
		key, err := types.ParseField(r, bt.keyType)
		if err != nil {
			return nil, fmt.Errorf("bad key %d in internal %d: %w", i, id, err)
		}
		var child uint64
		if err := binary.Read(r, binary.LittleEndian, &child); err != nil {
			return nil, err
		}
		n.keys = append(n.keys, key)
		n.children = append(n.children, primitives.PageID(child))
	}
	return n, nil
}

func (bt *BTree) writeNode(n *node) error {
	body := n.pg.Body()
	for i := range body {
		body[i] = 0
	}

	if n.leaf {
		body[0] = 1
	}
	binary.LittleEndian.PutUint16(body[1:], uint16(len(n.keys)))
	binary.LittleEndian.PutUint64(body[3:], uint64(n.next))

	var buf bytes.Buffer
	if n.leaf {
		for i, key := range n.keys {
			if err := key.Serialize(&buf); err != nil {
				return err
			}
			binary.Write(&buf, binary.LittleEndian, uint64(n.rids[i].PageID))
			binary.Write(&buf, binary.LittleEndian, uint16(n.rids[i].SlotID))
		}
	} else {
		binary.Write(&buf, binary.LittleEndian, uint64(n.children[0]))
		for i, key := range n.keys {
			if err := key.Serialize(&buf); err != nil {
				return err
			}
			binary.Write(&buf, binary.LittleEndian, uint64(n.children[i+1]))
		}
	}

	if buf.Len() > len(body)-nodeHeaderSize {
		return fmt.Errorf("node %d overflows page: %d bytes", n.id(), buf.Len())
	}
	copy(body[nodeHeaderSize:], buf.Bytes())
	return bt.pager.Write(n.pg, wal.RecordPageWrite)
}

func (bt *BTree) allocNode(leaf bool) (*node, error) {
	id, err := bt.pager.Allocate(page.IndexPage, primitives.TableID(bt.indexID))
	if err != nil {
		return nil, err
	}
	pg, err := bt.pager.Read(id)
	if err != nil {
		return nil, err
	}
	return &node{pg: pg, leaf: leaf}, nil
}

// lowerBound returns the first index whose key is >= k; equal keys sort
// after none of their duplicates, so descending through it finds the
// leftmost match.
func lowerBound(keys []types.Field, k types.Field) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if types.CompareKeys(keys[mid], k) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// upperBound returns the first index whose key is > k; inserting there
// keeps duplicates in arrival order.
func upperBound(keys []types.Field, k types.Field) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if types.CompareKeys(keys[mid], k) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// childIndexLower picks the child to descend into when searching for
// the leftmost occurrence of k.
func childIndexLower(n *node, k types.Field) int {
	return lowerBound(n.keys, k)
}

// childIndexUpper picks the child to descend into when inserting, so
// new duplicates land after existing ones.
func childIndexUpper(n *node, k types.Field) int {
	return upperBound(n.keys, k)
}
