package btree

import (
	"pagedb/pkg/primitives"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// Iterator yields (key, rid) entries in ascending key order, duplicates
// in arrival order. It reads leaves lazily through the pager; each Next
// touches at most one page beyond the current one.
type Iterator struct {
	bt   *BTree
	hi   types.Field // nil means unbounded above
	leaf *node
	idx  int
	done bool
}

// Range starts a scan over keys in [lo, hi]; a nil bound leaves that
// end open. Both bounds are inclusive.
func (bt *BTree) Range(lo, hi types.Field) (*Iterator, error) {
	it := &Iterator{bt: bt, hi: hi}
	if bt.root == primitives.InvalidPageID {
		it.done = true
		return it, nil
	}

	var err error
	if lo == nil {
		if it.leaf, err = bt.leftmostLeaf(); err != nil {
			return nil, err
		}
	} else {
		if lo.Type() != bt.keyType {
			return nil, errKeyType(bt.keyType, lo.Type())
		}
		if it.leaf, err = bt.descendLower(lo); err != nil {
			return nil, err
		}
		it.idx = lowerBound(it.leaf.keys, lo)
	}
	if hi != nil && hi.Type() != bt.keyType {
		return nil, errKeyType(bt.keyType, hi.Type())
	}
	return it, nil
}

// Next returns the next entry. ok is false once the scan is exhausted;
// after that every call keeps returning ok == false.
func (it *Iterator) Next() (key types.Field, rid *tuple.RecordID, ok bool, err error) {
	if it.done {
		return nil, nil, false, nil
	}

	for it.idx >= len(it.leaf.keys) {
		if it.leaf.next == primitives.InvalidPageID {
			it.done = true
			return nil, nil, false, nil
		}
		it.leaf, err = it.bt.readNode(it.leaf.next)
		if err != nil {
			return nil, nil, false, err
		}
		it.idx = 0
	}

	key = it.leaf.keys[it.idx]
	if it.hi != nil && types.CompareKeys(key, it.hi) > 0 {
		it.done = true
		return nil, nil, false, nil
	}
	rid = it.leaf.rids[it.idx]
	it.idx++
	return key, rid, true, nil
}
