package btree

import (
	"pagedb/pkg/primitives"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

// Delete removes the entry matching both key and rid. It reports
// whether an entry was removed; a missing entry is not an error.
// Underfull nodes borrow from a sibling when one can spare, otherwise
// merge, and a root left with a single child collapses into it.
func (bt *BTree) Delete(key types.Field, rid *tuple.RecordID) (bool, error) {
	if bt.root == primitives.InvalidPageID {
		return false, nil
	}
	if key.Type() != bt.keyType {
		return false, errKeyType(bt.keyType, key.Type())
	}

	root, err := bt.readNode(bt.root)
	if err != nil {
		return false, err
	}
	removed, err := bt.removeRec(root, key, rid)
	if err != nil || !removed {
		return removed, err
	}

	if !root.leaf && len(root.keys) == 0 {
		old := root.id()
		if err := bt.setRoot(root.children[0]); err != nil {
			return false, err
		}
		return true, bt.pager.Free(old)
	}
	if root.leaf && len(root.keys) == 0 {
		old := root.id()
		if err := bt.setRoot(primitives.InvalidPageID); err != nil {
			return false, err
		}
		return true, bt.pager.Free(old)
	}
	return true, nil
}

// removeRec removes (key, rid) from the subtree under n. Duplicates can
// straddle a separator, so every child whose range admits the key is
// tried in order. After a removal the affected child is rebalanced
// within n; n's own occupancy is the caller's problem.
func (bt *BTree) removeRec(n *node, key types.Field, rid *tuple.RecordID) (bool, error) {
	if n.leaf {
		for i := lowerBound(n.keys, key); i < len(n.keys) && types.CompareKeys(n.keys[i], key) == 0; i++ {
			if !n.rids[i].Equals(rid) {
				continue
			}
			n.keys = append(n.keys[:i], n.keys[i+1:]...)
			n.rids = append(n.rids[:i], n.rids[i+1:]...)
			return true, bt.writeNode(n)
		}
		return false, nil
	}

	lo, hi := childIndexLower(n, key), childIndexUpper(n, key)
	for ci := lo; ci <= hi && ci < len(n.children); ci++ {
		child, err := bt.readNode(n.children[ci])
		if err != nil {
			return false, err
		}
		removed, err := bt.removeRec(child, key, rid)
		if err != nil {
			return false, err
		}
		if !removed {
			continue
		}
		if len(child.keys) < bt.minKeys() {
			if err := bt.rebalance(n, ci, child); err != nil {
				return false, err
			}
		}
		return true, nil
	}
	return false, nil
}

// rebalance restores minimum occupancy of the child at parent slot ci:
// borrow from the richer adjacent sibling when one is above minimum,
// else merge with a sibling.
func (bt *BTree) rebalance(parent *node, ci int, child *node) error {
	var left, right *node
	var err error
	if ci > 0 {
		if left, err = bt.readNode(parent.children[ci-1]); err != nil {
			return err
		}
		if len(left.keys) > bt.minKeys() {
			return bt.borrowFromLeft(parent, ci, left, child)
		}
	}
	if ci < len(parent.children)-1 {
		if right, err = bt.readNode(parent.children[ci+1]); err != nil {
			return err
		}
		if len(right.keys) > bt.minKeys() {
			return bt.borrowFromRight(parent, ci, child, right)
		}
	}

	if left != nil {
		return bt.merge(parent, ci-1, left, child)
	}
	return bt.merge(parent, ci, child, right)
}

func (bt *BTree) borrowFromLeft(parent *node, ci int, left, child *node) error {
	last := len(left.keys) - 1
	if child.leaf {
		child.keys = insertField(child.keys, 0, left.keys[last])
		child.rids = insertRID(child.rids, 0, left.rids[last])
		left.keys = left.keys[:last]
		left.rids = left.rids[:last]
		parent.keys[ci-1] = child.keys[0]
	} else {
		child.keys = insertField(child.keys, 0, parent.keys[ci-1])
		child.children = insertPageID(child.children, 0, left.children[len(left.children)-1])
		parent.keys[ci-1] = left.keys[last]
		left.keys = left.keys[:last]
		left.children = left.children[:len(left.children)-1]
	}

	if err := bt.writeNode(left); err != nil {
		return err
	}
	if err := bt.writeNode(child); err != nil {
		return err
	}
	return bt.writeNode(parent)
}

func (bt *BTree) borrowFromRight(parent *node, ci int, child, right *node) error {
	if child.leaf {
		child.keys = append(child.keys, right.keys[0])
		child.rids = append(child.rids, right.rids[0])
		right.keys = right.keys[1:]
		right.rids = right.rids[1:]
		parent.keys[ci] = right.keys[0]
	} else {
		child.keys = append(child.keys, parent.keys[ci])
		child.children = append(child.children, right.children[0])
		parent.keys[ci] = right.keys[0]
		right.keys = right.keys[1:]
		right.children = right.children[1:]
	}

	if err := bt.writeNode(right); err != nil {
		return err
	}
	if err := bt.writeNode(child); err != nil {
		return err
	}
	return bt.writeNode(parent)
}

// merge folds right into left and drops the separator at parent slot
// sepIdx. right's page goes back to the free list.
func (bt *BTree) merge(parent *node, sepIdx int, left, right *node) error {
	if left.leaf {
		left.keys = append(left.keys, right.keys...)
		left.rids = append(left.rids, right.rids...)
		left.next = right.next
	} else {
		left.keys = append(left.keys, parent.keys[sepIdx])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
	}

	parent.keys = append(parent.keys[:sepIdx], parent.keys[sepIdx+1:]...)
	parent.children = append(parent.children[:sepIdx+1], parent.children[sepIdx+2:]...)

	if err := bt.writeNode(left); err != nil {
		return err
	}
	if err := bt.writeNode(parent); err != nil {
		return err
	}
	return bt.pager.Free(right.id())
}
