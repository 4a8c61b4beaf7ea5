package btree

import (
	"pagedb/pkg/dberr"
	"pagedb/pkg/logging"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/pager"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"
)

func errKeyType(want, got types.Type) error {
	return dberr.Newf(dberr.CategoryInternal, dberr.CodeInternal,
		"index key type mismatch: tree holds %s, got %s", want, got)
}

// BTree is a disk-backed B+Tree over pager pages. Internal nodes hold
// routing keys only; leaves hold (key, rid) entries and are threaded
// into a singly-linked chain for range scans. Duplicate keys are
// allowed and kept in arrival order; uniqueness is the caller's
// business.
//
// The fan-out is fixed when the tree is built, derived from the key
// type's worst-case size so any node state fits one page.
type BTree struct {
	pager   *pager.Pager
	indexID primitives.IndexID
	keyType types.Type
	root    primitives.PageID
	order   int

	// onRootChange persists the new root page id (the catalog, for
	// registered indexes). Nil for throwaway trees.
	onRootChange func(primitives.PageID) error
}

// New binds a tree to its root page. root is InvalidPageID for an empty
// tree; the first insert allocates a leaf root and reports it through
// onRootChange.
func New(p *pager.Pager, indexID primitives.IndexID, keyType types.Type, root primitives.PageID, onRootChange func(primitives.PageID) error) *BTree {
	return &BTree{
		pager:        p,
		indexID:      indexID,
		keyType:      keyType,
		root:         root,
		order:        orderFor(keyType),
		onRootChange: onRootChange,
	}
}

// Root returns the current root page id, InvalidPageID when empty.
func (bt *BTree) Root() primitives.PageID {
	return bt.root
}

func (bt *BTree) maxKeys() int { return bt.order }
func (bt *BTree) minKeys() int { return bt.order / 2 }

func (bt *BTree) setRoot(id primitives.PageID) error {
	bt.root = id
	if bt.onRootChange != nil {
		return bt.onRootChange(id)
	}
	return nil
}

// pathEntry records one step of a root-to-leaf descent so splits can
// walk back up.
type pathEntry struct {
	node     *node
	childIdx int
}

// Insert adds a (key, rid) entry, splitting nodes as needed. Equal keys
// land after existing duplicates.
func (bt *BTree) Insert(key types.Field, rid *tuple.RecordID) error {
	if key.Type() != bt.keyType {
		return errKeyType(bt.keyType, key.Type())
	}

	if bt.root == primitives.InvalidPageID {
		leaf, err := bt.allocNode(true)
		if err != nil {
			return err
		}
		leaf.keys = []types.Field{key}
		leaf.rids = []*tuple.RecordID{rid}
		if err := bt.writeNode(leaf); err != nil {
			return err
		}
		return bt.setRoot(leaf.id())
	}

	var path []pathEntry
	n, err := bt.readNode(bt.root)
	if err != nil {
		return err
	}
	for !n.leaf {
		ci := childIndexUpper(n, key)
		path = append(path, pathEntry{node: n, childIdx: ci})
		n, err = bt.readNode(n.children[ci])
		if err != nil {
			return err
		}
	}

	at := upperBound(n.keys, key)
	n.keys = insertField(n.keys, at, key)
	n.rids = insertRID(n.rids, at, rid)
	if err := bt.writeNode(n); err != nil {
		return err
	}

	for len(n.keys) > bt.maxKeys() {
		sep, right, err := bt.split(n)
		if err != nil {
			return err
		}

		if len(path) == 0 {
			return bt.growRoot(n, sep, right)
		}

		parent := path[len(path)-1]
		path = path[:len(path)-1]
		ci := parent.childIdx
		parent.node.keys = insertField(parent.node.keys, ci, sep)
		parent.node.children = insertPageID(parent.node.children, ci+1, right.id())
		if err := bt.writeNode(parent.node); err != nil {
			return err
		}
		n = parent.node
	}
	return nil
}

// split halves an overfull node. Leaves copy the separator up (the
// right half keeps it); internal nodes move it up.
func (bt *BTree) split(n *node) (types.Field, *node, error) {
	right, err := bt.allocNode(n.leaf)
	if err != nil {
		return nil, nil, err
	}

	mid := len(n.keys) / 2
	var sep types.Field
	if n.leaf {
		right.keys = append(right.keys, n.keys[mid:]...)
		right.rids = append(right.rids, n.rids[mid:]...)
		n.keys = n.keys[:mid:mid]
		n.rids = n.rids[:mid:mid]

		right.next = n.next
		n.next = right.id()
		sep = right.keys[0]
	} else {
		sep = n.keys[mid]
		right.keys = append(right.keys, n.keys[mid+1:]...)
		right.children = append(right.children, n.children[mid+1:]...)
		n.keys = n.keys[:mid:mid]
		n.children = n.children[: mid+1 : mid+1]
	}

	if err := bt.writeNode(right); err != nil {
		return nil, nil, err
	}
	if err := bt.writeNode(n); err != nil {
		return nil, nil, err
	}
	return sep, right, nil
}

func (bt *BTree) growRoot(left *node, sep types.Field, right *node) error {
	root, err := bt.allocNode(false)
	if err != nil {
		return err
	}
	root.keys = []types.Field{sep}
	root.children = []primitives.PageID{left.id(), right.id()}
	if err := bt.writeNode(root); err != nil {
		return err
	}
	logging.Debug("index root split", "index", bt.indexID, "newRoot", root.id())
	return bt.setRoot(root.id())
}

// Lookup returns the locators of every entry with exactly this key, in
// arrival order. Duplicates may span leaves, so the scan follows the
// leaf chain while keys still match.
func (bt *BTree) Lookup(key types.Field) ([]*tuple.RecordID, error) {
	if bt.root == primitives.InvalidPageID {
		return nil, nil
	}
	if key.Type() != bt.keyType {
		return nil, errKeyType(bt.keyType, key.Type())
	}

	n, err := bt.descendLower(key)
	if err != nil {
		return nil, err
	}

	var rids []*tuple.RecordID
	i := lowerBound(n.keys, key)
	for {
		for ; i < len(n.keys); i++ {
			if types.CompareKeys(n.keys[i], key) != 0 {
				return rids, nil
			}
			rids = append(rids, n.rids[i])
		}
		if n.next == primitives.InvalidPageID {
			return rids, nil
		}
		n, err = bt.readNode(n.next)
		if err != nil {
			return nil, err
		}
		i = 0
	}
}

// descendLower walks to the leftmost leaf that could hold key.
func (bt *BTree) descendLower(key types.Field) (*node, error) {
	n, err := bt.readNode(bt.root)
	if err != nil {
		return nil, err
	}
	for !n.leaf {
		n, err = bt.readNode(n.children[childIndexLower(n, key)])
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

// leftmostLeaf walks child 0 pointers down to the first leaf.
func (bt *BTree) leftmostLeaf() (*node, error) {
	n, err := bt.readNode(bt.root)
	if err != nil {
		return nil, err
	}
	for !n.leaf {
		n, err = bt.readNode(n.children[0])
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Height returns the number of levels, 0 for an empty tree.
func (bt *BTree) Height() (int, error) {
	if bt.root == primitives.InvalidPageID {
		return 0, nil
	}
	h := 1
	n, err := bt.readNode(bt.root)
	if err != nil {
		return 0, err
	}
	for !n.leaf {
		h++
		n, err = bt.readNode(n.children[0])
		if err != nil {
			return 0, err
		}
	}
	return h, nil
}

// FreeAll returns every node page to the free list and leaves the tree
// empty. Used when the index itself is dropped; the catalog entry is
// the caller's to remove.
func (bt *BTree) FreeAll() error {
	if bt.root == primitives.InvalidPageID {
		return nil
	}
	if err := bt.freeRec(bt.root); err != nil {
		return err
	}
	return bt.setRoot(primitives.InvalidPageID)
}

func (bt *BTree) freeRec(id primitives.PageID) error {
	n, err := bt.readNode(id)
	if err != nil {
		return err
	}
	if !n.leaf {
		for _, child := range n.children {
			if err := bt.freeRec(child); err != nil {
				return err
			}
		}
	}
	return bt.pager.Free(id)
}

func insertField(s []types.Field, at int, v types.Field) []types.Field {
	s = append(s, nil)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}

func insertRID(s []*tuple.RecordID, at int, v *tuple.RecordID) []*tuple.RecordID {
	s = append(s, nil)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}

func insertPageID(s []primitives.PageID, at int, v primitives.PageID) []primitives.PageID {
	s = append(s, 0)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}
