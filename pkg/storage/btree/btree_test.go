package btree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"pagedb/pkg/log/wal"
	"pagedb/pkg/primitives"
	"pagedb/pkg/storage/pager"
	"pagedb/pkg/tuple"
	"pagedb/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, keyType types.Type) *BTree {
	t.Helper()
	dir := t.TempDir()

	log, err := wal.Open(filepath.Join(dir, "w.wal"))
	require.NoError(t, err)
	p, err := pager.Create(filepath.Join(dir, "d.db"), log, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		p.Close()
		log.Close()
	})

	return New(p, 1, keyType, primitives.InvalidPageID, nil)
}

func rid(n int) *tuple.RecordID {
	return tuple.NewRecordID(primitives.PageID(n/100+1), primitives.SlotID(n%100))
}

func TestInsertAndLookup(t *testing.T) {
	bt := newTestTree(t, types.IntType)

	require.NoError(t, bt.Insert(types.NewIntField(42), rid(1)))

	got, err := bt.Lookup(types.NewIntField(42))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equals(rid(1)))

	missing, err := bt.Lookup(types.NewIntField(7))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestShuffledInsertsScanSorted(t *testing.T) {
	bt := newTestTree(t, types.IntType)

	const n = 2000
	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, k := range order {
		require.NoError(t, bt.Insert(types.NewIntField(int64(k)), rid(k)))
	}

	it, err := bt.Range(nil, nil)
	require.NoError(t, err)

	var keys []int64
	for {
		key, r, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, key.(*types.IntField).Value)
		assert.True(t, r.Equals(rid(int(key.(*types.IntField).Value))))
	}

	require.Len(t, keys, n)
	for i, k := range keys {
		require.Equal(t, int64(i), k, "scan must yield every key exactly once, ascending")
	}
}

func TestDuplicateKeysKeepEveryLocator(t *testing.T) {
	bt := newTestTree(t, types.IntType)

	for i := 0; i < 5; i++ {
		require.NoError(t, bt.Insert(types.NewIntField(9), rid(i)))
	}

	got, err := bt.Lookup(types.NewIntField(9))
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, r := range got {
		assert.True(t, r.Equals(rid(i)), "duplicates come back in arrival order")
	}
}

func TestBoundedRanges(t *testing.T) {
	bt := newTestTree(t, types.IntType)
	for k := 0; k < 100; k++ {
		require.NoError(t, bt.Insert(types.NewIntField(int64(k)), rid(k)))
	}

	tests := []struct {
		name   string
		lo, hi types.Field
		want   []int64
	}{
		{"both bounds", types.NewIntField(10), types.NewIntField(13), []int64{10, 11, 12, 13}},
		{"open below", nil, types.NewIntField(2), []int64{0, 1, 2}},
		{"open above", types.NewIntField(97), nil, []int64{97, 98, 99}},
		{"empty window", types.NewIntField(40), types.NewIntField(39), nil},
		{"past the end", types.NewIntField(500), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := bt.Range(tt.lo, tt.hi)
			require.NoError(t, err)
			var got []int64
			for {
				key, _, ok, err := it.Next()
				require.NoError(t, err)
				if !ok {
					break
				}
				got = append(got, key.(*types.IntField).Value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeIsRestartable(t *testing.T) {
	bt := newTestTree(t, types.IntType)
	for k := 0; k < 50; k++ {
		require.NoError(t, bt.Insert(types.NewIntField(int64(k)), rid(k)))
	}

	scan := func() []int64 {
		it, err := bt.Range(types.NewIntField(5), types.NewIntField(20))
		require.NoError(t, err)
		var got []int64
		for {
			key, _, ok, err := it.Next()
			require.NoError(t, err)
			if !ok {
				return got
			}
			got = append(got, key.(*types.IntField).Value)
		}
	}
	assert.Equal(t, scan(), scan())
}

func TestDeleteRemovesOnlyMatchingLocator(t *testing.T) {
	bt := newTestTree(t, types.IntType)

	require.NoError(t, bt.Insert(types.NewIntField(5), rid(1)))
	require.NoError(t, bt.Insert(types.NewIntField(5), rid(2)))

	removed, err := bt.Delete(types.NewIntField(5), rid(1))
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := bt.Lookup(types.NewIntField(5))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equals(rid(2)))

	removed, err = bt.Delete(types.NewIntField(5), rid(99))
	require.NoError(t, err)
	assert.False(t, removed, "no entry has that locator")
}

func TestMassDeleteRebalances(t *testing.T) {
	bt := newTestTree(t, types.IntType)

	const n = 2000
	for _, k := range rand.New(rand.NewSource(2)).Perm(n) {
		require.NoError(t, bt.Insert(types.NewIntField(int64(k)), rid(k)))
	}

	// Remove the odd keys in shuffled order, forcing merges.
	var odd []int
	for k := 1; k < n; k += 2 {
		odd = append(odd, k)
	}
	rand.New(rand.NewSource(3)).Shuffle(len(odd), func(i, j int) { odd[i], odd[j] = odd[j], odd[i] })
	for _, k := range odd {
		removed, err := bt.Delete(types.NewIntField(int64(k)), rid(k))
		require.NoError(t, err)
		require.True(t, removed, "key %d", k)
	}

	it, err := bt.Range(nil, nil)
	require.NoError(t, err)
	var keys []int64
	for {
		key, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, key.(*types.IntField).Value)
	}
	require.Len(t, keys, n/2)
	for i, k := range keys {
		require.Equal(t, int64(2*i), k)
	}
	assertBalanced(t, bt)
}

func TestDeleteEverythingEmptiesTree(t *testing.T) {
	bt := newTestTree(t, types.IntType)

	for k := 0; k < 500; k++ {
		require.NoError(t, bt.Insert(types.NewIntField(int64(k)), rid(k)))
	}
	for k := 0; k < 500; k++ {
		removed, err := bt.Delete(types.NewIntField(int64(k)), rid(k))
		require.NoError(t, err)
		require.True(t, removed)
	}

	assert.Equal(t, primitives.InvalidPageID, bt.Root())
	got, err := bt.Lookup(types.NewIntField(0))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTextKeysSplitAndScan(t *testing.T) {
	// Text fan-out is small, so a few hundred keys build a multi-level
	// tree.
	bt := newTestTree(t, types.TextType)

	const n = 300
	for _, k := range rand.New(rand.NewSource(4)).Perm(n) {
		require.NoError(t, bt.Insert(types.NewTextField(fmt.Sprintf("key-%04d", k)), rid(k)))
	}

	h, err := bt.Height()
	require.NoError(t, err)
	assert.Greater(t, h, 1, "expected at least one split")

	it, err := bt.Range(nil, nil)
	require.NoError(t, err)
	var prev string
	var count int
	for {
		key, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		s := key.String()
		require.Greater(t, s, prev)
		prev = s
		count++
	}
	assert.Equal(t, n, count)
	assertBalanced(t, bt)
}

func TestRootChangeCallback(t *testing.T) {
	bt := newTestTree(t, types.IntType)
	var seen []primitives.PageID
	bt.onRootChange = func(id primitives.PageID) error {
		seen = append(seen, id)
		return nil
	}

	for k := 0; k < 1000; k++ {
		require.NoError(t, bt.Insert(types.NewIntField(int64(k)), rid(k)))
	}
	require.NotEmpty(t, seen)
	assert.Equal(t, bt.Root(), seen[len(seen)-1], "last notification matches the live root")
}

func TestKeyTypeMismatchRejected(t *testing.T) {
	bt := newTestTree(t, types.IntType)
	err := bt.Insert(types.NewTextField("nope"), rid(1))
	assert.Error(t, err)
}

// assertBalanced checks that every leaf sits at the same depth.
func assertBalanced(t *testing.T, bt *BTree) {
	t.Helper()
	if bt.Root() == primitives.InvalidPageID {
		return
	}
	var depths []int
	collectLeafDepths(t, bt, bt.Root(), 1, &depths)
	require.NotEmpty(t, depths)
	for _, d := range depths {
		require.Equal(t, depths[0], d, "all leaves must share a depth")
	}
}

func collectLeafDepths(t *testing.T, bt *BTree, id primitives.PageID, depth int, out *[]int) {
	t.Helper()
	n, err := bt.readNode(id)
	require.NoError(t, err)
	if n.leaf {
		*out = append(*out, depth)
		return
	}
	for _, child := range n.children {
		collectLeafDepths(t, bt, child, depth+1, out)
	}
}
