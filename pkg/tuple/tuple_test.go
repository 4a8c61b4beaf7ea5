package tuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedb/pkg/types"
)

func userDesc(t *testing.T) *TupleDescription {
	t.Helper()
	desc, err := NewTupleDescription(
		[]string{"id", "name", "active"},
		[]types.Type{types.IntType, types.TextType, types.BoolType},
	)
	require.NoError(t, err)
	return desc
}

func TestSetFieldValidatesType(t *testing.T) {
	tup := NewTuple(userDesc(t))

	require.NoError(t, tup.SetField(0, types.NewIntField(7)))
	require.NoError(t, tup.SetField(1, types.NewTextField("ada")))

	err := tup.SetField(2, types.NewTextField("not a bool"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")

	assert.Error(t, tup.SetField(9, types.NewIntField(1)))
}

func TestNilFieldIsNull(t *testing.T) {
	tup := NewTuple(userDesc(t))
	require.NoError(t, tup.SetField(0, types.NewIntField(1)))
	require.NoError(t, tup.SetField(1, nil))

	assert.False(t, tup.IsNull(0))
	assert.True(t, tup.IsNull(1))
	assert.True(t, tup.IsNull(2), "unset columns start NULL")
	assert.Equal(t, []string{"1", "NULL", "NULL"}, tup.Strings())
}

func TestSerializeParsePreservesNulls(t *testing.T) {
	desc := userDesc(t)
	tup := NewTuple(desc)
	require.NoError(t, tup.SetField(0, types.NewIntField(42)))
	require.NoError(t, tup.SetField(2, types.NewBoolField(true)))

	data, err := tup.Bytes()
	require.NoError(t, err)

	back, err := ParseBytes(data, desc)
	require.NoError(t, err)

	f, err := back.GetField(0)
	require.NoError(t, err)
	assert.True(t, types.NewIntField(42).Equals(f))
	assert.True(t, back.IsNull(1))
	assert.False(t, back.IsNull(2))
	assert.Nil(t, back.RecordID)
}

func TestParseBytesRejectsTruncatedInput(t *testing.T) {
	desc := userDesc(t)
	tup := NewTuple(desc)
	require.NoError(t, tup.SetField(0, types.NewIntField(1)))
	require.NoError(t, tup.SetField(1, types.NewTextField("hello")))
	require.NoError(t, tup.SetField(2, types.NewBoolField(false)))

	data, err := tup.Bytes()
	require.NoError(t, err)

	_, err = ParseBytes(data[:len(data)-3], desc)
	require.Error(t, err)
}

func TestCloneSharesLayoutNotRecordID(t *testing.T) {
	tup := NewTuple(userDesc(t))
	require.NoError(t, tup.SetField(0, types.NewIntField(5)))
	tup.RecordID = NewRecordID(3, 1)

	c := tup.Clone()
	assert.Nil(t, c.RecordID)
	assert.Same(t, tup.Desc, c.Desc)

	require.NoError(t, c.SetField(0, types.NewIntField(6)))
	orig, err := tup.GetField(0)
	require.NoError(t, err)
	assert.True(t, types.NewIntField(5).Equals(orig), "clone writes must not leak back")
}

func TestCombineConcatenatesColumns(t *testing.T) {
	left := NewTuple(userDesc(t))
	require.NoError(t, left.SetField(0, types.NewIntField(1)))
	require.NoError(t, left.SetField(1, types.NewTextField("ada")))

	rightDesc, err := NewTupleDescription([]string{"score"}, []types.Type{types.IntType})
	require.NoError(t, err)
	right := NewTuple(rightDesc)
	require.NoError(t, right.SetField(0, types.NewIntField(99)))

	joined, err := Combine(left, right)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "active", "score"}, joined.Desc.Names())
	assert.Equal(t, []string{"1", "ada", "NULL", "99"}, joined.Strings())
}

func TestIndexOfIsCaseInsensitive(t *testing.T) {
	desc := userDesc(t)

	i, ok := desc.IndexOf("NAME")
	require.True(t, ok)
	assert.EqualValues(t, 1, i)

	_, ok = desc.IndexOf("missing")
	assert.False(t, ok)
}

func TestRecordIDEquals(t *testing.T) {
	assert.True(t, NewRecordID(2, 4).Equals(NewRecordID(2, 4)))
	assert.False(t, NewRecordID(2, 4).Equals(NewRecordID(2, 5)))
	assert.False(t, NewRecordID(2, 4).Equals(nil))

	var a, b *RecordID
	assert.True(t, a.Equals(b))
}
