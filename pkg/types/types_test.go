package types

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareEvaluatesEveryOperator(t *testing.T) {
	tests := []struct {
		name  string
		left  Field
		op    Predicate
		right Field
		want  bool
	}{
		{"int equal", NewIntField(5), Equals, NewIntField(5), true},
		{"int less", NewIntField(3), LessThan, NewIntField(5), true},
		{"int greater-or-equal boundary", NewIntField(5), GreaterThanOrEqual, NewIntField(5), true},
		{"int not-equal", NewIntField(3), NotEqual, NewIntField(5), true},
		{"negative int", NewIntField(-10), LessThan, NewIntField(0), true},
		{"text lexicographic", NewTextField("apple"), LessThan, NewTextField("banana"), true},
		{"text case sensitive", NewTextField("Apple"), Equals, NewTextField("apple"), false},
		{"bool equal", NewBoolField(true), Equals, NewBoolField(true), true},
		{"bool ordered false<true", NewBoolField(false), LessThan, NewBoolField(true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.left.Compare(tt.op, tt.right)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareMismatchedTypesIsFalseNotError(t *testing.T) {
	for _, op := range []Predicate{Equals, LessThan, GreaterThan, NotEqual} {
		got, err := NewIntField(1).Compare(op, NewTextField("1"))
		require.NoError(t, err)
		assert.False(t, got, "op %s", op)
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	fields := []Field{
		NewIntField(-123456789),
		NewTextField(""),
		NewTextField("héllo, wörld"),
		NewBoolField(true),
	}
	for _, f := range fields {
		var buf bytes.Buffer
		require.NoError(t, f.Serialize(&buf))

		back, err := ParseField(&buf, f.Type())
		require.NoError(t, err)
		assert.True(t, f.Equals(back), "round trip changed %v", f)
	}
}

func TestParseFieldRejectsOversizedTextLength(t *testing.T) {
	// Length prefix claims 0x0400 bytes, above the cap.
	_, err := ParseField(bytes.NewReader([]byte{0x00, 0x04}), TextType)
	require.Error(t, err)
}

func TestNewTextFieldTruncates(t *testing.T) {
	f := NewTextField(strings.Repeat("x", TextMaxSize+40))
	assert.Len(t, f.Value, TextMaxSize)
}

func TestTypeFromNameSynonyms(t *testing.T) {
	tests := []struct {
		name string
		want Type
	}{
		{"INT", IntType},
		{"integer", IntType},
		{"Text", TextType},
		{"VARCHAR", TextType},
		{"bool", BoolType},
		{"BOOLEAN", BoolType},
	}
	for _, tt := range tests {
		got, ok := TypeFromName(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, got)
	}

	_, ok := TypeFromName("BLOB")
	assert.False(t, ok)
}

func TestTypeJSONUsesKeywords(t *testing.T) {
	data, err := TextType.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"TEXT"`, string(data))

	var back Type
	require.NoError(t, back.UnmarshalJSON([]byte(`"boolean"`)))
	assert.Equal(t, BoolType, back)

	assert.Error(t, back.UnmarshalJSON([]byte(`"BLOB"`)))
}

func TestCompareKeysOrders(t *testing.T) {
	assert.Equal(t, -1, CompareKeys(NewIntField(1), NewIntField(2)))
	assert.Equal(t, 0, CompareKeys(NewTextField("a"), NewTextField("a")))
	assert.Equal(t, 1, CompareKeys(NewTextField("b"), NewTextField("a")))
}

func TestPredicateFromOperator(t *testing.T) {
	for op, want := range map[string]Predicate{
		"=": Equals, "==": Equals,
		"<": LessThan, ">": GreaterThan,
		"<=": LessThanOrEqual, ">=": GreaterThanOrEqual,
		"!=": NotEqual, "<>": NotEqual,
	} {
		got, ok := PredicateFromOperator(op)
		require.True(t, ok, op)
		assert.Equal(t, want, got, op)
	}

	_, ok := PredicateFromOperator("~")
	assert.False(t, ok)
}
