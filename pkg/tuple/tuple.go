package tuple

import (
	"fmt"
	"strings"

	"pagedb/pkg/primitives"
	"pagedb/pkg/types"
)

// Tuple is an ordered sequence of typed values matching a table's column
// list by position. A nil field is SQL NULL. RecordID is set once the
// tuple lives on a page.
type Tuple struct {
	Desc     *TupleDescription
	RecordID *RecordID

	fields []types.Field
}

// NewTuple creates an all-NULL tuple with the given layout.
func NewTuple(desc *TupleDescription) *Tuple {
	return &Tuple{
		Desc:   desc,
		fields: make([]types.Field, desc.NumFields()),
	}
}

// SetField stores a value in column i, validating its type against the
// layout. A nil field sets the column to NULL.
func (t *Tuple) SetField(i primitives.ColumnID, f types.Field) error {
	kind, err := t.Desc.TypeAt(i)
	if err != nil {
		return err
	}
	if f != nil && f.Type() != kind {
		return fmt.Errorf("type mismatch for column %d: expected %s, got %s", i, kind, f.Type())
	}
	t.fields[i] = f
	return nil
}

// GetField returns the value in column i; nil means NULL.
func (t *Tuple) GetField(i primitives.ColumnID) (types.Field, error) {
	if int(i) >= len(t.fields) {
		return nil, fmt.Errorf("column index %d out of range", i)
	}
	return t.fields[i], nil
}

// IsNull reports whether column i holds NULL.
func (t *Tuple) IsNull(i primitives.ColumnID) bool {
	return int(i) < len(t.fields) && t.fields[i] == nil
}

// Clone returns a copy sharing the layout but not the record id, for
// UPDATE paths that build the replacement row from the original.
func (t *Tuple) Clone() *Tuple {
	c := NewTuple(t.Desc)
	copy(c.fields, t.fields)
	return c
}

// Strings renders every column for result materialization; NULL renders
// as the literal "NULL".
func (t *Tuple) Strings() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		if f == nil {
			out[i] = "NULL"
		} else {
			out[i] = f.String()
		}
	}
	return out
}

func (t *Tuple) String() string {
	return "(" + strings.Join(t.Strings(), ", ") + ")"
}

// Combine concatenates two tuples into one row laid out as left's
// columns followed by right's, the column order join results use.
func Combine(left, right *Tuple) (*Tuple, error) {
	names := append(left.Desc.Names(), right.Desc.Names()...)
	kinds := make([]types.Type, 0, len(names))
	for i := primitives.ColumnID(0); i < left.Desc.NumFields(); i++ {
		k, _ := left.Desc.TypeAt(i)
		kinds = append(kinds, k)
	}
	for i := primitives.ColumnID(0); i < right.Desc.NumFields(); i++ {
		k, _ := right.Desc.TypeAt(i)
		kinds = append(kinds, k)
	}

	desc, err := NewTupleDescription(names, kinds)
	if err != nil {
		return nil, err
	}

	combined := NewTuple(desc)
	n := left.Desc.NumFields()
	for i := primitives.ColumnID(0); i < n; i++ {
		f, _ := left.GetField(i)
		combined.fields[i] = f
	}
	for i := primitives.ColumnID(0); i < right.Desc.NumFields(); i++ {
		f, _ := right.GetField(i)
		combined.fields[n+i] = f
	}
	return combined, nil
}
