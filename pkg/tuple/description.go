package tuple

import (
	"fmt"
	"strings"

	"pagedb/pkg/primitives"
	"pagedb/pkg/types"
)

// TupleDescription is the positional layout of a tuple: column names and
// types in declaration order. It is derived from the catalog schema and
// shared by every tuple of a table.
type TupleDescription struct {
	names []string
	kinds []types.Type
}

// NewTupleDescription creates a layout from parallel name/type slices.
func NewTupleDescription(names []string, kinds []types.Type) (*TupleDescription, error) {
	if len(names) != len(kinds) {
		return nil, fmt.Errorf("mismatched columns: %d names, %d types", len(names), len(kinds))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("tuple description needs at least one column")
	}
	return &TupleDescription{
		names: append([]string(nil), names...),
		kinds: append([]types.Type(nil), kinds...),
	}, nil
}

// NumFields returns the number of columns.
func (td *TupleDescription) NumFields() primitives.ColumnID {
	return primitives.ColumnID(len(td.kinds))
}

// TypeAt returns the type of column i.
func (td *TupleDescription) TypeAt(i primitives.ColumnID) (types.Type, error) {
	if int(i) >= len(td.kinds) {
		return 0, fmt.Errorf("column index %d out of range", i)
	}
	return td.kinds[i], nil
}

// NameAt returns the name of column i.
func (td *TupleDescription) NameAt(i primitives.ColumnID) (string, error) {
	if int(i) >= len(td.names) {
		return "", fmt.Errorf("column index %d out of range", i)
	}
	return td.names[i], nil
}

// Names returns the column names in order.
func (td *TupleDescription) Names() []string {
	return append([]string(nil), td.names...)
}

// IndexOf resolves a column name to its position, case-insensitively.
func (td *TupleDescription) IndexOf(name string) (primitives.ColumnID, bool) {
	for i, n := range td.names {
		if strings.EqualFold(n, name) {
			return primitives.ColumnID(i), true
		}
	}
	return 0, false
}

// Equals reports whether two layouts have identical names and types.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil || len(td.kinds) != len(other.kinds) {
		return false
	}
	for i := range td.kinds {
		if td.kinds[i] != other.kinds[i] || !strings.EqualFold(td.names[i], other.names[i]) {
			return false
		}
	}
	return true
}

func (td *TupleDescription) String() string {
	parts := make([]string, len(td.names))
	for i := range td.names {
		parts[i] = fmt.Sprintf("%s %s", td.names[i], td.kinds[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
