package types

import (
	"encoding/binary"
	"io"
	"strconv"
)

// IntField represents a 64-bit signed integer value.
type IntField struct {
	Value int64
}

// NewIntField creates a new IntField with the given value.
func NewIntField(value int64) *IntField {
	return &IntField{Value: value}
}

// Serialize writes the value as 8 little-endian bytes.
func (f *IntField) Serialize(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, f.Value)
}

// Compare evaluates `this op other`. Comparing against a non-integer
// field yields false.
func (f *IntField) Compare(op Predicate, other Field) (bool, error) {
	o, ok := other.(*IntField)
	if !ok {
		return false, nil
	}

	switch op {
	case Equals:
		return f.Value == o.Value, nil
	case LessThan:
		return f.Value < o.Value, nil
	case GreaterThan:
		return f.Value > o.Value, nil
	case LessThanOrEqual:
		return f.Value <= o.Value, nil
	case GreaterThanOrEqual:
		return f.Value >= o.Value, nil
	case NotEqual:
		return f.Value != o.Value, nil
	default:
		return false, nil
	}
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(f.Value, 10)
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	return ok && f.Value == o.Value
}
