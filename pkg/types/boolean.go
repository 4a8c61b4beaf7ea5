package types

import "io"

// BoolField represents a boolean value.
type BoolField struct {
	Value bool
}

// NewBoolField creates a new BoolField with the given value.
func NewBoolField(value bool) *BoolField {
	return &BoolField{Value: value}
}

// Serialize writes the value as a single byte (1 = true).
func (f *BoolField) Serialize(w io.Writer) error {
	b := byte(0)
	if f.Value {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// Compare evaluates `this op other`. Ordered operators treat false < true,
// matching the sort order the B+Tree uses for boolean keys.
func (f *BoolField) Compare(op Predicate, other Field) (bool, error) {
	o, ok := other.(*BoolField)
	if !ok {
		return false, nil
	}

	a, b := boolRank(f.Value), boolRank(o.Value)
	switch op {
	case Equals:
		return a == b, nil
	case NotEqual:
		return a != b, nil
	case LessThan:
		return a < b, nil
	case GreaterThan:
		return a > b, nil
	case LessThanOrEqual:
		return a <= b, nil
	case GreaterThanOrEqual:
		return a >= b, nil
	default:
		return false, nil
	}
}

func (f *BoolField) Type() Type {
	return BoolType
}

func (f *BoolField) String() string {
	if f.Value {
		return "true"
	}
	return "false"
}

func (f *BoolField) Equals(other Field) bool {
	o, ok := other.(*BoolField)
	return ok && f.Value == o.Value
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}
