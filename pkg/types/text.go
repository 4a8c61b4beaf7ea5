package types

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// TextMaxSize caps the byte length of a text value so every field fits
// inside a single page slot and a single B+Tree entry.
const TextMaxSize = 255

// TextField represents a variable-length string value.
type TextField struct {
	Value string
}

// NewTextField creates a new TextField, truncating to TextMaxSize.
func NewTextField(value string) *TextField {
	if len(value) > TextMaxSize {
		value = value[:TextMaxSize]
	}
	return &TextField{Value: value}
}

// Serialize writes a 2-byte little-endian length followed by the bytes.
func (f *TextField) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(f.Value))); err != nil {
		return err
	}
	_, err := w.Write([]byte(f.Value))
	return err
}

// Compare evaluates `this op other` lexicographically. Comparing against
// a non-text field yields false.
func (f *TextField) Compare(op Predicate, other Field) (bool, error) {
	o, ok := other.(*TextField)
	if !ok {
		return false, nil
	}

	cmp := strings.Compare(f.Value, o.Value)
	switch op {
	case Equals:
		return cmp == 0, nil
	case LessThan:
		return cmp < 0, nil
	case GreaterThan:
		return cmp > 0, nil
	case LessThanOrEqual:
		return cmp <= 0, nil
	case GreaterThanOrEqual:
		return cmp >= 0, nil
	case NotEqual:
		return cmp != 0, nil
	default:
		return false, nil
	}
}

func (f *TextField) Type() Type {
	return TextType
}

func (f *TextField) String() string {
	return f.Value
}

func (f *TextField) Equals(other Field) bool {
	o, ok := other.(*TextField)
	return ok && f.Value == o.Value
}

// GoString quotes the value, which keeps test failure output readable.
func (f *TextField) GoString() string {
	return fmt.Sprintf("%q", f.Value)
}
