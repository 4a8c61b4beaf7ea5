package types

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseField reads one field of the given type from r, reversing the
// corresponding Serialize.
func ParseField(r io.Reader, t Type) (Field, error) {
	switch t {
	case IntType:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("failed to read int field: %w", err)
		}
		return NewIntField(v), nil

	case TextType:
		var length uint16
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("failed to read text length: %w", err)
		}
		if length > TextMaxSize {
			return nil, fmt.Errorf("text length %d exceeds maximum %d", length, TextMaxSize)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read text bytes: %w", err)
		}
		return &TextField{Value: string(buf)}, nil

	case BoolType:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("failed to read bool field: %w", err)
		}
		return NewBoolField(b[0] != 0), nil

	default:
		return nil, fmt.Errorf("unknown field type %d", t)
	}
}

// CompareKeys orders two fields of the same type, returning -1, 0 or 1.
// Used by the B+Tree to keep node entries sorted.
func CompareKeys(a, b Field) int {
	if a.Equals(b) {
		return 0
	}
	if lt, _ := a.Compare(LessThan, b); lt {
		return -1
	}
	return 1
}
