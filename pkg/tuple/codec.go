package tuple

import (
	"bytes"
	"fmt"
	"io"

	"pagedb/pkg/primitives"
	"pagedb/pkg/types"
)

// Wire format per column: one marker byte (0 = NULL, 1 = present)
// followed by the field's own serialization when present.
const (
	nullMarker    = 0
	presentMarker = 1
)

// Serialize writes the tuple's binary representation to w.
func (t *Tuple) Serialize(w io.Writer) error {
	for i := primitives.ColumnID(0); i < t.Desc.NumFields(); i++ {
		f := t.fields[i]
		if f == nil {
			if _, err := w.Write([]byte{nullMarker}); err != nil {
				return err
			}
			continue
		}
		if _, err := w.Write([]byte{presentMarker}); err != nil {
			return err
		}
		if err := f.Serialize(w); err != nil {
			return fmt.Errorf("failed to serialize column %d: %w", i, err)
		}
	}
	return nil
}

// Bytes serializes the tuple into a fresh byte slice.
func (t *Tuple) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse reads one tuple with the given layout from r, reversing
// Serialize. The returned tuple has no record id.
func Parse(r io.Reader, desc *TupleDescription) (*Tuple, error) {
	t := NewTuple(desc)
	for i := primitives.ColumnID(0); i < desc.NumFields(); i++ {
		var marker [1]byte
		if _, err := io.ReadFull(r, marker[:]); err != nil {
			return nil, fmt.Errorf("failed to read null marker for column %d: %w", i, err)
		}
		if marker[0] == nullMarker {
			continue
		}

		kind, err := desc.TypeAt(i)
		if err != nil {
			return nil, err
		}
		f, err := types.ParseField(r, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to parse column %d: %w", i, err)
		}
		if err := t.SetField(i, f); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseBytes parses a tuple from a byte slice.
func ParseBytes(data []byte, desc *TupleDescription) (*Tuple, error) {
	return Parse(bytes.NewReader(data), desc)
}
