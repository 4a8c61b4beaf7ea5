package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type enumerates the value types a column may hold.
type Type int

const (
	IntType Type = iota
	TextType
	BoolType
)

// MarshalJSON writes the type as its SQL keyword, which keeps the
// persisted catalog readable.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	kind, ok := TypeFromName(name)
	if !ok {
		return fmt.Errorf("unknown column type %q", name)
	}
	*t = kind
	return nil
}

// TypeFromName resolves a type keyword to its Type. INTEGER and INT,
// and BOOL and BOOLEAN, are synonyms.
func TypeFromName(name string) (Type, bool) {
	switch strings.ToUpper(name) {
	case "INT", "INTEGER":
		return IntType, true
	case "TEXT", "VARCHAR", "STRING":
		return TextType, true
	case "BOOL", "BOOLEAN":
		return BoolType, true
	default:
		return 0, false
	}
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "INT"
	case TextType:
		return "TEXT"
	case BoolType:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}
