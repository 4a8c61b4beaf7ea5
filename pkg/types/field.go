package types

import "io"

// Field is a single typed value inside a tuple or index entry.
type Field interface {
	// Serialize writes the field's binary representation to w.
	Serialize(w io.Writer) error

	// Compare evaluates `this op other` and reports the result.
	// Comparing against a mismatched type or a null is false, not an
	// error, so predicate evaluation never aborts a scan.
	Compare(op Predicate, other Field) (bool, error)

	// Type returns the field's value type.
	Type() Type

	// String renders the value for result sets.
	String() string

	// Equals reports exact equality with another field.
	Equals(other Field) bool
}
