package types

// Predicate enumerates the comparison operators the engine evaluates.
type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case LessThanOrEqual:
		return "<="
	case GreaterThanOrEqual:
		return ">="
	case NotEqual:
		return "!="
	default:
		return "UNKNOWN"
	}
}

// PredicateFromOperator maps SQL operator text to a Predicate.
// The second return value is false for unrecognized operators.
func PredicateFromOperator(op string) (Predicate, bool) {
	switch op {
	case "=", "==":
		return Equals, true
	case "<":
		return LessThan, true
	case ">":
		return GreaterThan, true
	case "<=":
		return LessThanOrEqual, true
	case ">=":
		return GreaterThanOrEqual, true
	case "!=", "<>":
		return NotEqual, true
	default:
		return Equals, false
	}
}
