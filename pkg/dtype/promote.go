package dtype

import "github.com/ajitpratap0/tabular/pkg/errors"

// Op is the operation class used by the promotion policy. Promotion only
// cares about the class of an operation, not the specific kernel.
type Op int

const (
	// OpArith covers add, sub and mul.
	OpArith Op = iota
	// OpDiv is true division, which leaves the integer lattice.
	OpDiv
	// OpCompare covers the six comparison operators.
	OpCompare
)

// Promote returns the result kind of applying op between values of kinds
// a and b. It encodes the numeric-casting policy: int+int stays int,
// int+float widens to float, masked kinds absorb unmasked integers, and
// true division always leaves the integer lattice. Incompatible operands
// return a structural error; callers never silently coerce.
func Promote(a Kind, op Op, b Kind) (Kind, error) {
	if !a.Valid() || !b.Valid() {
		return Invalid, errors.IncompatibleKind(a.String(), b.String())
	}

	if op == OpCompare {
		if comparable(a, b) {
			return Bool, nil
		}
		return Invalid, errors.IncompatibleKind(a.String(), b.String())
	}

	// Temporal algebra is closed and handled apart from the numeric lattice.
	if a.IsTemporal() || b.IsTemporal() {
		return promoteTemporal(a, op, b)
	}

	if !a.IsNumeric() || !b.IsNumeric() {
		return Invalid, errors.IncompatibleKind(a.String(), b.String())
	}

	k := numericCommon(a, b)
	if op == OpDiv && (k == Int64 || k == Uint64 || k == NullableInt64) {
		k = Float64
	}
	return k, nil
}

// Common returns the kind both operands are cast to before a binary
// kernel runs. For arithmetic it equals the arithmetic result kind; for
// comparison it is the shared numeric (or identical) operand kind.
func Common(a, b Kind) (Kind, error) {
	if a == b {
		return a, nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		return numericCommon(a, b), nil
	}
	return Invalid, errors.IncompatibleKind(a.String(), b.String())
}

func comparable(a, b Kind) bool {
	if a == b {
		return true
	}
	return a.IsNumeric() && b.IsNumeric()
}

// numericCommon resolves two numeric kinds to their common kind.
// Lattice: Float64 absorbs everything except Decimal+integer pairs,
// Decimal absorbs integers, NullableInt64 absorbs plain integers, and
// mixed-sign integers widen to Float64 since neither side can hold the
// other's range.
func numericCommon(a, b Kind) Kind {
	if a == b {
		return a
	}
	if a == Float64 || b == Float64 {
		return Float64
	}
	if a == Decimal || b == Decimal {
		return Decimal
	}
	if a == NullableInt64 || b == NullableInt64 {
		// nullable_int64 + uint64 has no lossless common integer kind
		if a == Uint64 || b == Uint64 {
			return Float64
		}
		return NullableInt64
	}
	// Int64 vs Uint64
	return Float64
}

func promoteTemporal(a Kind, op Op, b Kind) (Kind, error) {
	if op != OpArith {
		return Invalid, errors.IncompatibleKind(a.String(), b.String())
	}
	switch {
	case a == Timestamp && b == Duration, a == Duration && b == Timestamp:
		return Timestamp, nil
	case a == Timestamp && b == Timestamp:
		return Duration, nil
	case a == Duration && b == Duration:
		return Duration, nil
	case a == Duration && b == Int64, a == Int64 && b == Duration:
		return Duration, nil
	default:
		return Invalid, errors.IncompatibleKind(a.String(), b.String())
	}
}
