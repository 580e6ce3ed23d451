// Package dtype defines the closed set of logical element types and the
// promotion policy shared by blocks and kernels. Dispatch throughout the
// storage core goes through tables keyed by Kind; new kinds register
// kernel entries instead of patching call sites.
package dtype

// Kind is the logical element type of a buffer.
type Kind int

const (
	// Invalid is the zero Kind.
	Invalid Kind = iota
	// Int64 is a signed 64-bit integer with no room for a null sentinel.
	Int64
	// Uint64 is an unsigned 64-bit integer with no room for a null sentinel.
	Uint64
	// Float64 is a 64-bit float; missing values are NaN.
	Float64
	// Bool is a boolean; missing values use the validity mask.
	Bool
	// String is a variable-width string; missing values use the validity mask.
	String
	// Timestamp is a UTC-naive instant stored as epoch nanoseconds.
	Timestamp
	// Duration is a signed span of nanoseconds.
	Duration
	// Decimal is a fixed-precision decimal.
	Decimal
	// NullableInt64 is a signed 64-bit integer paired with a validity mask.
	NullableInt64

	numKinds
)

var kindNames = [...]string{
	Invalid:       "invalid",
	Int64:         "int64",
	Uint64:        "uint64",
	Float64:       "float64",
	Bool:          "bool",
	String:        "string",
	Timestamp:     "timestamp",
	Duration:      "duration",
	Decimal:       "decimal",
	NullableInt64: "nullable_int64",
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if k <= Invalid || k >= numKinds {
		return "invalid"
	}
	return kindNames[k]
}

// Valid reports whether k is a defined kind.
func (k Kind) Valid() bool {
	return k > Invalid && k < numKinds
}

// IsNumeric reports whether arithmetic kernels exist for the kind.
func (k Kind) IsNumeric() bool {
	switch k {
	case Int64, Uint64, Float64, Decimal, NullableInt64:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether the kind is a time-based type.
func (k Kind) IsTemporal() bool {
	return k == Timestamp || k == Duration
}

// ParseKind resolves a kind name to its Kind value.
func ParseKind(name string) (Kind, bool) {
	for k := Invalid + 1; k < numKinds; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return Invalid, false
}

// NullRule describes how a kind represents a missing value.
type NullRule int

const (
	// NullPromote means the kind has no null representation; a gap forces
	// promotion to a kind that has one.
	NullPromote NullRule = iota
	// NullNaN means missing values are encoded as NaN in the payload.
	NullNaN
	// NullMask means missing values are tracked in a validity mask.
	NullMask
)

// NullRule returns the missing-value policy for the kind.
func (k Kind) NullRule() NullRule {
	switch k {
	case Int64, Uint64:
		return NullPromote
	case Float64:
		return NullNaN
	default:
		return NullMask
	}
}

// PromoteForMissing returns the kind used to hold k's values once a
// missing-value gap is introduced (reindex to unmatched labels).
func PromoteForMissing(k Kind) Kind {
	if k.NullRule() == NullPromote {
		return Float64
	}
	return k
}
