package compiler

// VarKind classifies what a Numeric result actually names (spec.md §4.1).
type VarKind uint8

const (
	KindNumber VarKind = iota
	KindIntVar
	KindStrVar
	KindArr1Var
	KindArr2Var
	KindArr3Var
	KindStr2Var
	KindConstant
	KindString
)

// CcKind selects how a comparison result lowers to vCPU code (spec.md
// §4.1.3).
type CcKind uint8

const (
	BooleanCC CcKind = iota // '=', '<>', '<=', '>=', '<', '>' -> 0/-1
	NormalCC                 // '&'-prefixed -> native flags, branch-only
	FastCC                   // '&&'-prefixed -> truthy-nonzero, uncanonicalized
)

// Numeric is the result of evaluating an expression or sub-expression
// (spec.md §4.1).
type Numeric struct {
	Value       float64
	Index       int
	IsValid     bool
	IsAddress   bool
	Relocatable bool
	// Literal marks a KindNumber whose Value is known at compile time (a
	// parsed numeric/char literal, a folded constant, or a length-of result)
	// as distinct from a KindNumber that merely names an accumulator-resident
	// intermediate produced by a prior lowering step.
	Literal bool
	// FromComparison marks a KindNumber produced by lowerComparison: the ROM
	// test stub it called already left the canonical result in the
	// accumulator (or the native flags, for Normal/Fast CC), so loadOperand
	// must not try to reload it.
	FromComparison bool
	VarKind        VarKind
	CcKind         CcKind
	Int16Byte      Int16Byte
	Name           string
	Text           string
}

// invalidNumeric is the sentinel returned by a failed evaluation; an error
// diagnostic has always already been recorded by the time this is
// returned.
var invalidNumeric = Numeric{IsValid: false}

// isConstant reports whether n's value is known at compile time, making it
// eligible for constant folding (spec.md §8, scenario 1). A KindNumber only
// qualifies when it is actually Literal — an unfolded intermediate result
// (an accumulator-resident value stashed mid-expression) also carries
// VarKind == KindNumber but is not known until runtime.
func (n Numeric) isConstant() bool {
	return n.VarKind == KindConstant || (n.VarKind == KindNumber && n.Literal)
}
