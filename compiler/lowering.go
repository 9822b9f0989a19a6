package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vwarlock/vbc/vcpu"
)

// wrapInt16 folds v into signed 16-bit range, giving constant folding the
// same overflow semantics as the emitted runtime arithmetic (spec.md §8
// invariant 6: "well-defined overflow mod 2^16").
func wrapInt16(v float64) float64 {
	iv := int64(v)
	iv = ((iv % 65536) + 65536) % 65536
	if iv >= 32768 {
		iv -= 65536
	}
	return float64(iv)
}

// tempOperand formats a zero-page address the way the peephole optimizer's
// operand-identity rules expect (spec.md §4.5: "e.g., 0xc0").
func tempOperand(addr uint16) string {
	return fmt.Sprintf("0x%02x", addr)
}

// immediateOperand formats a constant Numeric for use as an LDI/ADDI/SUBI
// operand.
func immediateOperand(n Numeric) string {
	return strconv.Itoa(int(wrapInt16(n.Value)))
}

// variableOperand returns the symbolic operand text for a variable
// reference (spec.md §8 scenario 1: "STW targeting _A").
func variableOperand(n Numeric) string {
	return "_" + n.Name
}

// loadOperand emits code to get n's value into the accumulator. Pure
// constants and plain variable references are loaded lazily, right before
// whichever caller actually consumes them; an already-materialized
// intermediate (the result of a prior lowerX call) reloads from the temp
// slot it was stashed to, if it carries one.
func (c *Compiler) loadOperand(n Numeric) {
	switch {
	case n.IsAddress && n.VarKind == KindConstant:
		// '@label': the label's Address may not be final yet (forward
		// reference, or a later prologue-enable/peephole rewrite can still
		// shift it), unlike a zero-page variable's address, which never
		// moves once allocated — so this one immediate is backpatched once
		// every address is final, instead of baked in now.
		c.emitLabelAddress(n.Name)
	case n.IsAddress:
		// '@intVar'/'@strVar': zero-page addresses are stable the moment
		// they're allocated, so the value already known at Evaluate() time
		// is final.
		c.emit(vcpu.LDI, immediateOperand(n), false)
	case n.VarKind == KindConstant:
		c.emit(vcpu.LDI, immediateOperand(n), false)
	case n.VarKind == KindIntVar, n.VarKind == KindArr1Var, n.VarKind == KindArr2Var, n.VarKind == KindArr3Var:
		c.emit(vcpu.LDW, variableOperand(n), false)
	case n.VarKind == KindNumber && n.Literal:
		c.emit(vcpu.LDI, immediateOperand(n), false)
	case n.FromComparison:
		// lowerComparison already left its canonical result in the
		// accumulator (or the native flags, for Normal/Fast CC); nothing
		// left to (re)load.
	default:
		// already materialized by a prior lowering step (temp var or
		// accumulator-resident intermediate): Name carries the operand
		// text to reload it from, if ever needed again.
		if n.Name != "" {
			c.emit(vcpu.LDW, n.Name, false)
		}
	}
}

// stashToTemp stores the accumulator to a fresh temp-var slot and returns
// its operand text, implementing the rotating window of spec.md §4.2.2.
func (c *Compiler) stashToTemp() string {
	addr := c.nextTempVar()
	op := tempOperand(addr)
	c.emit(vcpu.STW, op, false)
	return op
}

// intermediate wraps a value that now lives in the accumulator, named by
// the temp-var slot it was last stashed to (if any), so later stages can
// decide whether reloading it is necessary.
func intermediate(tempOp string) Numeric {
	return Numeric{IsValid: true, VarKind: KindNumber, Name: tempOp}
}

func foldedConstant(v float64) Numeric {
	return Numeric{IsValid: true, VarKind: KindNumber, Value: wrapInt16(v), Literal: true}
}

// binaryArith is the shared emission shape for +, -, AND, OR: load
// left, stash it, load right, apply varOp against the stash. Constant
// folding short-circuits entirely when both operands are compile-time
// constants (spec.md §8 scenario 1); the peephole optimizer is relied on
// to clean up the redundant stash when one operand turns out to be a
// constant after all (spec.md §4.5 StwLdiAddw).
func (c *Compiler) binaryArith(left, right Numeric, fold func(a, b float64) float64, varOp vcpu.Opcode, line int) Numeric {
	if !left.IsValid || !right.IsValid {
		return invalidNumeric
	}
	if left.isConstant() && right.isConstant() {
		return foldedConstant(fold(left.Value, right.Value))
	}
	c.loadOperand(left)
	tmp := c.stashToTemp()
	c.loadOperand(right)
	c.emit(varOp, tmp, false)
	// tmp now holds left's original value, not the sum: the sum lives only
	// in the accumulator, exactly like runtimeBinaryOp's result below, so
	// the returned intermediate must not name tmp as a reload source.
	return intermediate("")
}

func (c *Compiler) lowerAdd(left, right Numeric, line int) Numeric {
	return c.binaryArith(left, right, func(a, b float64) float64 { return a + b }, vcpu.ADDW, line)
}

func (c *Compiler) lowerSub(left, right Numeric, line int) Numeric {
	return c.binaryArith(left, right, func(a, b float64) float64 { return a - b }, vcpu.SUBW, line)
}

// lowerMul, lowerDiv, lowerMod and lowerPow have no native vCPU opcode: the
// original compiler calls into runtime-library multiply/divide routines
// (spec.md §1 "runtime-subroutine library source" is out of scope; only
// the calling shape is modeled). They still constant-fold.
func (c *Compiler) lowerMul(left, right Numeric, line int) Numeric {
	return c.runtimeBinaryOp(left, right, func(a, b float64) float64 { return a * b }, "mulRound16", line)
}

func (c *Compiler) lowerDiv(left, right Numeric, line int) Numeric {
	return c.runtimeBinaryOp(left, right, func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return float64(int64(a) / int64(b))
	}, "divMod16", line)
}

func (c *Compiler) lowerMod(left, right Numeric, line int) Numeric {
	return c.runtimeBinaryOp(left, right, func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return float64(int64(a) % int64(b))
	}, "divMod16", line)
}

func (c *Compiler) lowerPow(left, right Numeric, line int) Numeric {
	return c.runtimeBinaryOp(left, right, func(a, b float64) float64 {
		result := 1.0
		for i := 0; i < int(b); i++ {
			result *= a
		}
		return wrapInt16(result)
	}, "powRound16", line)
}

func (c *Compiler) runtimeBinaryOp(left, right Numeric, fold func(a, b float64) float64, macro string, line int) Numeric {
	if !left.IsValid || !right.IsValid {
		return invalidNumeric
	}
	if left.isConstant() && right.isConstant() {
		return foldedConstant(fold(left.Value, right.Value))
	}
	c.loadOperand(left)
	tmp := c.stashToTemp()
	c.loadOperand(right)
	rtmp := c.stashToTemp()
	c.emitMacro(macro, tmp+","+rtmp)
	return intermediate("")
}

func (c *Compiler) lowerNegate(n Numeric, line int) Numeric {
	if !n.IsValid {
		return invalidNumeric
	}
	if n.isConstant() {
		return foldedConstant(-n.Value)
	}
	c.loadOperand(n)
	c.emit(vcpu.XORI, "0xffff", false)
	c.emit(vcpu.ADDI, "1", false)
	return intermediate("")
}

func (c *Compiler) lowerNot(n Numeric, line int) Numeric {
	if !n.IsValid {
		return invalidNumeric
	}
	if n.isConstant() {
		if n.Value == 0 {
			return foldedConstant(-1)
		}
		return foldedConstant(0)
	}
	c.loadOperand(n)
	c.emit(vcpu.XORI, "0xffff", false)
	return intermediate("")
}

// lowerBoolOp implements AND/OR at the `logical` grammar level (spec.md
// §4.1 grammar), operating bitwise on the 0/-1 canonical booleans produced
// by comparisons, matching the BASIC convention that true is -1.
func (c *Compiler) lowerBoolOp(left, right Numeric, op string, line int) Numeric {
	var varOp vcpu.Opcode
	var fold func(a, b float64) float64
	switch op {
	case "AND":
		varOp = vcpu.ANDI
		fold = func(a, b float64) float64 { return float64(int64(a) & int64(b)) }
	case "OR":
		varOp = vcpu.ORI
		fold = func(a, b float64) float64 { return float64(int64(a) | int64(b)) }
	}
	return c.binaryArith(left, right, fold, varOp, line)
}

// lowerComparison implements spec.md §4.1.3: materialize both operands,
// call the matching ROM test stub, and shape the result according to the
// comparison's CC family.
func (c *Compiler) lowerComparison(left, right Numeric, opText string, cc CcKind, line int) Numeric {
	if !left.IsValid || !right.IsValid {
		return invalidNumeric
	}
	base := stripCcPrefix(opText)
	stub := ccStub(base)

	if left.isConstant() && right.isConstant() {
		return foldedConstant(boolToInt(evalConstCompare(base, left.Value, right.Value)))
	}

	c.requirePrologue(base)
	c.loadOperand(left)
	tmp := c.stashToTemp()
	c.loadOperand(right)
	c.emitMacro(stub, tmp)

	return Numeric{IsValid: true, VarKind: KindNumber, CcKind: cc, Name: stub, Text: base, FromComparison: true}
}

func stripCcPrefix(op string) string {
	for len(op) > 0 && (op[0] == '&') {
		op = op[1:]
	}
	return op
}

func ccStub(base string) string {
	switch base {
	case "=", "==":
		return "EqOp"
	case "<>":
		return "NeOp"
	case "<=":
		return "LeOp"
	case ">=":
		return "GeOp"
	case "<":
		return "LtOp"
	case ">":
		return "GtOp"
	}
	return "EqOp"
}

func evalConstCompare(base string, a, b float64) bool {
	switch base {
	case "=", "==":
		return a == b
	case "<>":
		return a != b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case ">":
		return a > b
	}
	return false
}

func boolToInt(b bool) float64 {
	if b {
		return -1
	}
	return 0
}

// builtinStubs names the runtime-subroutine each inbuilt function's call
// lowers to (spec.md §1: the subroutine bodies are an external collaborator;
// only the calling shape is modeled here).
var builtinStubs = map[string]string{
	"ABS":  "absRound16",
	"RND":  "rndRound16",
	"MIN":  "minRound16",
	"MAX":  "maxRound16",
	"PEEK": "peekRound16",
	"DEEK": "deekRound16",
	"SGN":  "sgnRound16",
}

// lowerBuiltinCall stashes every argument to its own temp slot, in argument
// order, then emits a single macro call naming the runtime stub, returning
// the result as an accumulator-resident intermediate.
func (c *Compiler) lowerBuiltinCall(name string, params []Numeric) Numeric {
	var operands []string
	for _, n := range params {
		if !n.IsValid {
			return invalidNumeric
		}
		c.loadOperand(n)
		operands = append(operands, c.stashToTemp())
	}
	c.emitMacro(builtinStubs[name], strings.Join(operands, ","))
	return intermediate("")
}

// labelAddrFixup records one '@label' immediate load whose operand was a
// placeholder at emission time because the label's final Address wasn't
// known yet (spec.md §4.1 "relocatable").
type labelAddrFixup struct {
	placeholder string
	label       string
}

// emitLabelAddress emits an LDI carrying a unique placeholder operand and
// queues a fixup to rewrite it to the label's real Address once every
// label address is final (resolveLabelAddrFixups, run once at the end of
// Compile after the peephole optimizer has settled every address).
func (c *Compiler) emitLabelAddress(label string) {
	placeholder := fmt.Sprintf("@labelAddr:%s:%d@", label, c.uniqueID)
	c.uniqueID++
	c.emit(vcpu.LDI, placeholder, false)
	c.labelAddrFixups = append(c.labelAddrFixups, labelAddrFixup{placeholder: placeholder, label: label})
}

// resolveLabelAddrFixups rewrites every queued '@label' placeholder to its
// label's final Address. An undefined label was already reported as a
// semantic diagnostic at resolveAddressOf time, so compilation never
// reaches here for that case; a defensive zero keeps this pass total.
func (c *Compiler) resolveLabelAddrFixups() {
	for _, f := range c.labelAddrFixups {
		addr := uint16(0)
		if lbl, ok := c.syms.Labels[f.label]; ok {
			addr = lbl.Address
		}
		text := strconv.Itoa(int(addr))
		for _, cl := range c.codeLines {
			for i := range cl.Vasm {
				if cl.Vasm[i].Operand == f.placeholder {
					cl.Vasm[i].Operand = text
					cl.Vasm[i].FormattedCode = formatInstruction(cl.Vasm[i].Opcode, text)
				}
			}
		}
	}
}
