package compiler

import (
	"strings"

	"github.com/vwarlock/vbc/vcpu"
)

// parseAssignment handles `target = expression` statements, the fallback
// path when the leading token is not a recognized keyword (spec.md §2,
// "expression recursive-descent ... string-assignment / array-write
// specializations").
func (c *Compiler) parseAssignment(cl *CodeLine, stmt string) {
	eq := indexOfTopLevelAssign(stmt)
	if eq < 0 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, stmt, "expected assignment or statement keyword")
		return
	}
	lhs := strings.TrimSpace(stmt[:eq])
	rhs := strings.TrimSpace(stmt[eq+1:])

	name, indices, isArrayRef := splitArrayRef(lhs)
	name, sel := splitIntSuffix(name)
	cl.Int16Byte = sel
	isString := strings.HasSuffix(name, "$")

	switch {
	case isString && !isArrayRef:
		c.assignStringScalar(cl, strings.TrimSuffix(name, "$"), rhs)
	case isString && isArrayRef:
		c.assignStringArray(cl, strings.TrimSuffix(name, "$"), indices, rhs)
	case !isString && isArrayRef:
		c.assignIntArray(cl, name, indices, rhs)
	default:
		c.assignIntScalar(cl, name, rhs)
	}
}

// indexOfTopLevelAssign finds the '=' that separates an assignment target
// from its expression, ignoring '=' inside string literals and comparison
// operators embedded in array index expressions (e.g. `A(B=1)` is not
// legal SL, so a single top-level '=' outside quotes is always the
// assignment operator here).
func indexOfTopLevelAssign(stmt string) int {
	depth := 0
	inStr := false
	for i := 0; i < len(stmt); i++ {
		switch stmt[i] {
		case '"':
			inStr = !inStr
		case '(':
			if !inStr {
				depth++
			}
		case ')':
			if !inStr {
				depth--
			}
		case '=':
			if !inStr && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArrayRef splits `NAME` or `NAME(idx1, idx2, idx3)` into the bare
// name and its index expression texts.
func splitArrayRef(lhs string) (name string, indices []string, isArray bool) {
	open := strings.IndexByte(lhs, '(')
	if open < 0 {
		return strings.TrimSpace(lhs), nil, false
	}
	name = strings.TrimSpace(lhs[:open])
	inner := lhs[open+1:]
	if strings.HasSuffix(inner, ")") {
		inner = inner[:len(inner)-1]
	}
	for _, part := range splitTopLevelCommas(inner) {
		indices = append(indices, strings.TrimSpace(part))
	}
	return name, indices, true
}

func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// assignIntScalar implements `A = expr`, `A.LO = expr` and `A.HI = expr`
// (spec.md §3, §4.3): a plain target stores the whole word; a `.LO`/`.HI`
// target pokes a single byte through a temp pointer to its own zero-page
// slot, the same indirection arrayElementAddress uses for a constant array
// index.
func (c *Compiler) assignIntScalar(cl *CodeLine, name string, rhs string) {
	upper := upperASCII(name)
	v, ok := c.syms.IntVars[upper]
	if !ok {
		addr, wrapped := c.zeroPage.Alloc()
		if wrapped {
			c.diags.Warnf(KindResource, cl.LineNumber, name, "zero-page variable allocator wrapped; variable %s may alias an earlier variable", name)
		}
		v = &IntVar{Address: addr, Name: upper, VarType: Scalar, IntSize: 2, CodeLine: uint32(cl.LineNumber)}
		c.syms.AddIntVar(v)
	}
	result := c.newExprParser(rhs, cl.LineNumber).Evaluate()
	if !result.IsValid {
		return
	}
	switch cl.Int16Byte {
	case Low, High:
		addr := v.Address
		if cl.Int16Byte == High {
			addr++
		}
		c.emit(vcpu.LDWI, tempOperand(addr), false)
		addrSlot := c.stashToTemp()
		c.loadOperand(result)
		c.emit(vcpu.POKE, addrSlot, false)
	default:
		if result.isConstant() {
			v.Data = int16(wrapInt16(result.Value))
		}
		c.loadOperand(result)
		c.emit(vcpu.STW, "_"+upper, false)
	}
	cl.ContainsVars = true
}

