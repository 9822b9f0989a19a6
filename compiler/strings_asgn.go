package compiler

import (
	"fmt"

	"github.com/vwarlock/vbc/vcpu"
)

// defaultStringMaxSize is the buffer size reserved for a scalar string
// variable the source never DIMensions explicitly (spec.md §3: strings are
// length-prefixed and null terminated).
const defaultStringMaxSize = 255

// ensureStrVar returns the StrVar for name, allocating a fresh buffer from
// free RAM on first reference.
func (c *Compiler) ensureStrVar(cl *CodeLine, name string) *StrVar {
	upper := upperASCII(name)
	if v, ok := c.syms.StrVars[upper]; ok {
		return v
	}
	addr, err := c.freeRAM.GetFreeRAM(Ascending, defaultStringMaxSize+2, vcpu.UserCodeStart, 0xffff, false)
	if err != nil {
		c.diags.Errorf(KindResource, cl.LineNumber, name, "%v", err)
		return &StrVar{Name: upper}
	}
	v := &StrVar{Address: addr, MaxSize: defaultStringMaxSize, Name: upper}
	c.syms.AddStrVar(v)
	return v
}

// allocConstString interns a constant string literal, reusing an existing
// buffer when the same text has already been seen (spec.md §8 invariant 3:
// constant-string deduplication).
func (c *Compiler) allocConstString(cl *CodeLine, text string) *StrVar {
	if v, ok := c.syms.FindConstString(text); ok {
		return v
	}
	addr, err := c.freeRAM.GetFreeRAM(Ascending, uint16(len(text))+2, vcpu.UserCodeStart, 0xffff, false)
	if err != nil {
		c.diags.Errorf(KindResource, cl.LineNumber, text, "%v", err)
		return &StrVar{Text: text, Constant: true}
	}
	name := fmt.Sprintf("_STR_%04x_", c.syms.NextUniqueID()&0xffff)
	v := &StrVar{Address: addr, Size: uint8(len(text)), MaxSize: uint8(len(text)), Text: text, Name: name, Constant: true}
	c.syms.AddStrVar(v)
	return v
}

// strScratch lazily allocates the one reusable scratch buffer concatenation
// results are built into before being copied to their final destination.
func (c *Compiler) strScratch(cl *CodeLine) *StrVar {
	if v, ok := c.syms.StrVars["_CONCAT_SCRATCH_"]; ok {
		return v
	}
	addr, err := c.freeRAM.GetFreeRAM(Ascending, defaultStringMaxSize+2, vcpu.UserCodeStart, 0xffff, false)
	if err != nil {
		c.diags.Errorf(KindResource, cl.LineNumber, "", "%v", err)
		return &StrVar{Name: "_CONCAT_SCRATCH_"}
	}
	v := &StrVar{Address: addr, MaxSize: defaultStringMaxSize, Name: "_CONCAT_SCRATCH_"}
	c.syms.AddStrVar(v)
	return v
}

// emitStringCopy models a call into the runtime StringCopy routine, copying
// src's buffer into dest's (spec.md §1: runtime-subroutine library source is
// out of scope; only the calling shape is modeled).
func (c *Compiler) emitStringCopy(src, dest *StrVar) {
	if src == dest {
		return
	}
	c.emit(vcpu.LDWI, "_"+src.Name, false)
	tmp := c.stashToTemp()
	c.emit(vcpu.LDWI, "_"+dest.Name, false)
	dtmp := c.stashToTemp()
	c.emitMacro("StringCopy", tmp+","+dtmp)
}

// emitStringConcat models a call into the runtime StringConcat routine,
// appending src's buffer into the running scratch buffer, recording the
// scratch address in the code line's StrConcatLUT (spec.md §3, §4.4).
func (c *Compiler) emitStringConcat(cl *CodeLine, scratch, src *StrVar, first bool) {
	if first {
		c.emitStringCopy(src, scratch)
		cl.StrConcatLUT = append(cl.StrConcatLUT, scratch.Address)
		return
	}
	c.emit(vcpu.LDWI, "_"+scratch.Name, false)
	tmp := c.stashToTemp()
	c.emit(vcpu.LDWI, "_"+src.Name, false)
	stmp := c.stashToTemp()
	c.emitMacro("StringConcat", tmp+","+stmp)
	cl.StrConcatLUT = append(cl.StrConcatLUT, scratch.Address)
}

// resolveStringOperand materializes a string-kind Numeric (literal,
// variable or string-array element) into a concrete *StrVar, interning
// constant literals as needed.
func (c *Compiler) resolveStringOperand(cl *CodeLine, n Numeric) *StrVar {
	switch n.VarKind {
	case KindString:
		return c.allocConstString(cl, n.Text)
	case KindStrVar, KindStr2Var:
		if v, ok := c.syms.StrVars[n.Name]; ok {
			return v
		}
	}
	return nil
}

// lowerStringConcat implements the string-typed `+` operator (spec.md
// §4.4). Two constant literals fold entirely at compile time; anything
// involving a variable builds the result into the shared scratch buffer and
// returns a reference to it.
func (c *Compiler) lowerStringConcat(left, right Numeric, line int) Numeric {
	if left.VarKind == KindString && right.VarKind == KindString {
		return Numeric{IsValid: true, VarKind: KindString, Text: left.Text + right.Text, Name: left.Text + right.Text}
	}
	cl := c.currentCodeLine()
	scratch := c.strScratch(cl)

	leftVar := c.resolveStringOperand(cl, left)
	if leftVar == nil {
		c.diags.Errorf(KindSemantic, line, left.Name, "left side of string concatenation is not a string")
		return invalidNumeric
	}
	c.emitStringConcat(cl, scratch, leftVar, true)

	rightVar := c.resolveStringOperand(cl, right)
	if rightVar == nil {
		c.diags.Errorf(KindSemantic, line, right.Name, "right side of string concatenation is not a string")
		return invalidNumeric
	}
	c.emitStringConcat(cl, scratch, rightVar, false)

	return Numeric{IsValid: true, VarKind: KindStrVar, Name: scratch.Name}
}

// assignStringScalar implements `A$ = expr` (spec.md §4.4). StringCopy is
// elided when the resolved source and destination are the same buffer,
// which happens when the right-hand side is itself A$ (spec.md §8
// invariant, "StringCopy elision when source == destination").
func (c *Compiler) assignStringScalar(cl *CodeLine, name, rhs string) {
	dest := c.ensureStrVar(cl, name)
	src := c.newExprParser(rhs, cl.LineNumber).Evaluate()
	if !src.IsValid {
		return
	}
	if !isStringKind(src.VarKind) {
		c.diags.Errorf(KindSemantic, cl.LineNumber, name, "cannot assign a numeric expression to string variable %s$", name)
		return
	}
	srcVar := c.resolveStringOperand(cl, src)
	if srcVar == nil {
		return
	}
	if srcVar == dest {
		return
	}
	c.emitStringCopy(srcVar, dest)
	if src.VarKind == KindString {
		dest.Text = src.Text
	} else {
		dest.Text = ""
	}
	cl.ContainsVars = true
}

// assignStringArray implements `A$(i) = expr` for 1D string arrays (spec.md
// §4.4, §4.3). The element holds a pointer into a per-element buffer
// allocated at DIM time; assignment here always copies into it.
func (c *Compiler) assignStringArray(cl *CodeLine, name string, indices []string, rhs string) {
	v, ok := c.syms.StrVars[upperASCII(name)]
	if !ok || v.VarType != StrArray {
		c.diags.Errorf(KindSemantic, cl.LineNumber, name, "string array %s$ has not been DIMensioned", name)
		return
	}
	if len(indices) != 1 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, name, "string arrays support exactly 1 dimension")
		return
	}
	idx := c.newExprParser(indices[0], cl.LineNumber).Evaluate()
	if !idx.IsValid || !idx.isConstant() {
		c.diags.Errorf(KindSemantic, cl.LineNumber, indices[0], "string array index must be a compile-time constant")
		return
	}
	src := c.newExprParser(rhs, cl.LineNumber).Evaluate()
	if !src.IsValid || !isStringKind(src.VarKind) {
		c.diags.Errorf(KindSemantic, cl.LineNumber, name, "cannot assign a numeric expression to string array %s$", name)
		return
	}
	srcVar := c.resolveStringOperand(cl, src)
	if srcVar == nil {
		return
	}
	elemAddr := v.Address + uint16(idx.Value)*2
	dest := &StrVar{Address: elemAddr, MaxSize: defaultStringMaxSize, Name: fmt.Sprintf("%s_%d", v.Name, int(idx.Value))}
	c.emitStringCopy(srcVar, dest)
	cl.ContainsVars = true
}
