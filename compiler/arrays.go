package compiler

import "github.com/vwarlock/vbc/vcpu"

// vcpuLoad selects PEEK (one byte) or DEEK (one word) for reading an array
// element, based on the .LO/.HI byte selector (spec.md §3, §4.3).
func vcpuLoad(sel Int16Byte) vcpu.Opcode {
	if sel == Low || sel == High {
		return vcpu.PEEK
	}
	return vcpu.DEEK
}

// handleDim implements the DIM statement: declares a 1, 2 or 3 dimensional
// integer or string array and allocates it from free RAM (spec.md §3, §4.3
// "DIM handling").
func handleDim(c *Compiler, cl *CodeLine, rest string) {
	for _, decl := range splitTopLevelCommas(rest) {
		c.dimOne(cl, decl)
	}
}

func (c *Compiler) dimOne(cl *CodeLine, decl string) {
	name, dims, isArray := splitArrayRef(decl)
	if !isArray {
		c.diags.Errorf(KindSyntax, cl.LineNumber, decl, "DIM requires an array declaration with at least one dimension")
		return
	}
	isString := len(name) > 0 && name[len(name)-1] == '$'
	if isString {
		name = name[:len(name)-1]
	}
	upper := upperASCII(name)

	sizes := make([]uint16, 0, len(dims))
	for _, d := range dims {
		n := c.newExprParser(d, cl.LineNumber).Evaluate()
		if !n.IsValid || !n.isConstant() {
			c.diags.Errorf(KindSemantic, cl.LineNumber, d, "array dimension must be a compile-time constant")
			return
		}
		sizes = append(sizes, uint16(n.Value)+1) // BASIC DIM N allocates indices 0..N
	}

	if isString {
		c.dimStringArray(cl, upper, sizes)
		return
	}
	c.dimIntArray(cl, upper, sizes)
}

func (c *Compiler) dimIntArray(cl *CodeLine, name string, sizes []uint16) {
	var vt VarType
	total := uint16(1)
	for _, s := range sizes {
		total *= s
	}
	switch len(sizes) {
	case 1:
		vt = Array1
	case 2:
		vt = Array2
	case 3:
		vt = Array3
	default:
		c.diags.Errorf(KindSyntax, cl.LineNumber, name, "arrays support at most 3 dimensions, got %d", len(sizes))
		return
	}
	addr, err := c.freeRAM.GetFreeRAM(Ascending, total*2, vcpu.UserCodeStart, 0xffff, false)
	if err != nil {
		c.diags.Errorf(KindResource, cl.LineNumber, name, "%v", err)
		return
	}
	v := &IntVar{Address: addr, Name: name, VarType: vt, IntSize: 2, CodeLine: uint32(cl.LineNumber)}
	copy(v.ArrSizes[:], sizes)
	c.syms.AddIntVar(v)
}

func (c *Compiler) dimStringArray(cl *CodeLine, name string, sizes []uint16) {
	if len(sizes) != 1 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, name, "string arrays support exactly 1 dimension")
		return
	}
	// Each slot holds a length-prefixed string pointer (2 bytes): the
	// string bodies themselves are allocated lazily on first assignment.
	addr, err := c.freeRAM.GetFreeRAM(Ascending, sizes[0]*2, vcpu.UserCodeStart, 0xffff, false)
	if err != nil {
		c.diags.Errorf(KindResource, cl.LineNumber, name, "%v", err)
		return
	}
	v := &StrVar{Address: addr, Name: name, VarType: StrArray}
	c.syms.AddStrVar(v)
}

// arrayElementAddress computes the flattened element address of an integer
// array reference, folding constant indices and emitting runtime
// convertArr2d/convertArr3d calls for 2D/3D arrays with non-constant indices
// (spec.md §4.3). The result always lands in a fresh zero-page temp slot
// holding the resolved RAM address, the form PEEK/DEEK/POKE/DOKE expect as
// their pointer operand.
func (c *Compiler) arrayElementAddress(cl *CodeLine, v *IntVar, indices []string) (addrSlot string, ok bool) {
	idxVals := make([]Numeric, len(indices))
	allConst := true
	for i, expr := range indices {
		n := c.newExprParser(expr, cl.LineNumber).Evaluate()
		idxVals[i] = n
		if !n.IsValid {
			return "", false
		}
		if !n.isConstant() {
			allConst = false
		}
	}

	if allConst {
		offset := uint16(0)
		mul := uint16(1)
		for i := len(idxVals) - 1; i >= 0; i-- {
			offset += uint16(idxVals[i].Value) * mul
			if int(i) < len(v.ArrSizes) {
				mul *= v.ArrSizes[i]
			}
		}
		c.emit(vcpu.LDWI, tempOperand(v.Address+offset*2), false)
		return c.stashToTemp(), true
	}

	// Non-constant index: load the base address, fold in each index via the
	// runtime array-conversion helper, and stash the final address.
	c.emit(vcpu.LDWI, variableOperand(Numeric{Name: v.Name}), false)
	tmp := c.stashToTemp()
	switch len(indices) {
	case 1:
		c.loadOperand(idxVals[0])
		c.emit(vcpu.LSLW, "", false)
		c.emit(vcpu.ADDW, tmp, false)
	case 2:
		c.enablePrologue("InitArray2d")
		c.loadOperand(idxVals[0])
		rtmp := c.stashToTemp()
		c.loadOperand(idxVals[1])
		c.emitMacro("convertArr2d", tmp+","+rtmp)
	case 3:
		c.enablePrologue("InitArray3d")
		c.loadOperand(idxVals[0])
		rtmp := c.stashToTemp()
		c.loadOperand(idxVals[1])
		rtmp2 := c.stashToTemp()
		c.loadOperand(idxVals[2])
		c.emitMacro("convertArr3d", tmp+","+rtmp+","+rtmp2)
	}
	return c.stashToTemp(), true
}

// assignIntArray implements `A(i, j) = expr` for 1/2/3 dimensional integer
// arrays (spec.md §4.3).
func (c *Compiler) assignIntArray(cl *CodeLine, name string, indices []string, rhs string) {
	v, ok := c.syms.IntVars[upperASCII(name)]
	if !ok {
		c.diags.Errorf(KindSemantic, cl.LineNumber, name, "array %s has not been DIMensioned", name)
		return
	}
	result := c.newExprParser(rhs, cl.LineNumber).Evaluate()
	if !result.IsValid {
		return
	}

	addrSlot, resolved := c.arrayElementAddress(cl, v, indices)
	if !resolved {
		return
	}
	if cl.Int16Byte == High {
		c.emit(vcpu.INC, addrSlot, false)
	}
	c.loadOperand(result)
	switch cl.Int16Byte {
	case Low, High:
		c.emit(vcpu.POKE, addrSlot, false)
	default:
		c.emit(vcpu.DOKE, addrSlot, false)
	}
	cl.ContainsVars = true
}
