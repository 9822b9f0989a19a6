package compiler

import "github.com/vwarlock/vbc/vcpu"

// prologueSnippet is one ROM-resident init routine emitted at the head of
// the program once first referenced (spec.md §4.2.4). A snippet that is
// never enabled does not appear in the output at all, not even as a
// commented-out block.
type prologueSnippet struct {
	Name    string
	Length  uint16
	Enabled bool
	// Lines are the vCPU text lines of the snippet body, emitted verbatim
	// once enabled.
	Lines []string
}

// defaultPrologue returns the fixed, ordered list of init snippets the
// compiler knows about. Lengths vary per snippet (SPEC_FULL.md §4): this is
// an explicit correction of the original's single global
// SYS_INIT_FUNC_LEN-for-everything shift, recorded as an Open Question
// decision in DESIGN.md.
func defaultPrologue() []prologueSnippet {
	return []prologueSnippet{
		{Name: "InitEqOp", Length: vcpu.SysInitFuncLen, Lines: []string{"CALL giteq"}},
		{Name: "InitNeOp", Length: vcpu.SysInitFuncLen, Lines: []string{"CALL gitne"}},
		{Name: "InitLeOp", Length: vcpu.SysInitFuncLen, Lines: []string{"CALL gitle"}},
		{Name: "InitGeOp", Length: vcpu.SysInitFuncLen, Lines: []string{"CALL gitge"}},
		{Name: "InitLtOp", Length: vcpu.SysInitFuncLen, Lines: []string{"CALL gitlt"}},
		{Name: "InitGtOp", Length: vcpu.SysInitFuncLen, Lines: []string{"CALL gitgt"}},
		{Name: "InitArray2d", Length: vcpu.SysInitFuncLen + 4, Lines: []string{"CALL convertArr2d"}},
		{Name: "InitArray3d", Length: vcpu.SysInitFuncLen + 8, Lines: []string{"CALL convertArr3d"}},
	}
}

// enablePrologue marks the named snippet enabled on first reference and
// shifts the PC, every label address and every already-emitted VasmLine
// address forward by the snippet's Length (spec.md §4.2.4). It is a no-op
// if the snippet is already enabled or unknown (the latter is a compiler
// bug, not a source error, since snippet names are compiler-internal).
func (c *Compiler) enablePrologue(name string) {
	for idx := range c.prologue {
		snip := &c.prologue[idx]
		if snip.Name != name {
			continue
		}
		if snip.Enabled {
			return
		}
		snip.Enabled = true
		c.shiftAddresses(snip.Length)
		return
	}
}

// shiftAddresses moves the PC, every label and every emitted VasmLine
// forward by delta bytes, called once per newly enabled prologue snippet.
func (c *Compiler) shiftAddresses(delta uint16) {
	c.pc += delta
	for _, name := range c.syms.LabelOrder() {
		c.syms.Labels[name].Address += delta
	}
	for _, name := range c.syms.InternalLabelOrder() {
		c.syms.InternalLabels[name].Address += delta
	}
	for _, dl := range c.syms.DiscardedLabels {
		dl.Address += delta
		dl.Label.Address += delta
	}
	for _, cl := range c.codeLines {
		for i := range cl.Vasm {
			cl.Vasm[i].Address += delta
		}
	}
}

// requirePrologue is called by the expression evaluator when it first
// lowers a comparison family that needs a ROM init snippet (spec.md §4.2.4,
// §4.1.3). The array snippets are enabled by arrayElementAddress instead.
func (c *Compiler) requirePrologue(ccOp string) {
	switch ccOp {
	case "=", "==":
		c.enablePrologue("InitEqOp")
	case "<>":
		c.enablePrologue("InitNeOp")
	case "<=":
		c.enablePrologue("InitLeOp")
	case ">=":
		c.enablePrologue("InitGeOp")
	case "<":
		c.enablePrologue("InitLtOp")
	case ">":
		c.enablePrologue("InitGtOp")
	}
}
