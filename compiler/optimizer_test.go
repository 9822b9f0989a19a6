package compiler

import "testing"

func newTestCompiler() *Compiler {
	return New(DefaultConfig(), NewDefaultAllocator(0x0300, 0x7fff), MacroLibrary{})
}

// oneLineCompiler builds a Compiler with a single CodeLine holding vasm,
// ready for optimize().
func oneLineCompiler(vasm []VasmLine) *Compiler {
	c := newTestCompiler()
	c.codeLines = []*CodeLine{{LineNumber: 10, Vasm: vasm}}
	return c
}

func TestOptimize_stwLdiAddwCollapse(t *testing.T) {
	// spec.md §4.5 worked example: STW 0xc0; LDI 5; ADDW 0xc0 -> ADDI 5
	c := oneLineCompiler([]VasmLine{
		{Address: 0x0200, Opcode: "STW", Operand: "0xc0", Size: 2},
		{Address: 0x0202, Opcode: "LDI", Operand: "5", Size: 2},
		{Address: 0x0204, Opcode: "ADDW", Operand: "0xc0", Size: 2},
	})
	c.optimize()

	got := c.codeLines[0].Vasm
	if len(got) != 1 {
		t.Fatalf("got %d vasm lines, want 1: %+v", len(got), got)
	}
	if got[0].Opcode != "ADDI" || got[0].Operand != "5" {
		t.Fatalf("got %+v, want ADDI 5", got[0])
	}
	if got[0].Address != 0x0200 {
		t.Fatalf("merged line address = 0x%04x, want 0x0200", got[0].Address)
	}
}

func TestOptimize_addiZeroDeleted(t *testing.T) {
	c := oneLineCompiler([]VasmLine{
		{Address: 0x0200, Opcode: "LDW", Operand: "0xc0", Size: 2},
		{Address: 0x0202, Opcode: "ADDI", Operand: "0", Size: 2},
		{Address: 0x0204, Opcode: "STW", Operand: "0xc2", Size: 2},
	})
	c.optimize()

	got := c.codeLines[0].Vasm
	if len(got) != 2 {
		t.Fatalf("got %d vasm lines, want 2 (ADDI 0 deleted): %+v", len(got), got)
	}
	for _, v := range got {
		if v.Opcode == "ADDI" {
			t.Fatalf("ADDI 0 survived optimization: %+v", got)
		}
	}
}

func TestOptimize_addiPairMerged(t *testing.T) {
	c := oneLineCompiler([]VasmLine{
		{Address: 0x0200, Opcode: "ADDI", Operand: "3", Size: 2},
		{Address: 0x0202, Opcode: "ADDI", Operand: "4", Size: 2},
	})
	c.optimize()

	got := c.codeLines[0].Vasm
	if len(got) != 1 || got[0].Operand != "7" {
		t.Fatalf("got %+v, want a single ADDI 7", got)
	}
}

func TestOptimize_extraStwReloadDeleted(t *testing.T) {
	c := oneLineCompiler([]VasmLine{
		{Address: 0x0200, Opcode: "STW", Operand: "0xc0", Size: 2},
		{Address: 0x0202, Opcode: "LDW", Operand: "0xc0", Size: 2},
	})
	c.optimize()

	got := c.codeLines[0].Vasm
	if len(got) != 1 || got[0].Opcode != "STW" {
		t.Fatalf("got %+v, want the redundant LDW dropped", got)
	}
}

func TestOptimize_fixedPointAcrossRules(t *testing.T) {
	// STW 0xc0; LDI 2; ADDW 0xc0 collapses to ADDI 2, which then merges
	// with a following ADDI 3 into a single ADDI 5 — two different rules
	// firing in sequence on the same line (spec.md §4.5.2: "runs to a
	// fixed point").
	c := oneLineCompiler([]VasmLine{
		{Address: 0x0200, Opcode: "STW", Operand: "0xc0", Size: 2},
		{Address: 0x0202, Opcode: "LDI", Operand: "2", Size: 2},
		{Address: 0x0204, Opcode: "ADDW", Operand: "0xc0", Size: 2},
		{Address: 0x0206, Opcode: "ADDI", Operand: "3", Size: 2},
	})
	c.optimize()

	got := c.codeLines[0].Vasm
	if len(got) != 1 || got[0].Opcode != "ADDI" || got[0].Operand != "5" {
		t.Fatalf("got %+v, want a single ADDI 5", got)
	}
}

func TestOptimize_internalLabelMigratesOnDeletion(t *testing.T) {
	c := oneLineCompiler([]VasmLine{
		{Address: 0x0200, Opcode: "ADDI", Operand: "0", Size: 2, InternalLabel: "_loop_0001_"},
		{Address: 0x0202, Opcode: "STW", Operand: "0xc0", Size: 2},
	})
	c.syms.AddInternalLabel(&Label{Name: "_loop_0001_", Address: 0x0200})
	c.optimize()

	got := c.codeLines[0].Vasm
	if len(got) != 1 {
		t.Fatalf("got %d vasm lines, want 1", len(got))
	}
	if got[0].InternalLabel != "_loop_0001_" {
		t.Fatalf("internal label did not migrate to the surviving line: %+v", got[0])
	}
	if addr := c.syms.InternalLabels["_loop_0001_"].Address; addr != 0x0200 {
		t.Fatalf("internal label address = 0x%04x, want 0x0200", addr)
	}
}
