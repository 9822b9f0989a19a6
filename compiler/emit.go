package compiler

import (
	"fmt"

	"github.com/vwarlock/vbc/vcpu"
)

// emit appends a new VasmLine at the current PC, advances the PC by its
// size, attaches (and consumes) any queued internal label, and returns the
// emitted line's address (spec.md §4.2.1).
func (c *Compiler) emit(op vcpu.Opcode, operand string, longBranch bool) uint16 {
	return c.emitRaw(string(op), operand, vcpu.Size(op, operand, longBranch))
}

// emitMacro emits a named runtime-library macro invocation, sizing it from
// the macro library (spec.md §4.2.5).
func (c *Compiler) emitMacro(name, operand string) uint16 {
	size, err := c.macros.Size(name)
	if err != nil {
		c.diags.Errorf(KindStructural, c.currentLineNumber(), name, "macro sizing failed: %v", err)
		size = 0
	}
	return c.emitRaw(name, operand, uint8(size))
}

// emitRaw is the common emission path shared by emit and emitMacro.
func (c *Compiler) emitRaw(opcode, operand string, size uint8) uint16 {
	addr := c.pc
	line := VasmLine{
		Address:       addr,
		Opcode:        opcode,
		Operand:       operand,
		FormattedCode: formatInstruction(opcode, operand),
		Size:          size,
	}
	if c.nextInternal != nil {
		line.InternalLabel = c.nextInternal.Name
		c.nextInternal.Address = addr
		c.nextInternal = nil
	}
	cl := c.currentCodeLine()
	cl.Vasm = append(cl.Vasm, line)
	c.pc += uint16(size)
	return addr
}

// formatInstruction renders opcode+operand the way the output column
// alignment expects (spec.md §6): operand column begins at
// vcpu.OpcodeTruncSize.
func formatInstruction(opcode, operand string) string {
	if operand == "" {
		return opcode
	}
	if len(opcode) >= vcpu.OpcodeTruncSize {
		return opcode + " " + operand
	}
	return fmt.Sprintf("%-*s%s", vcpu.OpcodeTruncSize, opcode, operand)
}

// currentCodeLine returns the CodeLine emission is currently targeting.
func (c *Compiler) currentCodeLine() *CodeLine {
	return c.codeLines[c.curCodeLine]
}

func (c *Compiler) currentLineNumber() int {
	if c.curCodeLine < 0 || c.curCodeLine >= len(c.codeLines) {
		return 0
	}
	return c.codeLines[c.curCodeLine].LineNumber
}

// setCodeLine switches emission to code line index idx, resetting the
// temp-var rotation window (spec.md §4.2.2: "it resets when the current
// code-line index changes").
func (c *Compiler) setCodeLine(idx int) {
	if idx != c.curCodeLine {
		c.tempVarCur = c.tempVarBase
	}
	c.curCodeLine = idx
}

// nextTempVar returns the next 2-byte slot in the 8-slot rolling temp-var
// window, wrapping every vcpu.TempVarWindow bytes (spec.md §4.2.2). Depth
// beyond 8 simultaneous live temps silently wraps (spec.md §9 open
// question): this is deliberately preserved, not fixed.
func (c *Compiler) nextTempVar() uint16 {
	addr := c.tempVarCur
	c.tempVarCur += 2
	if c.tempVarCur >= c.tempVarBase+vcpu.TempVarWindow {
		c.tempVarCur = c.tempVarBase
	}
	return addr
}

// setNextInternalLabel queues lbl to be attached to the next emitted
// VasmLine (spec.md §4.2.3). Exactly one queue slot exists: queuing a
// second label before any emission consumes the first pushes the first
// onto discardedLabels, keyed by the address it would have landed on
// (the current PC, since it would have attached to the very next
// emission).
func (c *Compiler) setNextInternalLabel(lbl *Label) {
	if c.nextInternal != nil {
		c.syms.DiscardedLabels = append(c.syms.DiscardedLabels, &DiscardedLabel{
			Label:   *c.nextInternal,
			Address: c.pc,
		})
	}
	c.nextInternal = lbl
}

// resolveDiscardedLabels stamps every displaced internal label's Address
// with the position it was discarded at (spec.md §4.2.3, §8 invariant 1).
// setNextInternalLabel records the current PC as a displaced label's
// Address precisely because nothing is ever emitted between the
// displacement and the label that supersedes it, so that PC is exactly the
// address the surviving label eventually attaches to — and every later
// optimizer/prologue address shift moves both in lockstep (optimizer.go's
// shiftAddressesFrom and prologue.go's shiftAddresses both walk
// DiscardedLabels alongside InternalLabels), so the value still holds at
// output time. Run once, after every address in the program is final.
func (c *Compiler) resolveDiscardedLabels() {
	for _, dl := range c.syms.DiscardedLabels {
		if lbl, ok := c.syms.InternalLabels[dl.Label.Name]; ok {
			lbl.Address = dl.Address
		}
	}
}

// newInternalLabel creates and registers a compiler-synthesized label with
// a monotonically increasing unique id embedded in its name, following the
// `_kind_XXXX_` convention vcpu.HasLabelSuffix expects (spec.md §9 open
// question: "this assumes the synthetic-label naming convention is
// stable").
func (c *Compiler) newInternalLabel(kind string) *Label {
	id := c.syms.NextUniqueID()
	name := fmt.Sprintf("_%s_%04x_", kind, id&0xffff)
	lbl := &Label{Name: name, CodeLineIndex: c.curCodeLine}
	c.syms.AddInternalLabel(lbl)
	return lbl
}
