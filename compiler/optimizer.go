package compiler

import "strings"

// optimizeRule is one peephole rule: given the VasmLines of a single code
// line starting at index i, it reports whether it matches and, if so, the
// replacement lines (spec.md §4.5). Operand-sensitive rules compare operand
// text directly; operand-insensitive rules match on opcode shape alone.
type optimizeRule struct {
	name  string
	width int
	apply func(lines []VasmLine, i int) ([]VasmLine, bool)
}

// optimize runs the peephole optimizer to a fixed point (spec.md §4.5,
// §4.5.1, §4.5.2): every code line's emitted sequence is rewritten
// repeatedly until no rule matches anywhere in the program, with each
// successful rewrite migrating any internal label on a deleted line to the
// next surviving line and shifting every later address by the byte delta.
//
// Rules are scoped to a single code line's Vasm slice: the statements this
// compiler emits never interleave another statement's instructions between
// a rule's matched window, so this is equivalent to whole-program scanning
// for every rule below (an Open Question decision, recorded in DESIGN.md).
func (c *Compiler) optimize() {
	rules := optimizeRules()
	for {
		changed := false
		for idx, cl := range c.codeLines {
			for {
				if c.optimizeOnce(idx, cl, rules) {
					changed = true
					continue
				}
				break
			}
		}
		if !changed {
			return
		}
	}
}

func (c *Compiler) optimizeOnce(codeLineIdx int, cl *CodeLine, rules []optimizeRule) bool {
	for i := 0; i < len(cl.Vasm); i++ {
		for _, rule := range rules {
			if i+rule.width > len(cl.Vasm) {
				continue
			}
			window := cl.Vasm[i : i+rule.width]
			replacement, ok := rule.apply(window, 0)
			if !ok {
				continue
			}
			c.rewrite(cl, i, rule.width, replacement)
			return true
		}
	}
	return false
}

// rewrite replaces cl.Vasm[at:at+oldWidth] with replacement, migrating any
// internal label carried by a deleted line to the first surviving
// replacement line (or, failing that, the line immediately following the
// rewrite window); a rewrite that would discard an internal label with no
// surviving destination is aborted (spec.md §4.5.1: "internal-label
// migration on deletion").
func (c *Compiler) rewrite(cl *CodeLine, at, oldWidth int, replacement []VasmLine) {
	removed := cl.Vasm[at : at+oldWidth]
	var orphanLabel string
	for _, ln := range removed {
		if ln.InternalLabel != "" {
			orphanLabel = ln.InternalLabel
		}
	}
	if orphanLabel != "" {
		switch {
		case len(replacement) > 0:
			replacement[0].InternalLabel = orphanLabel
		case at+oldWidth < len(cl.Vasm):
			cl.Vasm[at+oldWidth].InternalLabel = orphanLabel
		default:
			// no surviving destination anywhere in this code line: abort
			// the rewrite rather than silently drop a referenced label.
			return
		}
	}

	startAddr := removed[0].Address
	oldSize := uint32(0)
	for _, ln := range removed {
		oldSize += uint32(ln.Size)
	}
	newSize := uint32(0)
	for _, ln := range replacement {
		newSize += uint32(ln.Size)
	}
	delta := int32(newSize) - int32(oldSize)

	// Shift every other code line's addresses (and every label) first,
	// while cl.Vasm still holds its pre-splice addresses: relabelAddresses
	// below fully recomputes cl's own addresses from scratch afterward, so
	// any transient shift applied to cl's tail entries here is harmless.
	if delta != 0 {
		c.shiftAddressesFrom(startAddr+uint16(oldSize), delta)
	}

	tail := append([]VasmLine{}, cl.Vasm[at+oldWidth:]...)
	cl.Vasm = append(cl.Vasm[:at], append(replacement, tail...)...)
	c.relabelAddresses(cl, at)

	if orphanLabel != "" {
		if lbl, ok := c.syms.InternalLabels[orphanLabel]; ok {
			lbl.Address = startAddr
		}
		if lbl, ok := c.syms.Labels[orphanLabel]; ok {
			lbl.Address = startAddr
		}
	}
}

// relabelAddresses recomputes VasmLine.Address for every line in cl from
// index from onward, keeping addresses contiguous after a rewrite changed
// how many bytes precede them.
func (c *Compiler) relabelAddresses(cl *CodeLine, from int) {
	addr := uint16(0)
	if from > 0 {
		prev := cl.Vasm[from-1]
		addr = prev.Address + uint16(prev.Size)
	} else if from == 0 && len(cl.Vasm) > 0 {
		addr = cl.Vasm[0].Address
	}
	for i := from; i < len(cl.Vasm); i++ {
		cl.Vasm[i].Address = addr
		addr += uint16(cl.Vasm[i].Size)
	}
}

// shiftAddressesFrom shifts the PC, every label and every VasmLine whose
// address is >= from by delta bytes (may be negative), the general form of
// prologue.go's shiftAddresses used after a size-changing rewrite.
func (c *Compiler) shiftAddressesFrom(from uint16, delta int32) {
	shift := func(addr uint16) uint16 {
		if addr < from {
			return addr
		}
		return uint16(int32(addr) + delta)
	}
	c.pc = shift(c.pc)
	for _, name := range c.syms.LabelOrder() {
		lbl := c.syms.Labels[name]
		lbl.Address = shift(lbl.Address)
	}
	for _, name := range c.syms.InternalLabelOrder() {
		lbl := c.syms.InternalLabels[name]
		lbl.Address = shift(lbl.Address)
	}
	for _, dl := range c.syms.DiscardedLabels {
		dl.Address = shift(dl.Address)
		dl.Label.Address = shift(dl.Label.Address)
	}
	for _, cl := range c.codeLines {
		for i := range cl.Vasm {
			cl.Vasm[i].Address = shift(cl.Vasm[i].Address)
		}
	}
}

// optimizeRules is the static rule table (spec.md §4.5), a subset of the
// original's ~30: `ExtraStw` already matches on operand equality directly
// rather than a "0x"/"_" textual prefix, so it covers both the original's
// `StwLdwPair` and `ExtraLdw` in one rule. StwLdPair is deliberately
// absent: the original compiler's case body for it is commented out,
// treated here as intentionally disabled rather than ported (spec.md §9).
// The array-load/array-store/shift-by-8 folds (`PeekArray`/`DeekArray`/
// `PokeArray`/`DokeArray`/`Lsl8Var`) are also absent: they match a
// `STW mem; LDWI 0x...; ADDW mem; ADDW mem; PEEK`-shaped window built
// around the original's register-indirect array addressing and a
// shift-by-8 multiply idiom, neither of which this port's lowering
// produces — `arrayElementAddress` (arrays.go) reaches the same element
// address via `LSLW`/`ADDW`/`convertArr2d`/`convertArr3d` instead, and no
// lowering path here ever emits a repeated-shift multiply. Porting those
// five rules' literal match windows would add rules this compiler's own
// output can never trigger; DESIGN.md records this as a considered, not
// overlooked, gap.
func optimizeRules() []optimizeRule {
	return []optimizeRule{
		{name: "AddiZero", width: 1, apply: ruleAddiZero},
		{name: "SubiZero", width: 1, apply: ruleSubiZero},
		{name: "AddiPair", width: 2, apply: ruleAddiPair},
		{name: "ExtraStw", width: 2, apply: ruleExtraStw},
		{name: "StwLdiAddw", width: 3, apply: ruleStwLdiAddw},
	}
}

// ruleAddiZero deletes a no-op `ADDI 0`.
func ruleAddiZero(lines []VasmLine, i int) ([]VasmLine, bool) {
	if lines[i].Opcode == "ADDI" && isZeroOperand(lines[i].Operand) {
		return nil, true
	}
	return nil, false
}

// ruleSubiZero deletes a no-op `SUBI 0`.
func ruleSubiZero(lines []VasmLine, i int) ([]VasmLine, bool) {
	if lines[i].Opcode == "SUBI" && isZeroOperand(lines[i].Operand) {
		return nil, true
	}
	return nil, false
}

// ruleAddiPair merges two consecutive ADDI immediates into one (operand-
// insensitive: it fires regardless of the two operand values).
func ruleAddiPair(lines []VasmLine, i int) ([]VasmLine, bool) {
	a, b := lines[i], lines[i+1]
	if a.Opcode != "ADDI" || b.Opcode != "ADDI" {
		return nil, false
	}
	av, aok := parseIntOperand(a.Operand)
	bv, bok := parseIntOperand(b.Operand)
	if !aok || !bok {
		return nil, false
	}
	sum := av + bv
	merged := VasmLine{
		Address:       a.Address,
		Opcode:        "ADDI",
		Operand:       itoaOperand(sum),
		FormattedCode: formatInstruction("ADDI", itoaOperand(sum)),
		Size:          2,
	}
	return []VasmLine{merged}, true
}

// ruleExtraStw deletes a redundant `LDW x` immediately following `STW x`
// with the same operand (operand-sensitive: the accumulator already holds
// x's value).
func ruleExtraStw(lines []VasmLine, i int) ([]VasmLine, bool) {
	a, b := lines[i], lines[i+1]
	if a.Opcode == "STW" && b.Opcode == "LDW" && a.Operand == b.Operand {
		return []VasmLine{a}, true
	}
	return nil, false
}

// ruleStwLdiAddw collapses `STW tmp; LDI n; ADDW tmp` into `ADDI n` when the
// STW and ADDW target the same temp operand (operand-sensitive): the value
// just stashed is immediately re-added to a constant, so the stash/reload
// round trip can be skipped and the add folded to an immediate (spec.md
// §4.5: "e.g., 0xc0" worked example).
func ruleStwLdiAddw(lines []VasmLine, i int) ([]VasmLine, bool) {
	stw, ldi, addw := lines[i], lines[i+1], lines[i+2]
	if stw.Opcode != "STW" || ldi.Opcode != "LDI" || addw.Opcode != "ADDW" {
		return nil, false
	}
	if stw.Operand != addw.Operand {
		return nil, false
	}
	merged := VasmLine{
		Address:       stw.Address,
		Opcode:        "ADDI",
		Operand:       ldi.Operand,
		FormattedCode: formatInstruction("ADDI", ldi.Operand),
		Size:          2,
	}
	return []VasmLine{merged}, true
}

func isZeroOperand(op string) bool {
	v, ok := parseIntOperand(op)
	return ok && v == 0
}

func parseIntOperand(op string) (int64, bool) {
	op = strings.TrimSpace(op)
	if op == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(op, "-") {
		neg = true
		op = op[1:]
	}
	var v int64
	if strings.HasPrefix(op, "0x") || strings.HasPrefix(op, "0X") {
		for _, ch := range op[2:] {
			d, ok := hexDigit(byte(ch))
			if !ok {
				return 0, false
			}
			v = v*16 + int64(d)
		}
	} else {
		for _, ch := range op {
			if ch < '0' || ch > '9' {
				return 0, false
			}
			v = v*10 + int64(ch-'0')
		}
	}
	if neg {
		v = -v
	}
	return v, true
}

func hexDigit(b byte) (int64, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int64(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int64(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int64(b-'A') + 10, true
	}
	return 0, false
}

func itoaOperand(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [24]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
