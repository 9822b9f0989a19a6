package compiler

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/vwarlock/vbc/internal/vbci"
)

// emitOutput renders the final textual vCPU assembly (spec.md §4.6): an
// ordered sequence of sections, each introduced with a comment banner,
// followed by the code section in address order. Label-conflict resolution
// prefers a user label over an internal label at the same address (spec.md
// §4.6.1); unreferenced internal-label equates are pruned from the equates
// section (they still exist as InternalLabel annotations on their
// VasmLine, just not redundantly re-declared as a separate equate).
func (c *Compiler) emitOutput() (string, error) {
	var raw bytes.Buffer
	buf := vbci.NewErrWriter(&raw)
	c.resolveLabelConflicts()

	c.writeSection(buf, "includes", c.formatIncludes())
	c.writeSection(buf, "prologue", c.formatPrologue())
	c.writeSection(buf, "constants", c.formatConstants())
	c.writeSection(buf, "scalar variables", c.formatIntVars())
	c.writeSection(buf, "arrays", c.formatArrays())
	c.writeSection(buf, "strings", c.formatStrings())
	c.writeSection(buf, "internal label equates", c.formatInternalEquates())

	code, err := c.formatCode()
	if err != nil {
		return "", errors.Wrap(err, "formatting code section")
	}
	c.writeSection(buf, "code", []string{code})

	if buf.Err != nil {
		return "", errors.Wrap(buf.Err, "writing assembly output")
	}
	return raw.String(), nil
}

func (c *Compiler) writeSection(buf *vbci.ErrWriter, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(buf, "; --- %s ---\n", title)
	for _, l := range lines {
		fmt.Fprintln(buf, l)
	}
	fmt.Fprintln(buf)
}

// resolveLabelConflicts records, for every address carrying both a user
// label and an internal label, that the user label wins (spec.md §4.6.1):
// the internal label is still resolvable (its Address is correct for any
// branch operand naming it), it is just not the name printed at that
// address in the label-equates section.
func (c *Compiler) resolveLabelConflicts() {
	byAddr := make(map[uint16]string)
	for _, name := range c.syms.LabelOrder() {
		byAddr[c.syms.Labels[name].Address] = name
	}
	c.labelConflicts = byAddr
}

func (c *Compiler) formatIncludes() []string {
	var out []string
	if c.cfg.IncludePath != "" {
		out = append(out, fmt.Sprintf("%%include \"%s\"", c.cfg.IncludePath))
	}
	if c.cfg.RuntimePath != "" {
		out = append(out, fmt.Sprintf("%%include \"%s\"", c.cfg.RuntimePath))
	}
	return out
}

// formatPrologue emits each enabled ROM init snippet's body verbatim, in
// declaration order, at the head of the program (spec.md §4.2.4). Snippets
// never referenced by the source stay disabled and are omitted entirely.
func (c *Compiler) formatPrologue() []string {
	var out []string
	for _, snip := range c.prologue {
		if !snip.Enabled {
			continue
		}
		out = append(out, fmt.Sprintf("; %s", snip.Name))
		out = append(out, snip.Lines...)
	}
	return out
}

func (c *Compiler) formatConstants() []string {
	var out []string
	for _, name := range c.syms.ConstOrder() {
		cst := c.syms.Consts[name]
		if cst.ConstType == ConstStr {
			out = append(out, fmt.Sprintf("%s EQU %q", padLabel(cst.Name), cst.StrData))
			continue
		}
		out = append(out, fmt.Sprintf("%s EQU %d", padLabel(cst.Name), cst.IntData))
	}
	return out
}

func (c *Compiler) formatIntVars() []string {
	var out []string
	for _, name := range c.syms.IntVarOrder() {
		v := c.syms.IntVars[name]
		if v.IsArray() {
			continue
		}
		out = append(out, fmt.Sprintf("_%-*s EQU 0x%04x", vLabelWidth, v.Name, v.Address))
	}
	return out
}

func (c *Compiler) formatArrays() []string {
	var out []string
	for _, name := range c.syms.IntVarOrder() {
		v := c.syms.IntVars[name]
		if !v.IsArray() {
			continue
		}
		out = append(out, fmt.Sprintf("_%-*s EQU 0x%04x ; dims=%v", vLabelWidth, v.Name, v.Address, v.ArrSizes))
	}
	return out
}

func (c *Compiler) formatStrings() []string {
	var out []string
	for _, name := range c.syms.StrVarOrder() {
		v := c.syms.StrVars[name]
		if v.Constant {
			out = append(out, fmt.Sprintf("_%-*s EQU 0x%04x ; %q", vLabelWidth, v.Name, v.Address, v.Text))
			continue
		}
		out = append(out, fmt.Sprintf("_%-*s EQU 0x%04x", vLabelWidth, v.Name, v.Address))
	}
	return out
}

const vLabelWidth = 12

// formatInternalEquates lists every internal label not displaced by a
// same-address user label and actually referenced by at least one VasmLine
// operand (spec.md §4.6.1 pruning).
func (c *Compiler) formatInternalEquates() []string {
	referenced := c.referencedInternalLabels()
	var out []string
	for _, name := range c.syms.InternalLabelOrder() {
		lbl := c.syms.InternalLabels[name]
		if _, conflict := c.labelConflicts[lbl.Address]; conflict {
			continue
		}
		if !referenced[name] {
			continue
		}
		out = append(out, fmt.Sprintf("%s EQU 0x%04x", padLabel(name), lbl.Address))
	}
	return out
}

func (c *Compiler) referencedInternalLabels() map[string]bool {
	refs := make(map[string]bool)
	for _, cl := range c.codeLines {
		for _, v := range cl.Vasm {
			if suffix, ok := operandLabelName(v.Operand); ok {
				refs[suffix] = true
			}
		}
	}
	return refs
}

// operandLabelName extracts the bare label name from an operand that may
// carry a leading condition-code prefix (`EQ,_else_0001_`).
func operandLabelName(operand string) (string, bool) {
	for i := len(operand) - 1; i >= 0; i-- {
		if operand[i] == ',' {
			return operand[i+1:], true
		}
	}
	if len(operand) > 0 && operand[0] == '_' {
		return operand, true
	}
	return "", false
}

// formatCode renders every emitted VasmLine across every code line, in
// program order, attaching whichever label (user label winning any
// conflict, per resolveLabelConflicts) starts at that address.
func (c *Compiler) formatCode() (string, error) {
	type addressed struct {
		addr uint16
		text string
	}
	var lines []addressed

	labelsAt := make(map[uint16][]string)
	for _, name := range c.syms.LabelOrder() {
		lbl := c.syms.Labels[name]
		labelsAt[lbl.Address] = append(labelsAt[lbl.Address], name)
	}

	for _, cl := range c.codeLines {
		for _, v := range cl.Vasm {
			prefix := ""
			if names, ok := labelsAt[v.Address]; ok {
				for _, n := range names {
					prefix += padLabel(n) + "\n"
				}
			} else if v.InternalLabel != "" {
				if _, conflict := c.labelConflicts[v.Address]; !conflict {
					prefix += padLabel(v.InternalLabel) + "\n"
				}
			}
			lines = append(lines, addressed{addr: v.Address, text: prefix + v.FormattedCode})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].addr < lines[j].addr })

	var out []string
	for _, l := range lines {
		out = append(out, l.text)
	}
	return joinLines(out), nil
}

func joinLines(lines []string) string {
	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	return buf.String()
}
