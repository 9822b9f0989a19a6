// Package compiler implements the single-pass front end, symbol tables,
// code emitter and peephole optimizer that translate the source language
// into textual vCPU assembly (spec.md §1-§4). Pipeline phases are methods
// on *Compiler; there is no package-level mutable state, so two Compiler
// values can coexist even though spec.md §5 describes the original as
// process-wide globals (spec.md §9 "Global mutable state").
package compiler

import (
	"github.com/pkg/errors"
	"github.com/vwarlock/vbc/vcpu"
)

// Compiler holds every piece of state a compilation pass touches: the
// symbol tables, the program counter, the temp-var rotation window, the
// control-flow stacks and the accumulated diagnostics (spec.md §3 "Global
// state"). Clear() resets it to the state it has immediately after New(),
// matching spec.md §8 invariant 4.
type Compiler struct {
	cfg   Config
	syms  *SymbolTable
	diags Diagnostics
	ctl   controlStacks

	zeroPage *ZeroPageAllocator
	freeRAM  FreeRAMAllocator
	macros   MacroLibrary

	pc           uint16
	tempVarBase  uint16
	tempVarCur   uint16
	curCodeLine  int
	uniqueID     uint32 // counter backing labelAddrFixups' placeholder names
	nextInternal *Label

	codeLines []*CodeLine

	prologue []prologueSnippet

	labelConflicts map[uint16]string // address -> user label name, for §4.6.1

	dataItems  []dataItem // flattened DATA statement values, program-wide
	dataCursor int        // next index READ consumes from

	forSteps []string // STEP expression text per open FOR frame, parallel to ctl.forStack

	labelAddrFixups []labelAddrFixup // queued '@label' immediates awaiting their final Address
}

// New returns a freshly cleared Compiler, ready to compile one source file.
func New(cfg Config, freeRAM FreeRAMAllocator, macros MacroLibrary) *Compiler {
	c := &Compiler{
		cfg:     cfg,
		freeRAM: freeRAM,
		macros:  macros,
	}
	c.Clear()
	return c
}

// Clear resets every symbol table, stack and address cursor to its initial
// state (spec.md §3, §5, §8 invariant 4). It must be called before each
// compilation; the constructor already calls it once.
func (c *Compiler) Clear() {
	c.syms = NewSymbolTable()
	c.diags.Reset()
	c.ctl.reset()
	c.zeroPage = NewZeroPageAllocator()
	c.pc = vcpu.UserCodeStart
	c.tempVarBase = vcpu.TempVarStart
	c.tempVarCur = vcpu.TempVarStart
	c.curCodeLine = -1
	c.uniqueID = 0
	c.nextInternal = nil
	c.codeLines = nil
	c.prologue = defaultPrologue()
	c.labelConflicts = make(map[uint16]string)
	c.dataItems = nil
	c.dataCursor = 0
	c.forSteps = nil
	c.labelAddrFixups = nil
}

// PC returns the current vCPU program counter.
func (c *Compiler) PC() uint16 { return c.pc }

// Config returns the active configuration.
func (c *Compiler) Config() Config { return c.cfg }

// Diagnostics returns the accumulated diagnostics.
func (c *Compiler) Diagnostics() *Diagnostics { return &c.diags }

// Symbols returns the symbol table, mainly for tests.
func (c *Compiler) Symbols() *SymbolTable { return c.syms }

// Compile runs the full pipeline over source and returns the generated
// assembly text (spec.md §2). It is the single public entry point other
// than Clear/New.
func (c *Compiler) Compile(source string) (string, error) {
	lines := splitLines(source)

	c.pragmaPass(lines)
	if c.diags.Failed() {
		return "", errors.Wrap(ErrCompilationFailed, "pragma pass")
	}

	if err := c.labelPass(lines); err != nil {
		return "", errors.Wrap(err, "label pass")
	}
	if c.diags.Failed() {
		return "", errors.Wrap(ErrCompilationFailed, "label pass")
	}

	if err := c.codePass(); err != nil {
		return "", errors.Wrap(err, "code pass")
	}
	if c.diags.Failed() {
		return "", errors.Wrap(ErrCompilationFailed, "code pass")
	}

	if c.cfg.OptMode != OptNone {
		c.optimize()
	}
	c.resolveDiscardedLabels()
	c.resolveLabelAddrFixups()

	out, err := c.emitOutput()
	if err != nil {
		return "", errors.Wrap(err, "output pass")
	}
	if c.diags.Failed() {
		return "", errors.Wrap(ErrCompilationFailed, "output pass")
	}
	return out, nil
}

func splitLines(source string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			end := i
			if end > start && source[end-1] == '\r' {
				end--
			}
			lines = append(lines, source[start:end])
			start = i + 1
		}
	}
	if start < len(source) {
		lines = append(lines, source[start:])
	}
	return lines
}
