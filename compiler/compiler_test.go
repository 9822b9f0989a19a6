package compiler_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/vwarlock/vbc/compiler"
	"github.com/vwarlock/vbc/vcpu"
)

// testMacros covers every runtime-library stub any test program in this
// file can reach: the six comparison CC stubs, the PRINT/INPUT helpers,
// ON GOTO/GOSUB's jump-table helper and every inbuilt function's stub.
// Bodies are a single RET; only Size(), never the body text, matters here.
func testMacros(t *testing.T) compiler.MacroLibrary {
	t.Helper()
	var b strings.Builder
	for _, name := range []string{
		"EqOp", "NeOp", "LeOp", "GeOp", "LtOp", "GtOp",
		"PrintNumber", "PrintString", "InputNumber", "InputString",
		"OnGoto", "OnGosub",
		"mulRound16", "divMod16", "powRound16",
		"absRound16", "rndRound16", "minRound16", "maxRound16",
		"peekRound16", "deekRound16", "sgnRound16",
	} {
		fmt.Fprintf(&b, "%%MACRO %s\nRET\n%%ENDM\n", name)
	}
	lib, err := compiler.ParseMacroLibrary(b.String())
	if err != nil {
		t.Fatalf("ParseMacroLibrary failed: %v", err)
	}
	return lib
}

func newTestCompiler(t *testing.T) *compiler.Compiler {
	t.Helper()
	return compiler.New(compiler.DefaultConfig(), compiler.NewDefaultAllocator(0x0300, 0x7fff), testMacros(t))
}

func mustCompile(t *testing.T, src string) string {
	t.Helper()
	c := newTestCompiler(t)
	out, err := c.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v\ndiagnostics: %v", src, err, c.Diagnostics().Items())
	}
	return out
}

// tempAddr renders a zero-page address the way tempOperand formats it, so
// assertions don't need to hardcode the "0x%02x" shape.
func tempAddr(addr uint16) string {
	return fmt.Sprintf("0x%02x", addr)
}

// instr renders opcode+operand the way formatInstruction pads it, so
// assertions don't need to hardcode the column width.
func instr(op, operand string) string {
	if operand == "" {
		return op
	}
	if len(op) >= vcpu.OpcodeTruncSize {
		return op + " " + operand
	}
	return fmt.Sprintf("%-*s%s", vcpu.OpcodeTruncSize, op, operand)
}

func TestCompile_constantFolding(t *testing.T) {
	out := mustCompile(t, "10 A = 2 + 3 * 4\n")
	if strings.Contains(out, "ADDI") || strings.Contains(out, "mulRound16") {
		t.Fatalf("expected 2+3*4 to fold to a single literal, got:\n%s", out)
	}
	if !strings.Contains(out, instr("LDI", "14")) {
		t.Fatalf("expected a folded %s, got:\n%s", instr("LDI", "14"), out)
	}
}

func TestCompile_mixedLiteralAndVariable(t *testing.T) {
	// Regression test for the loadOperand bug where a literal operand
	// following a variable operand was silently never loaded, and for the
	// binaryArith bug where the returned intermediate named a temp slot
	// that still held the left operand's stale value instead of the sum.
	out := mustCompile(t, "10 A = 1\n20 B = A + 5\n")
	if !strings.Contains(out, instr("ADDI", "5")) {
		t.Fatalf("expected the STW/LDI/ADDW triple to collapse to %s, got:\n%s", instr("ADDI", "5"), out)
	}
	if !strings.Contains(out, instr("STW", "_B")) {
		t.Fatalf("expected the sum to be stored to _B, got:\n%s", out)
	}
}

func TestCompile_gotoResolvesToRealLabel(t *testing.T) {
	c := newTestCompiler(t)
	out, err := c.Compile("10 GOTO 30\n20 A = 1\n30 B = 2\n")
	if err != nil {
		t.Fatalf("Compile failed: %v\ndiagnostics: %v", err, c.Diagnostics().Items())
	}
	if !strings.Contains(out, instr("BRA", "30")) {
		t.Fatalf("expected a %s, got:\n%s", instr("BRA", "30"), out)
	}
	lbl, ok := c.Symbols().Labels["30"]
	if !ok {
		t.Fatal("expected label 30 to be defined")
	}
	if lbl.Address == 0 {
		t.Fatal("expected label 30's Address to be stamped to a real PC value, got 0")
	}
}

func TestCompile_addressOfLabelIsNonZero(t *testing.T) {
	// Regression test: resolveAddressOf's '@' operator reads Label.Address
	// directly as a numeric literal; for a forward reference like @30 the
	// LDI operand is backpatched once the whole code pass has stamped every
	// label, so it must carry label 30's final, non-zero address.
	c := newTestCompiler(t)
	out, err := c.Compile("10 A = 1\n20 B = @30\n30 C = 2\n")
	if err != nil {
		t.Fatalf("Compile failed: %v\ndiagnostics: %v", err, c.Diagnostics().Items())
	}
	lbl, ok := c.Symbols().Labels["30"]
	if !ok {
		t.Fatal("expected label 30 to be defined")
	}
	if lbl.Address == 0 {
		t.Fatalf("expected label 30's Address to be non-zero, got 0\noutput:\n%s", out)
	}
	if !strings.Contains(out, instr("LDI", fmt.Sprint(int(lbl.Address)))) {
		t.Fatalf("expected @30 to lower to an immediate load of its address %d, got:\n%s", lbl.Address, out)
	}
}

func TestCompile_addressOfIntVarLoadsAddressNotValue(t *testing.T) {
	// Regression test: loadOperand ignored IsAddress entirely for
	// IntVar/StrVar results, so '@A' silently loaded A's value (LDW _A)
	// instead of its zero-page address (LDI <addr>).
	c := newTestCompiler(t)
	out, err := c.Compile("10 A = 1\n20 B = @A\n")
	if err != nil {
		t.Fatalf("Compile failed: %v\ndiagnostics: %v", err, c.Diagnostics().Items())
	}
	v, ok := c.Symbols().IntVars["A"]
	if !ok {
		t.Fatal("expected A to be defined")
	}
	if !strings.Contains(out, instr("LDI", fmt.Sprint(int(v.Address)))) {
		t.Fatalf("expected @A to lower to an immediate load of its zero-page address %d, got:\n%s", v.Address, out)
	}
}

func TestCompile_forNextSingleBackEdge(t *testing.T) {
	out := mustCompile(t, "10 FOR I = 1 TO 10\n20 PRINT I\n30 NEXT I\n")
	if n := strings.Count(out, instr("BRA", "_for_")); n != 1 {
		t.Fatalf("expected exactly one back-edge branch to the FOR loop top, got %d in:\n%s", n, out)
	}
	// NEXT increments I by STEP and stores straight from the accumulator;
	// a reload from a stale temp slot here was the binaryArith bug.
	if !strings.Contains(out, instr("STW", "_I")) {
		t.Fatalf("expected NEXT to store the incremented counter to _I, got:\n%s", out)
	}
}

func TestCompile_gosubReturn(t *testing.T) {
	out := mustCompile(t, "10 GOSUB 100\n20 END\n100: A = 1\n110 RETURN\n")
	if !strings.Contains(out, instr("CALL", "100")) {
		t.Fatalf("expected a %s, got:\n%s", instr("CALL", "100"), out)
	}
	if !strings.Contains(out, "RET") {
		t.Fatalf("expected a RET instruction, got:\n%s", out)
	}
}

func TestCompile_stringLiteralDedup(t *testing.T) {
	out := mustCompile(t, `10 PRINT "hi"`+"\n"+`20 PRINT "hi"`+"\n")
	if n := strings.Count(out, `"hi"`); n != 1 {
		t.Fatalf("expected the duplicate string literal \"hi\" to be deduplicated to one constant, got %d occurrences in:\n%s", n, out)
	}
}

func TestCompile_defFnInlining(t *testing.T) {
	out := mustCompile(t, "10 DEF FN SQ(X) = X * X\n20 A = SQ(3)\n")
	if strings.Contains(out, "SQ") {
		t.Fatalf("expected DEF FN to inline away, found a residual SQ reference in:\n%s", out)
	}
	if strings.Contains(out, "mulRound16") {
		t.Fatalf("expected SQ(3) to splice to the literal 3*3 and constant-fold, got a runtime multiply in:\n%s", out)
	}
	if !strings.Contains(out, instr("LDI", "9")) {
		t.Fatalf("expected SQ(3) to fold to 9, got:\n%s", out)
	}
}

func TestCompile_builtinAbsCall(t *testing.T) {
	out := mustCompile(t, "10 A = ABS(-5)\n")
	if !strings.Contains(out, "absRound16") {
		t.Fatalf("expected ABS(...) to lower to a call naming absRound16, got:\n%s", out)
	}
}

func TestCompile_structuralErrorOnStrayNext(t *testing.T) {
	c := newTestCompiler(t)
	_, err := c.Compile("10 NEXT I\n")
	if err == nil {
		t.Fatal("expected a structural diagnostic for a NEXT with no matching FOR")
	}
	found := false
	for _, d := range c.Diagnostics().Items() {
		if d.Kind == compiler.KindStructural {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a KindStructural diagnostic, got: %v", c.Diagnostics().Items())
	}
}

func TestCompile_structuralErrorOnUnmatchedIf(t *testing.T) {
	c := newTestCompiler(t)
	_, err := c.Compile("5 A = 1\n10 IF A = 1 THEN\n20 B = 2\n")
	if err == nil {
		t.Fatal("expected a structural diagnostic for an IF left open at end of program")
	}
	found := false
	for _, d := range c.Diagnostics().Items() {
		if d.Kind == compiler.KindStructural {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a KindStructural diagnostic, got: %v", c.Diagnostics().Items())
	}
}

func TestCompile_undefinedLabelIsSemanticError(t *testing.T) {
	c := newTestCompiler(t)
	_, err := c.Compile("10 GOTO 999\n")
	if err == nil {
		t.Fatal("expected a semantic diagnostic for an undefined GOTO target")
	}
	found := false
	for _, d := range c.Diagnostics().Items() {
		if d.Kind == compiler.KindSemantic {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a KindSemantic diagnostic, got: %v", c.Diagnostics().Items())
	}
}

func TestCompile_peepholeCollapsesStwLdiAddw(t *testing.T) {
	// spec.md §4.5 worked example, exercised end to end through Compile
	// rather than by constructing VasmLine values directly: the first temp
	// slot is always vcpu.TempVarStart (0x0082), so STW 0x82; LDI 5;
	// ADDW 0x82 must collapse to a single ADDI 5.
	out := mustCompile(t, "10 A = 1\n20 A = A + 5\n")
	if strings.Contains(out, instr("STW", "0x82")) {
		t.Fatalf("expected the STW 0x82/LDI 5/ADDW 0x82 sequence to collapse away, got:\n%s", out)
	}
	if !strings.Contains(out, instr("ADDI", "5")) {
		t.Fatalf("expected a collapsed %s, got:\n%s", instr("ADDI", "5"), out)
	}
}

func TestCompile_repeatUntil(t *testing.T) {
	out := mustCompile(t, "10 A = 0\n20 REPEAT\n30 A = A + 1\n40 UNTIL A = 5\n")
	if !strings.Contains(out, "BCC") || !strings.Contains(out, "_repeat_") {
		t.Fatalf("expected UNTIL to branch back to the REPEAT top on a false condition, got:\n%s", out)
	}
}

func TestCompile_onGotoLUT(t *testing.T) {
	out := mustCompile(t, "5 A = 1\n10 ON A GOTO 20,30\n20 B = 1\n30 B = 2\n")
	if !strings.Contains(out, "OnGoto") {
		t.Fatalf("expected ON ... GOTO to lower to an OnGoto macro call, got:\n%s", out)
	}
}

func TestCompile_ifEndifNoElseResolvesDiscardedLabel(t *testing.T) {
	// Regression test: an IF with no ELSE always discards its elseLabel at
	// ENDIF (nothing in the source ever attaches it, since the ENDIF body
	// immediately follows the THEN body). Before resolveDiscardedLabels the
	// discarded label's equate stayed pinned at its zero value, so the BCC
	// emitted by IF branched to address 0 whenever the condition was false.
	out := mustCompile(t, "5 A = 0\n10 IF A = 1 THEN\n20 B = 2\n30 ENDIF\n40 C = 3\n")
	if strings.Contains(out, "EQU 0x0000") {
		t.Fatalf("expected no internal label equate left pinned at address 0, got:\n%s", out)
	}
}

func TestCompile_dotLoScalarStoreEmitsPoke(t *testing.T) {
	// Regression test: '.LO'/'.HI' were stripped on the read side only;
	// an assignment target's suffix was never parsed, leaving
	// CodeLine.Int16Byte permanently zero and assignIntScalar always
	// emitting a full-word STW.
	c := newTestCompiler(t)
	out, err := c.Compile("10 A = 300\n20 A.LO = 5\n")
	if err != nil {
		t.Fatalf("Compile failed: %v\ndiagnostics: %v", err, c.Diagnostics().Items())
	}
	v, ok := c.Symbols().IntVars["A"]
	if !ok {
		t.Fatal("expected A to be defined")
	}
	if !strings.Contains(out, instr("LDWI", tempAddr(v.Address))) {
		t.Fatalf("expected A.LO= to load A's own zero-page address %s, got:\n%s", tempAddr(v.Address), out)
	}
	if !strings.Contains(out, "POKE") {
		t.Fatalf("expected A.LO= to POKE a single byte rather than STW the whole word, got:\n%s", out)
	}
}

func TestCompile_dotHiArrayStorePokesHighByte(t *testing.T) {
	// Regression test: assignIntArray read CodeLine.Int16Byte, but nothing
	// ever set it, so the switch always fell to its DOKE default; '.HI' on
	// an array target additionally needs its resolved element address
	// bumped by one before poking.
	out := mustCompile(t, "10 DIM A(3)\n20 A.HI(1) = 5\n")
	if !strings.Contains(out, "INC") {
		t.Fatalf("expected A.HI(...)= to bump the resolved element address with INC before poking, got:\n%s", out)
	}
	if strings.Contains(out, "DOKE") {
		t.Fatalf("expected A.HI(...)= to POKE a single byte, not DOKE the whole word, got:\n%s", out)
	}
}

func TestCompile_clearResetsState(t *testing.T) {
	c := newTestCompiler(t)
	if _, err := c.Compile("10 A = 1\n"); err != nil {
		t.Fatalf("first Compile failed: %v", err)
	}
	c.Clear()
	if c.PC() != vcpu.UserCodeStart {
		t.Fatalf("PC after Clear() = 0x%04x, want 0x%04x", c.PC(), vcpu.UserCodeStart)
	}
	if len(c.Symbols().Labels) != 0 {
		t.Fatalf("expected no labels after Clear(), got %d", len(c.Symbols().Labels))
	}
	out, err := c.Compile("10 B = 2\n")
	if err != nil {
		t.Fatalf("second Compile after Clear() failed: %v", err)
	}
	if strings.Contains(out, "_A ") {
		t.Fatalf("expected no trace of the first compilation's variable A, got:\n%s", out)
	}
}
