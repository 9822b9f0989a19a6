package compiler

import (
	"strings"

	"github.com/vwarlock/vbc/vcpu"
)

// KeywordHandler implements one statement keyword's semantics (spec.md §9
// design note: "Model this as a tagged-union Keyword value with a handle()
// behavior; the registry is a mapping from uppercased token to handler").
type KeywordHandler func(c *Compiler, cl *CodeLine, rest string)

var keywordHandlers = map[string]KeywordHandler{
	"LET":    handleLet,
	"IF":     handleIf,
	"ELSEIF": handleElseif,
	"ELSE":   handleElse,
	"ENDIF":  handleEndif,
	"FOR":    handleFor,
	"NEXT":   handleNext,
	"WHILE":  handleWhile,
	"WEND":   handleWend,
	"REPEAT": handleRepeat,
	"UNTIL":  handleUntil,
	"GOTO":   handleGoto,
	"GOSUB":  handleGosub,
	"RETURN": handleReturn,
	"DIM":    handleDim,
	"DATA":   handleData,
	"READ":   handleRead,
	"PRINT":  handlePrint,
	"INPUT":  handleInput,
	"ON":     handleOn,
	"END":    handleEnd,
	"DEF":    handleDef,
}

func handleLet(c *Compiler, cl *CodeLine, rest string) {
	c.parseAssignment(cl, rest)
}

// splitOnKeyword finds the first occurrence of word as a whole, case
// insensitive token outside quoted strings and parens, returning the text
// before and after it.
func splitOnKeyword(s, word string) (before, after string, found bool) {
	depth := 0
	inStr := false
	upper := strings.ToUpper(word)
	for i := 0; i < len(s); i++ {
		switch s[i] {
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
		}
		if inStr || depth != 0 {
			continue
		}
		if i+len(word) <= len(s) && strings.EqualFold(s[i:i+len(word)], upper) {
			leftOK := i == 0 || !isIdentPart(s[i-1])
			rightIdx := i + len(word)
			rightOK := rightIdx >= len(s) || !isIdentPart(s[rightIdx])
			if leftOK && rightOK {
				return s[:i], s[rightIdx:], true
			}
		}
	}
	return s, "", false
}

func splitTrailingThen(s string) string {
	before, _, found := splitOnKeyword(s, "THEN")
	if found {
		return strings.TrimSpace(before)
	}
	return strings.TrimSpace(s)
}

// --- IF / ELSEIF / ELSE / ENDIF ---------------------------------------

func handleIf(c *Compiler, cl *CodeLine, rest string) {
	cond := c.newExprParser(splitTrailingThen(rest), cl.LineNumber).Evaluate()
	if !cond.IsValid {
		return
	}
	c.loadOperand(cond)
	elseLbl := c.newInternalLabel("else")
	c.emit(vcpu.BCC, "EQ,"+elseLbl.Name, false)
	endLbl := c.newInternalLabel("endif")
	c.ctl.pushIf(ifFrame{elseLabel: elseLbl, endLabel: endLbl})
}

func handleElseif(c *Compiler, cl *CodeLine, rest string) {
	top, ok := c.ctl.topIf()
	if !ok {
		c.diags.Errorf(KindStructural, cl.LineNumber, "", "ELSEIF with no matching IF")
		return
	}
	c.emit(vcpu.BRA, top.endLabel.Name, false)
	c.setNextInternalLabel(top.elseLabel)

	cond := c.newExprParser(splitTrailingThen(rest), cl.LineNumber).Evaluate()
	if !cond.IsValid {
		return
	}
	c.loadOperand(cond)
	newElse := c.newInternalLabel("else")
	c.emit(vcpu.BCC, "EQ,"+newElse.Name, false)
	top.elseLabel = newElse
}

func handleElse(c *Compiler, cl *CodeLine, rest string) {
	top, ok := c.ctl.topIf()
	if !ok {
		c.diags.Errorf(KindStructural, cl.LineNumber, "", "ELSE with no matching IF")
		return
	}
	c.emit(vcpu.BRA, top.endLabel.Name, false)
	c.setNextInternalLabel(top.elseLabel)
	top.elseLabel = nil
	top.sawElse = true
}

func handleEndif(c *Compiler, cl *CodeLine, rest string) {
	frame, ok := c.ctl.popIf()
	if !ok {
		c.diags.Errorf(KindStructural, cl.LineNumber, "", "ENDIF with no matching IF")
		return
	}
	if frame.elseLabel != nil {
		c.setNextInternalLabel(frame.elseLabel)
	}
	c.setNextInternalLabel(frame.endLabel)
}

// --- FOR / NEXT ---------------------------------------------------------

func handleFor(c *Compiler, cl *CodeLine, rest string) {
	eq := indexOfTopLevelAssign(rest)
	if eq < 0 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "FOR requires `var = start TO end [STEP step]`")
		return
	}
	varName := strings.TrimSpace(rest[:eq])
	afterEq := rest[eq+1:]

	startText, afterTo, hasTo := splitOnKeyword(afterEq, "TO")
	if !hasTo {
		c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "FOR requires a TO clause")
		return
	}
	endText, stepText, hasStep := splitOnKeyword(afterTo, "STEP")
	if !hasStep {
		stepText = "1"
	}

	c.assignIntScalar(cl, varName, strings.TrimSpace(startText))

	upperVar := upperASCII(varName)
	stepN := c.newExprParser(stepText, cl.LineNumber).Evaluate()
	descending := stepN.isConstant() && stepN.Value < 0

	topLbl := c.newInternalLabel("for")
	c.setNextInternalLabel(topLbl)

	endN := c.newExprParser(endText, cl.LineNumber).Evaluate()
	if !endN.IsValid {
		return
	}
	varN := Numeric{IsValid: true, VarKind: KindIntVar, Name: upperVar}
	op := ">"
	if descending {
		op = "<"
	}
	cond := c.lowerComparison(varN, endN, op, BooleanCC, cl.LineNumber)
	c.loadOperand(cond)
	exitLbl := c.newInternalLabel("next")
	c.emit(vcpu.BCC, "NE,"+exitLbl.Name, false)

	c.ctl.pushFor(forFrame{varName: upperVar, topLabel: topLbl, nextLabel: exitLbl})
	// stash the step text on the frame via a side table keyed by stack depth
	c.forSteps = append(c.forSteps, stepText)
}

func handleNext(c *Compiler, cl *CodeLine, rest string) {
	frame, ok := c.ctl.popFor()
	if !ok {
		c.diags.Errorf(KindStructural, cl.LineNumber, "", "NEXT with no matching FOR")
		return
	}
	stepText := "1"
	if n := len(c.forSteps); n > 0 {
		stepText = c.forSteps[n-1]
		c.forSteps = c.forSteps[:n-1]
	}
	varN := Numeric{IsValid: true, VarKind: KindIntVar, Name: frame.varName}
	stepN := c.newExprParser(stepText, cl.LineNumber).Evaluate()
	sum := c.lowerAdd(varN, stepN, cl.LineNumber)
	c.loadOperand(sum)
	c.emit(vcpu.STW, "_"+frame.varName, false)
	c.emit(vcpu.BRA, frame.topLabel.Name, false)
	c.setNextInternalLabel(frame.nextLabel)
}

// --- WHILE / WEND --------------------------------------------------------

func handleWhile(c *Compiler, cl *CodeLine, rest string) {
	topLbl := c.newInternalLabel("while")
	c.setNextInternalLabel(topLbl)
	cond := c.newExprParser(rest, cl.LineNumber).Evaluate()
	if !cond.IsValid {
		return
	}
	c.loadOperand(cond)
	endLbl := c.newInternalLabel("wend")
	c.emit(vcpu.BCC, "EQ,"+endLbl.Name, false)
	c.ctl.pushWhile(whileFrame{topLabel: topLbl, endLabel: endLbl})
}

func handleWend(c *Compiler, cl *CodeLine, rest string) {
	frame, ok := c.ctl.popWhile()
	if !ok {
		c.diags.Errorf(KindStructural, cl.LineNumber, "", "WEND with no matching WHILE")
		return
	}
	c.emit(vcpu.BRA, frame.topLabel.Name, false)
	c.setNextInternalLabel(frame.endLabel)
}

// --- REPEAT / UNTIL ------------------------------------------------------

func handleRepeat(c *Compiler, cl *CodeLine, rest string) {
	topLbl := c.newInternalLabel("repeat")
	c.setNextInternalLabel(topLbl)
	c.ctl.pushRepeat(repeatFrame{topLabel: topLbl})
}

func handleUntil(c *Compiler, cl *CodeLine, rest string) {
	frame, ok := c.ctl.popRepeat()
	if !ok {
		c.diags.Errorf(KindStructural, cl.LineNumber, "", "UNTIL with no matching REPEAT")
		return
	}
	cond := c.newExprParser(rest, cl.LineNumber).Evaluate()
	if !cond.IsValid {
		return
	}
	c.loadOperand(cond)
	c.emit(vcpu.BCC, "EQ,"+frame.topLabel.Name, false)
}

// --- GOTO / GOSUB / RETURN / END -----------------------------------------

func (c *Compiler) lookupLabel(name string) *Label {
	name = strings.TrimSpace(name)
	if lbl, ok := c.syms.Labels[name]; ok {
		return lbl
	}
	if lbl, ok := c.syms.Labels[upperASCII(name)]; ok {
		return lbl
	}
	return nil
}

func handleGoto(c *Compiler, cl *CodeLine, rest string) {
	lbl := c.lookupLabel(rest)
	if lbl == nil {
		c.diags.Errorf(KindSemantic, cl.LineNumber, rest, "undefined label %s", strings.TrimSpace(rest))
		return
	}
	c.emit(vcpu.BRA, lbl.Name, false)
}

func handleGosub(c *Compiler, cl *CodeLine, rest string) {
	lbl := c.lookupLabel(rest)
	if lbl == nil {
		c.diags.Errorf(KindSemantic, cl.LineNumber, rest, "undefined label %s", strings.TrimSpace(rest))
		return
	}
	c.emit(vcpu.CALL, lbl.Name, false)
}

func handleReturn(c *Compiler, cl *CodeLine, rest string) {
	c.emit(vcpu.RET, "", false)
}

func handleEnd(c *Compiler, cl *CodeLine, rest string) {
	haltLbl := c.newInternalLabel("halt")
	c.setNextInternalLabel(haltLbl)
	c.emit(vcpu.BRA, haltLbl.Name, false)
}

// --- ON GOTO / ON GOSUB ----------------------------------------------------

func handleOn(c *Compiler, cl *CodeLine, rest string) {
	exprText, afterGoto, isGoto := splitOnKeyword(rest, "GOTO")
	var afterGosub string
	var isGosub bool
	if !isGoto {
		exprText, afterGosub, isGosub = splitOnKeyword(rest, "GOSUB")
		if !isGosub {
			c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "ON requires GOTO or GOSUB")
			return
		}
	}
	idx := c.newExprParser(exprText, cl.LineNumber).Evaluate()
	if !idx.IsValid {
		return
	}

	var labelList string
	if isGoto {
		labelList = afterGoto
	} else {
		labelList = afterGosub
	}
	var names []string
	for _, raw := range splitTopLevelCommas(labelList) {
		lbl := c.lookupLabel(raw)
		if lbl == nil {
			c.diags.Errorf(KindSemantic, cl.LineNumber, raw, "undefined label %s", strings.TrimSpace(raw))
			return
		}
		names = append(names, lbl.Name)
	}
	cl.OnGotoLUT = names

	c.loadOperand(idx)
	tmp := c.stashToTemp()
	macro := "OnGoto"
	if isGosub {
		macro = "OnGosub"
	}
	c.emitMacro(macro, tmp)
}

// --- PRINT / INPUT ---------------------------------------------------------

func handlePrint(c *Compiler, cl *CodeLine, rest string) {
	for _, raw := range splitTopLevelCommas(rest) {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		n := c.newExprParser(text, cl.LineNumber).Evaluate()
		if !n.IsValid {
			continue
		}
		if isStringKind(n.VarKind) {
			v := c.resolveStringOperand(cl, n)
			if v == nil {
				continue
			}
			c.emit(vcpu.LDWI, "_"+v.Name, false)
			tmp := c.stashToTemp()
			c.emitMacro("PrintString", tmp)
			continue
		}
		c.loadOperand(n)
		c.emitMacro("PrintNumber", "")
	}
}

func handleInput(c *Compiler, cl *CodeLine, rest string) {
	var names []string
	for _, raw := range splitTopLevelCommas(rest) {
		target := strings.TrimSpace(raw)
		if target == "" {
			continue
		}
		names = append(names, target)
		if strings.HasSuffix(target, "$") {
			v := c.ensureStrVar(cl, strings.TrimSuffix(target, "$"))
			c.emit(vcpu.LDWI, "_"+v.Name, false)
			tmp := c.stashToTemp()
			c.emitMacro("InputString", tmp)
			continue
		}
		upper := upperASCII(target)
		if _, ok := c.syms.IntVars[upper]; !ok {
			addr, wrapped := c.zeroPage.Alloc()
			if wrapped {
				c.diags.Warnf(KindResource, cl.LineNumber, target, "zero-page variable allocator wrapped; variable %s may alias an earlier variable", target)
			}
			c.syms.AddIntVar(&IntVar{Address: addr, Name: upper, IntSize: 2, CodeLine: uint32(cl.LineNumber)})
		}
		c.emitMacro("InputNumber", "")
		c.emit(vcpu.STW, "_"+upper, false)
	}
	cl.InputLUT = names
}

// --- DEF FN ---------------------------------------------------------------

func handleDef(c *Compiler, cl *CodeLine, rest string) {
	word, rest2 := leadingWord(rest)
	if word != "FN" {
		c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "DEF requires FN")
		return
	}
	open := strings.IndexByte(rest2, '(')
	if open < 0 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "DEF FN requires a parameter list")
		return
	}
	name := strings.TrimSpace(rest2[:open])
	afterOpen := rest2[open+1:]
	closeIdx := strings.IndexByte(afterOpen, ')')
	if closeIdx < 0 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "DEF FN missing closing parenthesis")
		return
	}
	paramsText := afterOpen[:closeIdx]
	afterClose := afterOpen[closeIdx+1:]
	eq := strings.IndexByte(afterClose, '=')
	if eq < 0 {
		c.diags.Errorf(KindSyntax, cl.LineNumber, rest, "DEF FN requires `= body`")
		return
	}
	body := strings.TrimSpace(afterClose[eq+1:])

	var params []string
	if strings.TrimSpace(paramsText) != "" {
		for _, p := range splitTopLevelCommas(paramsText) {
			params = append(params, upperASCII(strings.TrimSpace(p)))
		}
	}
	fn := &UserFn{Name: upperASCII(name), Params: params, Body: body}
	c.syms.UserFns[fn.Name] = fn
}
