package compiler

// codePass walks every code line produced by the label pass, splits it into
// statements on ':', and dispatches each statement to either a keyword
// handler or the expression evaluator (spec.md §2 "Code pass").
func (c *Compiler) codePass() error {
	labelAtLine := make(map[int]*Label, len(c.syms.Labels))
	for _, lbl := range c.syms.Labels {
		labelAtLine[lbl.CodeLineIndex] = lbl
	}

	for idx, cl := range c.codeLines {
		c.setCodeLine(idx)
		// A label always names the address of the first instruction emitted
		// for its line, mirroring how emitRaw stamps an internal label's
		// Address at the point it is actually attached (spec.md §2, §4.1:
		// the '@' address-of operator reads this value as a plain literal).
		if lbl, ok := labelAtLine[idx]; ok {
			lbl.Address = c.pc
		}
		if cl.DontParse {
			continue
		}
		stmts := splitStatements(cl.Code)
		for _, stmt := range stmts {
			if stmt == "" {
				continue
			}
			c.dispatchStatement(cl, stmt)
		}
	}
	if err := c.checkOpenBlocks(); err != nil {
		return err
	}
	return nil
}

// checkOpenBlocks reports a structural error for every control-flow block
// left open at the end of the program (spec.md §7 kind (e): "unmatched
// block keyword").
func (c *Compiler) checkOpenBlocks() error {
	line := c.lastLineNumber()
	if len(c.ctl.forStack) > 0 {
		c.diags.Errorf(KindStructural, line, "", "%d unmatched FOR block(s) at end of program", len(c.ctl.forStack))
	}
	if len(c.ctl.ifStack) > 0 {
		c.diags.Errorf(KindStructural, line, "", "%d unmatched IF block(s) at end of program", len(c.ctl.ifStack))
	}
	if len(c.ctl.whileStack) > 0 {
		c.diags.Errorf(KindStructural, line, "", "%d unmatched WHILE block(s) at end of program", len(c.ctl.whileStack))
	}
	if len(c.ctl.repeatStack) > 0 {
		c.diags.Errorf(KindStructural, line, "", "%d unmatched REPEAT block(s) at end of program", len(c.ctl.repeatStack))
	}
	return nil
}

func (c *Compiler) lastLineNumber() int {
	if len(c.codeLines) == 0 {
		return 0
	}
	return c.codeLines[len(c.codeLines)-1].LineNumber
}

// dispatchStatement implements the keyword-map dispatch design note
// (spec.md §9: "Model this as a tagged-union Keyword value..."): the
// uppercased leading token is looked up in keywordHandlers; if found, that
// handler owns the statement. Otherwise the statement must be an
// assignment, parsed directly by the expression evaluator's assignment
// path.
func (c *Compiler) dispatchStatement(cl *CodeLine, stmt string) {
	word, rest := leadingWord(stmt)
	if handler, ok := keywordHandlers[word]; ok {
		handler(c, cl, rest)
		return
	}
	c.parseAssignment(cl, stmt)
}

func leadingWord(stmt string) (word, rest string) {
	i := 0
	for i < len(stmt) && isIdentPart(stmt[i]) {
		i++
	}
	return upperASCII(stmt[:i]), trimLeft(stmt[i:])
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func trimLeft(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:]
}
