package compiler

// forFrame tracks one open FOR/NEXT block.
type forFrame struct {
	varName   string
	topLabel  *Label
	nextLabel *Label
}

// ifFrame tracks one open IF/ELSEIF/ELSE/ENDIF chain.
type ifFrame struct {
	elseLabel  *Label // label to jump to on false, rebound per ELSEIF
	endLabel   *Label
	sawElse    bool
}

// whileFrame tracks one open WHILE/WEND block.
type whileFrame struct {
	topLabel *Label
	endLabel *Label
}

// repeatFrame tracks one open REPEAT/UNTIL block.
type repeatFrame struct {
	topLabel *Label
}

// controlStacks holds the four control-flow stacks named in spec.md §3.
// They are plain LIFO stacks; a stray NEXT/ENDIF/WEND/UNTIL with no
// matching open frame is a structural error (spec.md §7 kind (e)).
type controlStacks struct {
	forStack     []forFrame
	ifStack      []ifFrame
	endifStack   []*Label
	whileStack   []whileFrame
	repeatStack  []repeatFrame
}

func (c *controlStacks) reset() {
	c.forStack = nil
	c.ifStack = nil
	c.endifStack = nil
	c.whileStack = nil
	c.repeatStack = nil
}

func (c *controlStacks) pushFor(f forFrame)       { c.forStack = append(c.forStack, f) }
func (c *controlStacks) popFor() (forFrame, bool) {
	if len(c.forStack) == 0 {
		return forFrame{}, false
	}
	f := c.forStack[len(c.forStack)-1]
	c.forStack = c.forStack[:len(c.forStack)-1]
	return f, true
}

func (c *controlStacks) pushIf(f ifFrame) { c.ifStack = append(c.ifStack, f) }
func (c *controlStacks) topIf() (*ifFrame, bool) {
	if len(c.ifStack) == 0 {
		return nil, false
	}
	return &c.ifStack[len(c.ifStack)-1], true
}
func (c *controlStacks) popIf() (ifFrame, bool) {
	if len(c.ifStack) == 0 {
		return ifFrame{}, false
	}
	f := c.ifStack[len(c.ifStack)-1]
	c.ifStack = c.ifStack[:len(c.ifStack)-1]
	return f, true
}

func (c *controlStacks) pushWhile(f whileFrame) { c.whileStack = append(c.whileStack, f) }
func (c *controlStacks) popWhile() (whileFrame, bool) {
	if len(c.whileStack) == 0 {
		return whileFrame{}, false
	}
	f := c.whileStack[len(c.whileStack)-1]
	c.whileStack = c.whileStack[:len(c.whileStack)-1]
	return f, true
}

func (c *controlStacks) pushRepeat(f repeatFrame) { c.repeatStack = append(c.repeatStack, f) }
func (c *controlStacks) popRepeat() (repeatFrame, bool) {
	if len(c.repeatStack) == 0 {
		return repeatFrame{}, false
	}
	f := c.repeatStack[len(c.repeatStack)-1]
	c.repeatStack = c.repeatStack[:len(c.repeatStack)-1]
	return f, true
}
