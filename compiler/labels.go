package compiler

import (
	"regexp"
	"strconv"
	"strings"
)

var gosubRef = regexp.MustCompile(`(?i)\bGOSUB\s+(\d+)`)

// labelPass discovers GOSUB targets, then creates labels and code-line
// stubs for every labeled and unlabeled line (spec.md §2: "Label pass
// (discovers GOSUB targets, then creates labels + code-line stubs)"). It
// runs entirely before the code pass; the code pass only resolves
// addresses, it never creates new user labels.
func (c *Compiler) labelPass(lines []string) error {
	gosubTargets := make(map[string]bool)
	for _, raw := range lines {
		for _, m := range gosubRef.FindAllStringSubmatch(raw, -1) {
			gosubTargets[m[1]] = true
		}
	}

	for i, raw := range lines {
		sl := classifyLine(i+1, raw)
		if sl.Blank || sl.Comment || sl.Pragma {
			continue
		}

		cl := &CodeLine{
			Text:       raw,
			Code:       sl.Body,
			LineNumber: sl.Number,
			LabelIndex: -1,
		}
		idx := len(c.codeLines)
		c.codeLines = append(c.codeLines, cl)

		switch {
		case sl.NumericLabel:
			gosub := sl.GosubEligible || (!sl.GosubExcluded && gosubTargets[sl.LabelText])
			if existing, ok := c.syms.Labels[sl.LabelText]; ok {
				c.diags.Errorf(KindSemantic, sl.Number, raw, "label %s already defined at line %d", sl.LabelText, c.codeLines[existing.CodeLineIndex].LineNumber)
				continue
			}
			lbl := &Label{
				Name:          sl.LabelText,
				CodeLineIndex: idx,
				Numeric:       true,
				Gosub:         gosub,
			}
			c.syms.AddLabel(lbl)
			cl.LabelIndex = idx
		case sl.TextLabel:
			if existing, ok := c.syms.Labels[sl.LabelText]; ok {
				c.diags.Errorf(KindSemantic, sl.Number, raw, "label %s already defined at line %d", sl.LabelText, c.codeLines[existing.CodeLineIndex].LineNumber)
				continue
			}
			lbl := &Label{
				Name:          sl.LabelText,
				CodeLineIndex: idx,
				Numeric:       false,
				Gosub:         gosubTargets[sl.LabelText],
			}
			c.syms.AddLabel(lbl)
			cl.LabelIndex = idx
		}
	}
	return nil
}

// isNumericLabelName reports whether name parses as a plain integer.
func isNumericLabelName(name string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(name))
	return err == nil
}
