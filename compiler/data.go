package compiler

import (
	"strconv"
	"strings"
)

// dataItem is one literal value from a DATA statement (spec.md §3, §4).
// READ consumes dataItems sequentially across the whole program, independent
// of which line originally declared them.
type dataItem struct {
	isString bool
	num      float64
	str      string
}

// handleData implements the DATA statement: every comma-separated literal
// is appended, in source order, to the program-wide read cursor.
func handleData(c *Compiler, cl *CodeLine, rest string) {
	for _, raw := range splitTopLevelCommas(rest) {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "\"") {
			c.dataItems = append(c.dataItems, dataItem{isString: true, str: unquoteString(text)})
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			c.diags.Errorf(KindSyntax, cl.LineNumber, text, "invalid DATA literal")
			continue
		}
		c.dataItems = append(c.dataItems, dataItem{num: wrapInt16(v)})
	}
}

// handleRead implements the READ statement: each target variable consumes
// the next item off the program-wide DATA cursor (spec.md §3, §4).
func handleRead(c *Compiler, cl *CodeLine, rest string) {
	for _, raw := range splitTopLevelCommas(rest) {
		target := strings.TrimSpace(raw)
		if target == "" {
			continue
		}
		if c.dataCursor >= len(c.dataItems) {
			c.diags.Errorf(KindResource, cl.LineNumber, target, "READ past end of DATA")
			return
		}
		item := c.dataItems[c.dataCursor]
		c.dataCursor++

		name, indices, isArray := splitArrayRef(target)
		isString := strings.HasSuffix(name, "$")
		switch {
		case isString && item.isString && !isArray:
			c.readStringScalar(cl, strings.TrimSuffix(name, "$"), item.str)
		case isString && item.isString && isArray:
			c.assignStringArray(cl, strings.TrimSuffix(name, "$"), indices, quoteString(item.str))
		case !isString && !item.isString && !isArray:
			c.readIntScalar(cl, name, item.num)
		case !isString && !item.isString && isArray:
			c.assignIntArray(cl, name, indices, formatNumberLiteral(item.num))
		default:
			c.diags.Errorf(KindSemantic, cl.LineNumber, target, "DATA item type does not match READ target %s", target)
		}
	}
}

func (c *Compiler) readIntScalar(cl *CodeLine, name string, v float64) {
	c.assignIntScalar(cl, name, formatNumberLiteral(v))
}

func (c *Compiler) readStringScalar(cl *CodeLine, name string, s string) {
	c.assignStringScalar(cl, name, quoteString(s))
}

func formatNumberLiteral(v float64) string {
	return strconv.FormatInt(int64(v), 10)
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}
