package compiler

import (
	"bufio"
	"strings"

	"github.com/pkg/errors"
)

// macroDef is one `%MACRO NAME ... %ENDM` block from the runtime library
// (spec.md §4.2.5).
type macroDef struct {
	Name  string
	Body  []string
	size  uint16
	sized bool
}

// MacroLibrary indexes macro bodies by name and computes each macro's
// emitted byte size, recursing into nested macro invocations (spec.md
// §4.2.5). The runtime library source itself is an external collaborator
// (spec.md §1); this type only parses its macro *directives*, which is the
// slice of the library the compiler actually depends on.
type MacroLibrary struct {
	defs map[string]*macroDef
}

// ParseMacroLibrary reads `%MACRO`/`%ENDM` blocks from text. Unbalanced macros
// (a %MACRO with no matching %ENDM, or vice versa) are a fatal structural
// error (spec.md §4.2.5, §7 kind (e)).
func ParseMacroLibrary(text string) (MacroLibrary, error) {
	lib := MacroLibrary{defs: make(map[string]*macroDef)}
	scanner := bufio.NewScanner(strings.NewReader(text))
	var cur *macroDef
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "%MACRO"):
			if cur != nil {
				return lib, errors.Errorf("line %d: nested %%MACRO %s inside %%MACRO %s", lineNo, line, cur.Name)
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return lib, errors.Errorf("line %d: %%MACRO requires a name", lineNo)
			}
			cur = &macroDef{Name: fields[1]}
		case strings.HasPrefix(line, "%ENDM"):
			if cur == nil {
				return lib, errors.Errorf("line %d: %%ENDM without matching %%MACRO", lineNo)
			}
			lib.defs[cur.Name] = cur
			cur = nil
		default:
			if cur != nil && line != "" {
				cur.Body = append(cur.Body, line)
			}
		}
	}
	if cur != nil {
		return lib, errors.Errorf("unbalanced %%MACRO %s: missing %%ENDM", cur.Name)
	}
	return lib, nil
}

// Has reports whether name is a known macro.
func (l MacroLibrary) Has(name string) bool {
	_, ok := l.defs[name]
	return ok
}

// Size returns the byte size of invoking the named macro, computed by
// summing the opcode size of every body line and recursing into nested
// macro invocations (spec.md §4.2.5). It is memoized per macro.
func (l MacroLibrary) Size(name string) (uint16, error) {
	return l.sizeOf(name, map[string]bool{})
}

func (l MacroLibrary) sizeOf(name string, visiting map[string]bool) (uint16, error) {
	def, ok := l.defs[name]
	if !ok {
		return 0, errors.Errorf("undefined macro %q", name)
	}
	if def.sized {
		return def.size, nil
	}
	if visiting[name] {
		return 0, errors.Errorf("recursive macro invocation involving %q", name)
	}
	visiting[name] = true

	var total uint16
	for _, line := range def.Body {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		op := fields[0]
		if strings.HasPrefix(op, "%") {
			sz, err := l.sizeOf(strings.TrimPrefix(op, "%"), visiting)
			if err != nil {
				return 0, errors.Wrapf(err, "in macro %q", name)
			}
			total += sz
			continue
		}
		total += opcodeTextSize(op, len(fields) > 1)
	}
	def.size = total
	def.sized = true
	return total, nil
}

// opcodeTextSize estimates a fixed opcode's encoded size from its
// mnemonic text, used while sizing macro bodies (the library source is
// text, not already-emitted VasmLines).
func opcodeTextSize(mnemonic string, hasOperand bool) uint16 {
	switch strings.ToUpper(mnemonic) {
	case "LDWI", "BCC":
		return 3
	case "PEEK", "LSLW", "PUSH", "POP", "RET":
		return 1
	case "NOP":
		return 1
	default:
		if hasOperand {
			return 2
		}
		return 1
	}
}
