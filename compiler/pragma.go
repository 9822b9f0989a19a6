package compiler

import (
	"strconv"
	"strings"
)

// pragmaPass scans every source line for a `_PRAGMA_` directive and mutates
// cfg in place (spec.md §2: "Pragma pass (mutates globals...)"). Unknown
// pragma names are recorded as warnings, not errors: a newer source file
// using a pragma this compiler does not understand yet should still
// compile (spec.md §7 policy of opportunistic continuation).
func (c *Compiler) pragmaPass(lines []string) {
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "_PRAGMA_") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			c.diags.Errorf(KindSyntax, i+1, raw, "_PRAGMA_ requires a name")
			continue
		}
		name := strings.ToUpper(fields[1])
		args := fields[2:]
		switch name {
		case "ROMV1":
			c.cfg.ROMTarget = ROMv1
		case "ROMV2":
			c.cfg.ROMTarget = ROMv2
		case "ROMV3":
			c.cfg.ROMTarget = ROMv3
		case "ROMV4":
			c.cfg.ROMTarget = ROMv4
		case "ROMV5":
			c.cfg.ROMTarget = ROMv5
		case "OPTIMISE_NONE", "OPTIMIZE_NONE":
			c.cfg.OptMode = OptNone
		case "OPTIMISE_SPEED", "OPTIMIZE_SPEED":
			c.cfg.OptMode = OptSpeed
		case "OPTIMISE_SPEED_AND_MEMORY", "OPTIMIZE_SPEED_AND_MEMORY":
			c.cfg.OptMode = OptSpeedAndMemory
		case "ARRAYBASE":
			if len(args) != 1 {
				c.diags.Errorf(KindSyntax, i+1, raw, "_PRAGMA_ ARRAYBASE requires one argument")
				continue
			}
			switch args[0] {
			case "0":
				c.cfg.ArrayBase = Base0
			case "1":
				c.cfg.ArrayBase = Base1
			default:
				c.diags.Errorf(KindSemantic, i+1, raw, "invalid ARRAYBASE value %q", args[0])
			}
		case "RUNTIME_START":
			v, err := strconv.ParseUint(argOrEmpty(args), 0, 16)
			if err != nil {
				c.diags.Errorf(KindSyntax, i+1, raw, "invalid RUNTIME_START value")
				continue
			}
			c.cfg.RuntimeStart = uint16(v)
		case "RUNTIME_END":
			v, err := strconv.ParseUint(argOrEmpty(args), 0, 16)
			if err != nil {
				c.diags.Errorf(KindSyntax, i+1, raw, "invalid RUNTIME_END value")
				continue
			}
			c.cfg.RuntimeEnd = uint16(v)
		case "INCLUDE_PATH":
			c.cfg.IncludePath = argOrEmpty(args)
		case "RUNTIME_PATH":
			c.cfg.RuntimePath = argOrEmpty(args)
		case "CREATE_TIME_DATA":
			c.cfg.CreateTimeData = true
		case "NUMERIC_LABEL_LUT":
			c.cfg.NumericLUT = true
		default:
			c.diags.Warnf(KindSemantic, i+1, raw, "unknown pragma %q ignored", fields[1])
		}
	}
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
