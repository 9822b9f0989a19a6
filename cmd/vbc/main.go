// Command vbc compiles a Source Language program into textual vCPU
// assembly (spec.md §1, §6). It contains no interesting design of its
// own: it parses flags into a compiler.Config, reads the input file,
// runs the pipeline, and writes the result.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/vwarlock/vbc/compiler"
)

type romTargetFlag compiler.ROMTarget

func (r *romTargetFlag) String() string { return strconv.Itoa(int(*r)) }
func (r *romTargetFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrap(err, "invalid ROM target")
	}
	if n < int(compiler.ROMv1) || n > int(compiler.ROMv5) {
		return errors.Errorf("ROM target %d not supported", n)
	}
	*r = romTargetFlag(n)
	return nil
}

type optModeFlag compiler.OptMode

func (o *optModeFlag) String() string { return strconv.Itoa(int(*o)) }
func (o *optModeFlag) Set(s string) error {
	switch s {
	case "none":
		*o = optModeFlag(compiler.OptNone)
	case "speed":
		*o = optModeFlag(compiler.OptSpeed)
	case "speed+mem":
		*o = optModeFlag(compiler.OptSpeedAndMemory)
	default:
		return errors.Errorf("unknown optimization mode %q (want none, speed, speed+mem)", s)
	}
	return nil
}

var (
	romTarget  = romTargetFlag(compiler.ROMv5)
	optMode    = optModeFlag(compiler.OptSpeedAndMemory)
	arrayBase1 bool
	includeRT  string
	runtimeRT  string
	numericLUT bool
	timeData   bool
	execStats  bool
)

func atExit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}

func main() {
	var err error
	defer func() { atExit(err) }()

	flag.Var(&romTarget, "rom", "target ROM revision, 0-4 (ROMv1-ROMv5)")
	flag.Var(&optMode, "opt", "optimizer mode: none, speed, speed+mem")
	flag.BoolVar(&arrayBase1, "base1", false, "record array base 1 in the config (no compiler pass reads it: arrays are indexed from 0)")
	flag.StringVar(&includeRT, "include", "", "`path` of an assembly file to %include at the top of the output")
	flag.StringVar(&runtimeRT, "runtime", "", "`path` of the runtime-subroutine library to %include")
	flag.BoolVar(&numericLUT, "numeric-lut", false, "record the numeric-label LUT option in the config (no compiler pass reads it: no lookup table is emitted)")
	flag.BoolVar(&timeData, "time-data", false, "record the time-data option in the config (no compiler pass reads it: no timestamp data is emitted)")
	flag.BoolVar(&execStats, "stats", false, "print a column-aligned compile-time statistics table to stderr")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: vbc [flags] <input.bas> <output.vasm>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	inPath, outPath := args[0], args[1]

	cfg := compiler.DefaultConfig()
	cfg.ROMTarget = compiler.ROMTarget(romTarget)
	cfg.OptMode = compiler.OptMode(optMode)
	if arrayBase1 {
		cfg.ArrayBase = compiler.Base1
	}
	cfg.IncludePath = includeRT
	cfg.RuntimePath = runtimeRT
	cfg.NumericLUT = numericLUT
	cfg.CreateTimeData = timeData

	var src []byte
	src, err = ioutil.ReadFile(inPath)
	if err != nil {
		err = errors.Wrapf(err, "reading %s", inPath)
		return
	}

	var macros compiler.MacroLibrary
	if runtimeRT != "" {
		var rt []byte
		rt, err = ioutil.ReadFile(runtimeRT)
		if err != nil {
			err = errors.Wrapf(err, "reading %s", runtimeRT)
			return
		}
		macros, err = compiler.ParseMacroLibrary(string(rt))
		if err != nil {
			err = errors.Wrapf(err, "parsing %s", runtimeRT)
			return
		}
	}

	alloc := compiler.NewDefaultAllocator(cfg.RuntimeStart, cfg.RuntimeEnd)
	start := time.Now()
	c := compiler.New(cfg, alloc, macros)
	var out string
	out, err = c.Compile(string(src))
	elapsed := time.Since(start)

	if _, werr := c.Diagnostics().WriteTo(os.Stderr); werr != nil {
		err = werr
		return
	}
	if err != nil {
		return
	}

	if werr := ioutil.WriteFile(outPath, []byte(out), 0644); werr != nil {
		err = errors.Wrapf(werr, "writing %s", outPath)
		return
	}

	if execStats {
		printStats(c, elapsed)
	}
}

// printStats prints a column-aligned table sized to the terminal width
// (spec.md §6; SPEC_FULL.md §2 "a direct, if narrow, re-use" of
// termios-backed width detection), falling back to 80 columns when stderr
// isn't a terminal.
func printStats(c *compiler.Compiler, elapsed time.Duration) {
	width := consoleWidth(os.Stderr)
	if width <= 0 {
		width = 80
	}
	rule := make([]byte, width)
	for i := range rule {
		rule[i] = '-'
	}
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "%-30s %v\n", "compile time", elapsed)
	fmt.Fprintf(os.Stderr, "%-30s %d\n", "program counter (bytes)", c.PC())
	fmt.Fprintf(os.Stderr, "%-30s %d\n", "scalar/array variables", len(c.Symbols().IntVarOrder()))
	fmt.Fprintf(os.Stderr, "%-30s %d\n", "string variables", len(c.Symbols().StrVarOrder()))
	fmt.Fprintf(os.Stderr, "%-30s %d\n", "constants", len(c.Symbols().ConstOrder()))
	fmt.Fprintf(os.Stderr, "%-30s %d\n", "labels", len(c.Symbols().LabelOrder()))
	fmt.Fprintf(os.Stderr, "%s\n", rule)
}
