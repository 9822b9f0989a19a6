package main

import (
	"os"
	"testing"

	"github.com/vwarlock/vbc/compiler"
)

func TestRomTargetFlag_SetValid(t *testing.T) {
	var r romTargetFlag
	if err := r.Set("4"); err != nil {
		t.Fatalf("Set(4) failed: %v", err)
	}
	if compiler.ROMTarget(r) != compiler.ROMv5 {
		t.Errorf("got ROM target %v, want ROMv5", compiler.ROMTarget(r))
	}
	if r.String() != "4" {
		t.Errorf("String() = %q, want %q", r.String(), "4")
	}
}

func TestRomTargetFlag_SetOutOfRange(t *testing.T) {
	var r romTargetFlag
	if err := r.Set("99"); err == nil {
		t.Fatal("Set(99) succeeded, want error for unsupported ROM target")
	}
}

func TestRomTargetFlag_SetNotANumber(t *testing.T) {
	var r romTargetFlag
	if err := r.Set("abc"); err == nil {
		t.Fatal("Set(\"abc\") succeeded, want error")
	}
}

func TestOptModeFlag_SetEachName(t *testing.T) {
	cases := []struct {
		in   string
		want compiler.OptMode
	}{
		{"none", compiler.OptNone},
		{"speed", compiler.OptSpeed},
		{"speed+mem", compiler.OptSpeedAndMemory},
	}
	for _, tc := range cases {
		var o optModeFlag
		if err := o.Set(tc.in); err != nil {
			t.Fatalf("Set(%q) failed: %v", tc.in, err)
		}
		if compiler.OptMode(o) != tc.want {
			t.Errorf("Set(%q): got %v, want %v", tc.in, compiler.OptMode(o), tc.want)
		}
	}
}

func TestOptModeFlag_SetUnknown(t *testing.T) {
	var o optModeFlag
	if err := o.Set("turbo"); err == nil {
		t.Fatal("Set(\"turbo\") succeeded, want error")
	}
}

func TestConsoleWidth_NonTerminalFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "vbc-console-width")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	defer f.Close()
	if w := consoleWidth(f); w != 0 {
		t.Errorf("consoleWidth on a plain file = %d, want 0", w)
	}
}
