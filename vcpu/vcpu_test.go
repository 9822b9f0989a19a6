package vcpu_test

import (
	"testing"

	"github.com/vwarlock/vbc/vcpu"
)

func TestSize_fixedWidth(t *testing.T) {
	data := []struct {
		op   vcpu.Opcode
		want uint8
	}{
		{vcpu.LDI, 2},
		{vcpu.LDW, 2},
		{vcpu.LDWI, 3},
		{vcpu.STW, 2},
		{vcpu.ADDI, 2},
		{vcpu.PEEK, 1},
		{vcpu.DEEK, 1},
		{vcpu.LSLW, 1},
		{vcpu.RET, 1},
	}
	for _, d := range data {
		if got := vcpu.Size(d.op, "0x10", false); got != d.want {
			t.Errorf("Size(%s) = %d, want %d", d.op, got, d.want)
		}
	}
}

func TestSize_branch(t *testing.T) {
	if got := vcpu.Size(vcpu.BRA, "_label_0001_", false); got != 2 {
		t.Errorf("Size(BRA) = %d, want 2", got)
	}
	if got := vcpu.Size(vcpu.BCC, "EQ,_label_0001_", false); got != 3 {
		t.Errorf("Size(BCC, short) = %d, want 3", got)
	}
	if got := vcpu.Size(vcpu.BCC, "EQ,_label_0001_", true); got != 4 {
		t.Errorf("Size(BCC, long) = %d, want 4", got)
	}
}

func TestSize_unknownIsMacro(t *testing.T) {
	if got := vcpu.Size(vcpu.Opcode("mulRound16"), "0xc0,0xc2", false); got != 0 {
		t.Errorf("Size(unknown opcode) = %d, want 0 (callers must consult MacroLibrary)", got)
	}
}

func TestIsBranch(t *testing.T) {
	branching := []vcpu.Opcode{vcpu.BRA, vcpu.BCC, vcpu.CALL}
	for _, op := range branching {
		if !vcpu.IsBranch(op) {
			t.Errorf("IsBranch(%s) = false, want true", op)
		}
	}
	nonBranching := []vcpu.Opcode{vcpu.LDI, vcpu.STW, vcpu.ADDW, vcpu.RET}
	for _, op := range nonBranching {
		if vcpu.IsBranch(op) {
			t.Errorf("IsBranch(%s) = true, want false", op)
		}
	}
}

func TestHasLabelSuffix(t *testing.T) {
	data := []struct {
		name   string
		suffix string
		ok     bool
	}{
		{"_else_0a1f_", "_0a1f_", true},
		{"_endif_ffff_", "_ffff_", true},
		{"tooshort", "", false},
		{"_else_zzzz_", "", false},
		{"no_underscores_here", "", false},
	}
	for _, d := range data {
		suffix, ok := vcpu.HasLabelSuffix(d.name)
		if ok != d.ok || suffix != d.suffix {
			t.Errorf("HasLabelSuffix(%q) = (%q, %v), want (%q, %v)", d.name, suffix, ok, d.suffix, d.ok)
		}
	}
}
