package vcpu

// Fixed memory-layout constants for the target machine. These mirror the
// constants the original compiler reads from its ROM-specific headers
// (USER_VAR_START, TEMP_VAR_START, ...); this re-implementation hardcodes
// the values for the ROM revision used by the test corpus (spec.md §8) and
// leaves room, via Config.ROMTarget, to source them per target in the
// output formatter header instead.
const (
	// USERVarStart is the first zero-page address available to user
	// integer variables.
	USERVarStart = 0x0030
	// USERVarEnd is one past the last zero-page address available to user
	// integer variables; reaching it wraps the allocator (spec.md §3,
	// §9 open question).
	USERVarEnd = 0x0080
	// TempVarStart is the base of the 16 byte / 8 slot rolling temp-var
	// window (spec.md §3, §4.2.2).
	TempVarStart = 0x0082
	// TempVarWindow is the size in bytes of the temp-var window.
	TempVarWindow = 0x10
	// UserCodeStart is the vCPU program counter value code emission
	// begins at, before any system-init snippet is enabled.
	UserCodeStart = 0x0200
	// LabelTruncSize is the padded column width of a label in the output
	// assembly (spec.md §6).
	LabelTruncSize = 16
	// OpcodeTruncSize is the column offset the operand begins at.
	OpcodeTruncSize = 8
)

// SysInitFuncLen is the byte length a conditional prologue snippet shifts
// subsequent addresses by when first enabled (spec.md §4.2.4): the Length of
// each comparison snippet, and the base the two array snippets add to. Every
// snippet carries its own Length; nothing falls back to this constant.
const SysInitFuncLen = 6
