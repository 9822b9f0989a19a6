package compiler

// ROMTarget names a ROM revision of the host vCPU. No compiler pass reads
// it: every system-init snippet (spec.md §4.2.4) can be enabled whatever
// its value.
type ROMTarget uint8

const (
	ROMv1 ROMTarget = iota
	ROMv2
	ROMv3
	ROMv4
	ROMv5
)

// OptMode selects the optimizer's aggressiveness.
type OptMode uint8

const (
	OptNone OptMode = iota
	OptSpeed
	OptSpeedAndMemory
)

// ArrayBase records whether DIM'd arrays are indexed from 0 or 1. No
// compiler pass reads it: DIM and array indexing always index from 0.
type ArrayBase uint8

const (
	Base0 ArrayBase = iota
	Base1
)

// Config holds the process-wide options the pragma pass mutates (spec.md
// §2, §6) and the CLI can pre-seed (SPEC_FULL.md §1.2). A `_PRAGMA_` line
// encountered later in the source always wins over a flag default.
type Config struct {
	ROMTarget      ROMTarget
	OptMode        OptMode
	ArrayBase      ArrayBase
	IncludePath    string
	RuntimePath    string
	NumericLUT     bool
	CreateTimeData bool
	RuntimeStart   uint16
	RuntimeEnd     uint16
}

// DefaultConfig returns the configuration used when no pragma or flag
// overrides it.
func DefaultConfig() Config {
	return Config{
		ROMTarget:    ROMv5,
		OptMode:      OptSpeedAndMemory,
		ArrayBase:    Base0,
		RuntimeStart: 0x0300,
		RuntimeEnd:   0x7fff,
	}
}
