package compiler

import (
	"github.com/pkg/errors"
	"github.com/vwarlock/vbc/vcpu"
)

// Fit selects how FreeRAMAllocator searches for a free block (spec.md §5).
type Fit uint8

const (
	Ascending Fit = iota
	Descending
)

// FreeRAMAllocator is the external free-RAM allocator collaborator
// (spec.md §5, §1 "out of scope"). The compiler only ever calls GetFreeRAM;
// a production build wires this to the linker's memory map, the downstream
// collaborator this spec does not define. DefaultAllocator below is a
// simple, self-contained bump allocator sufficient to drive the compiler
// standalone and in tests.
type FreeRAMAllocator interface {
	GetFreeRAM(fit Fit, size uint16, lo, hi uint16, mustFitWithinPage bool) (address uint16, err error)
}

// ErrOutOfMemory is wrapped by allocator errors so callers can distinguish
// resource exhaustion from other failures with errors.Cause.
var ErrOutOfMemory = errors.New("out of free RAM")

// DefaultAllocator is a bump allocator over a single contiguous RAM range,
// descending from hi or ascending from lo depending on Fit. It never
// reclaims memory: compilation is single-pass and never frees (spec.md §3,
// "never destroyed during compilation").
type DefaultAllocator struct {
	lowWater  uint16 // next free address when allocating ascending
	highWater uint16 // next free address (exclusive) when allocating descending
	pageSize  uint16
}

// NewDefaultAllocator returns an allocator over [lo, hi).
func NewDefaultAllocator(lo, hi uint16) *DefaultAllocator {
	return &DefaultAllocator{lowWater: lo, highWater: hi, pageSize: 256}
}

// GetFreeRAM implements FreeRAMAllocator.
func (a *DefaultAllocator) GetFreeRAM(fit Fit, size uint16, lo, hi uint16, mustFitWithinPage bool) (uint16, error) {
	if lo > a.lowWater {
		a.lowWater = lo
	}
	if hi < a.highWater || a.highWater == 0 {
		a.highWater = hi
	}
	switch fit {
	case Ascending:
		addr := a.lowWater
		if mustFitWithinPage {
			addr = nextPageIfCrosses(addr, size, a.pageSize)
		}
		if addr+size > hi {
			return 0, errors.Wrapf(ErrOutOfMemory, "requested %d bytes ascending from 0x%04x (bound 0x%04x)", size, addr, hi)
		}
		a.lowWater = addr + size
		return addr, nil
	case Descending:
		if size > a.highWater {
			return 0, errors.Wrapf(ErrOutOfMemory, "requested %d bytes descending below 0x%04x", size, a.highWater)
		}
		addr := a.highWater - size
		if mustFitWithinPage && (addr/a.pageSize) != ((addr+size-1)/a.pageSize) {
			addr = (addr / a.pageSize) * a.pageSize
			if addr < lo {
				return 0, errors.Wrapf(ErrOutOfMemory, "requested %d bytes descending cannot fit within one page above 0x%04x", size, lo)
			}
		}
		if addr < lo {
			return 0, errors.Wrapf(ErrOutOfMemory, "requested %d bytes descending below floor 0x%04x", size, lo)
		}
		a.highWater = addr
		return addr, nil
	}
	return 0, errors.Errorf("unknown fit mode %d", fit)
}

func nextPageIfCrosses(addr, size, pageSize uint16) uint16 {
	if pageSize == 0 {
		return addr
	}
	if addr/pageSize != (addr+size-1)/pageSize {
		return ((addr / pageSize) + 1) * pageSize
	}
	return addr
}

// ZeroPageAllocator hands out addresses for scalar integer variables from
// the fixed zero-page window (spec.md §3 "Zero-page user variable
// allocation"). Unlike FreeRAMAllocator it deliberately wraps instead of
// failing when exhausted (spec.md §9 open question): the cursor resets to
// USERVarStart and a Warning is recorded, not an Error, preserving the
// documented (and knowingly unsafe) original behavior.
type ZeroPageAllocator struct {
	next uint16
	lo   uint16
	hi   uint16
}

// NewZeroPageAllocator returns an allocator over the vCPU's zero-page user
// variable window.
func NewZeroPageAllocator() *ZeroPageAllocator {
	return &ZeroPageAllocator{next: vcpu.USERVarStart, lo: vcpu.USERVarStart, hi: vcpu.USERVarEnd}
}

// Alloc returns the next 2-byte zero-page slot. wrapped is true the first
// time (and every subsequent time) the cursor has to restart from the
// beginning of the window because the window was exhausted; callers must
// turn that into a Warning diagnostic, never an Error (spec.md §9).
func (z *ZeroPageAllocator) Alloc() (address uint16, wrapped bool) {
	if z.next+2 > z.hi {
		z.next = z.lo
		wrapped = true
	}
	address = z.next
	z.next += 2
	return address, wrapped
}

// Reset restores the allocator to its initial state, used by clearCompiler.
func (z *ZeroPageAllocator) Reset() {
	z.next = z.lo
}
