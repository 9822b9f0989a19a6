package compiler

import (
	"testing"

	"github.com/pkg/errors"
)

func TestDefaultAllocator_ascendingThenExhausted(t *testing.T) {
	a := NewDefaultAllocator(0x0300, 0x0310)
	addr, err := a.GetFreeRAM(Ascending, 8, 0x0300, 0x0310, false)
	if err != nil || addr != 0x0300 {
		t.Fatalf("first alloc = (0x%04x, %v), want (0x0300, nil)", addr, err)
	}
	addr, err = a.GetFreeRAM(Ascending, 8, 0x0300, 0x0310, false)
	if err != nil || addr != 0x0308 {
		t.Fatalf("second alloc = (0x%04x, %v), want (0x0308, nil)", addr, err)
	}
	_, err = a.GetFreeRAM(Ascending, 8, 0x0300, 0x0310, false)
	if errors.Cause(err) != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}

func TestDefaultAllocator_descending(t *testing.T) {
	a := NewDefaultAllocator(0x0300, 0x0400)
	addr, err := a.GetFreeRAM(Descending, 0x10, 0x0300, 0x0400, false)
	if err != nil || addr != 0x03f0 {
		t.Fatalf("descending alloc = (0x%04x, %v), want (0x03f0, nil)", addr, err)
	}
	_, err = a.GetFreeRAM(Descending, 0x200, 0x0300, 0x0400, false)
	if errors.Cause(err) != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory for an over-large descending request, got %v", err)
	}
}

func TestDefaultAllocator_pageCrossing(t *testing.T) {
	a := NewDefaultAllocator(0x03fc, 0x0500)
	addr, err := a.GetFreeRAM(Ascending, 8, 0x03fc, 0x0500, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != 0x0400 {
		t.Fatalf("alloc crossing a page boundary = 0x%04x, want 0x0400 (bumped to next page)", addr)
	}
}

func TestZeroPageAllocator_wrapsWithoutError(t *testing.T) {
	z := NewZeroPageAllocator()
	slots := (int(z.hi) - int(z.lo)) / 2
	for i := 0; i < slots; i++ {
		_, wrapped := z.Alloc()
		if wrapped {
			t.Fatalf("alloc %d wrapped prematurely", i)
		}
	}
	addr, wrapped := z.Alloc()
	if !wrapped {
		t.Fatal("expected the allocator to report wrapped after exhausting its window")
	}
	if addr != z.lo {
		t.Fatalf("wrapped alloc returned 0x%04x, want window base 0x%04x", addr, z.lo)
	}
}

func TestZeroPageAllocator_reset(t *testing.T) {
	z := NewZeroPageAllocator()
	z.Alloc()
	z.Alloc()
	z.Reset()
	addr, wrapped := z.Alloc()
	if wrapped || addr != z.lo {
		t.Fatalf("after Reset, Alloc() = (0x%04x, %v), want (0x%04x, false)", addr, wrapped, z.lo)
	}
}
