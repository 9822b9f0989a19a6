package main

import "os"

// consoleWidth has no ioctl-based implementation on Windows; printStats
// falls back to its own default width.
func consoleWidth(f *os.File) int { return 0 }
