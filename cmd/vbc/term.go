//+build !windows

package main

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/pkg/term/termios"
)

type winsize struct {
	row, col, xpixel, ypixel uint16
}

func ioctl(fd uintptr, request, argp uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, request, argp)
	if errno != 0 {
		return errno
	}
	return nil
}

// consoleWidth returns f's terminal column width, or 0 if f isn't a
// terminal. Unlike the teacher's cmd/retro, this tool never switches a
// terminal to raw mode (SPEC_FULL.md §2: it is batch, non-interactive);
// termios.Tcgetattr is used only as the is-a-tty probe before the width
// ioctl, the narrow slice of the dependency this tool actually needs.
func consoleWidth(f *os.File) int {
	var tios syscall.Termios
	if err := termios.Tcgetattr(f.Fd(), &tios); err != nil {
		return 0
	}
	var w winsize
	if err := ioctl(f.Fd(), syscall.TIOCGWINSZ, uintptr(unsafe.Pointer(&w))); err != nil {
		return 0
	}
	return int(w.col)
}
