// Package vbci holds small internal helpers shared by the compiler and
// CLI packages.
package vbci

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps an io.Writer and remembers the first write error, so a
// long sequence of unconditional Write calls (the output formatter's
// section-by-section emission) can defer error checking to a single
// point at the end instead of after every call.
type ErrWriter struct {
	w   io.Writer
	Err error
}

func (w *ErrWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// NewErrWriter returns a new ErrWriter wrapping w.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}
