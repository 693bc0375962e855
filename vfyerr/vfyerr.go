// Package vfyerr implements the verifier's context-carrying error chain.
//
// Every fatal error names the location it was raised at (module path,
// instance path, wire name, cycle) so that a report can point a user at the
// exact offending hardware location. There are three fatal kinds --
// Structural, Configuration, Security -- plus the non-error Warning.
package vfyerr

import (
	"errors"
	"fmt"
	"strings"
)

// Frame names the location an error was raised at. Empty string fields are
// omitted when rendering, and so is a negative Cycle; Cycle 0 is rendered.
type Frame struct {
	ModulePath   string // dotted hierarchy path, e.g. "top.masked_and_inst"
	InstancePath string // instance name within ModulePath, if distinct
	Wire         string // wire or port name
	Cycle        int    // simulation cycle, -1 if not applicable
}

func (f Frame) String() string {
	var b strings.Builder
	if f.ModulePath != "" {
		b.WriteString(f.ModulePath)
	}
	if f.InstancePath != "" {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(f.InstancePath)
	}
	if f.Wire != "" {
		b.WriteString("[")
		b.WriteString(f.Wire)
		b.WriteString("]")
	}
	if f.Cycle >= 0 {
		fmt.Fprintf(&b, " @cycle %d", f.Cycle)
	}
	return b.String()
}

// Kind classifies a fatal error.
type Kind uint8

const (
	KindStructural Kind = iota
	KindConfig
	KindSecurity
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural error"
	case KindConfig:
		return "configuration error"
	case KindSecurity:
		return "security violation"
	default:
		return "error"
	}
}

// Error is a fatal verifier error: malformed netlist (Structural), an
// unsatisfiable run configuration (Config), or a failed safety check
// (Security). It is never retried; there is no partial success.
type Error struct {
	Kind  Kind
	Frame Frame
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	loc := e.Frame.String()
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, loc, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Structural builds a Kind=Structural error: combinational loop, duplicate
// driver, undriven wire, inout port, unknown cell type, missing/contradictory
// annotation.
func Structural(frame Frame, format string, args ...any) error {
	return &Error{Kind: KindStructural, Frame: frame, Msg: fmt.Sprintf(format, args...)}
}

// Config builds a Kind=Config error: missing clock, unresolved VCD variable,
// unknown witness wire, 'x' supplied for a control wire requiring a
// deterministic value.
func Config(frame Frame, format string, args ...any) error {
	return &Error{Kind: KindConfig, Frame: frame, Msg: fmt.Sprintf(format, args...)}
}

// Security builds a Kind=Security error from a failed safety check.
func Security(frame Frame, format string, args ...any) error {
	return &Error{Kind: KindSecurity, Frame: frame, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches frame/message context to an existing error while preserving
// it as the Cause for errors.Is/errors.As.
func Wrap(kind Kind, frame Frame, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Frame: frame, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// As is a thin re-export of errors.As so callers need not import both
// packages when they only deal in vfyerr.Error values.
func As(err error, target any) bool { return errors.As(err, target) }

// Warning is a non-fatal diagnostic: the caller logs it and continues.
// It is deliberately not an error value.
type Warning struct {
	Frame Frame
	Msg   string
}

func (w Warning) String() string {
	loc := w.Frame.String()
	if loc == "" {
		return "warning: " + w.Msg
	}
	return fmt.Sprintf("warning at %s: %s", loc, w.Msg)
}

// NewWarning constructs a Warning at the given frame.
func NewWarning(frame Frame, format string, args ...any) Warning {
	return Warning{Frame: frame, Msg: fmt.Sprintf(format, args...)}
}
