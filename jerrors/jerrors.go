/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jerrors defines the error taxonomy used across the decompiler:
// format errors (class-level fatal), bytecode errors and structural-recovery
// fallbacks (method-level recoverable, attached as diagnostics), and policy
// limits. Every kind is a value, not a distinct Go type, so callers can
// switch on Kind() without a type-assertion per error family.
package jerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which bucket of the error taxonomy an error belongs to.
// It does not distinguish the exact failure reason (see the Reason string
// instead) -- Kind only drives propagation policy.
type Kind int

const (
	// KindFormat covers class-level fatal errors: bad magic, truncated
	// file, invalid pool index, kind mismatch, invalid UTF-8, invalid
	// descriptor, invalid attribute payload.
	KindFormat Kind = iota
	// KindBytecode covers method-level recoverable errors: unknown
	// opcode, truncated instruction, invalid switch layout, stack
	// underflow, stack-height mismatch at a join.
	KindBytecode
	// KindStructural covers structural-recovery fallbacks: irreducible
	// CFG, unmatched exception range. Always a warning, never fatal.
	KindStructural
	// KindPolicy covers policy limits: file too large, method too long.
	KindPolicy
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindBytecode:
		return "bytecode"
	case KindStructural:
		return "structural"
	case KindPolicy:
		return "policy"
	default:
		return "unknown"
	}
}

// Error is the concrete error value produced by every layer of the
// pipeline. It carries a Kind for propagation-policy dispatch, a short
// Reason tag (e.g. "InvalidIndex", "UnknownOpcode"), and an optional PC
// for bytecode/structural errors. The underlying cause is captured with
// errors.WithStack so a class-level fatal error can report where in the
// pipeline it originated -- this replaces Jacobin's hand-rolled
// runtime.Caller bookkeeping in its cfe() helper with the same capability
// from pkg/errors.
type Error struct {
	Kind   Kind
	Reason string
	PC     int // -1 when not applicable
	cause  error
}

func (e *Error) Error() string {
	if e.PC >= 0 {
		return fmt.Sprintf("%s error [%s] at pc=%d: %s", e.Kind, e.Reason, e.PC, e.cause)
	}
	return fmt.Sprintf("%s error [%s]: %s", e.Kind, e.Reason, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error with no associated PC.
func New(kind Kind, reason, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, PC: -1, cause: errors.WithStack(errors.New(msg))}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, reason, format string, args ...any) *Error {
	return New(kind, reason, fmt.Sprintf(format, args...))
}

// AtPC builds a taxonomy error tied to a bytecode program counter.
func AtPC(kind Kind, reason string, pc int, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, PC: pc, cause: errors.WithStack(errors.New(msg))}
}

// Wrap attaches a taxonomy Kind/Reason to an existing error without
// discarding its stack/cause chain.
func Wrap(kind Kind, reason string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, PC: -1, cause: errors.WithStack(err)}
}

// Format error constructors, one per class-level fatal reason.
func BadMagic(got uint32) *Error {
	return Newf(KindFormat, "BadMagic", "expected magic 0xCAFEBABE, got 0x%08X", got)
}
func UnsupportedVersion(major uint16) *Error {
	return Newf(KindFormat, "UnsupportedClassFileVersion", "major version %d is not in [45,65]", major)
}
func UnexpectedEOF(need, have int) *Error {
	return Newf(KindFormat, "UnexpectedEndOfFile", "need %d bytes, have %d remaining", need, have)
}
func InvalidPosition(pos, length int) *Error {
	return Newf(KindFormat, "InvalidPosition", "position %d out of range [0,%d]", pos, length)
}
func InvalidIndex(index, count int) *Error {
	return Newf(KindFormat, "InvalidIndex", "constant pool index %d out of range [1,%d)", index, count)
}
func KindMismatch(index int, want, got string) *Error {
	return Newf(KindFormat, "KindMismatch", "constant pool entry #%d: expected %s, got %s", index, want, got)
}
func InvalidUTF8(index int) *Error {
	return Newf(KindFormat, "InvalidUtf8", "constant pool entry #%d is not valid modified UTF-8", index)
}

// Descriptor error constructors.
func EmptyDescriptor() *Error {
	return New(KindFormat, "EmptyDescriptor", "descriptor string is empty")
}
func UnterminatedObjectType(desc string) *Error {
	return Newf(KindFormat, "UnterminatedObjectType", "object type in descriptor %q is missing a terminating ';'", desc)
}
func InvalidDescriptor(desc string) *Error {
	return Newf(KindFormat, "InvalidDescriptor", "malformed descriptor %q", desc)
}
func TooManyArrayDimensions(desc string) *Error {
	return Newf(KindFormat, "TooManyArrayDimensions", "descriptor %q exceeds 255 array dimensions", desc)
}

// Bytecode error constructors.
func UnknownOpcode(pc int, op byte) *Error {
	return AtPC(KindBytecode, "UnknownOpcode", pc, fmt.Sprintf("unrecognized opcode 0x%02X", op))
}
func TruncatedInstruction(pc int) *Error {
	return AtPC(KindBytecode, "TruncatedInstruction", pc, "instruction operands run past end of code array")
}
func InvalidSwitchLayout(pc int, msg string) *Error {
	return AtPC(KindBytecode, "InvalidSwitchLayout", pc, msg)
}
func StackUnderflow(pc int) *Error {
	return AtPC(KindBytecode, "StackUnderflow", pc, "operand stack underflow")
}
func StackHeightMismatch(pc int, want, got int) *Error {
	return AtPC(KindBytecode, "StackHeightMismatch", pc, fmt.Sprintf("expected depth %d, got %d at join", want, got))
}

// Structural-recovery fallback constructors.
func IrreducibleCFG(header int) *Error {
	return AtPC(KindStructural, "IrreducibleCFG", header, "loop region is irreducible; falling back to labels")
}
func UnmatchedExceptionRange(startPC int) *Error {
	return AtPC(KindStructural, "UnmatchedExceptionRange", startPC, "exception table entry has no enclosing structure")
}

// Policy error constructors.
func FileTooLarge(size, max int) *Error {
	return Newf(KindPolicy, "MaxBytesExceeded", "class file is %d bytes, exceeds policy limit of %d", size, max)
}
func MethodTooLong(name string, length, max int) *Error {
	return Newf(KindPolicy, "MethodTooLong", "method %s bytecode is %d bytes, exceeds policy limit of %d", name, length, max)
}

// Severity classifies a Diagnostic for display and for the propagation
// policy: format/policy errors are surfaced to the driver's caller,
// bytecode/structural errors are caught and attached as diagnostics.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is the attached-to-Document record for a recoverable error.
type Diagnostic struct {
	Severity Severity
	PC       int // -1 when not applicable
	Message  string
}

// FromError converts a method/structural-level *Error into a Diagnostic,
// attaching bytecode and structural errors to the driver's output rather
// than surfacing them as a hard failure.
func FromError(err *Error) Diagnostic {
	sev := SeverityError
	if err.Kind == KindStructural {
		sev = SeverityWarning
	}
	return Diagnostic{Severity: sev, PC: err.PC, Message: err.Error()}
}
