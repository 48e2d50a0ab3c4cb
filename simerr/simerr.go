// Package simerr defines the error taxonomy shared by every simcore
// component: sentinel Kind values compared with errors.Is, wrapped in an
// *Error carrying the failing operation and structured context. Plain
// "if err != nil" handling keeps working unchanged; callers who want to
// branch on the taxonomy use errors.Is/As.
package simerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of error. Kinds are sentinel errors: compare with
// errors.Is(err, simerr.PoolDepleted), not by inspecting *Error.Kind directly,
// so wrapping and re-wrapping never breaks comparisons.
type Kind string

func (k Kind) Error() string { return string(k) }

// Buffer error kinds.
const (
	Overflow       Kind = "buffer: overflow"
	Underflow      Kind = "buffer: underflow"
	ReadOnly       Kind = "buffer: read-only"
	InvalidMark    Kind = "buffer: invalid mark"
	Alignment      Kind = "buffer: alignment"
	Released       Kind = "buffer: released"
	State          Kind = "buffer: invalid state"
	CapacityExceed Kind = "buffer: capacity exceeded"
)

// Pool error kinds.
const (
	PoolDepleted        Kind = "pool: depleted"
	PoolDisposed        Kind = "pool: disposed"
	ValidationFailed    Kind = "pool: validation failed"
	ForeignObject       Kind = "pool: foreign object"
	AlreadyReleased     Kind = "pool: already released"
	InUseDuringOperation Kind = "pool: in use during operation"
	InitializationFailed Kind = "pool: initialization failed"
	TimeoutExceeded     Kind = "pool: timeout exceeded"
	InvalidOperation    Kind = "pool: invalid operation"
	InternalError       Kind = "pool: internal error"
)

// Queue / emitter error kinds.
const (
	EmptyQueue      Kind = "queue: empty"
	InvalidCapacity Kind = "queue: invalid capacity"
	QueueFull       Kind = "emitter: queue full"
	HandlerError    Kind = "emitter: handler error"
)

// Particle system error kinds.
const (
	SystemNotInitialized  Kind = "particles: system not initialized"
	ParticleNotFound      Kind = "particles: particle not found"
	ModuleNotFound        Kind = "particles: module not found"
	CapacityExceededKind  Kind = "particles: capacity exceeded"
	InvalidConfiguration  Kind = "particles: invalid configuration"
	ResourceNotAvailable  Kind = "particles: resource not available"
	OperationNotSupported Kind = "particles: operation not supported"
	MemoryAllocationFailed Kind = "particles: memory allocation failed"
	InvalidState          Kind = "particles: invalid state"
	ThreadSafetyViolation  Kind = "particles: thread safety violation"
)

// Error is the structured error value every simcore package returns. It
// carries the failing operation, the Kind (a sentinel, for errors.Is), and
// free-form structured context (requested/available sizes, pool name, event
// name, the original error it wraps, ...).
type Error struct {
	Op      string
	Kind    Kind
	Context map[string]any
	Err     error // original error, if this wraps one (e.g. a JSON encoding error)
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s %v", e.Op, e.Kind, e.Context)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is lets errors.Is(err, someKind) match through the wrapper without also
// matching on Context/Op/Err, and lets errors.Is(err1, err2) match two
// *Error values with the same Kind.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error for op/kind with optional key-value context pairs
// (k1, v1, k2, v2, ...).
func New(op string, kind Kind, kv ...any) *Error {
	e := &Error{Op: op, Kind: kind}
	if len(kv) > 0 {
		e.Context = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, _ := kv[i].(string)
			e.Context[key] = kv[i+1]
		}
	}
	return e
}

// Wrap constructs an *Error for op/kind that wraps an underlying error
// (e.g. a JSON marshal/unmarshal failure or a failed buffer resize).
func Wrap(op string, kind Kind, err error, kv ...any) *Error {
	e := New(op, kind, kv...)
	e.Err = err
	return e
}
