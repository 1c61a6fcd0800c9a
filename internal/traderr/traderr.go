// Package traderr defines the typed error taxonomy used at every
// venue/network boundary. Callers classify failures with the Is* helpers
// instead of inspecting strings, so each failure mode has exactly one
// handling path: transient errors retry on the next tick, integrity errors
// discard data, auth errors halt trading while polling continues, and
// execution errors abort the in-flight signal.
package traderr

import (
	"errors"
	"fmt"
)

// Kind classifies a boundary failure.
type Kind int

const (
	// KindTransient covers network timeouts and 5xx responses. No state is
	// changed; the operation is naturally retried on the next tick.
	KindTransient Kind = iota

	// KindDataIntegrity covers misaligned or incomplete candles. The data is
	// discarded and no state is mutated.
	KindDataIntegrity

	// KindAuth covers rejected credentials or signatures. Trading actions
	// halt; polling continues.
	KindAuth

	// KindExecution covers rejected or unconfirmed orders. The current
	// signal is aborted; no position state is assumed.
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindDataIntegrity:
		return "data_integrity"
	case KindAuth:
		return "auth"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// Error is a classified boundary error. Op names the failed operation
// ("deltaex.orderbook", "feed.poll").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or KindTransient if err carries no
// classification (unclassified network failures default to retry-next-tick).
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransient
}

func is(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// IsTransient reports whether err is a transient network failure.
func IsTransient(err error) bool { return is(err, KindTransient) }

// IsDataIntegrity reports whether err is a candle integrity failure.
func IsDataIntegrity(err error) bool { return is(err, KindDataIntegrity) }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return is(err, KindAuth) }

// IsExecution reports whether err is an order execution failure.
func IsExecution(err error) bool { return is(err, KindExecution) }
