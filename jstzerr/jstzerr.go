// Package jstzerr defines the kernel-wide error taxonomy used to classify
// why an operation failed, for inclusion in a receipt.
package jstzerr

import "fmt"

// Kind tags the category of a kernel-level failure. It is carried in a
// receipt's Err variant and is the wire-visible reason code returned to
// clients.
type Kind string

const (
	InvalidSignature  Kind = "InvalidSignature"
	InvalidNonce      Kind = "InvalidNonce"
	InvalidAddress    Kind = "InvalidAddress"
	InvalidCode       Kind = "InvalidCode"
	InvalidResponse   Kind = "InvalidResponse"
	InvalidTicket     Kind = "InvalidTicket"
	InsufficientFunds Kind = "InsufficientFunds"
	BalanceOverflow   Kind = "BalanceOverflow"
	AccountExists     Kind = "AccountExists"
	CallDepthExceeded Kind = "CallDepthExceeded"
	OutOfGas          Kind = "OutOfGas"
	OutboxFull        Kind = "OutboxFull"
	JsUncaught        Kind = "JsUncaught"
	StoreError        Kind = "StoreError"
	ConcurrencyConflict Kind = "ConcurrencyConflict"
)

// Error is a kernel failure tagged with its Kind, carrying a
// human-readable message for the receipt.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err if it is (or wraps) a *Error,
// and false otherwise.
func KindOf(err error) (Kind, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if ok {
			err = u.Unwrap()
			continue
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return "", false
}

// Infrastructure reports whether kind represents a StoreError-class
// infrastructure failure that must abort the enclosing transaction rather
// than be caught by user code.
func (k Kind) Infrastructure() bool {
	return k == StoreError || k == ConcurrencyConflict
}
