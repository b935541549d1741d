package entity

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the wallet-session error taxonomy.
type ErrorKind string

const (
	KindProviderAbsent     ErrorKind = "ProviderAbsent"
	KindUserRejected       ErrorKind = "UserRejected"
	KindUnsupportedNetwork ErrorKind = "UnsupportedNetwork"
	KindRPCFailure         ErrorKind = "RpcFailure"
	KindSignatureDeclined  ErrorKind = "SignatureDeclined"
	KindLinkAbsent         ErrorKind = "LinkAbsent"
	KindInvalidAddress     ErrorKind = "InvalidAddress"
	KindVerificationFailed ErrorKind = "VerificationFailed"
	KindPaymentFailed      ErrorKind = "PaymentFailed"
	KindNotConnected       ErrorKind = "NotConnected"
	KindSessionReset       ErrorKind = "SessionReset"
	KindInvalidAmount      ErrorKind = "InvalidAmount"
)

// WalletError is a classified failure. Code carries the provider's numeric error code
// when there was one.
type WalletError struct {
	Kind ErrorKind
	Op   string
	Code int
	Err  error
}

func (e *WalletError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WalletError) Unwrap() error { return e.Err }

// Is matches any *WalletError of the same kind, so sentinels work with errors.Is.
func (e *WalletError) Is(target error) bool {
	t, ok := target.(*WalletError)
	return ok && t.Kind == e.Kind
}

var (
	ErrProviderAbsent     = &WalletError{Kind: KindProviderAbsent}
	ErrUserRejected       = &WalletError{Kind: KindUserRejected}
	ErrUnsupportedNetwork = &WalletError{Kind: KindUnsupportedNetwork}
	ErrRPCFailure         = &WalletError{Kind: KindRPCFailure}
	ErrSignatureDeclined  = &WalletError{Kind: KindSignatureDeclined}
	ErrLinkAbsent         = &WalletError{Kind: KindLinkAbsent}
	ErrInvalidAddress     = &WalletError{Kind: KindInvalidAddress}
	ErrVerificationFailed = &WalletError{Kind: KindVerificationFailed}
	ErrPaymentFailed      = &WalletError{Kind: KindPaymentFailed}
	ErrNotConnected       = &WalletError{Kind: KindNotConnected}
	ErrSessionReset       = &WalletError{Kind: KindSessionReset}
	ErrInvalidAmount      = &WalletError{Kind: KindInvalidAmount}
)

// NewError builds a classified error for operation op.
func NewError(kind ErrorKind, op string, err error) *WalletError {
	return &WalletError{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted cause.
func Errorf(kind ErrorKind, op string, format string, args ...any) *WalletError {
	return &WalletError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the taxonomy kind of err, or RpcFailure for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var we *WalletError
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindRPCFailure
}

// IsRecoverable reports whether the caller may simply retry the operation.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindProviderAbsent, KindInvalidAddress, KindInvalidAmount:
		return false
	default:
		return true
	}
}

// ErrorRecord is the human-readable error kept in session and orchestration state.
type ErrorRecord struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewErrorRecord converts err into a record stamped at now.
func NewErrorRecord(err error, now time.Time) *ErrorRecord {
	if err == nil {
		return nil
	}
	return &ErrorRecord{Kind: KindOf(err), Message: err.Error(), At: now}
}
