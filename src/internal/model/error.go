package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInsufficientFunds  ErrorKind = "INSUFFICIENT_FUNDS"
	KindBelowMinimum       ErrorKind = "BELOW_MINIMUM"
	KindUnsupportedMethod  ErrorKind = "UNSUPPORTED_METHOD"
	KindDuplicateRequest   ErrorKind = "DUPLICATE_REQUEST"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindNetworkUnavailable ErrorKind = "NETWORK_UNAVAILABLE"
	KindSettlementRejected ErrorKind = "SETTLEMENT_REJECTED"
	KindInvalidAmount      ErrorKind = "INVALID_AMOUNT"
	KindInvalidRequest     ErrorKind = "INVALID_REQUEST"
	KindInvalidState       ErrorKind = "INVALID_STATE"
	KindNotInitialized     ErrorKind = "NOT_INITIALIZED"
)

// PaymentError is the error type returned by every engine operation. Two
// PaymentErrors match under errors.Is when their kinds are equal, so the
// sentinels below can be compared against detailed errors.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInsufficientFunds  = &PaymentError{Kind: KindInsufficientFunds, Message: "insufficient balance"}
	ErrBelowMinimum       = &PaymentError{Kind: KindBelowMinimum, Message: "amount below minimum payout"}
	ErrUnsupportedMethod  = &PaymentError{Kind: KindUnsupportedMethod, Message: "unsupported payment method"}
	ErrDuplicateRequest   = &PaymentError{Kind: KindDuplicateRequest, Message: "duplicate request"}
	ErrNotFound           = &PaymentError{Kind: KindNotFound, Message: "not found"}
	ErrNetworkUnavailable = &PaymentError{Kind: KindNetworkUnavailable, Message: "network unavailable"}
	ErrSettlementRejected = &PaymentError{Kind: KindSettlementRejected, Message: "settlement rejected"}
	ErrInvalidAmount      = &PaymentError{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrInvalidRequest     = &PaymentError{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrInvalidState       = &PaymentError{Kind: KindInvalidState, Message: "invalid state"}
	ErrNotInitialized     = &PaymentError{Kind: KindNotInitialized, Message: "wallet engine not initialized"}
)

// NewError builds a PaymentError of the given kind with a specific message.
func NewError(kind ErrorKind, format string, args ...any) *PaymentError {
	return &PaymentError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a PaymentError of the given kind around a cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *PaymentError {
	return &PaymentError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first PaymentError in the chain, or "".
func KindOf(err error) ErrorKind {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
