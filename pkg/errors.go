package gate

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	BadRequest          ErrorCode = "bad-request"
	MalformedRequest    ErrorCode = "malformed-request"
	ChallengeExpired    ErrorCode = "challenge-expired"
	InsufficientPayment ErrorCode = "insufficient-payment"
	InsufficientFunds   ErrorCode = "insufficient-funds"
	AddressExhausted    ErrorCode = "address-exhausted"
	UpstreamUnavailable ErrorCode = "upstream-unavailable"
	BroadcastFailed     ErrorCode = "broadcast-failed"
	UnexpectedChallenge ErrorCode = "unexpected-challenge"
	Aborted             ErrorCode = "aborted"
	InvalidTxn          ErrorCode = "invalid-txn"
	NotAvailable        ErrorCode = "not-available"
	NotFound            ErrorCode = "not-found"
	L1Error             ErrorCode = "l1-error"
	DBConflict          ErrorCode = "db-conflict"
	UnknownError        ErrorCode = "unknown-error"
)

type ErrorInfo struct {
	Code    ErrorCode // machine-readble ErrorCode enumeration
	Message string    // human-readable debug message (in production, logged on the server only)
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

func NewErr(code ErrorCode, format string, args ...any) error {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCodeOf returns the code of the first ErrorInfo in err's chain,
// or UnknownError.
func ErrorCodeOf(err error) ErrorCode {
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info.Code
	}
	return UnknownError
}

func IsError(err error, ofType ErrorCode) bool {
	var info *ErrorInfo
	return errors.As(err, &info) && info.Code == ofType
}

func IsNotFoundError(err error) bool {
	return IsError(err, NotFound) || IsError(err, UpstreamUnavailable)
}
