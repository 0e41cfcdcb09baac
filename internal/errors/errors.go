package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess       Code = 0
	CodeInternal      Code = 1
	CodeUsage         Code = 2
	CodeAuth          Code = 10
	CodeRateLimited   Code = 11
	CodeExternal      Code = 12
	CodeUnsupported   Code = 13
	CodeCanceled      Code = 14
	CodePartialStrict Code = 15
	CodeBlocked       Code = 16
	CodeSigner        Code = 17
	CodeMalformedKey  Code = 18

	CodeInsufficientBalance Code = 20
	CodeNoHoldings          Code = 21
	CodeNoPosition          Code = 22
	CodeNoWithdrawTarget    Code = 23
)

var codeNames = map[Code]string{
	CodeSuccess:             "success",
	CodeInternal:            "internal",
	CodeUsage:               "usage",
	CodeAuth:                "auth",
	CodeRateLimited:         "rate_limited",
	CodeExternal:            "external_call_failure",
	CodeUnsupported:         "unsupported",
	CodeCanceled:            "canceled",
	CodePartialStrict:       "partial_strict",
	CodeBlocked:             "blocked",
	CodeSigner:              "signer",
	CodeMalformedKey:        "malformed_key",
	CodeInsufficientBalance: "insufficient_balance",
	CodeNoHoldings:          "no_holdings",
	CodeNoPosition:          "no_position",
	CodeNoWithdrawTarget:    "no_withdraw_target",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", int(c))
}

// Error is a typed CLI error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HasCode reports whether the outermost typed error in err's chain carries code.
func HasCode(err error, code Code) bool {
	cliErr, ok := As(err)
	return ok && cliErr.Code == code
}

// CodeOf returns the code of the outermost typed error, or CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if cliErr, ok := As(err); ok {
		return cliErr.Code
	}
	return CodeInternal
}

func ExitCode(err error) int {
	return int(CodeOf(err))
}
