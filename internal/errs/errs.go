package errs

import (
	"fmt"
	"runtime"
)

// Code classifies engine failures. Every calculation either returns a
// complete result or exactly one of these codes; there is no local recovery.
type Code int32

const (
	CodeUnknown Code = iota
	CodeMathError
	CodeOracleNotFound
	CodeInvalidOracle
	CodeSpotMarketNotFound
	CodePerpMarketNotFound
	CodeUnableToLoadSpotMarketAccount
	CodeInvalidMarginRatio
	CodeInvalidSpotPosition
	CodeInvalidMarginCalculation
)

func (c Code) String() string {
	switch c {
	case CodeMathError:
		return "MathError"
	case CodeOracleNotFound:
		return "OracleNotFound"
	case CodeInvalidOracle:
		return "InvalidOracle"
	case CodeSpotMarketNotFound:
		return "SpotMarketNotFound"
	case CodePerpMarketNotFound:
		return "PerpMarketNotFound"
	case CodeUnableToLoadSpotMarketAccount:
		return "UnableToLoadSpotMarketAccount"
	case CodeInvalidMarginRatio:
		return "InvalidMarginRatio"
	case CodeInvalidSpotPosition:
		return "InvalidSpotPosition"
	case CodeInvalidMarginCalculation:
		return "InvalidMarginCalculation"
	default:
		return "Unknown"
	}
}

// Error is a classified failure with the call site that raised it.
// The location makes arithmetic failures inside deep valuation paths
// diagnosable from a single log line.
type Error struct {
	Code     Code
	Location string
	Detail   string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at %s", e.Code, e.Location)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Location, e.Detail)
}

// New creates an Error tagged with the caller's file:line.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:     code,
		Location: callerLocation(2),
		Detail:   fmt.Sprintf(format, args...),
	}
}

// NewAt is like New but skips extra frames, for helpers that raise on
// behalf of their caller (checked casts, checked division).
func NewAt(skip int, code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:     code,
		Location: callerLocation(skip + 2),
		Detail:   fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the Code from an error, or CodeUnknown for foreign errors.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// Is supports errors.Is matching on the code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	// Trim to the last two path segments to keep log lines short.
	short := file
	slashes := 0
	for i := len(file) - 1; i >= 0; i-- {
		if file[i] == '/' {
			slashes++
			if slashes == 2 {
				short = file[i+1:]
				break
			}
		}
	}
	return fmt.Sprintf("%s:%d", short, line)
}
