package core

import "fmt"

// Error codes shared by the stream adapters
const (
	CodeClosed                = "CLOSED"
	CodeInvalidDemand         = "INVALID_DEMAND"
	CodeExcessiveDemand       = "EXCESSIVE_DEMAND"
	CodeDuplicateSubscription = "DUPLICATE_SUBSCRIPTION"
	CodeUnsolicitedData       = "UNSOLICITED_DATA"
	CodeSubscriberFailed      = "SUBSCRIBER_FAILED"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
)

// Error is a coded error. Two Errors match under errors.Is when their codes
// are equal, so callers compare against the sentinels below.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	// ErrClosed is returned by every operation on a closed write stream and
	// fails the completion of items still queued at close
	ErrClosed = &Error{Code: CodeClosed, Message: "stream is closed"}

	// ErrInvalidDemand is signaled to a subscriber requesting n <= 0 (rule 3.9)
	ErrInvalidDemand = &Error{Code: CodeInvalidDemand, Message: "subscriber cannot request less than 1 element"}

	// ErrExcessiveDemand is signaled when outstanding demand would exceed 2^63-1 (rule 3.17)
	ErrExcessiveDemand = &Error{Code: CodeExcessiveDemand, Message: "subscriber has more than 2^63-1 elements pending"}

	// ErrDuplicateSubscription is signaled when a subscriber subscribes twice (rule 1.10)
	ErrDuplicateSubscription = &Error{Code: CodeDuplicateSubscription, Message: "cannot subscribe multiple times with the same subscriber"}

	// ErrUnsolicitedData is raised when an upstream delivers more than was requested
	ErrUnsolicitedData = &Error{Code: CodeUnsolicitedData, Message: "data received but was not requested"}

	// ErrSubscriberFailed wraps a panic raised by a subscriber callback
	ErrSubscriberFailed = &Error{Code: CodeSubscriberFailed, Message: "subscriber callback failed"}

	// ErrInvalidArgument reports a bad configuration or argument
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// NewError creates a coded error with a formatted message
func NewError(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromPanic converts a recovered panic value into an ErrSubscriberFailed error
func FromPanic(r interface{}) error {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	return &Error{Code: CodeSubscriberFailed, Message: ErrSubscriberFailed.Message, Cause: cause}
}
