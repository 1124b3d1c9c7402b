package usecase

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrorMethodNotAllowed    ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorConfiguration       ErrorCode = "CONFIGURATION_ERROR"
	ErrorUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"
	ErrorUpstream            ErrorCode = "UPSTREAM_ERROR"
	ErrorEmptyReply          ErrorCode = "EMPTY_REPLY"
	ErrorInternal            ErrorCode = "INTERNAL_ERROR"
)

// Caller-facing messages. The chat page shows these verbatim or falls back
// to a localized text based on Code.
const (
	MessageMethodNotAllowed = "Method not allowed."
	MessageMissingAPIKey    = "OpenAI API key is missing."
	MessageInvalidJSON      = "Request body must be valid JSON."
	MessageMessagesRequired = "Messages are required."
	MessageRequestFailed    = "OpenAI request failed."
	MessageEmptyReply       = "OpenAI response was empty."
	MessageInternal         = "Chat request failed."
)

// Error is the single error type that leaves the usecase layer. Every value
// maps to exactly one HTTP status and one response body.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	// Status is only set for ErrorUpstream and carries the provider's status.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatus returns the response status for the error.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case ErrorInvalidInput:
		return http.StatusBadRequest
	case ErrorMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorUpstreamUnreachable, ErrorEmptyReply:
		return http.StatusBadGateway
	case ErrorUpstream:
		if e.Status > 0 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DisplayMessage returns Message, or a generic text when none was set.
func (e *Error) DisplayMessage() string {
	if e == nil || e.Message == "" {
		return MessageInternal
	}
	return e.Message
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

// MethodNotAllowed is raised by transports before the usecase runs.
func MethodNotAllowed(method string) *Error {
	return newError(ErrorMethodNotAllowed, "method_"+method, MessageMethodNotAllowed, nil)
}

// InvalidInput is raised by transports that cannot hand a body to the usecase.
func InvalidInput(reason, message string, err error) *Error {
	return newError(ErrorInvalidInput, reason, message, err)
}
