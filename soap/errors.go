package soap

import (
	"errors"
	"fmt"
)

// Failure reasons carried by TransportError.
const (
	ReasonHTTPStatus = "http_status"
	ReasonTimeout    = "timeout"
	ReasonConnection = "connection"
	ReasonCanceled   = "canceled"
	ReasonThrottled  = "throttled"
)

// Machine-readable codes returned by ErrorCode for the non-application kinds.
const (
	CodeHTTPError       = "HTTP_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeCanceled        = "CANCELED"
	CodeConnectionError = "CONNECTION_ERROR"
	CodeThrottled       = "THROTTLED"
	CodeSOAPFault       = "SOAP_FAULT"
	CodeParseError      = "PARSE_ERROR"
)

// TransportError is returned when the HTTP exchange itself fails: the
// request could not be sent, timed out, or came back with a non-2xx status.
type TransportError struct {
	Method string
	Reason string
	// StatusCode is set when Reason is ReasonHTTPStatus.
	StatusCode int
	// ResponseBody contains the body returned with a non-2xx status.
	ResponseBody []byte
	Err          error
}

func (e *TransportError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("rs.ge %s: HTTP status %d", e.Method, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("rs.ge %s: %s: %v", e.Method, e.Reason, e.Err)
		}
		return fmt.Sprintf("rs.ge %s: %s", e.Method, e.Reason)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request exceeded its deadline. The outcome
// of a timed-out call on the remote side is unknown.
func (e *TransportError) Timeout() bool {
	return e.Reason == ReasonTimeout
}

// SOAPFaultError is returned when the response envelope carries a
// <soap:Fault>. The fault string is kept verbatim.
type SOAPFaultError struct {
	Method  string
	Code    string
	Message string
}

func (e *SOAPFaultError) Error() string {
	return fmt.Sprintf("rs.ge %s: soap fault: %s", e.Method, e.Message)
}

// ParseError is returned when the response does not have the expected
// shape: the envelope does not decode, the <MethodResult> wrapper is
// missing, or a required field is absent or malformed.
type ParseError struct {
	Method  string
	Element string
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "rs.ge " + e.Method + ": " + e.Reason
	if e.Element != "" {
		msg += " <" + e.Element + ">"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ApplicationError is returned when rs.ge rejects a request through a
// non-zero <error_code> inside an otherwise successful response.
type ApplicationError struct {
	Method  string
	Code    string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("rs.ge %s: error %s: %s", e.Method, e.Code, e.Message)
}

// ErrorCode returns the machine-readable code for err, or "" if err is not
// one of the transport's error kinds.
func ErrorCode(err error) string {
	var (
		appErr   *ApplicationError
		faultErr *SOAPFaultError
		parseErr *ParseError
		tErr     *TransportError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr.Code
	case errors.As(err, &faultErr):
		return CodeSOAPFault
	case errors.As(err, &parseErr):
		return CodeParseError
	case errors.As(err, &tErr):
		switch tErr.Reason {
		case ReasonTimeout:
			return CodeTimeout
		case ReasonCanceled:
			return CodeCanceled
		case ReasonConnection:
			return CodeConnectionError
		case ReasonThrottled:
			return CodeThrottled
		}
		return CodeHTTPError
	}
	return ""
}
