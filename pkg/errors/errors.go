package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures seen while archiving a creator
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeFetch        ErrorType = "fetch_error"
	ErrorTypeParse        ErrorType = "parse_error"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeCanceled     ErrorType = "canceled"
)

// Error is the error type returned by the itch client, parser and scraper
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Code)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a NotFound error for the given URL
func NotFound(url, message string) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message, Code: 404, URL: url}
}

// Fetch builds a FetchError; code is 0 for transport failures
func Fetch(url string, code int, err error) *Error {
	msg := "request failed"
	if code != 0 {
		msg = "unexpected status"
	}
	return &Error{Type: ErrorTypeFetch, Message: msg, Code: code, URL: url, Err: err}
}

// Parse builds a ParseError
func Parse(url, message string, err error) *Error {
	return &Error{Type: ErrorTypeParse, Message: message, URL: url, Err: err}
}

// InvalidInput builds an InvalidInput error
func InvalidInput(message string) *Error {
	return &Error{Type: ErrorTypeInvalidInput, Message: message}
}

// Canceled wraps a context error for a request or run that was stopped
func Canceled(url string, err error) *Error {
	return &Error{Type: ErrorTypeCanceled, Message: "canceled", URL: url, Err: err}
}

// TypeOf returns the ErrorType carried by err. Context cancellation maps to
// ErrorTypeCanceled and anything unclassified to ErrorTypeFetch.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	if stderrors.Is(err, context.Canceled) {
		return ErrorTypeCanceled
	}
	return ErrorTypeFetch
}

func IsNotFound(err error) bool     { return isType(err, ErrorTypeNotFound) }
func IsFetch(err error) bool        { return isType(err, ErrorTypeFetch) }
func IsParse(err error) bool        { return isType(err, ErrorTypeParse) }
func IsInvalidInput(err error) bool { return isType(err, ErrorTypeInvalidInput) }

// IsCanceled reports whether err stems from a cancelled context
func IsCanceled(err error) bool {
	return TypeOf(err) == ErrorTypeCanceled || stderrors.Is(err, context.Canceled)
}

func isType(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}
