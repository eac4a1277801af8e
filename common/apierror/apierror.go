// Package apierror defines the failure taxonomy shared by both proxies and
// maps each kind onto the HTTP status reported to the browser.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a proxy failure.
type Kind string

const (
	KindCredentialFormat   Kind = "credential_format"
	KindMissingCredentials Kind = "missing_credentials"
	KindConfiguration      Kind = "configuration"
	KindPayloadParse       Kind = "payload_parse"
	KindUpstream           Kind = "upstream"
	KindMethodNotAllowed   Kind = "method_not_allowed"
	KindInternal           Kind = "internal"
)

// DefaultStatus returns the HTTP status a kind maps to unless overridden.
func DefaultStatus(kind Kind) int {
	switch kind {
	case KindCredentialFormat, KindMissingCredentials:
		return http.StatusUnauthorized
	case KindPayloadParse:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure that has already been reduced to what the caller may see.
// Message and Details end up in the response body; Err is kept for logging
// and must not carry secret material either.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details string
	Fields  map[string]any
	Err     error
}

// New creates an Error with the kind's default status.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Status:  DefaultStatus(kind),
		Message: message,
	}
}

// Errorf is New with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails sets the details string shown to the caller.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// WithStatus overrides the HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithCause records the underlying error. Its text is used as details when
// none were set explicitly.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// With adds an extra field to the response body.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// Body returns the JSON object sent to the caller: {error, details?, ...fields}.
func (e *Error) Body() map[string]any {
	body := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		body[k] = v
	}
	body["error"] = e.Message
	if e.Details != "" {
		body["details"] = e.Details
	}
	return body
}

// From converts any error into an *Error. Errors that are not already
// classified become KindInternal with a generic message, so their text is
// never shown to the caller.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
