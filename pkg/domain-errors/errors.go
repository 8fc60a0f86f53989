// Package domainerrors defines the coded error model shared by every
// registry. Services return these; the transport layer maps codes to HTTP
// statuses. Relayers key their retry logic off the code, so operations must
// never collapse distinct failures into a generic one.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	CodeInvalidInput      Code = "invalid_input"
	CodeBadRequest        Code = "bad_request"
	CodeUnauthorized      Code = "unauthorized"
	CodeSignatureMismatch Code = "signature_mismatch"
	CodeDigestReused      Code = "digest_reused"
	CodeNotRegistered     Code = "not_registered"
	CodeAlreadyRegistered Code = "already_registered"
	CodeNotDataOwner      Code = "not_data_owner"
	CodePaused            Code = "paused"
	CodeNonTransferable   Code = "non_transferable"
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeTimeout           Code = "timeout"
	CodeInternal          Code = "internal"
)

// DomainError carries a machine-readable code alongside a human message.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// New creates a coded domain error.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		de = nil
	}
	return false
}

// Is is a readable alias for HasCode at call sites.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the transport layer should write.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeSignatureMismatch:
		return http.StatusForbidden
	case CodeDigestReused, CodeConflict, CodeAlreadyRegistered:
		return http.StatusConflict
	case CodeNotRegistered, CodeNotFound:
		return http.StatusNotFound
	case CodeNotDataOwner:
		return http.StatusForbidden
	case CodePaused:
		return http.StatusServiceUnavailable
	case CodeNonTransferable:
		return http.StatusMethodNotAllowed
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
