package library

import (
	"errors"
	"fmt"
)

// Code is a machine-readable ledger error code.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeDuplicateBorrow     Code = "DUPLICATE_BORROW"
	CodeOutOfStock          Code = "OUT_OF_STOCK"
	CodeReferentialConflict Code = "REFERENTIAL_CONFLICT"
	CodeTransientConflict   Code = "TRANSIENT_CONFLICT"
	CodeStorageFailure      Code = "STORAGE_FAILURE"
	CodeAlreadyExists       Code = "ALREADY_EXISTS"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeInvalidStock        Code = "INVALID_STOCK"
	CodeValidation          Code = "VALIDATION"
)

// Error is a ledger error carrying a Code. Two errors match under errors.Is
// when their codes are equal, so callers compare against the sentinels below.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Rejection reports whether the error is an expected business outcome rather
// than a storage problem.
func (e *Error) Rejection() bool {
	switch e.Code {
	case CodeTransientConflict, CodeStorageFailure:
		return false
	}
	return true
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrDuplicateBorrow     = &Error{Code: CodeDuplicateBorrow, Message: "already borrowed, cannot borrow twice"}
	ErrOutOfStock          = &Error{Code: CodeOutOfStock, Message: "out of stock"}
	ErrReferentialConflict = &Error{Code: CodeReferentialConflict, Message: "open borrow records reference this entity"}
	ErrTransientConflict   = &Error{Code: CodeTransientConflict, Message: "transaction lost a race, retry"}
	ErrStorageFailure      = &Error{Code: CodeStorageFailure, Message: "storage failure"}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrInvalidCredentials  = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrInvalidStock        = &Error{Code: CodeInvalidStock, Message: "quantity cannot be negative"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return newError(CodeNotFound, format, args...)
}

func validation(format string, args ...any) *Error {
	return newError(CodeValidation, format, args...)
}

func storageFailure(op string, err error) *Error {
	return &Error{Code: CodeStorageFailure, Message: op, cause: err}
}

// CodeOf extracts the Code from err, or "" when err is not a ledger error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRejection reports whether err is an expected business-rule rejection.
func IsRejection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Rejection()
}
