package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"library-ledger/library"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitRejected     = 1 // The ledger refused the operation (out of stock, duplicate, ...)
	ExitCommandError = 2 // Bad input, storage failure, unreadable files
)

// ExitError carries an exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Ledger rejections map to
// ExitRejected; anything else unclassified is a command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if library.IsRejection(err) {
		return ExitRejected
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope for command output.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command in JSON output.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data as JSON, or calls text to render it for humans.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Failure reports err in JSON mode. In text mode the error is left to main,
// which prints it on stderr.
func (f *OutputFormatter) Failure(err error) {
	if f.Format != "json" {
		return
	}
	resp := &ResponseError{Code: string(library.CodeOf(err)), Message: err.Error()}
	var ledgerErr *library.Error
	if errors.As(err, &ledgerErr) {
		resp.Details = ledgerErr.Details
	}
	if resp.Code == "" {
		resp.Code = "COMMAND_ERROR"
	}
	_ = json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: resp})
}
