package handlers

import "errors"

// Exit codes reported by the CLI.
const (
	ExitOK             = 0
	ExitValidation     = 1
	ExitPartialFailure = 2
	ExitTotalFailure   = 3
	ExitDiscovery      = 4
)

// ExitError carries the process exit code alongside the underlying error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit wraps err with an exit code.
func Exit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode extracts the exit code from an error chain. Plain errors map to
// the generic validation/user-error code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitValidation
}
