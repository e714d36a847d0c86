package core

import (
	"context"
	"errors"
)

// Process exit codes. Signal exits follow the 128+N convention.
const (
	ExitCodeSuccess     = 0
	ExitCodeError       = 1
	ExitCodeConfigError = 2
	ExitCodeSIGINT      = 130
)

// ExitCodeFor maps a command error to a process exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, context.Canceled):
		return ExitCodeSIGINT
	default:
		if _, ok := AsConfigError(err); ok {
			return ExitCodeConfigError
		}
		return ExitCodeError
	}
}

// ExitCodeName returns a short description of code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeConfigError:
		return "configuration error"
	case ExitCodeSIGINT:
		return "interrupted"
	default:
		return "unknown"
	}
}
