package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError is a configuration problem with an instruction for fixing it.
type ConfigError struct {
	Code    string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Configuration error codes.
const (
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeUnknownBackend = "UNKNOWN_BACKEND"
	ErrCodeMissingAuth    = "MISSING_AUTH"
)

// ErrMissingConfig reports a required variable that is unset.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your environment or .env file", varName),
	}
}

// ErrInvalidValue reports a variable whose value cannot be used.
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s %q: %s", varName, value, reason),
		Action:  fmt.Sprintf("Correct %s in your environment or .env file", varName),
	}
}

// ErrUnknownBackend reports an unsupported INPAINT_BACKEND.
func ErrUnknownBackend(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnknownBackend,
		Message: fmt.Sprintf("Unknown inpainting backend %q", name),
		Action:  fmt.Sprintf("Set INPAINT_BACKEND to one of: %s", strings.Join(Backends(), ", ")),
	}
}

// ErrMissingAuth reports a backend that needs credentials.
func ErrMissingAuth(backend, varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("The %s backend needs credentials", backend),
		Action:  fmt.Sprintf("Set %s in your environment or .env file", varName),
	}
}

// AsConfigError unwraps err to a *ConfigError.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// GetErrorCode returns the code of a ConfigError, or "".
func GetErrorCode(err error) string {
	if ce, ok := AsConfigError(err); ok {
		return ce.Code
	}
	return ""
}
