package inpaint

import "errors"

// Sentinel errors for adapter operations. Errors returned by the
// pipeline are passed through untouched and never wrapped in these.
var (
	ErrUnknownModel   = errors.New("inpaint: unknown model")
	ErrDuplicateModel = errors.New("inpaint: model already registered")
	ErrInvalidSpec    = errors.New("inpaint: invalid model spec")
	ErrInvalidConfig  = errors.New("inpaint: invalid config")
	ErrNilLoader      = errors.New("inpaint: loader is nil")
	ErrEmptyOutput    = errors.New("inpaint: pipeline returned no images")
	ErrOutputSize     = errors.New("inpaint: pipeline output size differs from input")
)
