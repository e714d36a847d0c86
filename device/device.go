// Package device names compute devices and picks inference precision.
package device

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDevice is returned by Parse for an unrecognised device string.
var ErrUnknownDevice = errors.New("device: unknown device")

// Device is a compute target for a pipeline.
type Device string

// Supported devices.
const (
	CPU  Device = "cpu"
	CUDA Device = "cuda"
	MPS  Device = "mps"
)

// Parse converts s to a Device. An index suffix such as "cuda:1" is
// accepted and dropped; matching is case-insensitive.
func Parse(s string) (Device, error) {
	name, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch d := Device(name); d {
	case CPU, CUDA, MPS:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, s)
	}
}

// DType is the floating point precision weights are loaded in.
type DType string

// Supported precisions.
const (
	Float16 DType = "float16"
	Float32 DType = "float32"
)

// SelectDType returns Float16 only when dev is CUDA, CUDA is actually
// available and half precision has not been disabled. Every other
// combination yields Float32.
// This is a pure function with no side effects.
func SelectDType(dev Device, cudaAvailable, noHalf bool) DType {
	if dev == CUDA && cudaAvailable && !noHalf {
		return Float16
	}
	return Float32
}
