// Package pipeline defines the contract between the inpainting adapter and
// the generative pipeline that actually runs the model.
//
// A Loader resolves a model identifier into a Pipeline. The adapter owns the
// pipeline for its lifetime, threads a scheduler through every Inpaint call
// and never reconfigures the pipeline between calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/sampler"
)

// Sentinel errors shared by pipeline implementations.
var (
	ErrModelNotFound  = errors.New("pipeline: model not available")
	ErrInvalidRequest = errors.New("pipeline: invalid inpaint request")
	ErrClosed         = errors.New("pipeline: pipeline is closed")
)

// OutputTypeArray asks for raw float arrays instead of encoded images.
const OutputTypeArray = "np"

// ProgressFunc is invoked after each denoising step.
type ProgressFunc func(step, total int)

// LoadOptions controls how weights are fetched and stored.
type LoadOptions struct {
	// LocalFilesOnly forbids network fetches of weights.
	LocalFilesOnly bool

	// DType is the precision to load weights in.
	DType device.DType
}

// Request is one inpainting invocation.
type Request struct {
	Prompt         string
	NegativePrompt string

	// Image is the RGB input.
	Image imaging.RGB

	// MaskImage is Height×Width, 1.0 marks pixels to repaint.
	MaskImage []float32

	Height        int
	Width         int
	Steps         int
	GuidanceScale float64

	// Scheduler is used for this call only.
	Scheduler sampler.Scheduler

	// Seed drives the noise generator for this call.
	Seed int64

	Callback   ProgressFunc
	OutputType string
}

// Validate checks the request shape. It does not judge numeric ranges,
// which are the caller's concern.
func (r *Request) Validate() error {
	if err := r.Image.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Width != r.Image.Width || r.Height != r.Image.Height {
		return fmt.Errorf("%w: size %dx%d does not match image %dx%d",
			ErrInvalidRequest, r.Width, r.Height, r.Image.Width, r.Image.Height)
	}
	if len(r.MaskImage) != r.Width*r.Height {
		return fmt.Errorf("%w: mask has %d values, want %d",
			ErrInvalidRequest, len(r.MaskImage), r.Width*r.Height)
	}
	if r.Steps <= 0 {
		return fmt.Errorf("%w: steps %d", ErrInvalidRequest, r.Steps)
	}
	if r.OutputType != "" && r.OutputType != OutputTypeArray {
		return fmt.Errorf("%w: output type %q", ErrInvalidRequest, r.OutputType)
	}
	return nil
}

// Output holds generated images as float arrays in [0,1].
type Output struct {
	Images []imaging.Float
}

// Pipeline is a loaded inpainting model.
type Pipeline interface {
	// Inpaint runs one generation. Implementations must honor ctx.
	Inpaint(ctx context.Context, req *Request) (*Output, error)

	// SchedulerConfig returns the pipeline's own scheduler configuration.
	// Callers must treat it as read-only.
	SchedulerConfig() sampler.Config

	// To places the pipeline on a compute device.
	To(ctx context.Context, dev device.Device) error

	Close() error
}

// Loader resolves model identifiers to pipelines.
type Loader interface {
	FromPretrained(ctx context.Context, modelID string, opts LoadOptions) (Pipeline, error)
}
