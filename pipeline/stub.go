package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/sampler"
)

// DefaultSchedulerConfig is the scheduler configuration a Stub reports.
func DefaultSchedulerConfig() sampler.Config {
	return sampler.Config{
		"_class_name":         "DDPMScheduler",
		"num_train_timesteps": 1000,
		"beta_start":          0.00085,
		"beta_end":            0.012,
		"beta_schedule":       "linear",
		"clip_sample":         false,
	}
}

// StubLoader loads Stub pipelines. It needs no weights and is used for
// tests and dry runs.
type StubLoader struct {
	// LocalModels lists model IDs treated as already on disk.
	LocalModels []string

	// LoadErr, if set, is returned by FromPretrained.
	LoadErr error

	mu     sync.Mutex
	loads  []LoadCall
	latest *Stub
}

// LoadCall records one FromPretrained invocation.
type LoadCall struct {
	ModelID string
	Options LoadOptions
}

// FromPretrained returns a new Stub. With LocalFilesOnly set the model ID
// must be listed in LocalModels.
func (l *StubLoader) FromPretrained(ctx context.Context, modelID string, opts LoadOptions) (Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, LoadCall{ModelID: modelID, Options: opts})

	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	if opts.LocalFilesOnly && !slices.Contains(l.LocalModels, modelID) {
		return nil, fmt.Errorf("%w: %s is not available locally", ErrModelNotFound, modelID)
	}

	l.latest = &Stub{ModelID: modelID, DType: opts.DType}
	return l.latest, nil
}

// Loads returns every FromPretrained call made so far.
func (l *StubLoader) Loads() []LoadCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.loads)
}

// Latest returns the most recently loaded Stub, or nil.
func (l *StubLoader) Latest() *Stub {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

// Stub is a deterministic Pipeline. Pixels are filled with noise drawn from
// a source seeded by the request seed, weighted by the mask; unmasked pixels
// echo the input.
type Stub struct {
	ModelID string
	DType   device.DType

	// InpaintErr, if set, is returned by Inpaint.
	InpaintErr error

	// EmptyOutput makes Inpaint return an Output with no images.
	EmptyOutput bool

	mu       sync.Mutex
	device   device.Device
	closed   bool
	requests []Request
}

// Inpaint implements Pipeline.
func (s *Stub) Inpaint(ctx context.Context, req *Request) (*Output, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.requests = append(s.requests, *req)
	s.mu.Unlock()

	if s.InpaintErr != nil {
		return nil, s.InpaintErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for step := 1; step <= req.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Callback != nil {
			req.Callback(step, req.Steps)
		}
	}

	if s.EmptyOutput {
		return &Output{}, nil
	}
	return &Output{Images: []imaging.Float{stubFill(req)}}, nil
}

// stubFill blends seeded noise into the masked area of req.Image.
func stubFill(req *Request) imaging.Float {
	rng := rand.New(rand.NewSource(req.Seed))
	out := imaging.NewFloat(req.Width, req.Height, 3)
	for p, m := range req.MaskImage {
		for c := 0; c < 3; c++ {
			i := p*3 + c
			in := float32(req.Image.Pix[i]) / 255
			out.Pix[i] = m*rng.Float32() + (1-m)*in
		}
	}
	return out
}

// SchedulerConfig implements Pipeline.
func (s *Stub) SchedulerConfig() sampler.Config {
	return DefaultSchedulerConfig()
}

// To implements Pipeline.
func (s *Stub) To(ctx context.Context, dev device.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = dev
	return nil
}

// Device returns the device set by To.
func (s *Stub) Device() device.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Requests returns copies of every request Inpaint received.
func (s *Stub) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Close implements Pipeline.
func (s *Stub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
