package inpaint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/logging"
	"go_inpaint/pipeline"
	"go_inpaint/sampler"
)

// InitOptions are the recognised initialisation options.
type InitOptions struct {
	// NoHalf disables float16 weights.
	NoHalf bool

	// LocalFilesOnly forbids fetching weights. When nil, SDRunLocal
	// decides.
	LocalFilesOnly *bool

	// SDRunLocal is the fallback for LocalFilesOnly.
	SDRunLocal bool

	// Callback receives denoising progress.
	Callback pipeline.ProgressFunc

	// Probe detects CUDA. Nil uses nvidia-smi.
	Probe device.Probe

	// Backend names the pipeline implementation in logs and history.
	Backend string

	// Recorder, if set, receives every Run outcome.
	Recorder Recorder
}

// Model is an initialised inpainting adapter. It owns its pipeline until
// Close.
type Model struct {
	spec     ModelSpec
	pipe     pipeline.Pipeline
	device   device.Device
	dtype    device.DType
	callback pipeline.ProgressFunc
	backend  string
	recorder Recorder
	logger   *logging.Logger
}

// New looks up name, selects a precision for dev, loads the pretrained
// pipeline and places it on dev. Loader and placement errors are returned
// as the pipeline produced them.
func New(ctx context.Context, name string, dev device.Device, loader pipeline.Loader, opts InitOptions, logger *logging.Logger) (*Model, error) {
	spec, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, ErrNilLoader
	}
	logger = logging.OrNop(logger).Named("inpaint")

	probe := opts.Probe
	if probe == nil {
		probe = device.NvidiaSMIProbe{}
	}
	cudaAvailable := dev == device.CUDA && probe.CUDAAvailable(ctx)
	dtype := device.SelectDType(dev, cudaAvailable, opts.NoHalf)

	localOnly := opts.SDRunLocal
	if opts.LocalFilesOnly != nil {
		localOnly = *opts.LocalFilesOnly
	}

	logger.Info("loading pipeline",
		zap.String("model", spec.Name),
		zap.String("model_id", spec.ModelID),
		zap.String("device", string(dev)),
		zap.String("dtype", string(dtype)),
		zap.Bool("local_files_only", localOnly))

	pipe, err := loader.FromPretrained(ctx, spec.ModelID, pipeline.LoadOptions{
		LocalFilesOnly: localOnly,
		DType:          dtype,
	})
	if err != nil {
		return nil, err
	}
	if err := pipe.To(ctx, dev); err != nil {
		_ = pipe.Close()
		return nil, err
	}

	return &Model{
		spec:     spec,
		pipe:     pipe,
		device:   dev,
		dtype:    dtype,
		callback: opts.Callback,
		backend:  opts.Backend,
		recorder: opts.Recorder,
		logger:   logger,
	}, nil
}

// Spec returns the model's static metadata.
func (m *Model) Spec() ModelSpec { return m.spec }

// DType returns the precision the weights were loaded in.
func (m *Model) DType() device.DType { return m.dtype }

// Device returns the device the pipeline was placed on.
func (m *Model) Device() device.Device { return m.device }

// IsDownloaded always reports true; see ModelSpec.IsDownloaded.
func (m *Model) IsDownloaded() bool { return m.spec.IsDownloaded() }

// Close releases the pipeline.
func (m *Model) Close() error {
	return m.pipe.Close()
}

// Forward inpaints img (RGB) where mask is 255 and returns the result in
// BGR order at the input size.
func (m *Model) Forward(ctx context.Context, img imaging.RGB, mask imaging.Mask, cfg Config) (imaging.RGB, error) {
	if err := imaging.SameSize(img, mask); err != nil {
		return imaging.RGB{}, err
	}
	if err := validateMaskBlur(cfg.SDMaskBlur); err != nil {
		return imaging.RGB{}, err
	}

	scheduler, err := sampler.Get(cfg.SDSampler, m.pipe.SchedulerConfig())
	if err != nil {
		return imaging.RGB{}, err
	}

	if cfg.SDMaskBlur != 0 {
		mask = imaging.GaussianBlur(mask, cfg.SDMaskBlur)
	}

	req := &pipeline.Request{
		Prompt:         cfg.Prompt,
		NegativePrompt: cfg.NegativePrompt,
		Image:          img,
		MaskImage:      imaging.NormalizeMask(mask),
		Height:         img.Height,
		Width:          img.Width,
		Steps:          cfg.SDSteps,
		GuidanceScale:  cfg.SDGuidanceScale,
		Scheduler:      scheduler,
		Seed:           ResolveSeed(cfg.SDSeed),
		Callback:       m.progress(),
		OutputType:     pipeline.OutputTypeArray,
	}
	out, err := m.pipe.Inpaint(ctx, req)
	if err != nil {
		return imaging.RGB{}, err
	}
	if out == nil || len(out.Images) == 0 {
		return imaging.RGB{}, ErrEmptyOutput
	}

	result, err := imaging.Denormalize(out.Images[0])
	if err != nil {
		return imaging.RGB{}, err
	}
	if result.Width != img.Width || result.Height != img.Height {
		return imaging.RGB{}, fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrOutputSize, result.Width, result.Height, img.Width, img.Height)
	}
	return imaging.SwapRB(result), nil
}

// progress wraps the stored callback with debug logging.
func (m *Model) progress() pipeline.ProgressFunc {
	return func(step, total int) {
		m.logger.Debug("denoising step", logging.StepFields(step, total)...)
		if m.callback != nil {
			m.callback(step, total)
		}
	}
}

// ForwardPostProcess optionally matches the result's histogram to the
// preserved area of img and returns a freshly blurred mask when blur is
// configured. img is returned unchanged.
func (m *Model) ForwardPostProcess(result, img imaging.RGB, mask imaging.Mask, cfg Config) (imaging.RGB, imaging.RGB, imaging.Mask, error) {
	if err := validateMaskBlur(cfg.SDMaskBlur); err != nil {
		return imaging.RGB{}, imaging.RGB{}, imaging.Mask{}, err
	}
	if cfg.SDMatchHistograms {
		matched, err := imaging.MatchHistograms(result, imaging.SwapRB(img), mask)
		if err != nil {
			return imaging.RGB{}, imaging.RGB{}, imaging.Mask{}, err
		}
		result = matched
	}
	if cfg.SDMaskBlur != 0 {
		mask = imaging.GaussianBlur(mask, cfg.SDMaskBlur)
	}
	return result, img, mask, nil
}
