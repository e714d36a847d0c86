// Package sdapi runs inpainting on an AUTOMATIC1111 compatible server
// through its /sdapi/v1 HTTP API.
package sdapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/logging"
	"go_inpaint/pipeline"
	"go_inpaint/sampler"
)

// Defaults applied by New.
const (
	DefaultTimeout      = 10 * time.Minute
	DefaultPollInterval = time.Second
)

// Config configures the HTTP client.
type Config struct {
	// Host is the server base URL, e.g. http://127.0.0.1:7860.
	Host string

	// Timeout bounds every HTTP request.
	Timeout time.Duration

	// PollInterval is how often progress is polled during generation.
	PollInterval time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Loader implements pipeline.Loader against one server.
type Loader struct {
	host         string
	client       *http.Client
	pollInterval time.Duration
	logger       *logging.Logger
}

// New returns a Loader for cfg.Host.
func New(cfg Config, logger *logging.Logger) (*Loader, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, ErrMissingHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Loader{
		host:         host,
		client:       client,
		pollInterval: cfg.PollInterval,
		logger:       logging.OrNop(logger).Named("sdapi"),
	}, nil
}

func (l *Loader) url(path string) string {
	return l.host + path
}

// Models lists the checkpoints known to the server.
func (l *Loader) Models(ctx context.Context) ([]Model, error) {
	models, err := GET[[]Model](ctx, l.client, l.url("/sdapi/v1/sd-models"))
	if err != nil {
		return nil, err
	}
	return *models, nil
}

// FromPretrained binds a pipeline to the checkpoint named by modelID.
// The server owns weights and precision, so opts.DType is advisory.
func (l *Loader) FromPretrained(ctx context.Context, modelID string, opts pipeline.LoadOptions) (pipeline.Pipeline, error) {
	models, err := l.Models(ctx)
	if err != nil {
		return nil, err
	}

	checkpoint := ""
	for _, m := range models {
		if m.Matches(modelID) {
			checkpoint = m.Title
			break
		}
	}
	if checkpoint == "" {
		if opts.LocalFilesOnly {
			return nil, fmt.Errorf("%w: %s is not installed on %s", pipeline.ErrModelNotFound, modelID, l.host)
		}
		l.logger.Warn("checkpoint not listed by server, passing through",
			zap.String("model_id", modelID))
		checkpoint = modelID
	}

	options, err := GET[map[string]any](ctx, l.client, l.url("/sdapi/v1/options"))
	if err != nil {
		return nil, err
	}

	l.logger.Info("pipeline loaded",
		zap.String("checkpoint", checkpoint),
		zap.String("dtype", string(opts.DType)))

	return &Pipeline{
		loader:     l,
		checkpoint: checkpoint,
		scheduler:  schedulerConfig(*options),
	}, nil
}

// Pipeline is a checkpoint on a remote server.
type Pipeline struct {
	loader     *Loader
	checkpoint string
	scheduler  sampler.Config

	mu     sync.Mutex
	device device.Device
	closed bool
}

// Inpaint implements pipeline.Pipeline.
func (p *Pipeline) Inpaint(ctx context.Context, req *pipeline.Request) (*pipeline.Output, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, pipeline.ErrClosed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	var wg sync.WaitGroup
	reported := 0
	if req.Callback != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reported = p.poll(pollCtx, req)
		}()
	}

	var resp ImageToImageResponse
	err = POST(ctx, p.loader.client, p.loader.url("/sdapi/v1/img2img"), body, &resp)
	stopPolling()
	wg.Wait()
	if err != nil {
		return nil, err
	}

	if req.Callback != nil && reported < req.Steps {
		req.Callback(req.Steps, req.Steps)
	}

	if len(resp.Images) == 0 {
		return &pipeline.Output{}, nil
	}
	img, err := decodeImage(resp.Images[0], req.Width, req.Height)
	if err != nil {
		return nil, err
	}
	return &pipeline.Output{Images: []imaging.Float{imaging.ToFloat(img)}}, nil
}

func (p *Pipeline) buildRequest(req *pipeline.Request) (*ImageToImageRequest, error) {
	initPNG, err := imaging.EncodePNG(req.Image)
	if err != nil {
		return nil, err
	}
	mask, err := imaging.MaskFromFloat(req.Width, req.Height, req.MaskImage)
	if err != nil {
		return nil, err
	}
	maskPNG, err := imaging.EncodeMaskPNG(mask)
	if err != nil {
		return nil, err
	}

	return &ImageToImageRequest{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		InitImages:        []string{base64.StdEncoding.EncodeToString(initPNG)},
		Mask:              base64.StdEncoding.EncodeToString(maskPNG),
		MaskBlur:          0,
		InpaintingFill:    FillOriginal,
		DenoisingStrength: 1,
		SamplerName:       sampler.WebUIName(req.Scheduler.Sampler),
		Seed:              req.Seed,
		Steps:             req.Steps,
		CFGScale:          req.GuidanceScale,
		Width:             req.Width,
		Height:            req.Height,
		BatchSize:         1,
		NIter:             1,
		OverrideSettings: map[string]any{
			"sd_model_checkpoint": p.checkpoint,
		},
		OverrideSettingsRestoreAfterwards: true,
	}, nil
}

// poll forwards server progress to req.Callback until ctx is done and
// returns the last step reported.
func (p *Pipeline) poll(ctx context.Context, req *pipeline.Request) int {
	ticker := time.NewTicker(p.loader.pollInterval)
	defer ticker.Stop()

	last := 0
	for {
		select {
		case <-ctx.Done():
			return last
		case <-ticker.C:
		}

		progress, err := GET[Progress](ctx, p.loader.client, p.loader.url("/sdapi/v1/progress"))
		if err != nil {
			if ctx.Err() == nil {
				p.loader.logger.Debug("progress poll failed", zap.Error(err))
			}
			continue
		}
		step := int(progress.State.SamplingStep)
		total := int(progress.State.SamplingSteps)
		if total <= 0 {
			total = req.Steps
		}
		if step > last && step <= total {
			last = step
			req.Callback(step, total)
		}
	}
}

func decodeImage(encoded string, width, height int) (imaging.RGB, error) {
	if _, data, ok := strings.Cut(encoded, ","); ok && strings.HasPrefix(encoded, "data:") {
		encoded = data
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return imaging.RGB{}, fmt.Errorf("sdapi: decode image: %w", err)
	}
	img, err := imaging.DecodeRGB(raw)
	if err != nil {
		return imaging.RGB{}, err
	}
	if img.Width != width || img.Height != height {
		return imaging.ResizeRGB(img, width, height)
	}
	return img, nil
}

// SchedulerConfig implements pipeline.Pipeline. It returns a copy of the
// options captured at load time.
func (p *Pipeline) SchedulerConfig() sampler.Config {
	return p.scheduler.Clone()
}

// To records dev. Placement is owned by the server.
func (p *Pipeline) To(ctx context.Context, dev device.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device = dev
	return nil
}

// Device returns the device recorded by To.
func (p *Pipeline) Device() device.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device
}

// Close implements pipeline.Pipeline.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
