// Package openaiedit runs inpainting through the OpenAI image edit
// endpoint.
//
// The hosted API owns the model, so seed, steps, guidance and sampler are
// not forwarded. The mask is sent as an RGBA PNG whose transparent pixels
// mark the area to repaint. Uploads are resampled to a size the model
// accepts and the result is resampled back to the request size.
package openaiedit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/logging"
	"go_inpaint/pipeline"
	"go_inpaint/sampler"
)

// Defaults applied by New.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-image-1"
)

var (
	// ErrMissingAPIKey is returned by New without an API key.
	ErrMissingAPIKey = errors.New("openaiedit: API key is required")

	// ErrNoImageData is returned when the API answers without image data.
	ErrNoImageData = errors.New("openaiedit: response contained no image data")
)

// Config configures the OpenAI client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Loader implements pipeline.Loader for the OpenAI image edit API.
type Loader struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
	logger     *logging.Logger
}

// New returns a Loader for cfg.
func New(cfg Config, logger *logging.Logger) (*Loader, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clientConfig.HTTPClient = httpClient

	return &Loader{
		client:     openai.NewClientWithConfig(clientConfig),
		httpClient: httpClient,
		model:      cfg.Model,
		logger:     logging.OrNop(logger).Named("openaiedit"),
	}, nil
}

// FromPretrained returns a pipeline bound to the configured image model.
// modelID is recorded for logging only. A hosted model can never satisfy
// opts.LocalFilesOnly.
func (l *Loader) FromPretrained(ctx context.Context, modelID string, opts pipeline.LoadOptions) (pipeline.Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.LocalFilesOnly {
		return nil, fmt.Errorf("%w: %s is hosted by the OpenAI API", pipeline.ErrModelNotFound, l.model)
	}
	l.logger.Info("pipeline bound",
		zap.String("model_id", modelID),
		zap.String("image_model", l.model))
	return &Pipeline{loader: l}, nil
}

// Pipeline is a hosted image edit model.
type Pipeline struct {
	loader *Loader

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

	p.loader.logger.Debug("ignoring parameters unsupported by the edit API",
		zap.Int64("seed", req.Seed),
		zap.Int("steps", req.Steps),
		zap.Float64("guidance_scale", req.GuidanceScale),
		zap.String("sampler", string(req.Scheduler.Sampler)))

	dir, err := os.MkdirTemp("", "openaiedit-*")
	if err != nil {
		return nil, fmt.Errorf("openaiedit: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	width, height := editSize(p.loader.model, req.Width, req.Height)
	upload, uploadMask, err := resizeForUpload(req, width, height)
	if err != nil {
		return nil, err
	}

	imageFile, err := writePNG(dir, "image.png", upload.ToImage())
	if err != nil {
		return nil, err
	}
	defer imageFile.Close()

	maskImg, err := alphaMask(upload, uploadMask)
	if err != nil {
		return nil, err
	}
	maskFile, err := writePNG(dir, "mask.png", maskImg)
	if err != nil {
		return nil, err
	}
	defer maskFile.Close()

	editReq := openai.ImageEditRequest{
		Image:  imageFile,
		Mask:   maskFile,
		Prompt: req.Prompt,
		Model:  p.loader.model,
		N:      1,
		Size:   fmt.Sprintf("%dx%d", width, height),
	}
	// gpt-image models always answer in base64 and reject the field.
	if strings.HasPrefix(p.loader.model, "dall-e") {
		editReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := p.loader.client.CreateEditImage(ctx, editReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return &pipeline.Output{}, nil
	}

	data, err := p.imageData(ctx, resp.Data[0])
	if err != nil {
		return nil, err
	}
	img, err := imaging.DecodeRGB(data)
	if err != nil {
		return nil, err
	}
	if img.Width != req.Width || img.Height != req.Height {
		img, err = imaging.ResizeRGB(img, req.Width, req.Height)
		if err != nil {
			return nil, err
		}
	}
	if req.Callback != nil {
		req.Callback(req.Steps, req.Steps)
	}
	return &pipeline.Output{Images: []imaging.Float{imaging.ToFloat(img)}}, nil
}

func (p *Pipeline) imageData(ctx context.Context, item openai.ImageResponseDataInner) ([]byte, error) {
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openaiedit: decode b64_json: %w", err)
		}
		return data, nil
	}
	if item.URL == "" {
		return nil, ErrNoImageData
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.loader.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openaiedit: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openaiedit: download image: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Output sizes accepted by the edit endpoint.
var (
	gptImageSizes = []image.Point{{1024, 1024}, {1536, 1024}, {1024, 1536}}
	dallESides    = []int{256, 512, 1024}
)

// editSize picks the size the API accepts for model that is closest to
// width×height. dall-e models take the smallest square that holds the
// longer side; other models take the nearest aspect ratio.
func editSize(model string, width, height int) (int, int) {
	if strings.HasPrefix(model, "dall-e") {
		longer := max(width, height)
		side := dallESides[len(dallESides)-1]
		for _, s := range dallESides {
			if longer <= s {
				side = s
				break
			}
		}
		return side, side
	}

	aspect := math.Log(float64(width) / float64(height))
	best := gptImageSizes[0]
	for _, size := range gptImageSizes[1:] {
		d := math.Abs(aspect - math.Log(float64(size.X)/float64(size.Y)))
		if d < math.Abs(aspect-math.Log(float64(best.X)/float64(best.Y))) {
			best = size
		}
	}
	return best.X, best.Y
}

// resizeForUpload resamples the request image and mask to width×height.
func resizeForUpload(req *pipeline.Request, width, height int) (imaging.RGB, []float32, error) {
	img, err := imaging.ResizeRGB(req.Image, width, height)
	if err != nil {
		return imaging.RGB{}, nil, err
	}
	mask, err := imaging.MaskFromFloat(req.Width, req.Height, req.MaskImage)
	if err != nil {
		return imaging.RGB{}, nil, err
	}
	if mask, err = imaging.ResizeMask(mask, width, height); err != nil {
		return imaging.RGB{}, nil, err
	}
	return img, imaging.NormalizeMask(mask), nil
}

// alphaMask copies img and sets alpha to 255 - mask*255, so pixels marked
// for repaint become transparent.
func alphaMask(img imaging.RGB, mask []float32) (*image.NRGBA, error) {
	if len(mask) != img.Width*img.Height {
		return nil, fmt.Errorf("%w: mask has %d values for %dx%d image",
			imaging.ErrDimensionMismatch, len(mask), img.Width, img.Height)
	}
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := y*img.Width + x
			i := p * 3
			m := math.Round(float64(mask[p]) * 255)
			m = math.Max(0, math.Min(255, m))
			out.SetNRGBA(x, y, color.NRGBA{
				R: img.Pix[i],
				G: img.Pix[i+1],
				B: img.Pix[i+2],
				A: uint8(255 - m),
			})
		}
	}
	return out, nil
}

// writePNG encodes img into dir/name and returns the file rewound for
// reading. The file name carries the extension the API uses for the
// content type.
func writePNG(dir, name string, img image.Image) (*os.File, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("openaiedit: create %s: %w", name, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("openaiedit: encode %s: %w", name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("openaiedit: rewind %s: %w", name, err)
	}
	return f, nil
}

// SchedulerConfig implements pipeline.Pipeline. The hosted model exposes
// no scheduler, so only a class marker is reported.
func (p *Pipeline) SchedulerConfig() sampler.Config {
	return sampler.Config{"_class_name": "HostedImageEdit"}
}

// To records dev. The API owns placement.
func (p *Pipeline) To(ctx context.Context, dev device.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device = dev
	return nil
}

// Close implements pipeline.Pipeline.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
