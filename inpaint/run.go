package inpaint

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go_inpaint/imaging"
	"go_inpaint/logging"
)

// Generation is the outcome of one Run, handed to a Recorder.
type Generation struct {
	Metrics logging.GenerationMetrics

	// Err is nil for a successful run.
	Err error
}

// Recorder persists generation outcomes.
type Recorder interface {
	RecordGeneration(ctx context.Context, g Generation) error
}

// Run executes the full inpaint lifecycle on an RGB image and returns a
// BGR result at the original size:
//
//  1. shrink by cfg.SDScale
//  2. pad to the model's modulus and minimum size
//  3. Forward, then crop back to the unpadded size
//  4. ForwardPostProcess and blend the result into the image by mask
//  5. resize back and paste original pixels where mask < 127
func (m *Model) Run(ctx context.Context, img imaging.RGB, mask imaging.Mask, cfg Config) (imaging.RGB, error) {
	if err := ValidateConfig(cfg); err != nil {
		return imaging.RGB{}, err
	}
	if err := imaging.SameSize(img, mask); err != nil {
		return imaging.RGB{}, err
	}
	cfg.SDSeed = ResolveSeed(cfg.SDSeed)

	metrics := logging.GenerationMetrics{
		CorrelationID: uuid.NewString(),
		ModelName:     m.spec.Name,
		Backend:       m.backend,
		Sampler:       cfg.SDSampler,
		Seed:          cfg.SDSeed,
		Steps:         cfg.SDSteps,
		GuidanceScale: cfg.SDGuidanceScale,
		MaskBlur:      cfg.SDMaskBlur,
		Width:         img.Width,
		Height:        img.Height,
	}
	m.logger.Info("inpaint started", logging.GenerationFields(metrics))

	start := time.Now()
	result, err := m.run(ctx, img, mask, cfg)
	metrics.Duration = time.Since(start)

	if err != nil {
		m.logger.Error("inpaint failed", logging.GenerationFields(metrics), zap.Error(err))
	} else {
		m.logger.Info("inpaint finished", logging.GenerationFields(metrics))
	}
	m.record(ctx, Generation{Metrics: metrics, Err: err})
	return result, err
}

func (m *Model) run(ctx context.Context, img imaging.RGB, mask imaging.Mask, cfg Config) (imaging.RGB, error) {
	work, workMask := img, mask
	if cfg.SDScale != 1 {
		w, h := scaledSize(img.Width, img.Height, cfg.SDScale)
		var err error
		if work, err = imaging.ResizeRGB(img, w, h); err != nil {
			return imaging.RGB{}, err
		}
		if workMask, err = imaging.ResizeMask(mask, w, h); err != nil {
			return imaging.RGB{}, err
		}
	}

	result, err := m.paddedForward(ctx, work, workMask, cfg)
	if err != nil {
		return imaging.RGB{}, err
	}

	result, work, blendMask, err := m.ForwardPostProcess(result, work, workMask, cfg)
	if err != nil {
		return imaging.RGB{}, err
	}
	if result, err = imaging.Blend(result, work, blendMask); err != nil {
		return imaging.RGB{}, err
	}

	if result.Width != img.Width || result.Height != img.Height {
		if result, err = imaging.ResizeRGB(result, img.Width, img.Height); err != nil {
			return imaging.RGB{}, err
		}
	}
	return imaging.PasteOriginal(result, img, mask)
}

// paddedForward pads to the model's padding constraints, runs Forward and crops the
// result back to the input size.
func (m *Model) paddedForward(ctx context.Context, img imaging.RGB, mask imaging.Mask, cfg Config) (imaging.RGB, error) {
	padded, err := imaging.PadRGB(img, m.spec.PadMod, m.spec.MinSize, m.spec.PadToSquare)
	if err != nil {
		return imaging.RGB{}, err
	}
	paddedMask, err := imaging.PadMask(mask, m.spec.PadMod, m.spec.MinSize, m.spec.PadToSquare)
	if err != nil {
		return imaging.RGB{}, err
	}

	result, err := m.Forward(ctx, padded, paddedMask, cfg)
	if err != nil {
		return imaging.RGB{}, err
	}
	return imaging.CropRGB(result, img.Width, img.Height)
}

func (m *Model) record(ctx context.Context, g Generation) {
	if m.recorder == nil {
		return
	}
	// The run's context may already be cancelled; history is still wanted.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.recorder.RecordGeneration(ctx, g); err != nil {
		m.logger.Warn("failed to record generation",
			zap.String("correlation_id", g.Metrics.CorrelationID),
			zap.Error(err))
	}
}

// scaledSize limits the longer side to int(scale*longer), at least 1.
func scaledSize(width, height int, scale float64) (int, int) {
	limit := max(1, int(scale*float64(max(width, height))))
	return imaging.ResizeMaxSize(width, height, limit)
}
