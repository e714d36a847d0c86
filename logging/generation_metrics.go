package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GenerationMetrics describes one inpainting run for structured logs.
type GenerationMetrics struct {
	CorrelationID string
	ModelName     string
	Backend       string
	Sampler       string
	Seed          int64
	Steps         int
	GuidanceScale float64
	MaskBlur      int
	Width         int
	Height        int
	Duration      time.Duration
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m GenerationMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("correlation_id", m.CorrelationID)
	enc.AddString("model_name", m.ModelName)
	if m.Backend != "" {
		enc.AddString("backend", m.Backend)
	}
	enc.AddString("sampler", m.Sampler)
	enc.AddInt64("seed", m.Seed)
	enc.AddInt("steps", m.Steps)
	enc.AddFloat64("guidance_scale", m.GuidanceScale)
	enc.AddInt("mask_blur", m.MaskBlur)
	enc.AddInt("width", m.Width)
	enc.AddInt("height", m.Height)
	if m.Duration > 0 {
		enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	}
	return nil
}

// GenerationFields wraps metrics as a single "generation" field.
func GenerationFields(m GenerationMetrics) zap.Field {
	return zap.Object("generation", m)
}

// StepFields are the fields logged for a denoising progress update.
func StepFields(step, total int) []zap.Field {
	return []zap.Field{zap.Int("step", step), zap.Int("total_steps", total)}
}
