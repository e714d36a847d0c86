package inpaint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"go_inpaint/core"
	"go_inpaint/sampler"
)

// Config carries the generation parameters of one request. The adapter
// treats it as read-only.
type Config struct {
	Prompt            string  `yaml:"prompt"`
	NegativePrompt    string  `yaml:"negative_prompt"`
	SDSampler         string  `yaml:"sd_sampler"`
	SDSeed            int64   `yaml:"sd_seed"`
	SDSteps           int     `yaml:"sd_steps"`
	SDGuidanceScale   float64 `yaml:"sd_guidance_scale"`
	SDMaskBlur        int     `yaml:"sd_mask_blur"`
	SDMatchHistograms bool    `yaml:"sd_match_histograms"`

	// SDScale shrinks the longer side before generation. 1 keeps the
	// input size.
	SDScale float64 `yaml:"sd_scale"`
}

// Defaults for Config.
const (
	DefaultSampler       = sampler.UniPC
	DefaultSeed          = 42
	DefaultSteps         = 50
	DefaultGuidanceScale = 7.5
	DefaultMaskBlur      = 5
	DefaultScale         = 1.0
)

// Parameter limits enforced by ValidateConfig.
const (
	MinSteps = 1
	MaxSteps = 150

	MinGuidanceScale = 0.0
	MaxGuidanceScale = 30.0
)

// Environment variables read by ConfigFromEnv.
const (
	EnvPrompt          = "INPAINT_PROMPT"
	EnvNegativePrompt  = "INPAINT_NEGATIVE_PROMPT"
	EnvSampler         = "INPAINT_SAMPLER"
	EnvSeed            = "INPAINT_SEED"
	EnvSteps           = "INPAINT_STEPS"
	EnvGuidanceScale   = "INPAINT_GUIDANCE_SCALE"
	EnvMaskBlur        = "INPAINT_MASK_BLUR"
	EnvMatchHistograms = "INPAINT_MATCH_HISTOGRAMS"
	EnvScale           = "INPAINT_SCALE"
)

// DefaultConfig returns the default request parameters.
func DefaultConfig() Config {
	return Config{
		SDSampler:       string(DefaultSampler),
		SDSeed:          DefaultSeed,
		SDSteps:         DefaultSteps,
		SDGuidanceScale: DefaultGuidanceScale,
		SDMaskBlur:      DefaultMaskBlur,
		SDScale:         DefaultScale,
	}
}

// ValidateConfig checks cfg against the parameter limits.
// This is a pure function with no side effects.
func ValidateConfig(cfg Config) error {
	if cfg.SDSteps < MinSteps || cfg.SDSteps > MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d",
			ErrInvalidConfig, cfg.SDSteps, MinSteps, MaxSteps)
	}
	if cfg.SDGuidanceScale < MinGuidanceScale || cfg.SDGuidanceScale > MaxGuidanceScale {
		return fmt.Errorf("%w: guidance scale %.2f must be between %.1f and %.1f",
			ErrInvalidConfig, cfg.SDGuidanceScale, MinGuidanceScale, MaxGuidanceScale)
	}
	if err := validateMaskBlur(cfg.SDMaskBlur); err != nil {
		return err
	}
	if cfg.SDScale <= 0 || cfg.SDScale > 1 {
		return fmt.Errorf("%w: scale %.2f must be in (0, 1]", ErrInvalidConfig, cfg.SDScale)
	}
	if cfg.SDSeed < RandomSeedValue {
		return fmt.Errorf("%w: seed %d must be %d (random) or non-negative",
			ErrInvalidConfig, cfg.SDSeed, RandomSeedValue)
	}
	if !sampler.Valid(cfg.SDSampler) {
		return fmt.Errorf("%w: unknown sampler %q", ErrInvalidConfig, cfg.SDSampler)
	}
	return nil
}

// validateMaskBlur rejects negative blur radii, which have no kernel.
func validateMaskBlur(radius int) error {
	if radius < 0 {
		return fmt.Errorf("%w: mask blur %d must not be negative", ErrInvalidConfig, radius)
	}
	return nil
}

// LoadConfigFile reads a YAML preset and merges it onto DefaultConfig.
// Unknown keys are rejected.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("inpaint: read preset: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv overrides fields of base from INPAINT_* variables. Unset
// variables leave the field alone; malformed ones are an error.
func ConfigFromEnv(base Config) (Config, error) {
	cfg := base
	cfg.Prompt = core.GetEnvOrDefault(EnvPrompt, cfg.Prompt)
	cfg.NegativePrompt = core.GetEnvOrDefault(EnvNegativePrompt, cfg.NegativePrompt)
	cfg.SDSampler = core.GetEnvOrDefault(EnvSampler, cfg.SDSampler)

	var err error
	if cfg.SDSeed, err = envInt64(EnvSeed, cfg.SDSeed); err != nil {
		return Config{}, err
	}
	steps, err := envInt64(EnvSteps, int64(cfg.SDSteps))
	if err != nil {
		return Config{}, err
	}
	cfg.SDSteps = int(steps)
	blur, err := envInt64(EnvMaskBlur, int64(cfg.SDMaskBlur))
	if err != nil {
		return Config{}, err
	}
	cfg.SDMaskBlur = int(blur)
	if cfg.SDGuidanceScale, err = envFloat(EnvGuidanceScale, cfg.SDGuidanceScale); err != nil {
		return Config{}, err
	}
	if cfg.SDScale, err = envFloat(EnvScale, cfg.SDScale); err != nil {
		return Config{}, err
	}
	if raw := core.GetEnvOrDefault(EnvMatchHistograms, ""); raw != "" {
		b, ok := core.ParseBool(raw)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvMatchHistograms, raw)
		}
		cfg.SDMatchHistograms = b
	}
	return cfg, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := core.GetEnvOrDefault(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := core.GetEnvOrDefault(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, raw)
	}
	return v, nil
}
