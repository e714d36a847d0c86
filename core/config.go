// Package core loads process configuration from the environment.
package core

import (
	"fmt"
	"net/url"
	"time"

	"go_inpaint/device"
)

// Inpainting backends.
const (
	BackendStub   = "stub"
	BackendSDAPI  = "sdapi"
	BackendOpenAI = "openai"
)

// Backends lists the supported INPAINT_BACKEND values.
func Backends() []string {
	return []string{BackendStub, BackendSDAPI, BackendOpenAI}
}

// Defaults.
const (
	DefaultModel        = "kandinsky2.2"
	DefaultDevice       = "cuda"
	DefaultBackend      = BackendSDAPI
	DefaultSDAPIHost    = "http://127.0.0.1:7860"
	DefaultSDAPITimeout = 600
	DefaultOpenAIModel  = "gpt-image-1"
	DefaultDBPath       = "inpaint_history.db"
	DefaultLogFile      = ""
)

// Config holds everything the CLI needs to build an inpainting model.
type Config struct {
	Model  string
	Device device.Device

	// NoHalf disables float16 weights.
	NoHalf bool

	// LocalFilesOnly, when nil, falls back to SDRunLocal.
	LocalFilesOnly *bool
	SDRunLocal     bool

	Backend string

	SDAPIHost    string
	SDAPITimeout time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	DBPath  string
	LogFile string
	DevMode bool
}

// LoadConfig reads Config from the environment. .env files must already be
// loaded by the caller. The result is validated.
func LoadConfig() (*Config, error) {
	rawDevice := GetEnvOrDefault("INPAINT_DEVICE", DefaultDevice)
	dev, err := device.Parse(rawDevice)
	if err != nil {
		return nil, ErrInvalidValue("INPAINT_DEVICE", rawDevice, "expected cpu, cuda or mps")
	}

	cfg := &Config{
		Model:          GetEnvOrDefault("INPAINT_MODEL", DefaultModel),
		Device:         dev,
		NoHalf:         ParseBoolEnv("INPAINT_NO_HALF", false),
		LocalFilesOnly: ParseOptionalBoolEnv("INPAINT_LOCAL_FILES_ONLY"),
		SDRunLocal:     ParseBoolEnv("SD_RUN_LOCAL", false),
		Backend:        GetEnvOrDefault("INPAINT_BACKEND", DefaultBackend),
		SDAPIHost:      GetEnvOrDefault("SDAPI_HOST", DefaultSDAPIHost),
		SDAPITimeout:   ParseDurationEnv("SDAPI_TIMEOUT_SECONDS", DefaultSDAPITimeout),
		OpenAIAPIKey:   GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  GetEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:    GetEnvOrDefault("OPENAI_IMAGE_MODEL", DefaultOpenAIModel),
		DBPath:         GetEnvOrDefault("INPAINT_DB_PATH", DefaultDBPath),
		LogFile:        GetEnvOrDefault("INPAINT_LOG_FILE", DefaultLogFile),
		DevMode:        ParseBoolEnv("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	if c.Model == "" {
		return ErrMissingConfig("INPAINT_MODEL")
	}
	if c.SDAPITimeout <= 0 {
		return ErrInvalidValue("SDAPI_TIMEOUT_SECONDS", c.SDAPITimeout.String(), "must be positive")
	}

	switch c.Backend {
	case BackendStub:
	case BackendSDAPI:
		if err := validateURL("SDAPI_HOST", c.SDAPIHost); err != nil {
			return err
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrMissingAuth(BackendOpenAI, "OPENAI_API_KEY")
		}
		if c.OpenAIBaseURL != "" {
			if err := validateURL("OPENAI_BASE_URL", c.OpenAIBaseURL); err != nil {
				return err
			}
		}
	default:
		return ErrUnknownBackend(c.Backend)
	}
	return nil
}

// UseLocalFiles resolves the effective local-files-only flag.
func (c *Config) UseLocalFiles() bool {
	if c.LocalFilesOnly != nil {
		return *c.LocalFilesOnly
	}
	return c.SDRunLocal
}

func validateURL(varName, raw string) error {
	if raw == "" {
		return ErrMissingConfig(varName)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidValue(varName, raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidValue(varName, raw, fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return ErrInvalidValue(varName, raw, "missing host")
	}
	return nil
}
