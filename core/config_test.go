package core

import (
	"errors"
	"testing"
	"time"

	"go_inpaint/device"
)

// clearEnv blanks every variable LoadConfig reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INPAINT_MODEL", "INPAINT_DEVICE", "INPAINT_NO_HALF", "INPAINT_LOCAL_FILES_ONLY",
		"SD_RUN_LOCAL", "INPAINT_BACKEND", "SDAPI_HOST", "SDAPI_TIMEOUT_SECONDS",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_IMAGE_MODEL", "INPAINT_DB_PATH",
		"INPAINT_LOG_FILE", "DEV_MODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.Device != device.CUDA {
		t.Errorf("Device = %q, want cuda", cfg.Device)
	}
	if cfg.Backend != BackendSDAPI {
		t.Errorf("Backend = %q, want sdapi", cfg.Backend)
	}
	if cfg.SDAPITimeout != DefaultSDAPITimeout*time.Second {
		t.Errorf("SDAPITimeout = %v", cfg.SDAPITimeout)
	}
	if cfg.LocalFilesOnly != nil {
		t.Errorf("LocalFilesOnly = %v, want unset", *cfg.LocalFilesOnly)
	}
	if cfg.UseLocalFiles() {
		t.Error("UseLocalFiles() = true with nothing set")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPAINT_DEVICE", "cpu")
	t.Setenv("INPAINT_NO_HALF", "true")
	t.Setenv("INPAINT_BACKEND", "stub")
	t.Setenv("SD_RUN_LOCAL", "yes")
	t.Setenv("INPAINT_DB_PATH", "/tmp/h.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Device != device.CPU || !cfg.NoHalf || cfg.Backend != BackendStub || cfg.DBPath != "/tmp/h.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.UseLocalFiles() {
		t.Error("UseLocalFiles() = false, want SD_RUN_LOCAL fallback")
	}
}

func TestUseLocalFiles_ExplicitWins(t *testing.T) {
	no := false
	cfg := Config{LocalFilesOnly: &no, SDRunLocal: true}
	if cfg.UseLocalFiles() {
		t.Error("explicit false overridden by SD_RUN_LOCAL")
	}
}

func TestLoadConfig_InvalidDevice(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPAINT_DEVICE", "tpu")

	_, err := LoadConfig()
	if GetErrorCode(err) != ErrCodeInvalidValue {
		t.Errorf("error = %v, want %s", err, ErrCodeInvalidValue)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{Model: "kandinsky2.2", Backend: BackendSDAPI, SDAPIHost: DefaultSDAPIHost, SDAPITimeout: time.Minute}
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"valid sdapi", func(*Config) {}, ""},
		{"bad scheme", func(c *Config) { c.SDAPIHost = "ftp://host" }, ErrCodeInvalidValue},
		{"no host", func(c *Config) { c.SDAPIHost = "http://" }, ErrCodeInvalidValue},
		{"unknown backend", func(c *Config) { c.Backend = "comfy" }, ErrCodeUnknownBackend},
		{"openai without key", func(c *Config) { c.Backend = BackendOpenAI }, ErrCodeMissingAuth},
		{"openai with key", func(c *Config) { c.Backend = BackendOpenAI; c.OpenAIAPIKey = "sk-test" }, ""},
		{"no model", func(c *Config) { c.Model = "" }, ErrCodeMissingConfig},
		{"zero timeout", func(c *Config) { c.SDAPITimeout = 0 }, ErrCodeInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if got := GetErrorCode(err); got != tt.wantCode {
				t.Errorf("Validate() = %v, want code %q", err, tt.wantCode)
			}
		})
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := ErrMissingAuth("openai", "OPENAI_API_KEY")
	want := "The openai backend needs credentials. Set OPENAI_API_KEY in your environment or .env file"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := errors.Join(errors.New("startup"), err)
	if ce, ok := AsConfigError(wrapped); !ok || ce.Code != ErrCodeMissingAuth {
		t.Errorf("AsConfigError() = %v, %v", ce, ok)
	}
}
