package sdapi

import "go_inpaint/sampler"

// Model is one checkpoint listed by /sdapi/v1/sd-models.
type Model struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Hash      string `json:"hash"`
	Sha256    string `json:"sha256"`
	Filename  string `json:"filename"`
	Config    string `json:"config"`
}

// Matches reports whether id names this checkpoint.
func (m Model) Matches(id string) bool {
	return id != "" && (m.Title == id || m.ModelName == id)
}

// Progress is the /sdapi/v1/progress payload.
type Progress struct {
	Progress    float64 `json:"progress"`
	EtaRelative float64 `json:"eta_relative"`
	State       State   `json:"state"`
}

// State is the server's job snapshot.
type State struct {
	Skipped       bool   `json:"skipped"`
	Interrupted   bool   `json:"interrupted"`
	Job           string `json:"job"`
	JobCount      int64  `json:"job_count"`
	SamplingStep  int64  `json:"sampling_step"`
	SamplingSteps int64  `json:"sampling_steps"`
}

// Inpainting fill modes accepted by img2img.
const (
	FillFill          = 0
	FillOriginal      = 1
	FillLatentNoise   = 2
	FillLatentNothing = 3
)

// ImageToImageRequest is the subset of the img2img payload used for
// masked generation.
type ImageToImageRequest struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	InitImages        []string `json:"init_images"`
	Mask              string   `json:"mask"`
	MaskBlur          int      `json:"mask_blur"`
	InpaintingFill    int      `json:"inpainting_fill"`
	InpaintFullRes    bool     `json:"inpaint_full_res"`
	DenoisingStrength float64  `json:"denoising_strength"`
	SamplerName       string   `json:"sampler_name,omitempty"`
	Seed              int64    `json:"seed"`
	Steps             int      `json:"steps"`
	CFGScale          float64  `json:"cfg_scale"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	BatchSize         int      `json:"batch_size"`
	NIter             int      `json:"n_iter"`

	OverrideSettings                  map[string]any `json:"override_settings,omitempty"`
	OverrideSettingsRestoreAfterwards bool           `json:"override_settings_restore_afterwards"`
}

// ImageToImageResponse carries base64 encoded images.
type ImageToImageResponse struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters"`
	Info       string         `json:"info"`
}

// schedulerConfig projects server options onto a scheduler configuration.
func schedulerConfig(options map[string]any) sampler.Config {
	cfg := sampler.Config{"_class_name": "WebUISampler"}
	for _, key := range []string{
		"sd_model_checkpoint",
		"eta_ddim",
		"eta_ancestral",
		"eta_noise_seed_delta",
		"CLIP_stop_at_last_layers",
		"always_discard_next_to_last_sigma",
	} {
		if v, ok := options[key]; ok {
			cfg[key] = v
		}
	}
	return cfg
}
