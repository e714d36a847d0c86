package inpaint

import (
	"context"
	"errors"
	"testing"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/pipeline"
	"go_inpaint/sampler"
)

func newStubModel(t *testing.T, opts InitOptions) (*Model, *pipeline.StubLoader) {
	t.Helper()
	loader := &pipeline.StubLoader{}
	if opts.Probe == nil {
		opts.Probe = device.StaticProbe(false)
	}
	m, err := New(context.Background(), Kandinsky22.Name, device.CPU, loader, opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, loader
}

// gradientRGB fills every channel with a distinct, position dependent value.
func gradientRGB(width, height int) imaging.RGB {
	img := imaging.NewRGB(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := img.Offset(x, y)
			img.Pix[i] = uint8(x)
			img.Pix[i+1] = uint8(y)
			img.Pix[i+2] = uint8(x + y)
		}
	}
	return img
}

// centeredSquare returns a mask with a size×size square of 255 in the
// middle of the frame.
func centeredSquare(width, height, size int) imaging.Mask {
	mask := imaging.NewMask(width, height)
	x0, y0 := (width-size)/2, (height-size)/2
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			mask.Set(x, y, 255)
		}
	}
	return mask
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Prompt = "a wooden door"
	cfg.NegativePrompt = "text"
	cfg.SDSteps = 4
	cfg.SDMaskBlur = 0
	return cfg
}

func TestNew_Precision(t *testing.T) {
	tests := []struct {
		name      string
		dev       device.Device
		cuda      bool
		noHalf    bool
		wantDType device.DType
	}{
		{"cuda available", device.CUDA, true, false, device.Float16},
		{"cuda with no_half", device.CUDA, true, true, device.Float32},
		{"cuda unavailable", device.CUDA, false, false, device.Float32},
		{"cpu", device.CPU, true, false, device.Float32},
		{"mps", device.MPS, true, false, device.Float32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &pipeline.StubLoader{}
			m, err := New(context.Background(), Kandinsky22.Name, tt.dev, loader, InitOptions{
				NoHalf: tt.noHalf,
				Probe:  device.StaticProbe(tt.cuda),
			}, nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer m.Close()

			if m.DType() != tt.wantDType {
				t.Errorf("DType() = %s, want %s", m.DType(), tt.wantDType)
			}
			loads := loader.Loads()
			if len(loads) != 1 {
				t.Fatalf("FromPretrained called %d times, want 1", len(loads))
			}
			if loads[0].ModelID != Kandinsky22.ModelID {
				t.Errorf("model id = %q, want %q", loads[0].ModelID, Kandinsky22.ModelID)
			}
			if loads[0].Options.DType != tt.wantDType {
				t.Errorf("load dtype = %s, want %s", loads[0].Options.DType, tt.wantDType)
			}
			if got := loader.Latest().Device(); got != tt.dev {
				t.Errorf("pipeline placed on %s, want %s", got, tt.dev)
			}
		})
	}
}

func TestNew_LocalFilesPolicy(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name       string
		localOnly  *bool
		sdRunLocal bool
		want       bool
	}{
		{"unset falls back to sd_run_local", nil, true, true},
		{"unset and remote", nil, false, false},
		{"explicit false wins", &no, true, false},
		{"explicit true wins", &yes, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &pipeline.StubLoader{LocalModels: []string{Kandinsky22.ModelID}}
			m, err := New(context.Background(), Kandinsky22.Name, device.CPU, loader, InitOptions{
				LocalFilesOnly: tt.localOnly,
				SDRunLocal:     tt.sdRunLocal,
				Probe:          device.StaticProbe(false),
			}, nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer m.Close()
			if got := loader.Loads()[0].Options.LocalFilesOnly; got != tt.want {
				t.Errorf("LocalFilesOnly = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	boom := errors.New("weights unreachable")

	_, err := New(context.Background(), Kandinsky22.Name, device.CPU, &pipeline.StubLoader{LoadErr: boom}, InitOptions{}, nil)
	if err != boom {
		t.Errorf("load error = %v, want the loader's error unmodified", err)
	}

	_, err = New(context.Background(), "nope", device.CPU, &pipeline.StubLoader{}, InitOptions{}, nil)
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("unknown model error = %v, want ErrUnknownModel", err)
	}

	_, err = New(context.Background(), Kandinsky22.Name, device.CPU, nil, InitOptions{}, nil)
	if !errors.Is(err, ErrNilLoader) {
		t.Errorf("nil loader error = %v, want ErrNilLoader", err)
	}

	yes := true
	_, err = New(context.Background(), Kandinsky22.Name, device.CPU, &pipeline.StubLoader{}, InitOptions{LocalFilesOnly: &yes}, nil)
	if !errors.Is(err, pipeline.ErrModelNotFound) {
		t.Errorf("local-only error = %v, want pipeline.ErrModelNotFound", err)
	}
}

func TestForward_EndToEnd512(t *testing.T) {
	m, loader := newStubModel(t, InitOptions{})
	img := gradientRGB(512, 512)
	mask := centeredSquare(512, 512, 100)
	cfg := testConfig()
	cfg.SDMatchHistograms = false

	result, err := m.Forward(context.Background(), img, mask, cfg)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if result.Width != 512 || result.Height != 512 || len(result.Pix) != 512*512*3 {
		t.Fatalf("Forward() returned %dx%d (%d samples), want 512x512x3", result.Width, result.Height, len(result.Pix))
	}

	// Preserved pixels come back in BGR order.
	for _, p := range [][2]int{{0, 0}, {10, 300}, {511, 511}} {
		i := img.Offset(p[0], p[1])
		if result.Pix[i] != img.Pix[i+2] || result.Pix[i+1] != img.Pix[i+1] || result.Pix[i+2] != img.Pix[i] {
			t.Errorf("pixel %v = %v, want BGR of %v", p, result.Pix[i:i+3], img.Pix[i:i+3])
		}
	}

	req := loader.Latest().Requests()[0]
	if req.Width != 512 || req.Height != 512 {
		t.Errorf("request size = %dx%d, want 512x512", req.Width, req.Height)
	}
	if req.Prompt != cfg.Prompt || req.NegativePrompt != cfg.NegativePrompt {
		t.Errorf("prompts = %q / %q", req.Prompt, req.NegativePrompt)
	}
	if req.Steps != cfg.SDSteps || req.GuidanceScale != cfg.SDGuidanceScale || req.Seed != cfg.SDSeed {
		t.Errorf("request params = steps %d guidance %v seed %d", req.Steps, req.GuidanceScale, req.Seed)
	}
	if req.OutputType != pipeline.OutputTypeArray {
		t.Errorf("OutputType = %q, want %q", req.OutputType, pipeline.OutputTypeArray)
	}
	if v := req.MaskImage[256*512+256]; v != 1 {
		t.Errorf("mask centre = %v, want 1", v)
	}
	if v := req.MaskImage[0]; v != 0 {
		t.Errorf("mask corner = %v, want 0", v)
	}

	post, gotImg, gotMask, err := m.ForwardPostProcess(result, img, mask, cfg)
	if err != nil {
		t.Fatalf("ForwardPostProcess() error = %v", err)
	}
	for i := range result.Pix {
		if post.Pix[i] != result.Pix[i] {
			t.Fatalf("post-processed result changed at %d", i)
		}
	}
	for i := range img.Pix {
		if gotImg.Pix[i] != img.Pix[i] {
			t.Fatalf("image changed at %d", i)
		}
	}
	for i := range mask.Pix {
		if gotMask.Pix[i] != mask.Pix[i] {
			t.Fatalf("mask changed at %d", i)
		}
	}
}

func TestForward_SchedulerPerCall(t *testing.T) {
	m, loader := newStubModel(t, InitOptions{})
	img := gradientRGB(8, 8)
	mask := centeredSquare(8, 8, 2)

	for _, s := range []sampler.Sampler{sampler.DDIM, sampler.KEulerA} {
		cfg := testConfig()
		cfg.SDSampler = string(s)
		if _, err := m.Forward(context.Background(), img, mask, cfg); err != nil {
			t.Fatalf("Forward(%s) error = %v", s, err)
		}
	}

	reqs := loader.Latest().Requests()
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	if reqs[0].Scheduler.Sampler != sampler.DDIM || reqs[0].Scheduler.Config["_class_name"] != "DDIMScheduler" {
		t.Errorf("first scheduler = %+v", reqs[0].Scheduler)
	}
	if reqs[1].Scheduler.Sampler != sampler.KEulerA || reqs[1].Scheduler.Config["_class_name"] != "EulerAncestralDiscreteScheduler" {
		t.Errorf("second scheduler = %+v", reqs[1].Scheduler)
	}
	if got := loader.Latest().SchedulerConfig()["_class_name"]; got != "DDPMScheduler" {
		t.Errorf("pipeline scheduler config changed to %v", got)
	}
}

func TestForward_MaskBlur(t *testing.T) {
	m, loader := newStubModel(t, InitOptions{})
	img := gradientRGB(64, 64)
	mask := centeredSquare(64, 64, 32)
	before := mask.Clone()
	cfg := testConfig()
	cfg.SDMaskBlur = 3

	if _, err := m.Forward(context.Background(), img, mask, cfg); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	for i := range mask.Pix {
		if mask.Pix[i] != before.Pix[i] {
			t.Fatalf("caller mask mutated at %d", i)
		}
	}

	got := loader.Latest().Requests()[0].MaskImage
	edge := got[32*64+16]
	if edge <= 0 || edge >= 1 {
		t.Errorf("blurred edge = %v, want strictly inside (0,1)", edge)
	}
	for i, v := range got {
		if v < 0 || v > 1 {
			t.Fatalf("mask value %d = %v outside [0,1]", i, v)
		}
	}
}

func TestForward_Callback(t *testing.T) {
	var steps []int
	m, _ := newStubModel(t, InitOptions{Callback: func(step, total int) {
		if total != 4 {
			t.Errorf("total = %d, want 4", total)
		}
		steps = append(steps, step)
	}})

	if _, err := m.Forward(context.Background(), gradientRGB(8, 8), centeredSquare(8, 8, 2), testConfig()); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if len(steps) != 4 || steps[0] != 1 || steps[3] != 4 {
		t.Errorf("callback steps = %v, want [1 2 3 4]", steps)
	}
}

func TestForward_Errors(t *testing.T) {
	boom := errors.New("CUDA out of memory")

	t.Run("size mismatch", func(t *testing.T) {
		m, _ := newStubModel(t, InitOptions{})
		_, err := m.Forward(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 7), testConfig())
		if !errors.Is(err, imaging.ErrDimensionMismatch) {
			t.Errorf("error = %v, want ErrDimensionMismatch", err)
		}
	})
	t.Run("unknown sampler", func(t *testing.T) {
		m, _ := newStubModel(t, InitOptions{})
		cfg := testConfig()
		cfg.SDSampler = "nope"
		_, err := m.Forward(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 8), cfg)
		if !errors.Is(err, sampler.ErrUnknownSampler) {
			t.Errorf("error = %v, want ErrUnknownSampler", err)
		}
	})
	t.Run("negative mask blur", func(t *testing.T) {
		m, loader := newStubModel(t, InitOptions{})
		cfg := testConfig()
		cfg.SDMaskBlur = -3
		_, err := m.Forward(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 8), cfg)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
		if n := len(loader.Latest().Requests()); n != 0 {
			t.Errorf("pipeline received %d requests", n)
		}
	})
	t.Run("pipeline error passes through", func(t *testing.T) {
		m, loader := newStubModel(t, InitOptions{})
		loader.Latest().InpaintErr = boom
		_, err := m.Forward(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 8), testConfig())
		if err != boom {
			t.Errorf("error = %v, want the pipeline's error unmodified", err)
		}
	})
	t.Run("empty output", func(t *testing.T) {
		m, loader := newStubModel(t, InitOptions{})
		loader.Latest().EmptyOutput = true
		_, err := m.Forward(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 8), testConfig())
		if !errors.Is(err, ErrEmptyOutput) {
			t.Errorf("error = %v, want ErrEmptyOutput", err)
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		m, _ := newStubModel(t, InitOptions{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Forward(ctx, gradientRGB(8, 8), imaging.NewMask(8, 8), testConfig())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
	t.Run("closed", func(t *testing.T) {
		m, _ := newStubModel(t, InitOptions{})
		_ = m.Close()
		_, err := m.Forward(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 8), testConfig())
		if !errors.Is(err, pipeline.ErrClosed) {
			t.Errorf("error = %v, want pipeline.ErrClosed", err)
		}
	})
}

func TestForwardPostProcess_MatchHistograms(t *testing.T) {
	m, _ := newStubModel(t, InitOptions{})
	resultBGR := imaging.NewRGB(4, 4)
	for i := 0; i < len(resultBGR.Pix); i += 3 {
		resultBGR.Pix[i], resultBGR.Pix[i+1], resultBGR.Pix[i+2] = 10, 20, 30
	}
	img := imaging.NewRGB(4, 4)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 100, 110, 120
	}
	cfg := testConfig()
	cfg.SDMatchHistograms = true

	got, _, _, err := m.ForwardPostProcess(resultBGR, img, imaging.NewMask(4, 4), cfg)
	if err != nil {
		t.Fatalf("ForwardPostProcess() error = %v", err)
	}
	for i := 0; i < len(got.Pix); i += 3 {
		if got.Pix[i] != 120 || got.Pix[i+1] != 110 || got.Pix[i+2] != 100 {
			t.Fatalf("pixel %d = %v, want the BGR reference [120 110 100]", i/3, got.Pix[i:i+3])
		}
	}
}

func TestForwardPostProcess_FreshBlur(t *testing.T) {
	m, _ := newStubModel(t, InitOptions{})
	mask := centeredSquare(32, 32, 16)
	before := mask.Clone()
	cfg := testConfig()
	cfg.SDMaskBlur = 2

	_, _, got, err := m.ForwardPostProcess(gradientRGB(32, 32), gradientRGB(32, 32), mask, cfg)
	if err != nil {
		t.Fatalf("ForwardPostProcess() error = %v", err)
	}
	want := imaging.GaussianBlur(before, 2)
	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("mask sample %d = %d, want %d", i, got.Pix[i], want.Pix[i])
		}
		if mask.Pix[i] != before.Pix[i] {
			t.Fatalf("input mask mutated at %d", i)
		}
	}
}

func TestForwardPostProcess_NegativeMaskBlur(t *testing.T) {
	m, _ := newStubModel(t, InitOptions{})
	cfg := testConfig()
	cfg.SDMaskBlur = -1

	_, _, _, err := m.ForwardPostProcess(gradientRGB(8, 8), gradientRGB(8, 8), imaging.NewMask(8, 8), cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestModel_IsDownloaded(t *testing.T) {
	m, loader := newStubModel(t, InitOptions{})
	for i := 0; i < 3; i++ {
		if !m.IsDownloaded() {
			t.Fatal("IsDownloaded() = false, want true")
		}
	}
	if n := len(loader.Loads()); n != 1 {
		t.Errorf("IsDownloaded triggered loads: %d", n)
	}
}
