package inpaint

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"go_inpaint/imaging"
)

type memoryRecorder struct {
	mu   sync.Mutex
	gens []Generation
	err  error
}

func (r *memoryRecorder) RecordGeneration(ctx context.Context, g Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens = append(r.gens, g)
	return r.err
}

func (r *memoryRecorder) all() []Generation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Generation(nil), r.gens...)
}

func assertPreservedBGR(t *testing.T, out, img imaging.RGB, mask imaging.Mask) {
	t.Helper()
	if out.Width != img.Width || out.Height != img.Height {
		t.Fatalf("output is %dx%d, want %dx%d", out.Width, out.Height, img.Width, img.Height)
	}
	for p, m := range mask.Pix {
		if m != 0 {
			continue
		}
		i := p * 3
		if out.Pix[i] != img.Pix[i+2] || out.Pix[i+1] != img.Pix[i+1] || out.Pix[i+2] != img.Pix[i] {
			t.Fatalf("preserved pixel %d = %v, want BGR of %v", p, out.Pix[i:i+3], img.Pix[i:i+3])
		}
	}
}

func TestRun_PadsAndCrops(t *testing.T) {
	rec := &memoryRecorder{}
	m, loader := newStubModel(t, InitOptions{Recorder: rec, Backend: "stub"})
	img := gradientRGB(300, 200)
	mask := centeredSquare(300, 200, 50)

	out, err := m.Run(context.Background(), img, mask, testConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertPreservedBGR(t, out, img, mask)

	req := loader.Latest().Requests()[0]
	if req.Width != 512 || req.Height != 512 {
		t.Errorf("pipeline saw %dx%d, want padded 512x512", req.Width, req.Height)
	}

	gens := rec.all()
	if len(gens) != 1 {
		t.Fatalf("recorded %d generations, want 1", len(gens))
	}
	g := gens[0]
	if g.Err != nil {
		t.Errorf("recorded error = %v, want nil", g.Err)
	}
	if _, err := uuid.Parse(g.Metrics.CorrelationID); err != nil {
		t.Errorf("correlation id %q is not a uuid: %v", g.Metrics.CorrelationID, err)
	}
	if g.Metrics.ModelName != Kandinsky22.Name || g.Metrics.Backend != "stub" {
		t.Errorf("metrics = %+v", g.Metrics)
	}
	if g.Metrics.Width != 300 || g.Metrics.Height != 200 {
		t.Errorf("metrics size = %dx%d, want 300x200", g.Metrics.Width, g.Metrics.Height)
	}
}

func TestRun_Scaled(t *testing.T) {
	m, loader := newStubModel(t, InitOptions{})
	img := gradientRGB(600, 400)
	mask := centeredSquare(600, 400, 100)
	cfg := testConfig()
	cfg.SDScale = 0.5
	cfg.SDMaskBlur = 2

	out, err := m.Run(context.Background(), img, mask, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	assertPreservedBGR(t, out, img, mask)

	req := loader.Latest().Requests()[0]
	if req.Width != 512 || req.Height != 512 {
		t.Errorf("pipeline saw %dx%d, want 512x512 after scaling to 300x200", req.Width, req.Height)
	}
}

func TestRun_RandomSeedRecorded(t *testing.T) {
	rec := &memoryRecorder{}
	m, loader := newStubModel(t, InitOptions{Recorder: rec})
	cfg := testConfig()
	cfg.SDSeed = RandomSeedValue

	if _, err := m.Run(context.Background(), gradientRGB(16, 16), centeredSquare(16, 16, 4), cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	seed := rec.all()[0].Metrics.Seed
	if seed < 0 {
		t.Errorf("recorded seed = %d, want a resolved seed", seed)
	}
	if got := loader.Latest().Requests()[0].Seed; got != seed {
		t.Errorf("pipeline seed = %d, recorded seed = %d", got, seed)
	}
}

func TestRun_PipelineErrorRecorded(t *testing.T) {
	boom := errors.New("sampler diverged")
	rec := &memoryRecorder{}
	m, loader := newStubModel(t, InitOptions{Recorder: rec})
	loader.Latest().InpaintErr = boom

	_, err := m.Run(context.Background(), gradientRGB(16, 16), centeredSquare(16, 16, 4), testConfig())
	if err != boom {
		t.Fatalf("Run() error = %v, want the pipeline's error unmodified", err)
	}
	gens := rec.all()
	if len(gens) != 1 || gens[0].Err != boom {
		t.Errorf("recorded %+v, want one generation carrying the error", gens)
	}
}

func TestRun_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("disk full")}
	m, _ := newStubModel(t, InitOptions{Recorder: rec})

	if _, err := m.Run(context.Background(), gradientRGB(16, 16), centeredSquare(16, 16, 4), testConfig()); err != nil {
		t.Errorf("Run() error = %v, want nil when only recording fails", err)
	}
}

func TestRun_InvalidInput(t *testing.T) {
	m, loader := newStubModel(t, InitOptions{})
	cfg := testConfig()
	cfg.SDSteps = 0

	if _, err := m.Run(context.Background(), gradientRGB(8, 8), imaging.NewMask(8, 8), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid config error = %v, want ErrInvalidConfig", err)
	}
	if _, err := m.Run(context.Background(), gradientRGB(8, 8), imaging.NewMask(4, 4), testConfig()); !errors.Is(err, imaging.ErrDimensionMismatch) {
		t.Errorf("size mismatch error = %v, want ErrDimensionMismatch", err)
	}
	if n := len(loader.Latest().Requests()); n != 0 {
		t.Errorf("pipeline received %d requests for invalid input", n)
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h         int
		scale        float64
		wantW, wantH int
	}{
		{600, 400, 0.5, 300, 200},
		{3, 3, 0.1, 1, 1},
		{101, 51, 0.5, 50, 25},
		{640, 480, 1, 640, 480},
	}
	for _, tt := range tests {
		if w, h := scaledSize(tt.w, tt.h, tt.scale); w != tt.wantW || h != tt.wantH {
			t.Errorf("scaledSize(%d, %d, %v) = %dx%d, want %dx%d", tt.w, tt.h, tt.scale, w, h, tt.wantW, tt.wantH)
		}
	}
}
