package pipeline

import (
	"context"
	"errors"
	"testing"

	"go_inpaint/device"
	"go_inpaint/imaging"
	"go_inpaint/sampler"
)

const testModel = "kandinsky-community/kandinsky-2-2-decoder-inpaint"

func testRequest(w, h int, seed int64) *Request {
	img := imaging.NewRGB(w, h)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	mask := make([]float32, w*h)
	for i := 0; i < len(mask)/2; i++ {
		mask[i] = 1
	}
	sched, _ := sampler.Get("uni_pc", DefaultSchedulerConfig())
	return &Request{
		Prompt:     "a cat",
		Image:      img,
		MaskImage:  mask,
		Width:      w,
		Height:     h,
		Steps:      4,
		Scheduler:  sched,
		Seed:       seed,
		OutputType: OutputTypeArray,
	}
}

func loadStub(t *testing.T) *Stub {
	t.Helper()
	loader := &StubLoader{}
	p, err := loader.FromPretrained(context.Background(), testModel, LoadOptions{DType: device.Float32})
	if err != nil {
		t.Fatalf("FromPretrained() error = %v", err)
	}
	return p.(*Stub)
}

func TestStubLoader_LocalFilesOnly(t *testing.T) {
	ctx := context.Background()

	loader := &StubLoader{}
	if _, err := loader.FromPretrained(ctx, testModel, LoadOptions{LocalFilesOnly: true}); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}

	loader = &StubLoader{LocalModels: []string{testModel}}
	if _, err := loader.FromPretrained(ctx, testModel, LoadOptions{LocalFilesOnly: true}); err != nil {
		t.Errorf("local model error = %v", err)
	}
}

func TestStubLoader_RecordsOptions(t *testing.T) {
	loader := &StubLoader{}
	opts := LoadOptions{LocalFilesOnly: false, DType: device.Float16}
	if _, err := loader.FromPretrained(context.Background(), testModel, opts); err != nil {
		t.Fatalf("FromPretrained() error = %v", err)
	}

	loads := loader.Loads()
	if len(loads) != 1 {
		t.Fatalf("len(Loads()) = %d, want 1", len(loads))
	}
	if loads[0].ModelID != testModel || loads[0].Options != opts {
		t.Errorf("load = %+v", loads[0])
	}
	if loader.Latest().DType != device.Float16 {
		t.Errorf("stub dtype = %q, want float16", loader.Latest().DType)
	}
}

func TestStubLoader_LoadErrPropagates(t *testing.T) {
	boom := errors.New("weights corrupted")
	loader := &StubLoader{LoadErr: boom}
	if _, err := loader.FromPretrained(context.Background(), testModel, LoadOptions{}); err != boom {
		t.Errorf("error = %v, want %v unmodified", err, boom)
	}
}

func TestStub_Deterministic(t *testing.T) {
	s := loadStub(t)
	ctx := context.Background()

	a, err := s.Inpaint(ctx, testRequest(8, 8, 42))
	if err != nil {
		t.Fatalf("Inpaint() error = %v", err)
	}
	b, err := s.Inpaint(ctx, testRequest(8, 8, 42))
	if err != nil {
		t.Fatalf("Inpaint() error = %v", err)
	}
	c, err := s.Inpaint(ctx, testRequest(8, 8, 7))
	if err != nil {
		t.Fatalf("Inpaint() error = %v", err)
	}

	same := true
	for i := range a.Images[0].Pix {
		if a.Images[0].Pix[i] != b.Images[0].Pix[i] {
			t.Fatalf("sample %d differs for equal seeds", i)
		}
		if a.Images[0].Pix[i] != c.Images[0].Pix[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical output")
	}
}

func TestStub_UnmaskedEchoesInput(t *testing.T) {
	s := loadStub(t)
	req := testRequest(4, 4, 1)

	out, err := s.Inpaint(context.Background(), req)
	if err != nil {
		t.Fatalf("Inpaint() error = %v", err)
	}
	img := out.Images[0]
	if img.Width != 4 || img.Height != 4 || img.Channels != 3 {
		t.Fatalf("output shape %dx%dx%d", img.Width, img.Height, img.Channels)
	}
	for p, m := range req.MaskImage {
		if m != 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			want := float32(req.Image.Pix[p*3+c]) / 255
			if img.Pix[p*3+c] != want {
				t.Fatalf("pixel %d channel %d = %v, want %v", p, c, img.Pix[p*3+c], want)
			}
		}
	}
}

func TestStub_CallbackPerStep(t *testing.T) {
	s := loadStub(t)
	req := testRequest(4, 4, 1)
	req.Steps = 6

	var steps []int
	req.Callback = func(step, total int) {
		if total != 6 {
			t.Errorf("total = %d, want 6", total)
		}
		steps = append(steps, step)
	}
	if _, err := s.Inpaint(context.Background(), req); err != nil {
		t.Fatalf("Inpaint() error = %v", err)
	}
	if len(steps) != 6 || steps[0] != 1 || steps[5] != 6 {
		t.Errorf("callback steps = %v, want 1..6", steps)
	}
}

func TestStub_RejectsBadRequest(t *testing.T) {
	s := loadStub(t)
	req := testRequest(4, 4, 1)
	req.MaskImage = req.MaskImage[:3]

	if _, err := s.Inpaint(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestStub_CancelledContext(t *testing.T) {
	s := loadStub(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Inpaint(ctx, testRequest(4, 4, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestStub_ClosedAndDevice(t *testing.T) {
	s := loadStub(t)
	if err := s.To(context.Background(), device.CUDA); err != nil {
		t.Fatalf("To() error = %v", err)
	}
	if s.Device() != device.CUDA {
		t.Errorf("Device() = %q, want cuda", s.Device())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.Inpaint(context.Background(), testRequest(4, 4, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
}

func TestStub_SchedulerConfigIsFresh(t *testing.T) {
	s := loadStub(t)
	cfg := s.SchedulerConfig()
	cfg["beta_start"] = 1.0
	if s.SchedulerConfig()["beta_start"] == 1.0 {
		t.Error("SchedulerConfig() returned shared state")
	}
}
