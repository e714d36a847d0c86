package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go_inpaint/imaging"
	"go_inpaint/inpaint"
	"go_inpaint/shutdown"
)

type runOptions struct {
	imagePath string
	maskPath  string
	outPath   string
	preset    string
	noHistory bool

	prompt          string
	negativePrompt  string
	sampler         string
	seed            int64
	steps           int
	guidanceScale   float64
	maskBlur        int
	matchHistograms bool
	scale           float64
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}
	defaults := inpaint.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run --image IMAGE --mask MASK --out OUT",
		Short: "Inpaint the masked area of an image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInpaint(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.imagePath, "image", "", "input image (png, jpeg, gif, webp, bmp, tiff)")
	f.StringVar(&opts.maskPath, "mask", "", "mask image, white marks pixels to repaint")
	f.StringVar(&opts.outPath, "out", "", "output PNG path")
	f.StringVar(&opts.preset, "preset", "", "YAML file with generation parameters")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record this run in the history database")
	f.StringVar(&opts.prompt, "prompt", "", "prompt text")
	f.StringVar(&opts.negativePrompt, "negative-prompt", "", "negative prompt text")
	f.StringVar(&opts.sampler, "sampler", defaults.SDSampler, "sampler name, see the samplers command")
	f.Int64Var(&opts.seed, "seed", defaults.SDSeed, "random seed, -1 picks one")
	f.IntVar(&opts.steps, "steps", defaults.SDSteps, "denoising steps")
	f.Float64Var(&opts.guidanceScale, "guidance-scale", defaults.SDGuidanceScale, "classifier-free guidance scale")
	f.IntVar(&opts.maskBlur, "mask-blur", defaults.SDMaskBlur, "mask blur radius, 0 disables")
	f.BoolVar(&opts.matchHistograms, "match-histograms", defaults.SDMatchHistograms, "match result colours to the preserved area")
	f.Float64Var(&opts.scale, "scale", defaults.SDScale, "shrink factor applied before generation")
	for _, name := range []string{"image", "mask", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// generationConfig layers defaults, preset, environment and explicit flags.
func (o *runOptions) generationConfig(cmd *cobra.Command) (inpaint.Config, error) {
	cfg := inpaint.DefaultConfig()
	if o.preset != "" {
		var err error
		if cfg, err = inpaint.LoadConfigFile(o.preset); err != nil {
			return inpaint.Config{}, err
		}
	}
	cfg, err := inpaint.ConfigFromEnv(cfg)
	if err != nil {
		return inpaint.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("prompt") {
		cfg.Prompt = o.prompt
	}
	if f.Changed("negative-prompt") {
		cfg.NegativePrompt = o.negativePrompt
	}
	if f.Changed("sampler") {
		cfg.SDSampler = o.sampler
	}
	if f.Changed("seed") {
		cfg.SDSeed = o.seed
	}
	if f.Changed("steps") {
		cfg.SDSteps = o.steps
	}
	if f.Changed("guidance-scale") {
		cfg.SDGuidanceScale = o.guidanceScale
	}
	if f.Changed("mask-blur") {
		cfg.SDMaskBlur = o.maskBlur
	}
	if f.Changed("match-histograms") {
		cfg.SDMatchHistograms = o.matchHistograms
	}
	if f.Changed("scale") {
		cfg.SDScale = o.scale
	}
	return cfg, inpaint.ValidateConfig(cfg)
}

func (a *app) runInpaint(cmd *cobra.Command, opts *runOptions) error {
	ctx := cmd.Context()
	cfg, err := a.config()
	if err != nil {
		return err
	}
	genCfg, err := opts.generationConfig(cmd)
	if err != nil {
		return err
	}

	img, err := readRGB(opts.imagePath)
	if err != nil {
		return err
	}
	mask, err := readMask(opts.maskPath)
	if err != nil {
		return err
	}

	loader, err := newLoader(cfg, a.logger)
	if err != nil {
		return err
	}

	initOpts := inpaint.InitOptions{
		NoHalf:         cfg.NoHalf,
		LocalFilesOnly: cfg.LocalFilesOnly,
		SDRunLocal:     cfg.SDRunLocal,
		Backend:        cfg.Backend,
		Callback:       progressPrinter(cmd),
	}
	if !opts.noHistory {
		repo, err := a.openHistory(ctx, cfg)
		if err != nil {
			return err
		}
		initOpts.Recorder = historyRecorder{repo: repo}
	}

	model, err := inpaint.New(ctx, cfg.Model, cfg.Device, loader, initOpts, a.logger)
	if err != nil {
		return err
	}
	a.cleanup.Register("pipeline", shutdown.PriorityPipeline, func(context.Context) error {
		return model.Close()
	})

	out, err := model.Run(ctx, img, mask, genCfg)
	if err != nil {
		return err
	}
	data, err := imaging.EncodeBGRPNG(out)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.outPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	a.logger.Info("output written", zap.String("path", opts.outPath))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", opts.outPath, out.Width, out.Height)
	return nil
}

func progressPrinter(cmd *cobra.Command) func(step, total int) {
	w := cmd.ErrOrStderr()
	return func(step, total int) {
		fmt.Fprintf(w, "\rstep %d/%d", step, total)
		if step >= total {
			fmt.Fprintln(w)
		}
	}
}

func readRGB(path string) (imaging.RGB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return imaging.RGB{}, fmt.Errorf("read image: %w", err)
	}
	return imaging.DecodeRGB(data)
}

func readMask(path string) (imaging.Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return imaging.Mask{}, fmt.Errorf("read mask: %w", err)
	}
	return imaging.DecodeMask(data)
}
