// Package inpaint adapts a generative inpainting pipeline to the model
// interface used by the image editor.
//
// The adapter owns the image plumbing around a pipeline.Pipeline: mask
// blur and normalisation, float to 8-bit conversion, RGB to BGR channel
// order, histogram matching, and the scale/pad/crop/blend lifecycle. The
// pipeline itself (weights, denoising loop, tokenizer) stays external.
//
// # Public API
//
//   - Register, Lookup, Names: the model capability table
//   - New(ctx, name, dev, loader, opts, logger) (*Model, error)
//   - (*Model) Forward, ForwardPostProcess, Run, Close
//   - DefaultConfig, ValidateConfig, LoadConfigFile, ConfigFromEnv
//
// # Quick Start
//
//	loader := &pipeline.StubLoader{}
//	model, err := inpaint.New(ctx, "kandinsky2.2", device.CPU, loader, inpaint.InitOptions{}, logger)
//	if err != nil {
//	    return err
//	}
//	defer model.Close()
//
//	cfg := inpaint.DefaultConfig()
//	cfg.Prompt = "a wooden door"
//	bgr, err := model.Run(ctx, img, mask, cfg)
//
// # Concurrency
//
// The scheduler is resolved per call and passed along with the request,
// so the adapter keeps no per-call state on the pipeline. Whether two
// calls may run at once is up to the pipeline implementation.
package inpaint
