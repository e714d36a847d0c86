// Package sampler resolves diffusion scheduler names to scheduler
// configurations that can be handed to a pipeline per call.
package sampler

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownSampler is returned for a name with no scheduler mapping.
var ErrUnknownSampler = errors.New("sampler: unknown sampler")

// Sampler names a denoising scheduler.
type Sampler string

// Supported samplers.
const (
	DDIM    Sampler = "ddim"
	PNDM    Sampler = "pndm"
	KLMS    Sampler = "k_lms"
	KEuler  Sampler = "k_euler"
	KEulerA Sampler = "k_euler_a"
	DPMPP   Sampler = "dpm++"
	UniPC   Sampler = "uni_pc"
	LCM     Sampler = "lcm"
)

// Config is a scheduler configuration as held by a pipeline.
type Config map[string]any

// Clone returns a shallow copy of c. A nil Config clones to an empty one.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	maps.Copy(out, c)
	return out
}

// Scheduler is a resolved scheduler ready to pass to a single inference call.
type Scheduler struct {
	Sampler Sampler
	Class   string // diffusers class name
	Config  Config
}

type entry struct {
	class string
	webUI string
}

var schedulers = map[Sampler]entry{
	DDIM:    {class: "DDIMScheduler", webUI: "DDIM"},
	PNDM:    {class: "PNDMScheduler", webUI: "PLMS"},
	KLMS:    {class: "LMSDiscreteScheduler", webUI: "LMS"},
	KEuler:  {class: "EulerDiscreteScheduler", webUI: "Euler"},
	KEulerA: {class: "EulerAncestralDiscreteScheduler", webUI: "Euler a"},
	DPMPP:   {class: "DPMSolverMultistepScheduler", webUI: "DPM++ 2M"},
	UniPC:   {class: "UniPCMultistepScheduler", webUI: "UniPC"},
	LCM:     {class: "LCMScheduler", webUI: "LCM"},
}

// Get resolves name to a Scheduler built from base. base is copied, so the
// caller's configuration is never modified by later edits to the result.
func Get(name string, base Config) (Scheduler, error) {
	s := Sampler(name)
	e, ok := schedulers[s]
	if !ok {
		return Scheduler{}, fmt.Errorf("%w: %q", ErrUnknownSampler, name)
	}

	cfg := base.Clone()
	cfg["_class_name"] = e.class

	return Scheduler{Sampler: s, Class: e.class, Config: cfg}, nil
}

// Valid reports whether name has a scheduler mapping.
func Valid(name string) bool {
	_, ok := schedulers[Sampler(name)]
	return ok
}

// Names returns every supported sampler, sorted.
func Names() []Sampler {
	return slices.Sorted(maps.Keys(schedulers))
}

// WebUIName returns the AUTOMATIC1111 display name for s, or "" if s is
// unknown.
func WebUIName(s Sampler) string {
	return schedulers[s].webUI
}
