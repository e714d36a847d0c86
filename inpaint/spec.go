package inpaint

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ModelSpec is the static metadata of one inpainting model.
type ModelSpec struct {
	// Name is the identifier users select the model by.
	Name string

	// ModelID is the pretrained weights identifier handed to the loader.
	ModelID string

	// PadMod is the modulus input sizes are padded up to.
	PadMod int

	// MinSize is the smallest padded side length.
	MinSize int

	// PadToSquare pads to a square canvas.
	PadToSquare bool
}

// Kandinsky carries the size constraints shared by the Kandinsky family.
// It has no weights of its own; register a Variant of it.
var Kandinsky = ModelSpec{PadMod: 64, MinSize: 512}

// Kandinsky22 is the Kandinsky 2.2 decoder inpainting model.
var Kandinsky22 = Kandinsky.Variant("kandinsky2.2", "kandinsky-community/kandinsky-2-2-decoder-inpaint")

// Variant returns a copy of s with a new name and weights identifier.
func (s ModelSpec) Variant(name, modelID string) ModelSpec {
	s.Name = name
	s.ModelID = modelID
	return s
}

// Validate reports whether s can be registered.
func (s ModelSpec) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidSpec)
	case s.ModelID == "":
		return fmt.Errorf("%w: %s has no model id", ErrInvalidSpec, s.Name)
	case s.PadMod <= 0:
		return fmt.Errorf("%w: %s pad modulus %d", ErrInvalidSpec, s.Name, s.PadMod)
	case s.MinSize < 0 || (s.MinSize > 0 && s.MinSize%s.PadMod != 0):
		return fmt.Errorf("%w: %s min size %d is not a multiple of %d", ErrInvalidSpec, s.Name, s.MinSize, s.PadMod)
	}
	return nil
}

// IsDownloaded always reports true. These weights are fetched once when
// the application starts and cannot be switched from the settings UI.
func (s ModelSpec) IsDownloaded() bool {
	return true
}

var (
	registryMu sync.RWMutex
	registry   = map[string]ModelSpec{}
)

func init() {
	if err := Register(Kandinsky22); err != nil {
		panic(err)
	}
}

// Register adds spec to the model table.
func Register(spec ModelSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[spec.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, spec.Name)
	}
	registry[spec.Name] = spec
	return nil
}

// Lookup returns the spec registered under name.
func Lookup(name string) (ModelSpec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := registry[name]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return spec, nil
}

// Names returns every registered model name, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}
