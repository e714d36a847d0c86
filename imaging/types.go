package imaging

import (
	"errors"
	"fmt"
)

// Image validation errors
var (
	ErrEmptyImage         = errors.New("imaging: image data is empty")
	ErrInvalidImage       = errors.New("imaging: invalid image data")
	ErrInvalidDimensions  = errors.New("imaging: invalid dimensions")
	ErrDimensionMismatch  = errors.New("imaging: image and mask dimensions differ")
	ErrChannelCount       = errors.New("imaging: unexpected channel count")
	ErrInvalidPaddingSize = errors.New("imaging: invalid padding modulus")
)

// RGB is an 8-bit, three channel image stored row-major and interleaved
// (H×W×3). The same layout holds BGR data.
type RGB struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGB allocates a zeroed width×height image.
func NewRGB(width, height int) RGB {
	return RGB{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// Offset returns the index of the first sample of pixel (x, y).
func (img RGB) Offset(x, y int) int {
	return (y*img.Width + x) * 3
}

// Clone returns a deep copy.
func (img RGB) Clone() RGB {
	pix := make([]uint8, len(img.Pix))
	copy(pix, img.Pix)
	return RGB{Width: img.Width, Height: img.Height, Pix: pix}
}

// Validate checks that the buffer length matches the dimensions.
func (img RGB) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: width=%d height=%d", ErrInvalidDimensions, img.Width, img.Height)
	}
	if want := img.Width * img.Height * 3; len(img.Pix) != want {
		return fmt.Errorf("%w: expected %d bytes for %dx%d RGB, got %d",
			ErrInvalidDimensions, want, img.Width, img.Height, len(img.Pix))
	}
	return nil
}

// Mask is an 8-bit single channel image (H×W×1). 255 marks pixels to
// repaint, 0 marks pixels to keep.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates a zeroed mask.
func NewMask(width, height int) Mask {
	return Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the mask sample at (x, y).
func (m Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Set writes the mask sample at (x, y).
func (m Mask) Set(x, y int, v uint8) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy.
func (m Mask) Clone() Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return Mask{Width: m.Width, Height: m.Height, Pix: pix}
}

// Validate checks that the buffer length matches the dimensions.
func (m Mask) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: width=%d height=%d", ErrInvalidDimensions, m.Width, m.Height)
	}
	if want := m.Width * m.Height; len(m.Pix) != want {
		return fmt.Errorf("%w: expected %d bytes for %dx%d mask, got %d",
			ErrInvalidDimensions, want, m.Width, m.Height, len(m.Pix))
	}
	return nil
}

// Float is a floating point image with nominal range [0,1], the raw array
// representation a pipeline returns.
type Float struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// NewFloat allocates a zeroed float image.
func NewFloat(width, height, channels int) Float {
	return Float{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

// Validate checks that the buffer length matches the dimensions.
func (f Float) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || f.Channels <= 0 {
		return fmt.Errorf("%w: width=%d height=%d channels=%d",
			ErrInvalidDimensions, f.Width, f.Height, f.Channels)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("%w: expected %d samples, got %d", ErrInvalidDimensions, want, len(f.Pix))
	}
	return nil
}

// SameSize returns ErrDimensionMismatch unless img and mask share spatial
// dimensions. Both buffers are validated first.
func SameSize(img RGB, mask Mask) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if err := mask.Validate(); err != nil {
		return err
	}
	if img.Width != mask.Width || img.Height != mask.Height {
		return fmt.Errorf("%w: image %dx%d, mask %dx%d",
			ErrDimensionMismatch, img.Width, img.Height, mask.Width, mask.Height)
	}
	return nil
}
