package imaging

import "fmt"

// NormalizeMask maps 8-bit mask samples onto [0,1] (value/255). The result
// is the single-channel H×W float mask an inpainting pipeline consumes.
func NormalizeMask(mask Mask) []float32 {
	out := make([]float32, len(mask.Pix))
	for i, v := range mask.Pix {
		out[i] = float32(v) / 255
	}
	return out
}

// Denormalize rescales pipeline output from [0,1] to 8-bit samples:
// multiply by 255, round to nearest, clip to [0,255]. Only three channel
// images are accepted.
func Denormalize(f Float) (RGB, error) {
	if err := f.Validate(); err != nil {
		return RGB{}, err
	}
	if f.Channels != 3 {
		return RGB{}, fmt.Errorf("%w: want 3, got %d", ErrChannelCount, f.Channels)
	}

	out := NewRGB(f.Width, f.Height)
	for i, v := range f.Pix {
		out.Pix[i] = clampByte(float64(v) * 255)
	}
	return out, nil
}

// ToFloat is the inverse of Denormalize up to rounding: every sample is
// divided by 255.
func ToFloat(img RGB) Float {
	out := NewFloat(img.Width, img.Height, 3)
	for i, v := range img.Pix {
		out.Pix[i] = float32(v) / 255
	}
	return out
}
