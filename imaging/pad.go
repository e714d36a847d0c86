package imaging

import "fmt"

// CeilModulo rounds x up to the next multiple of mod.
func CeilModulo(x, mod int) int {
	if x%mod == 0 {
		return x
	}
	return (x/mod + 1) * mod
}

// PaddedSize returns the dimensions an image of width×height is padded to:
// each side rounded up to a multiple of mod, at least minSize, and equal
// sides when square is set. minSize of 0 disables the lower bound.
func PaddedSize(width, height, mod, minSize int, square bool) (int, int, error) {
	if mod <= 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidPaddingSize, mod)
	}
	if minSize > 0 && minSize%mod != 0 {
		return 0, 0, fmt.Errorf("%w: min size %d is not a multiple of %d", ErrInvalidPaddingSize, minSize, mod)
	}

	outW := CeilModulo(width, mod)
	outH := CeilModulo(height, mod)
	if minSize > 0 {
		outW = max(outW, minSize)
		outH = max(outH, minSize)
	}
	if square {
		side := max(outW, outH)
		outW, outH = side, side
	}
	return outW, outH, nil
}

// symmetricIndex maps an index past the end of [0, n) by mirroring and
// repeating the edge sample (...cba|abcdef|fedc...).
func symmetricIndex(i, n int) int {
	period := 2 * n
	j := i % period
	if j >= n {
		j = period - 1 - j
	}
	return j
}

// PadRGB pads img on the bottom and right with symmetric reflection so both
// sides satisfy PaddedSize.
func PadRGB(img RGB, mod, minSize int, square bool) (RGB, error) {
	if err := img.Validate(); err != nil {
		return RGB{}, err
	}
	outW, outH, err := PaddedSize(img.Width, img.Height, mod, minSize, square)
	if err != nil {
		return RGB{}, err
	}
	if outW == img.Width && outH == img.Height {
		return img.Clone(), nil
	}

	out := NewRGB(outW, outH)
	for y := 0; y < outH; y++ {
		sy := symmetricIndex(y, img.Height)
		for x := 0; x < outW; x++ {
			sx := symmetricIndex(x, img.Width)
			copy(out.Pix[out.Offset(x, y):out.Offset(x, y)+3], img.Pix[img.Offset(sx, sy):img.Offset(sx, sy)+3])
		}
	}
	return out, nil
}

// PadMask pads a mask exactly like PadRGB.
func PadMask(mask Mask, mod, minSize int, square bool) (Mask, error) {
	if err := mask.Validate(); err != nil {
		return Mask{}, err
	}
	outW, outH, err := PaddedSize(mask.Width, mask.Height, mod, minSize, square)
	if err != nil {
		return Mask{}, err
	}

	out := NewMask(outW, outH)
	for y := 0; y < outH; y++ {
		sy := symmetricIndex(y, mask.Height)
		for x := 0; x < outW; x++ {
			out.Set(x, y, mask.At(symmetricIndex(x, mask.Width), sy))
		}
	}
	return out, nil
}

// CropRGB returns the top-left width×height region of img.
func CropRGB(img RGB, width, height int) (RGB, error) {
	if width <= 0 || height <= 0 || width > img.Width || height > img.Height {
		return RGB{}, fmt.Errorf("%w: crop %dx%d from %dx%d",
			ErrInvalidDimensions, width, height, img.Width, img.Height)
	}
	out := NewRGB(width, height)
	rowBytes := width * 3
	for y := 0; y < height; y++ {
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], img.Pix[img.Offset(0, y):img.Offset(0, y)+rowBytes])
	}
	return out, nil
}
