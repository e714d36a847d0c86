package imaging

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ResizeMaxSize returns the dimensions of width×height scaled so the longer
// side equals limit. Images already within the limit keep their size.
func ResizeMaxSize(width, height, limit int) (int, int) {
	longer := max(width, height)
	if limit <= 0 || longer <= limit {
		return width, height
	}
	ratio := float64(limit) / float64(longer)
	return max(1, int(float64(width)*ratio+0.5)), max(1, int(float64(height)*ratio+0.5))
}

// ResizeRGB resamples img to width×height with Catmull-Rom interpolation.
func ResizeRGB(img RGB, width, height int) (RGB, error) {
	if err := img.Validate(); err != nil {
		return RGB{}, err
	}
	if width <= 0 || height <= 0 {
		return RGB{}, fmt.Errorf("%w: resize to %dx%d", ErrInvalidDimensions, width, height)
	}
	if width == img.Width && height == img.Height {
		return img.Clone(), nil
	}

	src := img.ToImage()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromImage(dst), nil
}

// ResizeMask resamples mask to width×height with bilinear interpolation.
func ResizeMask(mask Mask, width, height int) (Mask, error) {
	if err := mask.Validate(); err != nil {
		return Mask{}, err
	}
	if width <= 0 || height <= 0 {
		return Mask{}, fmt.Errorf("%w: resize to %dx%d", ErrInvalidDimensions, width, height)
	}
	if width == mask.Width && height == mask.Height {
		return mask.Clone(), nil
	}

	src := mask.ToImage()
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return MaskFromImage(dst), nil
}
