package imaging

import "math"

// smallGaussianKernels are the fixed kernels OpenCV uses for sigma <= 0 and
// odd sizes up to 7. Larger sizes are computed from the derived sigma.
var smallGaussianKernels = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// BlurKernelSize returns the Gaussian kernel size for a mask blur radius:
// 2*radius+1. The size is always odd, so the kernel has a defined centre.
// Negative radii are treated as zero.
func BlurKernelSize(radius int) int {
	if radius < 0 {
		radius = 0
	}
	return 2*radius + 1
}

// GaussianSigma derives sigma from an odd kernel size the way OpenCV does
// when sigma is passed as 0.
func GaussianSigma(ksize int) float64 {
	return 0.3*((float64(ksize)-1)*0.5-1) + 0.8
}

// GaussianKernel returns a normalised 1-D Gaussian kernel of odd size ksize.
func GaussianKernel(ksize int) []float64 {
	if fixed, ok := smallGaussianKernels[ksize]; ok {
		out := make([]float64, len(fixed))
		copy(out, fixed)
		return out
	}

	sigma := GaussianSigma(ksize)
	scale := -0.5 / (sigma * sigma)
	center := float64(ksize-1) * 0.5

	kernel := make([]float64, ksize)
	var sum float64
	for i := range kernel {
		x := float64(i) - center
		kernel[i] = math.Exp(scale * x * x)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect101 maps an out-of-range index into [0, n) mirroring around the
// edge pixel without repeating it (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// GaussianBlur blurs a mask with a square Gaussian kernel of size
// BlurKernelSize(radius) and sigma derived from the size. Borders are
// handled with reflect-101. A radius of 0 returns an unmodified copy.
func GaussianBlur(mask Mask, radius int) Mask {
	if radius <= 0 || len(mask.Pix) == 0 {
		return mask.Clone()
	}

	kernel := GaussianKernel(BlurKernelSize(radius))
	half := len(kernel) / 2
	w, h := mask.Width, mask.Height

	// horizontal pass
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var acc float64
			for k, weight := range kernel {
				acc += weight * float64(row[reflect101(x+k-half, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	// vertical pass
	out := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k, weight := range kernel {
				acc += weight * tmp[reflect101(y+k-half, h)*w+x]
			}
			out.Pix[y*w+x] = clampByte(acc)
		}
	}
	return out
}

// clampByte rounds to nearest and clips into the 8-bit range.
func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
