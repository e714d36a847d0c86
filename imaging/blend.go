package imaging

// PasteThreshold is the mask level below which a pixel counts as kept.
const PasteThreshold = 127

// Blend composites an inpainted BGR result over the original RGB image
// using the mask as per-pixel weight: result*m + original*(1-m), m = mask/255.
// The returned image is BGR.
func Blend(result, original RGB, mask Mask) (RGB, error) {
	if err := SameSize(result, mask); err != nil {
		return RGB{}, err
	}
	if err := SameSize(original, mask); err != nil {
		return RGB{}, err
	}

	out := NewRGB(result.Width, result.Height)
	for p, mv := range mask.Pix {
		m := float64(mv) / 255
		i := p * 3
		// original is RGB, result and out are BGR
		out.Pix[i] = clampByte(float64(result.Pix[i])*m + float64(original.Pix[i+2])*(1-m))
		out.Pix[i+1] = clampByte(float64(result.Pix[i+1])*m + float64(original.Pix[i+1])*(1-m))
		out.Pix[i+2] = clampByte(float64(result.Pix[i+2])*m + float64(original.Pix[i])*(1-m))
	}
	return out, nil
}

// PasteOriginal restores original pixels wherever the mask is below
// PasteThreshold. result is BGR, original is RGB, the return value is BGR.
func PasteOriginal(result, original RGB, mask Mask) (RGB, error) {
	if err := SameSize(result, mask); err != nil {
		return RGB{}, err
	}
	if err := SameSize(original, mask); err != nil {
		return RGB{}, err
	}

	out := result.Clone()
	for p, mv := range mask.Pix {
		if mv >= PasteThreshold {
			continue
		}
		i := p * 3
		out.Pix[i] = original.Pix[i+2]
		out.Pix[i+1] = original.Pix[i+1]
		out.Pix[i+2] = original.Pix[i]
	}
	return out, nil
}
