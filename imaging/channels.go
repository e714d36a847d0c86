package imaging

// SwapRB exchanges the first and third channel of every pixel, converting
// RGB to BGR or BGR to RGB. Applying it twice yields the original image.
// This is a pure function; the input is not modified.
func SwapRB(img RGB) RGB {
	out := RGB{Width: img.Width, Height: img.Height, Pix: make([]uint8, len(img.Pix))}
	for i := 0; i+2 < len(img.Pix); i += 3 {
		out.Pix[i] = img.Pix[i+2]
		out.Pix[i+1] = img.Pix[i+1]
		out.Pix[i+2] = img.Pix[i]
	}
	return out
}
