package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes PNG, JPEG, GIF, WebP, BMP or TIFF data.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, format, nil
}

// DecodeRGB decodes encoded image data into an RGB buffer. Alpha is dropped.
func DecodeRGB(data []byte) (RGB, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return RGB{}, err
	}
	return FromImage(img), nil
}

// DecodeMask decodes encoded image data into a mask using its luminance.
func DecodeMask(data []byte) (Mask, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return Mask{}, err
	}
	return MaskFromImage(img), nil
}

// FromImage converts any image.Image to an RGB buffer.
func FromImage(img image.Image) RGB {
	b := img.Bounds()
	out := NewRGB(b.Dx(), b.Dy())
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				si := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
				di := out.Offset(x, y)
				copy(out.Pix[di:di+3], rgba.Pix[si:si+3])
			}
		}
		return out
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			di := out.Offset(x, y)
			out.Pix[di], out.Pix[di+1], out.Pix[di+2] = c.R, c.G, c.B
		}
	}
	return out
}

// MaskFromImage converts any image.Image to a mask via its gray level.
func MaskFromImage(img image.Image) Mask {
	b := img.Bounds()
	out := NewMask(b.Dx(), b.Dy())
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < out.Height; y++ {
			copy(out.Pix[y*out.Width:(y+1)*out.Width], gray.Pix[gray.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y)
		}
	}
	return out
}

// ToImage converts an RGB buffer to an opaque *image.RGBA.
func (img RGB) ToImage() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for p := 0; p < img.Width*img.Height; p++ {
		dst.Pix[p*4] = img.Pix[p*3]
		dst.Pix[p*4+1] = img.Pix[p*3+1]
		dst.Pix[p*4+2] = img.Pix[p*3+2]
		dst.Pix[p*4+3] = 0xff
	}
	return dst
}

// ToImage converts a mask to *image.Gray.
func (m Mask) ToImage() *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(dst.Pix, m.Pix)
	return dst
}

// EncodePNG encodes an RGB buffer as PNG. Callers holding BGR data must
// SwapRB first.
func EncodePNG(img RGB) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.ToImage()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return buf.Bytes(), nil
}

// EncodeMaskPNG encodes a mask as 8-bit grayscale PNG.
func EncodeMaskPNG(m Mask) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.ToImage()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return buf.Bytes(), nil
}

// MaskFromFloat converts a normalised float mask back to 8-bit samples.
func MaskFromFloat(width, height int, values []float32) (Mask, error) {
	if width <= 0 || height <= 0 || len(values) != width*height {
		return Mask{}, fmt.Errorf("%w: %d values for %dx%d mask", ErrInvalidDimensions, len(values), width, height)
	}
	out := NewMask(width, height)
	for i, v := range values {
		out.Pix[i] = clampByte(float64(v) * 255)
	}
	return out, nil
}

// EncodeBGRPNG encodes a BGR buffer as PNG.
func EncodeBGRPNG(img RGB) ([]byte, error) {
	return EncodePNG(SwapRB(img))
}
