// Package imaging provides the pixel plumbing around an inpainting pipeline.
//
// All functions in this package are atoms: pure transformations over plain
// interleaved byte buffers. None of them mutate their inputs.
//
//   - Types: RGB (H×W×3 bytes), Mask (H×W×1 bytes), Float (H×W×C float32)
//   - Channel order: SwapRB converts RGB to BGR and back
//   - Masks: GaussianBlur, NormalizeMask
//   - Output: Denormalize rescales pipeline floats to 8-bit samples
//   - Colour: MatchHistograms
//   - Geometry: PadRGB, PadMask, CropRGB, ResizeRGB, ResizeMask, ResizeMaxSize
//   - Codecs: DecodeRGB, DecodeMask, EncodePNG, EncodeMaskPNG
//
// The RGB type carries BGR data too. Which order a buffer holds is a
// convention between the caller and callee, as with OpenCV arrays.
package imaging
