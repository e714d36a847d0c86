package imaging

import (
	"gonum.org/v1/gonum/floats"
)

const histogramBins = 256

// MatchHistograms remaps each channel of source so that its distribution
// matches reference. Histograms are built only from pixels the mask keeps
// (mask == 0); the resulting lookup is applied to every source pixel.
//
// source and reference must use the same channel order. When the mask has
// no kept pixels there is nothing to match against and a copy of source is
// returned.
func MatchHistograms(source, reference RGB, mask Mask) (RGB, error) {
	if err := SameSize(source, mask); err != nil {
		return RGB{}, err
	}
	if err := SameSize(reference, mask); err != nil {
		return RGB{}, err
	}

	out := source.Clone()
	for c := 0; c < 3; c++ {
		srcHist := channelHistogram(source, mask, c)
		refHist := channelHistogram(reference, mask, c)

		srcCDF, ok := normalizedCDF(srcHist)
		if !ok {
			return out, nil
		}
		refCDF, ok := normalizedCDF(refHist)
		if !ok {
			return out, nil
		}

		lookup := histogramLookup(srcCDF, refCDF)
		for i := c; i < len(out.Pix); i += 3 {
			out.Pix[i] = lookup[source.Pix[i]]
		}
	}
	return out, nil
}

// channelHistogram counts channel values over pixels where mask is 0.
func channelHistogram(img RGB, mask Mask, channel int) []float64 {
	hist := make([]float64, histogramBins)
	for p, m := range mask.Pix {
		if m != 0 {
			continue
		}
		hist[img.Pix[p*3+channel]]++
	}
	return hist
}

// normalizedCDF returns the cumulative histogram scaled so its last value
// is 1. ok is false for an empty histogram.
func normalizedCDF(hist []float64) ([]float64, bool) {
	cdf := floats.CumSum(make([]float64, len(hist)), hist)
	total := floats.Max(cdf)
	if total == 0 {
		return nil, false
	}
	floats.Scale(1/total, cdf)
	return cdf, true
}

// histogramLookup maps every source level to the first reference level
// whose CDF reaches the source CDF. A level with no such reference keeps
// the previous mapping.
func histogramLookup(srcCDF, refCDF []float64) [histogramBins]uint8 {
	var lookup [histogramBins]uint8
	var value uint8
	for s, sv := range srcCDF {
		for r, rv := range refCDF {
			if rv >= sv {
				value = uint8(r)
				break
			}
		}
		lookup[s] = value
	}
	return lookup
}
