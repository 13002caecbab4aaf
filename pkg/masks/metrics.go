package masks

import (
	"math"

	"qumin/internal/models"
)

// MaskedMean returns the mean of the plane over the pixels selected by mask.
// A nil mask selects every pixel. Non-finite samples are skipped, and a
// selection with no usable pixels has mean 0.
func MaskedMean(plane *models.IntensityPlane, mask *models.Mask) float64 {
	var sum float64
	var n int
	for i, v := range plane.Pix {
		if mask != nil && !mask.Bits[i] {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// PartitionCoefficient is the ratio of the red-channel aggregate mean to the
// red-channel cytoplasm mean. A zero or non-finite cytoplasm mean gives
// models.Undefined.
func PartitionCoefficient(aggregatesRed, cytoplasmRed float64) models.Ratio {
	if cytoplasmRed == 0 || math.IsNaN(cytoplasmRed) || math.IsInf(cytoplasmRed, 0) {
		return models.Undefined
	}
	return models.Ratio{Value: aggregatesRed / cytoplasmRed, Defined: true}
}
