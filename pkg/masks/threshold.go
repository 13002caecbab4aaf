package masks

import (
	"gonum.org/v1/gonum/stat"

	"qumin/internal/models"
)

// Thresholds holds the plane statistics and the two derived intensity cut-offs
type Thresholds struct {
	// Mean and Std are the population mean and standard deviation of the plane
	Mean float64
	Std  float64

	// Lower is Mean + lowerK*Std, used for the background-removed mask
	Lower float64

	// Upper is Mean + upperK*Std, used for the aggregates mask
	Upper float64
}

// ComputeThresholds returns mean + k*std for both k values. The standard
// deviation is the population estimator, so a constant plane gives Std 0
// and both thresholds equal the mean.
func ComputeThresholds(plane *models.IntensityPlane, lowerK, upperK float64) Thresholds {
	mean, std := stat.PopMeanStdDev(plane.Pix, nil)
	return Thresholds{
		Mean:  mean,
		Std:   std,
		Lower: mean + lowerK*std,
		Upper: mean + upperK*std,
	}
}

// Above returns the mask of pixels strictly greater than threshold
func Above(plane *models.IntensityPlane, threshold float64) *models.Mask {
	m := models.NewMask(plane.Width, plane.Height)
	for i, v := range plane.Pix {
		m.Bits[i] = v > threshold
	}
	return m
}
