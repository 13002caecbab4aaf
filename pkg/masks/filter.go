package masks

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"qumin/internal/models"
)

// gaussianTruncate is the kernel half-width in standard deviations
const gaussianTruncate = 4.0

// gaussianKernel1D returns a normalized sampled Gaussian of radius
// int(4*sigma + 0.5)
func gaussianKernel1D(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// reflectIndex maps an out-of-range coordinate back into [0, n) by mirroring
// about the pixel edges (d c b a | a b c d | d c b a)
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// GaussianBlur smooths the plane with a separable Gaussian filter of the
// given standard deviation. The input is left untouched. A sigma <= 0
// returns a copy of the input.
func GaussianBlur(plane *models.IntensityPlane, sigma float64) *models.IntensityPlane {
	if sigma <= 0 {
		return plane.Clone()
	}

	kernel := gaussianKernel1D(sigma)
	radius := len(kernel) / 2
	w, h := plane.Width, plane.Height

	tmp := models.NewIntensityPlane(w, h)
	out := models.NewIntensityPlane(w, h)

	// Rows
	padded := make([]float64, w+2*radius)
	for y := 0; y < h; y++ {
		row := plane.Pix[y*w : (y+1)*w]
		for i := range padded {
			padded[i] = row[reflectIndex(i-radius, w)]
		}
		for x := 0; x < w; x++ {
			tmp.Pix[y*w+x] = floats.Dot(kernel, padded[x:x+len(kernel)])
		}
	}

	// Columns
	padded = make([]float64, h+2*radius)
	for x := 0; x < w; x++ {
		for i := range padded {
			padded[i] = tmp.Pix[reflectIndex(i-radius, h)*w+x]
		}
		for y := 0; y < h; y++ {
			out.Pix[y*w+x] = floats.Dot(kernel, padded[y:y+len(kernel)])
		}
	}

	return out
}
