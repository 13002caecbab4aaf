// Package masks derives intensity-threshold masks from a fluorescence
// channel and measures mean intensities under them.
//
// The main channel is thresholded at mean + k*std twice: a lower k gives the
// background-removed region and an upper k the aggregates. The cytoplasm is
// what remains of the background-removed region once the aggregates are
// taken out. The red channel is then measured over the aggregates and the
// cytoplasm, and their ratio is the partition coefficient.
package masks

import (
	"errors"
	"fmt"

	"qumin/internal/models"
)

var (
	// ErrShapeMismatch is returned when the main and red planes differ in size
	ErrShapeMismatch = errors.New("plane shape mismatch")

	// ErrInvalidKernelSize is returned for an even or negative dilation size
	ErrInvalidKernelSize = errors.New("invalid kernel size")
)

// MetricsSource selects which main-channel plane the reported means are taken from
type MetricsSource int

const (
	// MetricsRaw reports means over the unsmoothed main plane
	MetricsRaw MetricsSource = iota

	// MetricsSmoothed reports the masked means over the blurred plane used
	// for thresholding. The unedited mean always uses the raw plane.
	MetricsSmoothed
)

func (s MetricsSource) String() string {
	switch s {
	case MetricsRaw:
		return "raw"
	case MetricsSmoothed:
		return "smoothed"
	}
	return fmt.Sprintf("MetricsSource(%d)", int(s))
}

// ParseMetricsSource converts "raw" or "smoothed" to a MetricsSource
func ParseMetricsSource(s string) (MetricsSource, error) {
	switch s {
	case "raw", "":
		return MetricsRaw, nil
	case "smoothed":
		return MetricsSmoothed, nil
	}
	return MetricsRaw, fmt.Errorf("unknown metrics source %q (want raw or smoothed)", s)
}

// Settings controls threshold derivation and mask cleanup
type Settings struct {
	// LowerK scales the standard deviation for the background-removed threshold
	LowerK float64

	// UpperK scales the standard deviation for the aggregates threshold
	UpperK float64

	// BlurSigma is the Gaussian sigma applied before thresholding; 0 disables
	BlurSigma float64

	// DilateSize is the odd side of the square dilation element; 0 disables
	DilateSize int

	// MetricsSource chooses the main-channel plane for the reported means
	MetricsSource MetricsSource
}

// DefaultSettings returns the settings the command line uses when nothing is given
func DefaultSettings() Settings {
	return Settings{
		LowerK: 0.25,
		UpperK: 0.20,
	}
}

// Validate checks the settings independent of any image
func (s Settings) Validate() error {
	return validateKernelSize(s.DilateSize)
}

// Masks are the three regions derived from one main-channel plane
type Masks struct {
	BackgroundRemoved *models.Mask
	Aggregates        *models.Mask
	Cytoplasm         *models.Mask
}

// Result is everything computed for one image
type Result struct {
	Masks      Masks
	Thresholds Thresholds

	// Metrics has every field but Source filled in
	Metrics models.MetricRow
}

// DeriveMasks thresholds the main plane and returns the three masks along
// with the thresholds used. The returned plane is the one statistics were
// computed on (the blurred plane when BlurSigma > 0).
func DeriveMasks(main *models.IntensityPlane, s Settings) (Masks, Thresholds, *models.IntensityPlane, error) {
	if err := s.Validate(); err != nil {
		return Masks{}, Thresholds{}, nil, err
	}

	plane := main
	if s.BlurSigma > 0 {
		plane = GaussianBlur(main, s.BlurSigma)
	}

	th := ComputeThresholds(plane, s.LowerK, s.UpperK)
	bg := Above(plane, th.Lower)
	agg := Above(plane, th.Upper)

	if s.DilateSize > 0 {
		var err error
		if bg, err = Dilate(bg, s.DilateSize); err != nil {
			return Masks{}, Thresholds{}, nil, err
		}
		if agg, err = Dilate(agg, s.DilateSize); err != nil {
			return Masks{}, Thresholds{}, nil, err
		}
	}

	return Masks{
		BackgroundRemoved: bg,
		Aggregates:        agg,
		Cytoplasm:         bg.AndNot(agg),
	}, th, plane, nil
}

// Compute derives the masks from the main plane and measures both planes
// under them.
//
// Parameters:
//   - main: the projected main (thresholding) channel
//   - red: the projected red channel, same shape as main
//   - s: threshold and cleanup settings
//
// Returns:
//   - the masks, thresholds and metrics, or ErrShapeMismatch /
//     ErrInvalidKernelSize
func Compute(main, red *models.IntensityPlane, s Settings) (*Result, error) {
	if !main.SameShape(red) {
		return nil, fmt.Errorf("%w: main is %dx%d, red is %dx%d",
			ErrShapeMismatch, main.Width, main.Height, red.Width, red.Height)
	}

	m, th, smoothed, err := DeriveMasks(main, s)
	if err != nil {
		return nil, err
	}

	measured := main
	if s.MetricsSource == MetricsSmoothed {
		measured = smoothed
	}

	row := models.MetricRow{
		UneditedMain:          MaskedMean(main, nil),
		BackgroundRemovedMain: MaskedMean(measured, m.BackgroundRemoved),
		AggregatesMain:        MaskedMean(measured, m.Aggregates),
		AggregatesRed:         MaskedMean(red, m.Aggregates),
		CytoplasmRed:          MaskedMean(red, m.Cytoplasm),
	}
	row.PC = PartitionCoefficient(row.AggregatesRed, row.CytoplasmRed)

	return &Result{Masks: m, Thresholds: th, Metrics: row}, nil
}
