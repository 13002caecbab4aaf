package masks

import (
	"errors"
	"math"
	"testing"

	"qumin/internal/models"
)

// planeFromRows builds a plane from a row-major literal
func planeFromRows(rows [][]float64) *models.IntensityPlane {
	h := len(rows)
	w := len(rows[0])
	p := models.NewIntensityPlane(w, h)
	for y, row := range rows {
		copy(p.Pix[y*w:], row)
	}
	return p
}

// patternPlane fills a plane with a deterministic non-trivial pattern
func patternPlane(w, h int) *models.IntensityPlane {
	p := models.NewIntensityPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Pix[y*w+x] = float64((x*7+y*13)%17) + math.Sin(float64(x*y))
		}
	}
	return p
}

func centerSquare() *models.IntensityPlane {
	return planeFromRows([][]float64{
		{0, 0, 0, 0},
		{0, 10, 10, 0},
		{0, 10, 10, 0},
		{0, 0, 0, 0},
	})
}

// TestCenterSquareExample checks the worked 4x4 example: both thresholds
// select exactly the four bright pixels, so the cytoplasm is empty and the
// partition coefficient is undefined.
func TestCenterSquareExample(t *testing.T) {
	main := centerSquare()
	red := centerSquare()

	res, err := Compute(main, red, Settings{LowerK: 0.25, UpperK: 0.5})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if res.Thresholds.Mean != 2.5 {
		t.Errorf("Expected mean 2.5, got %f", res.Thresholds.Mean)
	}
	if math.Abs(res.Thresholds.Std-math.Sqrt(18.75)) > 1e-12 {
		t.Errorf("Expected population std %f, got %f", math.Sqrt(18.75), res.Thresholds.Std)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := main.At(x, y) == 10
			if got := res.Masks.BackgroundRemoved.At(x, y); got != want {
				t.Errorf("BackgroundRemoved(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}

	if !res.Masks.Aggregates.Equal(res.Masks.BackgroundRemoved) {
		t.Errorf("Expected aggregates to equal background-removed mask")
	}
	if n := res.Masks.Cytoplasm.Count(); n != 0 {
		t.Errorf("Expected empty cytoplasm, got %d pixels", n)
	}
	if res.Metrics.CytoplasmRed != 0 {
		t.Errorf("Expected cytoplasm red mean 0, got %f", res.Metrics.CytoplasmRed)
	}
	if res.Metrics.PC.Defined {
		t.Errorf("Expected undefined PC, got %v", res.Metrics.PC.Value)
	}
	if res.Metrics.AggregatesMain != 10 || res.Metrics.BackgroundRemovedMain != 10 {
		t.Errorf("Expected masked main means of 10, got %f and %f",
			res.Metrics.AggregatesMain, res.Metrics.BackgroundRemovedMain)
	}
}

// TestZeroVarianceMasks verifies that with std = 0 both masks collapse to
// plane > mean regardless of k
func TestZeroVarianceMasks(t *testing.T) {
	p := models.NewIntensityPlane(6, 5)
	for i := range p.Pix {
		p.Pix[i] = 42
	}

	for _, ks := range [][2]float64{{0, 0}, {0.25, 0.2}, {-3, 7}, {5, 1}} {
		m, th, _, err := DeriveMasks(p, Settings{LowerK: ks[0], UpperK: ks[1]})
		if err != nil {
			t.Fatalf("DeriveMasks failed: %v", err)
		}
		if th.Std != 0 {
			t.Errorf("Expected std 0, got %f", th.Std)
		}
		ref := Above(p, th.Mean)
		if !m.BackgroundRemoved.Equal(ref) || !m.Aggregates.Equal(ref) {
			t.Errorf("k=%v: masks differ from plane > mean", ks)
		}
		if n := m.BackgroundRemoved.Count(); n != 0 {
			t.Errorf("k=%v: expected no pixels strictly above a constant mean, got %d", ks, n)
		}
	}
}

// TestCytoplasmIsDifference verifies cytoplasm = bg AND NOT agg pixel-wise
// for both orderings of k and with dilation
func TestCytoplasmIsDifference(t *testing.T) {
	main := patternPlane(23, 19)
	cases := []Settings{
		{LowerK: 0.1, UpperK: 0.9},
		{LowerK: 0.9, UpperK: 0.1},
		{LowerK: 0, UpperK: 1, DilateSize: 3},
		{LowerK: -0.5, UpperK: 0.5, BlurSigma: 1.2, DilateSize: 5},
	}

	for _, s := range cases {
		m, _, _, err := DeriveMasks(main, s)
		if err != nil {
			t.Fatalf("DeriveMasks(%+v) failed: %v", s, err)
		}
		for i := range m.Cytoplasm.Bits {
			want := m.BackgroundRemoved.Bits[i] && !m.Aggregates.Bits[i]
			if m.Cytoplasm.Bits[i] != want {
				t.Fatalf("%+v: cytoplasm pixel %d = %v, want %v", s, i, m.Cytoplasm.Bits[i], want)
			}
		}
	}
}

// TestAggregatesSubset verifies aggregates ⊆ background-removed when upperK >= lowerK
func TestAggregatesSubset(t *testing.T) {
	main := patternPlane(31, 17)
	for _, s := range []Settings{
		{LowerK: 0.25, UpperK: 0.25},
		{LowerK: 0.1, UpperK: 1.5},
		{LowerK: -1, UpperK: 0, DilateSize: 3},
		{LowerK: 0, UpperK: 2, BlurSigma: 2},
	} {
		m, _, _, err := DeriveMasks(main, s)
		if err != nil {
			t.Fatalf("DeriveMasks(%+v) failed: %v", s, err)
		}
		if !m.Aggregates.SubsetOf(m.BackgroundRemoved) {
			t.Errorf("%+v: aggregates not a subset of background-removed", s)
		}
	}
}

// TestUneditedIndependentOfThresholds checks the unedited metric is the plain mean
func TestUneditedIndependentOfThresholds(t *testing.T) {
	main := patternPlane(12, 9)
	red := patternPlane(12, 9)

	var sum float64
	for _, v := range main.Pix {
		sum += v
	}
	want := sum / float64(len(main.Pix))

	for _, s := range []Settings{
		{LowerK: 0, UpperK: 0},
		{LowerK: 3, UpperK: 9, BlurSigma: 1, MetricsSource: MetricsSmoothed},
		{LowerK: -2, UpperK: 0.5, DilateSize: 7},
	} {
		res, err := Compute(main, red, s)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		if math.Abs(res.Metrics.UneditedMain-want) > 1e-9 {
			t.Errorf("%+v: unedited mean %f, want %f", s, res.Metrics.UneditedMain, want)
		}
	}
}

// TestPartitionCoefficient checks the ratio and its zero-denominator sentinel
func TestPartitionCoefficient(t *testing.T) {
	pc := PartitionCoefficient(6, 4)
	if !pc.Defined || pc.Value != 1.5 {
		t.Errorf("Expected defined PC 1.5, got %+v", pc)
	}

	for _, agg := range []float64{0, 3.5, -1} {
		pc := PartitionCoefficient(agg, 0)
		if pc != models.Undefined {
			t.Errorf("Expected undefined PC for %f/0, got %+v", agg, pc)
		}
	}

	if pc := PartitionCoefficient(1, math.NaN()); pc.Defined {
		t.Errorf("Expected undefined PC for NaN denominator, got %+v", pc)
	}
}

// TestPartitionCoefficientFromPlanes exercises a case with a non-empty cytoplasm
func TestPartitionCoefficientFromPlanes(t *testing.T) {
	main := planeFromRows([][]float64{
		{0, 0, 0, 0},
		{0, 5, 5, 0},
		{0, 5, 20, 0},
		{0, 0, 0, 0},
	})
	red := planeFromRows([][]float64{
		{1, 1, 1, 1},
		{1, 2, 2, 1},
		{1, 2, 8, 1},
		{1, 1, 1, 1},
	})

	// mean = 2.1875; lower threshold at k=0 selects the 5s and the 20,
	// upper at k=2 only the 20.
	res, err := Compute(main, red, Settings{LowerK: 0, UpperK: 2})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if n := res.Masks.Aggregates.Count(); n != 1 {
		t.Fatalf("Expected 1 aggregate pixel, got %d", n)
	}
	if n := res.Masks.Cytoplasm.Count(); n != 3 {
		t.Fatalf("Expected 3 cytoplasm pixels, got %d", n)
	}
	if res.Metrics.AggregatesRed != 8 || res.Metrics.CytoplasmRed != 2 {
		t.Errorf("Expected red means 8 and 2, got %f and %f",
			res.Metrics.AggregatesRed, res.Metrics.CytoplasmRed)
	}
	if !res.Metrics.PC.Defined || res.Metrics.PC.Value != 4 {
		t.Errorf("Expected PC 4, got %+v", res.Metrics.PC)
	}
}

// TestEmptyMaskMean checks that a mask with no pixels has mean 0
func TestEmptyMaskMean(t *testing.T) {
	p := patternPlane(5, 5)
	if got := MaskedMean(p, models.NewMask(5, 5)); got != 0 {
		t.Errorf("Expected 0 for empty mask, got %f", got)
	}

	nan := models.NewIntensityPlane(2, 1)
	nan.Pix[0] = math.NaN()
	nan.Pix[1] = math.Inf(1)
	if got := MaskedMean(nan, nil); got != 0 {
		t.Errorf("Expected 0 when no finite samples, got %f", got)
	}
}

// TestMetricsSource verifies the smoothed option changes the masked means
// but not the thresholds
func TestMetricsSource(t *testing.T) {
	main := patternPlane(16, 16)
	red := patternPlane(16, 16)

	raw, err := Compute(main, red, Settings{LowerK: 0, UpperK: 1, BlurSigma: 1.5})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	smooth, err := Compute(main, red, Settings{LowerK: 0, UpperK: 1, BlurSigma: 1.5, MetricsSource: MetricsSmoothed})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if raw.Thresholds != smooth.Thresholds {
		t.Errorf("Thresholds should not depend on the metrics source")
	}
	blurred := GaussianBlur(main, 1.5)
	want := MaskedMean(blurred, smooth.Masks.BackgroundRemoved)
	if math.Abs(smooth.Metrics.BackgroundRemovedMain-want) > 1e-12 {
		t.Errorf("Expected smoothed background mean %f, got %f", want, smooth.Metrics.BackgroundRemovedMain)
	}
	want = MaskedMean(main, raw.Masks.BackgroundRemoved)
	if raw.Metrics.BackgroundRemovedMain != want {
		t.Errorf("Expected raw background mean %f, got %f", want, raw.Metrics.BackgroundRemovedMain)
	}
}

// TestComputeErrors checks the input validation errors
func TestComputeErrors(t *testing.T) {
	main := patternPlane(4, 4)

	_, err := Compute(main, patternPlane(4, 5), DefaultSettings())
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}

	for _, size := range []int{-1, 2, 4} {
		s := DefaultSettings()
		s.DilateSize = size
		_, err := Compute(main, main, s)
		if !errors.Is(err, ErrInvalidKernelSize) {
			t.Errorf("DilateSize %d: expected ErrInvalidKernelSize, got %v", size, err)
		}
	}
}

func TestParseMetricsSource(t *testing.T) {
	for in, want := range map[string]MetricsSource{"raw": MetricsRaw, "": MetricsRaw, "smoothed": MetricsSmoothed} {
		got, err := ParseMetricsSource(in)
		if err != nil || got != want {
			t.Errorf("ParseMetricsSource(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMetricsSource("median"); err == nil {
		t.Errorf("Expected error for unknown source")
	}
}
