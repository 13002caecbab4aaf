package models

import "strconv"

// Ratio is the result of a guarded division. When the denominator is zero
// the ratio is not Defined and Value is 0.
type Ratio struct {
	Value   float64
	Defined bool
}

// Undefined is the sentinel ratio for a zero denominator
var Undefined = Ratio{}

// String formats the ratio for export; an undefined ratio is the empty string
func (r Ratio) String() string {
	if !r.Defined {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'g', -1, 64)
}

// MetricRow holds the per-image measurements in export order
type MetricRow struct {
	// Source identifies the image the row was measured on
	Source string

	// UneditedMain is the mean main-channel intensity over all pixels
	UneditedMain float64

	// BackgroundRemovedMain is the mean main-channel intensity over the
	// background-removed mask
	BackgroundRemovedMain float64

	// AggregatesMain is the mean main-channel intensity over the aggregates mask
	AggregatesMain float64

	// AggregatesRed is the mean red-channel intensity over the aggregates mask
	AggregatesRed float64

	// CytoplasmRed is the mean red-channel intensity over the cytoplasm mask
	CytoplasmRed float64

	// PC is the partition coefficient AggregatesRed / CytoplasmRed
	PC Ratio
}
