package quantify

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"qumin/internal/models"
	"qumin/pkg/imageio"
)

// GroupSummary holds the box statistics of one column over a group of rows
type GroupSummary struct {
	Group  string
	N      int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// columnValue extracts a results column from a row by its header name.
// The bool is false when the cell is empty.
func columnValue(row models.MetricRow, column string) (float64, bool, error) {
	switch column {
	case imageio.ResultColumns[1]:
		return row.UneditedMain, true, nil
	case imageio.ResultColumns[2]:
		return row.BackgroundRemovedMain, true, nil
	case imageio.ResultColumns[3]:
		return row.AggregatesMain, true, nil
	case imageio.ResultColumns[4]:
		return row.AggregatesRed, true, nil
	case imageio.ResultColumns[5]:
		return row.CytoplasmRed, true, nil
	case imageio.ResultColumns[6]:
		return row.PC.Value, row.PC.Defined, nil
	}
	return 0, false, fmt.Errorf("unknown column %q (want one of %s)",
		column, strings.Join(imageio.ResultColumns[1:], ", "))
}

// GroupKey is the group a source belongs to: its first digits characters, or
// the whole name when digits is not positive.
func GroupKey(source string, digits int) string {
	if digits <= 0 {
		return source
	}
	r := []rune(source)
	if len(r) <= digits {
		return source
	}
	return string(r[:digits])
}

// Summarize groups rows by source prefix and computes box statistics of one
// column per group. Empty cells are skipped and groups with no values are
// left out. Groups are returned sorted by name.
func Summarize(rows []models.MetricRow, column string, groupDigits int) ([]GroupSummary, error) {
	groups := make(map[string][]float64)
	for _, row := range rows {
		v, ok, err := columnValue(row, column)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key := GroupKey(row.Source, groupDigits)
		groups[key] = append(groups[key], v)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]GroupSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, summarizeValues(name, groups[name]))
	}
	return summaries, nil
}

func summarizeValues(group string, values []float64) GroupSummary {
	sort.Float64s(values)

	s := GroupSummary{
		Group:  group,
		N:      len(values),
		Min:    values[0],
		Max:    values[len(values)-1],
		Q1:     percentile(values, 0.25),
		Median: percentile(values, 0.5),
		Q3:     percentile(values, 0.75),
	}
	if len(values) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}
	return s
}

// percentile interpolates linearly between the closest ranks of sorted, the
// way box plots place their quartiles. sorted must be non-empty.
func percentile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
