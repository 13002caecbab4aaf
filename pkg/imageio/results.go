package imageio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"qumin/internal/models"
)

// ResultColumns is the header of the results table
var ResultColumns = []string{
	"Filename",
	"Unedited (Intensity)",
	"Background Removed (Intensity)",
	"Aggregates (Intensity)",
	"Red Aggregates (Intensity)",
	"Red Cytoplasm (Intensity)",
	"PC",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteResults writes one CSV record per metric row. An undefined PC is an empty cell.
func WriteResults(w io.Writer, rows []models.MetricRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultColumns); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Source,
			formatFloat(r.UneditedMain),
			formatFloat(r.BackgroundRemovedMain),
			formatFloat(r.AggregatesMain),
			formatFloat(r.AggregatesRed),
			formatFloat(r.CytoplasmRed),
			r.PC.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteResultsFile writes the results table to path
func WriteResultsFile(path string, rows []models.MetricRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}

	if err := WriteResults(file, rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	return file.Close()
}

// ReadResults parses a results table written by WriteResults
func ReadResults(r io.Reader) ([]models.MetricRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ResultColumns)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("results table has no header")
	}
	for i, col := range ResultColumns {
		if records[0][i] != col {
			return nil, fmt.Errorf("unexpected column %q, want %q", records[0][i], col)
		}
	}

	rows := make([]models.MetricRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		var vals [5]float64
		for i := range vals {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", n+2, ResultColumns[i+1], err)
			}
			vals[i] = v
		}

		row := models.MetricRow{
			Source:                rec[0],
			UneditedMain:          vals[0],
			BackgroundRemovedMain: vals[1],
			AggregatesMain:        vals[2],
			AggregatesRed:         vals[3],
			CytoplasmRed:          vals[4],
		}
		if rec[6] != "" {
			pc, err := strconv.ParseFloat(rec[6], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column PC: %w", n+2, err)
			}
			row.PC = models.Ratio{Value: pc, Defined: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadResultsFile reads a results table from path
func ReadResultsFile(path string) ([]models.MetricRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadResults(file)
}
