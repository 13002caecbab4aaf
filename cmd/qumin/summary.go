package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"qumin/pkg/imageio"
	"qumin/pkg/quantify"
)

var (
	summaryDir     string
	summaryColumn  string
	groupDigits    int
	summaryResults string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print box statistics of a results column per image group",
	Long: `Reads the results table and prints, for one column, the count, mean,
standard deviation and five-number summary of every group of images. Images
are grouped by the first --group-digits characters of their file name, or
listed individually when it is 0. Empty PC cells are skipped.`,
	RunE: runSummary,
}

func init() {
	f := summaryCmd.Flags()
	f.StringVar(&summaryDir, "dir", ".", "Directory quantify was run on")
	f.StringVar(&summaryResults, "results", "", "Results table (default from configuration, relative to --dir)")
	f.StringVar(&summaryColumn, "column", "PC", "Column to summarize")
	f.IntVar(&groupDigits, "group-digits", 0, "File name prefix length that defines a group")

	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	path := summaryResults
	if path == "" {
		path = filepath.Join(summaryDir, cfg.Output.ResultsFile)
	}

	rows, err := imageio.ReadResultsFile(path)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	groups, err := quantify.Summarize(rows, summaryColumn, groupDigits)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"results": path,
		"rows":    len(rows),
		"groups":  len(groups),
	}).Debug("Summarized results")

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tN\tMean\tStd\tMin\tQ1\tMedian\tQ3\tMax\n", "Group")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
			g.Group, g.N, g.Mean, g.Std, g.Min, g.Q1, g.Median, g.Q3, g.Max)
	}
	return w.Flush()
}
