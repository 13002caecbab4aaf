package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"qumin/pkg/config"
	"qumin/pkg/imageio"
	"qumin/pkg/masks"
	"qumin/pkg/quantify"
)

var (
	inputDir      string
	mainChannel   int
	redChannel    int
	lowerK        float64
	upperK        float64
	blurSigma     float64
	dilateSize    int
	metricsSource string
	saveStages    bool
	resultsFile   string
	numWorkers    int
)

var quantifyCmd = &cobra.Command{
	Use:   "quantify",
	Short: "Quantify every image in a directory",
	Long: `Loads every image (and every directory holding a Z stack of images)
in --dir, max-projects the main and red channels, thresholds the main channel
at mean + k*std and writes one row of mean intensities and the partition
coefficient per image to the results table.

Flags given on the command line override the configuration file.`,
	RunE: runQuantify,
}

func init() {
	f := quantifyCmd.Flags()
	f.StringVar(&inputDir, "dir", ".", "Directory containing the images")
	f.IntVar(&mainChannel, "main-channel", 0, "Channel index thresholded to derive the masks")
	f.IntVar(&redChannel, "red-channel", 1, "Channel index measured over aggregates and cytoplasm")
	f.Float64Var(&lowerK, "lower-k", 0.25, "Std multiplier of the background-removed threshold")
	f.Float64Var(&upperK, "upper-k", 0.20, "Std multiplier of the aggregates threshold")
	f.Float64Var(&blurSigma, "blur", 0, "Gaussian sigma applied before thresholding; 0 disables")
	f.IntVar(&dilateSize, "dilate", 0, "Dilation kernel size (odd); 0 disables")
	f.StringVar(&metricsSource, "metrics-source", "raw", "Main channel plane the means are measured on (raw, smoothed)")
	f.BoolVar(&saveStages, "save-stages", false, "Save the stage PNGs of every image")
	f.StringVar(&resultsFile, "results", "Results.csv", "Results table name, relative to --dir")
	f.IntVar(&numWorkers, "workers", 0, "Images processed at once (default from configuration)")

	rootCmd.AddCommand(quantifyCmd)
}

// applyQuantifyFlags copies the flags set on the command line over the configuration
func applyQuantifyFlags(cmd *cobra.Command, c *config.Config) {
	changed := cmd.Flags().Changed
	if changed("main-channel") {
		c.Quantify.MainChannel = mainChannel
	}
	if changed("red-channel") {
		c.Quantify.RedChannel = redChannel
	}
	if changed("lower-k") {
		c.Quantify.LowerK = lowerK
	}
	if changed("upper-k") {
		c.Quantify.UpperK = upperK
	}
	if changed("blur") {
		c.Quantify.BlurSigma = blurSigma
	}
	if changed("dilate") {
		c.Quantify.DilateSize = dilateSize
	}
	if changed("metrics-source") {
		c.Quantify.MetricsSource = metricsSource
	}
	if changed("save-stages") {
		c.Output.SaveStages = saveStages
	}
	if changed("results") {
		c.Output.ResultsFile = resultsFile
	}
	if changed("workers") {
		c.Processing.NumWorkers = numWorkers
	}
}

// warnThresholds flags settings whose aggregates threshold lies below the
// background-removed one. The cytoplasm is then empty and every PC undefined.
func warnThresholds(log *logrus.Logger, s masks.Settings) {
	if s.UpperK >= s.LowerK {
		return
	}
	log.WithFields(logrus.Fields{
		"lowerK": s.LowerK,
		"upperK": s.UpperK,
	}).Warn("upperK is below lowerK: aggregates cover the background-removed region, cytoplasm is empty and PC will be undefined")
}

func runQuantify(cmd *cobra.Command, args []string) error {
	applyQuantifyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	paths, err := imageio.ListInputs(inputDir, cfg.Output.OutputDir, cfg.Output.StitchDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", inputDir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", inputDir)
	}

	params := &quantify.Params{
		MainChannel: cfg.Quantify.MainChannel,
		RedChannel:  cfg.Quantify.RedChannel,
		Settings:    settings,
		NumWorkers:  cfg.Processing.NumWorkers,
		SaveStages:  cfg.Output.SaveStages,
		StageDir:    filepath.Join(inputDir, cfg.Output.OutputDir),
	}

	logger.WithFields(logrus.Fields{
		"dir":     inputDir,
		"images":  len(paths),
		"workers": params.NumWorkers,
		"lowerK":  settings.LowerK,
		"upperK":  settings.UpperK,
		"blur":    settings.BlurSigma,
		"dilate":  settings.DilateSize,
		"metrics": settings.MetricsSource.String(),
	}).Info("Starting quantification")
	warnThresholds(logger, settings)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	start := time.Now()
	report := quantify.NewRunner(params, logger).Run(ctx, paths)

	out := filepath.Join(inputDir, cfg.Output.ResultsFile)
	if err := imageio.WriteResultsFile(out, report.Rows); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"results":  out,
		"measured": len(report.Rows),
		"failed":   len(report.Failures),
		"elapsed":  time.Since(start).Round(time.Millisecond).String(),
	}).Info("Quantification finished")
	if params.SaveStages {
		logger.WithField("dir", params.StageDir).Info("Stage images saved")
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("%d of %d images failed: %w", len(report.Failures), len(paths), err)
	}
	return nil
}
