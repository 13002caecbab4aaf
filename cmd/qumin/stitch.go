package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"qumin/pkg/imageio"
)

var (
	stitchDir    string
	stitchOutDir string
)

var stitchCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Stitch the stage PNGs of every image side by side",
	Long: `Reads the stage PNGs written by quantify --save-stages and writes one
horizontal montage per image, with the stages in processing order.`,
	RunE: runStitch,
}

func init() {
	stitchCmd.Flags().StringVar(&stitchDir, "dir", ".", "Directory quantify was run on")
	stitchCmd.Flags().StringVar(&stitchOutDir, "out-dir", "", "Montage directory, relative to --dir unless absolute (default from configuration)")

	rootCmd.AddCommand(stitchCmd)
}

func runStitch(cmd *cobra.Command, args []string) error {
	stageDir := filepath.Join(stitchDir, cfg.Output.OutputDir)
	outDir := stitchOutDir
	if outDir == "" {
		outDir = cfg.Output.StitchDir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(stitchDir, outDir)
	}

	written, err := imageio.Stitch(stageDir, outDir)
	if err != nil {
		return fmt.Errorf("stitch failed: %w", err)
	}
	if len(written) == 0 {
		return fmt.Errorf("no stage images found in %s", stageDir)
	}

	for _, path := range written {
		logger.WithField("file", path).Debug("Saved montage")
	}
	logger.WithFields(logrus.Fields{
		"dir":      outDir,
		"montages": len(written),
	}).Info("Stitching finished")
	return nil
}
