package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"qumin/pkg/config"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qumin",
	Short: "Quantify fluorescent aggregates in microscope images",
	Long: `qumin projects multi-channel microscope images to 2D, derives
background-removed, aggregate and cytoplasm masks from adaptive thresholds
on the main channel, and reports mean intensities and the partition
coefficient of the red channel for every image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = initLogger(logLevel, logFormat)
		if err != nil {
			return err
		}

		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		logger.WithField("config", cfgFile).Debug("Configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "qumin.yaml", "Configuration file (defaults are used when it does not exist)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// initLogger builds the command logger. Logs go to stderr so that tables
// printed on stdout stay clean.
func initLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}

	logger.Debug("Debug logging enabled")
	return logger, nil
}
