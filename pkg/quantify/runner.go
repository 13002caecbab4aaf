// Package quantify runs the projection, masking and measurement pipeline over
// a batch of microscope images.
package quantify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"qumin/internal/models"
	"qumin/pkg/imageio"
	"qumin/pkg/masks"
	"qumin/pkg/projection"
)

// Params holds the quantification parameters for a batch
type Params struct {
	// MainChannel is the channel thresholded to derive the masks
	MainChannel int

	// RedChannel is the channel measured over aggregates and cytoplasm
	RedChannel int

	// Settings controls thresholds, blur and dilation
	Settings masks.Settings

	// NumWorkers bounds how many images are processed at once.
	// Zero means one per CPU.
	NumWorkers int

	// SaveStages writes the stage PNGs of every image to StageDir
	SaveStages bool
	StageDir   string
}

// ImageError reports the failure of one image in a batch
type ImageError struct {
	Source string
	Err    error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// Report is the outcome of a batch. Rows and Failures keep input order.
type Report struct {
	Rows     []models.MetricRow
	Failures []*ImageError
}

// Err joins every per-image failure, or returns nil when all images succeeded
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Runner processes images independently of each other. It holds no state
// between images, so one Runner can be shared by concurrent calls.
type Runner struct {
	params *Params
	logger *logrus.Logger
}

// NewRunner creates a runner. A nil logger uses the logrus standard logger.
func NewRunner(params *Params, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{params: params, logger: logger}
}

// SourceName is the identifier recorded for an input path
func SourceName(path string) string {
	return filepath.Base(path)
}

// stem strips the extension from a source name
func stem(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source))
}

// Measure projects the main and red channels of a volume and runs the mask
// engine on them. It returns the projected planes along with the result.
func (r *Runner) Measure(source string, volume *models.ImageVolume) (*masks.Result, *models.IntensityPlane, *models.IntensityPlane, error) {
	planes, err := projection.ProjectAll(volume, r.params.MainChannel, r.params.RedChannel)
	if err != nil {
		return nil, nil, nil, err
	}
	main, red := planes[0], planes[1]

	res, err := masks.Compute(main, red, r.params.Settings)
	if err != nil {
		return nil, nil, nil, err
	}
	res.Metrics.Source = source

	return res, main, red, nil
}

// ProcessImage runs the full pipeline for one input: decode, project,
// threshold, measure and optionally save the stage images.
func (r *Runner) ProcessImage(path string) (models.MetricRow, error) {
	source := SourceName(path)
	log := r.logger.WithField("file", source)

	log.Debug("Loading image")
	volume, err := imageio.LoadVolume(path)
	if err != nil {
		return models.MetricRow{}, fmt.Errorf("failed to load image: %w", err)
	}
	log.WithFields(logrus.Fields{
		"shape": volume.Shape,
		"axes":  volume.Axes,
	}).Debug("Decoded volume")

	res, main, red, err := r.Measure(source, volume)
	if err != nil {
		return models.MetricRow{}, err
	}

	log.WithFields(logrus.Fields{
		"mean":       res.Thresholds.Mean,
		"std":        res.Thresholds.Std,
		"lower":      res.Thresholds.Lower,
		"upper":      res.Thresholds.Upper,
		"aggregates": res.Masks.Aggregates.Count(),
		"cytoplasm":  res.Masks.Cytoplasm.Count(),
		"pc":         res.Metrics.PC.String(),
	}).Info("Processed image")

	if r.params.SaveStages {
		stages := imageio.RenderStages(main, red, res.Masks)
		if err := imageio.SaveStages(r.params.StageDir, stem(source), stages); err != nil {
			return models.MetricRow{}, err
		}
	}

	return res.Metrics, nil
}

// Run processes every path on a bounded pool of workers. A failing image is
// reported in the returned Report and does not stop the others. Cancelling
// ctx abandons the images that have not started yet.
func (r *Runner) Run(ctx context.Context, paths []string) *Report {
	workers := r.params.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type outcome struct {
		row models.MetricRow
		err error
	}
	outcomes := make([]outcome, len(paths))

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(paths); j++ {
				outcomes[j].err = err
			}
			break
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer sem.Release(1)

			row, err := r.ProcessImage(path)
			outcomes[i] = outcome{row: row, err: err}
		}(i, path)
	}
	wg.Wait()

	report := &Report{}
	for i, o := range outcomes {
		if o.err != nil {
			failure := &ImageError{Source: SourceName(paths[i]), Err: o.err}
			r.logger.WithField("file", failure.Source).WithError(o.err).Warn("Image failed")
			report.Failures = append(report.Failures, failure)
			continue
		}
		report.Rows = append(report.Rows, o.row)
	}
	return report
}
