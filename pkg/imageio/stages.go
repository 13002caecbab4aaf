package imageio

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"qumin/internal/models"
	"qumin/pkg/masks"
)

// Stage names in the order they are rendered and stitched
const (
	StageUnedited          = "Unedited"
	StageBackgroundRemoved = "BackgroundRemoved"
	StageAggregates        = "Aggregates"
	StageRedAggregates     = "RedAggregates"
	StageRedCytoplasm      = "RedCytoplasm"
)

// StageOrder lists every stage in canonical order
var StageOrder = []string{
	StageUnedited,
	StageBackgroundRemoved,
	StageAggregates,
	StageRedAggregates,
	StageRedCytoplasm,
}

// Stage is one rendered processing stage of an image
type Stage struct {
	Name  string
	Image *image.Gray
}

// RenderPlane renders the plane as 8-bit grayscale scaled so the plane
// maximum is 255. Pixels outside mask are black; a nil mask keeps every pixel.
func RenderPlane(plane *models.IntensityPlane, mask *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, plane.Width, plane.Height))

	peak := floats.Max(plane.Pix)
	if peak <= 0 {
		return img
	}
	scale := 255 / peak

	for i, v := range plane.Pix {
		if mask != nil && !mask.Bits[i] {
			continue
		}
		g := v * scale
		if g < 0 || math.IsNaN(g) {
			g = 0
		}
		if g > 255 {
			g = 255
		}
		img.Pix[i] = uint8(g + 0.5)
	}
	return img
}

// MaskImage renders a mask as 0/255 grayscale
func MaskImage(mask *models.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	for i, b := range mask.Bits {
		if b {
			img.Pix[i] = 255
		}
	}
	return img
}

// RenderStages renders the five stages of one image: the main channel
// unmasked and under the background-removed and aggregates masks, and the
// red channel under the aggregates and cytoplasm masks.
func RenderStages(main, red *models.IntensityPlane, m masks.Masks) []Stage {
	return []Stage{
		{Name: StageUnedited, Image: RenderPlane(main, nil)},
		{Name: StageBackgroundRemoved, Image: RenderPlane(main, m.BackgroundRemoved)},
		{Name: StageAggregates, Image: RenderPlane(main, m.Aggregates)},
		{Name: StageRedAggregates, Image: RenderPlane(red, m.Aggregates)},
		{Name: StageRedCytoplasm, Image: RenderPlane(red, m.Cytoplasm)},
	}
}

// StageFileName is the file a stage of the image with the given stem is saved as
func StageFileName(stem, stage string) string {
	return fmt.Sprintf("%s_%s.png", stem, stage)
}

// SaveStages writes every stage to dir as <stem>_<Stage>.png
func SaveStages(dir, stem string, stages []Stage) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create stage directory: %w", err)
	}

	for _, s := range stages {
		if err := savePNG(filepath.Join(dir, StageFileName(stem, s.Name)), s.Image); err != nil {
			return fmt.Errorf("failed to save stage %s: %w", s.Name, err)
		}
	}
	return nil
}

func savePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
