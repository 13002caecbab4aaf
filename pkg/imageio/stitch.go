package imageio

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"
)

// StitchedFileName is the montage file name for an image stem
func StitchedFileName(stem string) string {
	return fmt.Sprintf("stitched_%s.png", stem)
}

// CollectStages groups the stage PNGs in dir by image stem. Each group maps
// stage name to file path. Files not named <stem>_<Stage>.png with a known
// stage are ignored.
func CollectStages(dir string) (map[string]map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(StageOrder))
	for _, s := range StageOrder {
		known[s] = true
	}

	groups := make(map[string]map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.ToLower(filepath.Ext(name)) != ".png" {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		cut := strings.LastIndex(base, "_")
		if cut <= 0 {
			continue
		}
		stem, stage := base[:cut], base[cut+1:]
		if !known[stage] {
			continue
		}
		if groups[stem] == nil {
			groups[stem] = make(map[string]string)
		}
		groups[stem][stage] = filepath.Join(dir, name)
	}
	return groups, nil
}

// Montage pastes the images left to right on a white canvas as tall as the
// tallest image
func Montage(images []image.Image) *image.RGBA {
	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		width += b.Dx()
		height = max(height, b.Dy())
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	x := 0
	for _, img := range images {
		b := img.Bounds()
		dst := image.Rect(x, 0, x+b.Dx(), b.Dy())
		draw.Draw(canvas, dst, img, b.Min, draw.Src)
		x += b.Dx()
	}
	return canvas
}

// Stitch builds one horizontal montage per image stem from the stage PNGs in
// stageDir, with stages in canonical order, and saves them to outDir. It
// returns the paths written.
func Stitch(stageDir, outDir string) ([]string, error) {
	groups, err := CollectStages(stageDir)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stitch directory: %w", err)
	}

	stems := make([]string, 0, len(groups))
	for stem := range groups {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	var written []string
	for _, stem := range stems {
		var images []image.Image
		for _, stage := range StageOrder {
			path, ok := groups[stem][stage]
			if !ok {
				continue
			}
			img, err := decodeFile(path)
			if err != nil {
				return written, err
			}
			images = append(images, img)
		}

		out := filepath.Join(outDir, StitchedFileName(stem))
		if err := savePNG(out, Montage(images)); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", out, err)
		}
		written = append(written, out)
	}
	return written, nil
}
