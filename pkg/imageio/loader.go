// Package imageio decodes microscope exports into image volumes and writes
// the stage images, result tables and montages produced from them.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"qumin/internal/models"
)

var (
	// ErrUnsupportedImage is returned for files that are not a decodable raster image
	ErrUnsupportedImage = errors.New("unsupported image")

	// ErrEmptyStack is returned for a stack directory without image planes
	ErrEmptyStack = errors.New("no image planes in stack")

	// ErrStackMismatch is returned when the planes of a stack differ in shape
	ErrStackMismatch = errors.New("stack planes differ in shape")
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether the file name has a supported image extension
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ListInputs returns the images to process in dir, sorted by name. Image
// files are single-plane inputs; subdirectories that contain image files are
// Z-stacks, except the top-level directories holding any of skipDirs. Each
// skipDirs entry is a path relative to dir.
func ListInputs(dir string, skipDirs ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		top, _, _ := strings.Cut(filepath.ToSlash(filepath.Clean(d)), "/")
		skip[top] = true
	}

	var inputs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if skip[e.Name()] {
				continue
			}
			planes, err := stackPlanes(path)
			if err == nil && len(planes) > 0 {
				inputs = append(inputs, path)
			}
			continue
		}
		if IsImageFile(e.Name()) {
			inputs = append(inputs, path)
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}

// LoadVolume decodes a single image file into a [Y, X, C] volume, or a
// directory of planes into a [Z, Y, X, C] volume
func LoadVolume(path string) (*models.ImageVolume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadStack(path)
	}

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	samples, channels := imageSamples(img)
	b := img.Bounds()
	return models.NewImageVolume(samples,
		[]int{b.Dy(), b.Dx(), channels},
		[]models.AxisRole{models.AxisY, models.AxisX, models.AxisChannel})
}

// LoadStack decodes every image in dir as one Z plane. Planes are ordered
// by the number in their file name, then by name.
func LoadStack(dir string) (*models.ImageVolume, error) {
	planes, err := stackPlanes(dir)
	if err != nil {
		return nil, err
	}
	if len(planes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyStack, dir)
	}

	var data []float64
	var width, height, channels int
	for i, name := range planes {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		samples, c := imageSamples(img)
		b := img.Bounds()
		if i == 0 {
			width, height, channels = b.Dx(), b.Dy(), c
			data = make([]float64, 0, len(samples)*len(planes))
		} else if b.Dx() != width || b.Dy() != height || c != channels {
			return nil, fmt.Errorf("%w: %s is %dx%dx%d, expected %dx%dx%d",
				ErrStackMismatch, name, b.Dx(), b.Dy(), c, width, height, channels)
		}
		data = append(data, samples...)
	}

	return models.NewImageVolume(data,
		[]int{len(planes), height, width, channels},
		[]models.AxisRole{models.AxisZ, models.AxisY, models.AxisX, models.AxisChannel})
}

// stackPlanes lists the image files of a stack directory in plane order
func stackPlanes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var planes []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			planes = append(planes, e.Name())
		}
	}

	sort.Slice(planes, func(i, j int) bool {
		ni, nj := extractNumber(planes[i]), extractNumber(planes[j])
		if ni != nj {
			return ni < nj
		}
		return planes[i] < planes[j]
	})
	return planes, nil
}

// extractNumber extracts the digits of a file name as one number
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		if num, err := strconv.Atoi(digits.String()); err == nil {
			return num
		}
	}
	return 0
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, filepath.Base(path), err)
	}
	return img, nil
}

// imageSamples flattens an image into interleaved [Y, X, C] samples at the
// image's native bit depth. Grayscale images have one channel, everything
// else three (R, G, B); alpha is dropped.
func imageSamples(img image.Image) ([]float64, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		out := make([]float64, w*h)
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				out[y*w+x] = float64(v)
			}
		}
		return out, 1

	case *image.Gray16:
		out := make([]float64, w*h)
		for y := 0; y < h; y++ {
			off := y * src.Stride
			for x := 0; x < w; x++ {
				out[y*w+x] = float64(uint16(src.Pix[off+2*x])<<8 | uint16(src.Pix[off+2*x+1]))
			}
		}
		return out, 1

	case *image.RGBA64:
		return wideSamples(src.Pix, src.Stride, w, h), 3

	case *image.NRGBA64:
		return wideSamples(src.Pix, src.Stride, w, h), 3

	case *image.NRGBA:
		return narrowSamples(src.Pix, src.Stride, w, h), 3

	case *image.RGBA:
		return narrowSamples(src.Pix, src.Stride, w, h), 3
	}

	out := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			out[i] = float64(r >> 8)
			out[i+1] = float64(g >> 8)
			out[i+2] = float64(bl >> 8)
		}
	}
	return out, 3
}

// narrowSamples reads 8-bit RGBA pixel data
func narrowSamples(pix []uint8, stride, w, h int) []float64 {
	out := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*stride + 4*x
			i := (y*w + x) * 3
			out[i] = float64(pix[p])
			out[i+1] = float64(pix[p+1])
			out[i+2] = float64(pix[p+2])
		}
	}
	return out
}

// wideSamples reads 16-bit big-endian RGBA pixel data
func wideSamples(pix []uint8, stride, w, h int) []float64 {
	out := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*stride + 8*x
			i := (y*w + x) * 3
			for c := 0; c < 3; c++ {
				out[i+c] = float64(uint16(pix[p+2*c])<<8 | uint16(pix[p+2*c+1]))
			}
		}
	}
	return out
}
