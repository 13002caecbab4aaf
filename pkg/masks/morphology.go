package masks

import (
	"fmt"

	"qumin/internal/models"
)

// validateKernelSize accepts 0 (disabled) or a positive odd side length
func validateKernelSize(size int) error {
	if size < 0 || (size > 0 && size%2 == 0) {
		return fmt.Errorf("%w: %d (must be 0 or a positive odd number)", ErrInvalidKernelSize, size)
	}
	return nil
}

// Dilate grows the selected region of the mask by a square structuring
// element with the given odd side length. The structuring element is
// clipped at the mask bounds. Size 0 or 1 returns a copy of the mask.
func Dilate(mask *models.Mask, size int) (*models.Mask, error) {
	if err := validateKernelSize(size); err != nil {
		return nil, err
	}

	w, h := mask.Width, mask.Height
	out := models.NewMask(w, h)
	if size <= 1 {
		copy(out.Bits, mask.Bits)
		return out, nil
	}
	r := size / 2

	// Separable: a square element is a horizontal pass followed by a
	// vertical pass of the same half-width.
	rows := models.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask.Bits[y*w+x] {
				continue
			}
			for dx := max(0, x-r); dx <= min(w-1, x+r); dx++ {
				rows.Bits[y*w+dx] = true
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !rows.Bits[y*w+x] {
				continue
			}
			for dy := max(0, y-r); dy <= min(h-1, y+r); dy++ {
				out.Bits[dy*w+x] = true
			}
		}
	}

	return out, nil
}
