// Package projection reduces multi-dimensional microscope volumes to 2D
// intensity planes by maximum intensity projection.
package projection

import (
	"errors"
	"fmt"
	"math"

	"qumin/internal/models"
)

// ErrInvalidChannel is returned when a channel index is outside the volume's channel axis
var ErrInvalidChannel = errors.New("invalid channel index")

// Project returns the maximum intensity projection of one channel of the
// volume. Every axis other than the channel and the two spatial axes (Z, T
// and scene) is collapsed by taking the element-wise maximum. A volume that
// only has channel, Y and X axes yields that channel's plane unchanged.
//
// Parameters:
//   - volume: the decoded image volume with its axis descriptor
//   - channel: index into the channel axis
//
// Returns:
//   - the projected plane, or ErrInvalidChannel if channel is out of range
func Project(volume *models.ImageVolume, channel int) (*models.IntensityPlane, error) {
	channels := volume.Channels()
	if channel < 0 || channel >= channels {
		return nil, fmt.Errorf("%w: channel %d, volume has %d channels", ErrInvalidChannel, channel, channels)
	}

	cAxis := volume.Axis(models.AxisChannel)
	yAxis := volume.Axis(models.AxisY)
	xAxis := volume.Axis(models.AxisX)
	width := volume.Shape[xAxis]
	height := volume.Shape[yAxis]

	plane := models.NewIntensityPlane(width, height)
	for i := range plane.Pix {
		plane.Pix[i] = math.Inf(-1)
	}

	// Walk the volume in storage order, keeping an odometer of coordinates
	// so no division is needed per sample.
	coords := make([]int, len(volume.Shape))
	last := len(volume.Shape) - 1
	for _, v := range volume.Data {
		if coords[cAxis] == channel {
			idx := coords[yAxis]*width + coords[xAxis]
			if v > plane.Pix[idx] {
				plane.Pix[idx] = v
			}
		}

		for a := last; a >= 0; a-- {
			coords[a]++
			if coords[a] < volume.Shape[a] {
				break
			}
			coords[a] = 0
		}
	}

	return plane, nil
}

// ProjectAll projects several channels of the same volume. All returned
// planes share the volume's spatial shape.
func ProjectAll(volume *models.ImageVolume, channels ...int) ([]*models.IntensityPlane, error) {
	planes := make([]*models.IntensityPlane, 0, len(channels))
	for _, c := range channels {
		plane, err := Project(volume, c)
		if err != nil {
			return nil, err
		}
		planes = append(planes, plane)
	}
	return planes, nil
}
