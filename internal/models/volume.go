package models

import (
	"errors"
	"fmt"
)

// ErrInvalidLayout is returned when a volume's shape and axis descriptor
// do not describe its data.
var ErrInvalidLayout = errors.New("invalid volume layout")

// AxisRole tags one axis of an ImageVolume with its meaning
type AxisRole int

const (
	AxisChannel AxisRole = iota
	AxisZ
	AxisT
	AxisS
	AxisY
	AxisX
)

func (r AxisRole) String() string {
	switch r {
	case AxisChannel:
		return "C"
	case AxisZ:
		return "Z"
	case AxisT:
		return "T"
	case AxisS:
		return "S"
	case AxisY:
		return "Y"
	case AxisX:
		return "X"
	}
	return fmt.Sprintf("AxisRole(%d)", int(r))
}

// ImageVolume is an N-dimensional stack of intensity samples as decoded
// from a microscope file
type ImageVolume struct {
	// Data holds the samples in row-major order (last axis varies fastest)
	Data []float64

	// Shape is the length of every axis
	Shape []int

	// Axes names the role of every axis, parallel to Shape
	Axes []AxisRole
}

// NewImageVolume checks that shape and axes describe data and returns the volume.
// A volume needs exactly one channel, Y and X axis; Z, T and S are optional
// and may appear at most once each.
func NewImageVolume(data []float64, shape []int, axes []AxisRole) (*ImageVolume, error) {
	if len(shape) != len(axes) {
		return nil, fmt.Errorf("%w: %d axes for %d dimensions", ErrInvalidLayout, len(axes), len(shape))
	}

	seen := make(map[AxisRole]int)
	size := 1
	for i, n := range shape {
		if n <= 0 {
			return nil, fmt.Errorf("%w: axis %d (%s) has length %d", ErrInvalidLayout, i, axes[i], n)
		}
		if axes[i] < AxisChannel || axes[i] > AxisX {
			return nil, fmt.Errorf("%w: unknown axis role %d", ErrInvalidLayout, int(axes[i]))
		}
		seen[axes[i]]++
		size *= n
	}

	for _, role := range []AxisRole{AxisChannel, AxisY, AxisX} {
		if seen[role] != 1 {
			return nil, fmt.Errorf("%w: need exactly one %s axis, found %d", ErrInvalidLayout, role, seen[role])
		}
	}
	for _, role := range []AxisRole{AxisZ, AxisT, AxisS} {
		if seen[role] > 1 {
			return nil, fmt.Errorf("%w: %s axis appears %d times", ErrInvalidLayout, role, seen[role])
		}
	}

	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d samples, got %d", ErrInvalidLayout, shape, size, len(data))
	}

	return &ImageVolume{Data: data, Shape: shape, Axes: axes}, nil
}

// Axis returns the index of the axis with the given role, or -1
func (v *ImageVolume) Axis(role AxisRole) int {
	for i, r := range v.Axes {
		if r == role {
			return i
		}
	}
	return -1
}

// Channels returns the length of the channel axis
func (v *ImageVolume) Channels() int {
	return v.Shape[v.Axis(AxisChannel)]
}

// Width returns the length of the X axis
func (v *ImageVolume) Width() int {
	return v.Shape[v.Axis(AxisX)]
}

// Height returns the length of the Y axis
func (v *ImageVolume) Height() int {
	return v.Shape[v.Axis(AxisY)]
}

// Strides returns the row-major element stride of every axis
func (v *ImageVolume) Strides() []int {
	strides := make([]int, len(v.Shape))
	stride := 1
	for i := len(v.Shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= v.Shape[i]
	}
	return strides
}

// IntensityPlane is a single-channel 2D image after projection
type IntensityPlane struct {
	// Width and Height are the spatial dimensions in pixels
	Width  int
	Height int

	// Pix holds Width*Height samples in row-major order
	Pix []float64
}

// NewIntensityPlane allocates a zeroed plane
func NewIntensityPlane(width, height int) *IntensityPlane {
	return &IntensityPlane{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// At returns the sample at column x, row y
func (p *IntensityPlane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// SameShape reports whether two planes have identical dimensions
func (p *IntensityPlane) SameShape(o *IntensityPlane) bool {
	return p.Width == o.Width && p.Height == o.Height
}

// Clone returns a deep copy of the plane
func (p *IntensityPlane) Clone() *IntensityPlane {
	pix := make([]float64, len(p.Pix))
	copy(pix, p.Pix)
	return &IntensityPlane{Width: p.Width, Height: p.Height, Pix: pix}
}
