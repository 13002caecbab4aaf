package models

// Mask is a binary region over an IntensityPlane. Operations on a Mask never
// modify it; they return a new Mask.
type Mask struct {
	Width  int
	Height int

	// Bits is true where the pixel belongs to the region (row-major)
	Bits []bool
}

// NewMask allocates an empty mask
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// FullMask returns a mask selecting every pixel
func FullMask(width, height int) *Mask {
	m := NewMask(width, height)
	for i := range m.Bits {
		m.Bits[i] = true
	}
	return m
}

// At reports whether the pixel at column x, row y is selected
func (m *Mask) At(x, y int) bool {
	return m.Bits[y*m.Width+x]
}

// Count returns the number of selected pixels
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// And returns the intersection of m and o
func (m *Mask) And(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range out.Bits {
		out.Bits[i] = m.Bits[i] && o.Bits[i]
	}
	return out
}

// AndNot returns the pixels of m that are not in o
func (m *Mask) AndNot(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range out.Bits {
		out.Bits[i] = m.Bits[i] && !o.Bits[i]
	}
	return out
}

// SubsetOf reports whether every pixel selected by m is also selected by o
func (m *Mask) SubsetOf(o *Mask) bool {
	for i, b := range m.Bits {
		if b && !o.Bits[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both masks have the same shape and selection
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i, b := range m.Bits {
		if b != o.Bits[i] {
			return false
		}
	}
	return true
}
