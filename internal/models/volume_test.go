package models

import (
	"errors"
	"testing"
)

func TestNewImageVolumeLayout(t *testing.T) {
	cyx := []AxisRole{AxisChannel, AxisY, AxisX}

	v, err := NewImageVolume(make([]float64, 2*3*4), []int{2, 3, 4}, cyx)
	if err != nil {
		t.Fatalf("Valid volume rejected: %v", err)
	}
	if v.Channels() != 2 || v.Height() != 3 || v.Width() != 4 {
		t.Errorf("Expected 2 channels of 4x3, got %d of %dx%d", v.Channels(), v.Width(), v.Height())
	}

	strides := v.Strides()
	if strides[0] != 12 || strides[1] != 4 || strides[2] != 1 {
		t.Errorf("Unexpected strides %v", strides)
	}

	cases := []struct {
		name  string
		data  int
		shape []int
		axes  []AxisRole
	}{
		{"axis count", 6, []int{2, 3}, cyx},
		{"missing channel", 6, []int{2, 3}, []AxisRole{AxisY, AxisX}},
		{"two X", 8, []int{2, 2, 2}, []AxisRole{AxisChannel, AxisX, AxisX}},
		{"two Z", 16, []int{2, 2, 1, 2, 2}, []AxisRole{AxisZ, AxisZ, AxisChannel, AxisY, AxisX}},
		{"size", 5, []int{1, 2, 3}, cyx},
		{"zero axis", 0, []int{1, 0, 3}, cyx},
		{"unknown role", 6, []int{1, 2, 3}, []AxisRole{AxisChannel, AxisY, AxisRole(9)}},
	}
	for _, c := range cases {
		if _, err := NewImageVolume(make([]float64, c.data), c.shape, c.axes); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("%s: expected ErrInvalidLayout, got %v", c.name, err)
		}
	}
}

func TestMaskOperations(t *testing.T) {
	a := NewMask(3, 1)
	b := NewMask(3, 1)
	a.Bits = []bool{true, true, false}
	b.Bits = []bool{false, true, true}

	if got := a.And(b).Bits; got[0] || !got[1] || got[2] {
		t.Errorf("And = %v", got)
	}
	if got := a.AndNot(b).Bits; !got[0] || got[1] || got[2] {
		t.Errorf("AndNot = %v", got)
	}
	if a.SubsetOf(b) {
		t.Errorf("a should not be a subset of b")
	}
	if !a.And(b).SubsetOf(a) {
		t.Errorf("a AND b should be a subset of a")
	}
	if a.Bits[0] != true || b.Bits[2] != true {
		t.Errorf("Operations modified their operands")
	}
	if FullMask(3, 2).Count() != 6 {
		t.Errorf("FullMask should select every pixel")
	}
}

func TestRatioString(t *testing.T) {
	if s := Undefined.String(); s != "" {
		t.Errorf("Expected empty string for undefined ratio, got %q", s)
	}
	if s := (Ratio{Value: 1.5, Defined: true}).String(); s != "1.5" {
		t.Errorf("Expected 1.5, got %q", s)
	}
}
