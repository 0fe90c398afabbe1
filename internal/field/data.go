// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Data is the raw content of a grid field file. It is shared read-only by
// every grid built on it and must not be modified after loading.
type Data struct {
	// Dimensions is the number of cells along x, y and z.
	Dimensions [3]int
	// Size is the physical extent along x, y and z (z is the thickness).
	Size r3.Vec
	// Components is 1 for scalar and 3 for vector fields.
	Components int
	// Values holds the samples with z varying fastest, then y, then x.
	Values []float64
	// Source is the canonical path the data was read from.
	Source string
}

// Cells returns the number of grid cells.
func (d *Data) Cells() int {
	return d.Dimensions[0] * d.Dimensions[1] * d.Dimensions[2]
}

// Validate checks that the shape is consistent.
func (d *Data) Validate() error {
	for i, n := range d.Dimensions {
		if n <= 0 {
			return fmt.Errorf("dimension %d is %d, must be positive", i, n)
		}
	}
	if d.Size.X <= 0 || d.Size.Y <= 0 || d.Size.Z <= 0 {
		return fmt.Errorf("field size %v must be positive", d.Size)
	}
	if d.Components != 1 && d.Components != 3 {
		return fmt.Errorf("unsupported number of components %d", d.Components)
	}
	if want := d.Cells() * d.Components; len(d.Values) != want {
		return fmt.Errorf("expected %d values for %dx%dx%d cells with %d components, got %d",
			want, d.Dimensions[0], d.Dimensions[1], d.Dimensions[2], d.Components, len(d.Values))
	}
	return nil
}

// offset returns the position of the first component of cell (x, y, z).
func (d *Data) offset(x, y, z int) int {
	return ((x*d.Dimensions[1]+y)*d.Dimensions[2] + z) * d.Components
}
