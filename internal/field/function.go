// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultPadSeriesTerms is the number of image-charge terms summed by
// PadPotential when none is configured.
const DefaultPadSeriesTerms = 100

// Function is a field computed from a function of position.
type Function[T any] struct {
	fn       func(pos r3.Vec) T
	domain   ThicknessDomain
	typ      Type
	boundary Boundary
}

// NewFunction wraps fn. The boundary policy applies to z outside domain.
func NewFunction[T any](fn func(pos r3.Vec) T, domain ThicknessDomain, typ Type, boundary Boundary) (*Function[T], error) {
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	return &Function[T]{fn: fn, domain: domain, typ: typ, boundary: boundary}, nil
}

// Get evaluates the function at pos.
func (f *Function[T]) Get(pos r3.Vec) (T, error) {
	var zero T
	z, ok, err := f.domain.resolve(pos.Z, f.boundary)
	if err != nil || !ok {
		return zero, err
	}
	pos.Z = z
	return f.fn(pos), nil
}

// Domain returns the thickness domain of the function.
func (f *Function[T]) Domain() ThicknessDomain { return f.domain }

// Type returns the type the function was created with.
func (f *Function[T]) Type() Type { return f.typ }

// PadPotential returns the weighting potential of a rectangular pad of size
// implant in a plane condenser spanning domain, with the pad on the Max side.
// It follows the method-of-images series of doi:10.1016/j.nima.2014.08.044,
// truncated after terms images.
func PadPotential(implant r2.Vec, domain ThicknessDomain, terms int) func(pos r3.Vec) float64 {
	if terms <= 0 {
		terms = DefaultPadSeriesTerms
	}
	d := domain.Thickness()
	return func(pos r3.Vec) float64 {
		localZ := domain.Max - pos.Z
		sum := 0.0
		for n := 1; n <= terms; n++ {
			sum += padTerm(implant, pos.X, pos.Y, 2*float64(n)*d-localZ) -
				padTerm(implant, pos.X, pos.Y, 2*float64(n)*d+localZ)
		}
		return (padTerm(implant, pos.X, pos.Y, localZ) - sum) / (2 * math.Pi)
	}
}

// PadSeriesResidual returns the magnitude of the last retained series term of
// PadPotential at the pad centre on the far side of the sensor, where it is
// largest. It bounds the truncation error.
func PadSeriesResidual(implant r2.Vec, domain ThicknessDomain, terms int) float64 {
	if terms <= 0 {
		terms = DefaultPadSeriesTerms
	}
	d := domain.Thickness()
	n := float64(terms)
	last := padTerm(implant, 0, 0, 2*n*d-d) - padTerm(implant, 0, 0, 2*n*d+d)
	return math.Abs(last) / (2 * math.Pi)
}

// padTerm is the solid-angle function of a rectangle seen from height u.
func padTerm(implant r2.Vec, x, y, u float64) float64 {
	arctan := func(a, b, c float64) float64 {
		return math.Atan(a * b / c / math.Sqrt(a*a+b*b+c*c))
	}
	x1 := x - implant.X/2
	x2 := x + implant.X/2
	y1 := y - implant.Y/2
	y2 := y + implant.Y/2
	return arctan(x1, y1, u) + arctan(x2, y2, u) - arctan(x1, y2, u) - arctan(x2, y1, u)
}
