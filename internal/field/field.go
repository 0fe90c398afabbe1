// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrOutOfDomain is returned by a field lookup outside the thickness domain
// when the field's boundary policy is BoundaryError.
var ErrOutOfDomain = errors.New("position outside the field's thickness domain")

// domainEpsilon is the tolerance, in mm, applied to the thickness domain edges.
const domainEpsilon = 1e-9

// Field is a lookup of T over a bounded thickness domain.
type Field[T any] interface {
	Get(pos r3.Vec) (T, error)
	Domain() ThicknessDomain
	Type() Type
}

// ThicknessDomain is the closed sensor-depth interval [Min, Max] a field is
// defined on.
type ThicknessDomain struct {
	Min, Max float64
}

// Validate checks that the bounds are ordered.
func (d ThicknessDomain) Validate() error {
	if !(d.Min < d.Max) {
		return fmt.Errorf("thickness domain [%g, %g] is not ordered", d.Min, d.Max)
	}
	return nil
}

// Thickness returns Max - Min.
func (d ThicknessDomain) Thickness() float64 {
	return d.Max - d.Min
}

// resolve applies the boundary policy to z. ok is false when the lookup
// should yield the zero value.
func (d ThicknessDomain) resolve(z float64, b Boundary) (float64, bool, error) {
	if z >= d.Min-domainEpsilon && z <= d.Max+domainEpsilon {
		return math.Min(math.Max(z, d.Min), d.Max), true, nil
	}
	switch b {
	case BoundaryClamp:
		return math.Min(math.Max(z, d.Min), d.Max), true, nil
	case BoundaryZero:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("%w: z=%g not in [%g, %g]", ErrOutOfDomain, z, d.Min, d.Max)
	}
}

// Type describes how a field was produced.
type Type int

const (
	TypeUnknown Type = iota
	TypeConstant
	TypeLinear
	TypeGrid
	TypeCustom
)

func (t Type) String() string {
	switch t {
	case TypeConstant:
		return "constant"
	case TypeLinear:
		return "linear"
	case TypeGrid:
		return "grid"
	case TypeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Boundary selects what a lookup outside the thickness domain returns.
type Boundary int

const (
	BoundaryError Boundary = iota
	BoundaryClamp
	BoundaryZero
)

// ParseBoundary maps the configuration spelling to a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "error":
		return BoundaryError, nil
	case "clamp":
		return BoundaryClamp, nil
	case "zero":
		return BoundaryZero, nil
	}
	return BoundaryError, fmt.Errorf("unknown boundary policy %q", s)
}

func (b Boundary) String() string {
	switch b {
	case BoundaryClamp:
		return "clamp"
	case BoundaryZero:
		return "zero"
	default:
		return "error"
	}
}

// Extension selects how a grid is continued beyond its in-plane extent.
type Extension int

const (
	ExtendPeriodic Extension = iota
	ExtendMirror
	ExtendNone
)

// ParseExtension maps the configuration spelling to an Extension.
func ParseExtension(s string) (Extension, error) {
	switch s {
	case "periodic":
		return ExtendPeriodic, nil
	case "mirror":
		return ExtendMirror, nil
	case "none":
		return ExtendNone, nil
	}
	return ExtendPeriodic, fmt.Errorf("unknown extension %q", s)
}

func (e Extension) String() string {
	switch e {
	case ExtendMirror:
		return "mirror"
	case ExtendNone:
		return "none"
	default:
		return "periodic"
	}
}
