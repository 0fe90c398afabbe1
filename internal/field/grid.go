// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// GridOptions positions a grid relative to the pixel matrix.
type GridOptions struct {
	// Scale is the in-plane field extent in units of the pixel pitch.
	Scale [2]float64
	Pitch r2.Vec
	// Offset shifts the lookup position in-plane before indexing.
	Offset    r2.Vec
	Domain    ThicknessDomain
	Extension Extension
	Boundary  Boundary
	// ValueScale multiplies every sample on lookup. Zero means 1.
	ValueScale float64
}

// Grid is a field backed by cell-centred samples.
type Grid[T any] struct {
	data   *Data
	opts   GridOptions
	extent r2.Vec
	scale  float64
	decode func(values []float64, scale float64) T
}

// NewScalarGrid builds a scalar grid over data, which must have one component.
func NewScalarGrid(data *Data, opts GridOptions) (*Grid[float64], error) {
	return newGrid(data, 1, opts, func(v []float64, s float64) float64 {
		return v[0] * s
	})
}

// NewVectorGrid builds a vector grid over data, which must have three components.
func NewVectorGrid(data *Data, opts GridOptions) (*Grid[r3.Vec], error) {
	return newGrid(data, 3, opts, func(v []float64, s float64) r3.Vec {
		return r3.Vec{X: v[0] * s, Y: v[1] * s, Z: v[2] * s}
	})
}

func newGrid[T any](data *Data, components int, opts GridOptions, decode func([]float64, float64) T) (*Grid[T], error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.Components != components {
		return nil, fmt.Errorf("field has %d components, expected %d", data.Components, components)
	}
	if err := opts.Domain.Validate(); err != nil {
		return nil, err
	}
	if opts.Scale[0] <= 0 || opts.Scale[1] <= 0 {
		return nil, fmt.Errorf("field scale %v must be positive", opts.Scale)
	}
	if opts.Pitch.X <= 0 || opts.Pitch.Y <= 0 {
		return nil, fmt.Errorf("pixel pitch %v must be positive", opts.Pitch)
	}

	scale := opts.ValueScale
	if scale == 0 {
		scale = 1
	}
	return &Grid[T]{
		data:   data,
		opts:   opts,
		extent: r2.Vec{X: opts.Scale[0] * opts.Pitch.X, Y: opts.Scale[1] * opts.Pitch.Y},
		scale:  scale,
		decode: decode,
	}, nil
}

// Get returns the sample of the cell containing pos.
func (g *Grid[T]) Get(pos r3.Vec) (T, error) {
	var zero T
	z, ok, err := g.opts.Domain.resolve(pos.Z, g.opts.Boundary)
	if err != nil || !ok {
		return zero, err
	}

	// The grid is centred on the reference pixel.
	u, ok := extend(pos.X+g.opts.Offset.X+g.extent.X/2, g.extent.X, g.opts.Extension)
	if !ok {
		return zero, nil
	}
	v, ok := extend(pos.Y+g.opts.Offset.Y+g.extent.Y/2, g.extent.Y, g.opts.Extension)
	if !ok {
		return zero, nil
	}

	dims := g.data.Dimensions
	ix := cellIndex(u, g.extent.X, dims[0])
	iy := cellIndex(v, g.extent.Y, dims[1])
	iz := cellIndex(z-g.opts.Domain.Min, g.opts.Domain.Thickness(), dims[2])

	off := g.data.offset(ix, iy, iz)
	return g.decode(g.data.Values[off:off+g.data.Components], g.scale), nil
}

// Domain returns the thickness domain of the grid.
func (g *Grid[T]) Domain() ThicknessDomain { return g.opts.Domain }

// Type returns TypeGrid.
func (g *Grid[T]) Type() Type { return TypeGrid }

// Data returns the shared samples backing the grid.
func (g *Grid[T]) Data() *Data { return g.data }

// extend maps u into [0, length] according to e. ok is false when u lies
// outside and e is ExtendNone.
func extend(u, length float64, e Extension) (float64, bool) {
	if u >= 0 && u <= length {
		return u, true
	}
	switch e {
	case ExtendPeriodic:
		u = math.Mod(u, length)
		if u < 0 {
			u += length
		}
		return u, true
	case ExtendMirror:
		period := 2 * length
		u = math.Mod(u, period)
		if u < 0 {
			u += period
		}
		if u > length {
			u = period - u
		}
		return u, true
	default:
		return 0, false
	}
}

// cellIndex returns the cell of n equal cells over [0, length] containing u.
func cellIndex(u, length float64, n int) int {
	i := int(math.Floor(float64(n) * u / length))
	return min(max(i, 0), n-1)
}
