// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package output

import (
	"fmt"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Grid is a regular 2D sampling used for heat maps. It implements
// plotter.GridXYZ.
type Grid struct {
	Xs, Ys []float64
	// Values is indexed [column][row], i.e. [x][y].
	Values [][]float64
}

// NewGrid allocates a grid with the given cell centres.
func NewGrid(xs, ys []float64) *Grid {
	values := make([][]float64, len(xs))
	for i := range values {
		values[i] = make([]float64, len(ys))
	}
	return &Grid{Xs: xs, Ys: ys, Values: values}
}

func (g *Grid) Dims() (c, r int) { return len(g.Xs), len(g.Ys) }
func (g *Grid) Z(c, r int) float64 { return g.Values[c][r] }
func (g *Grid) X(c int) float64 { return g.Xs[c] }
func (g *Grid) Y(r int) float64 { return g.Ys[r] }

// Steps returns n cell centres evenly spread over [lo, hi].
func Steps(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (float64(i)+0.5)/float64(n)*(hi-lo)
	}
	return out
}

// LinePlot plots y over x.
func LinePlot(title, xLabel, yLabel string, xs, ys []float64) (*plot.Plot, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("line plot %q: %d x values but %d y values", title, len(xs), len(ys))
	}
	p := newPlot(title, xLabel, yLabel)

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// HeatMapPlot renders g with a diverging colour map. A grid without any
// spread in its values has nothing to map and yields an empty plot.
func HeatMapPlot(title, xLabel, yLabel string, g *Grid) *plot.Plot {
	p := newPlot(title, xLabel, yLabel)
	if !g.varies() {
		return p
	}
	p.Add(plotter.NewHeatMap(g, moreland.SmoothBlueRed().Palette(255)))
	return p
}

func (g *Grid) varies() bool {
	if len(g.Values) == 0 || len(g.Values[0]) == 0 {
		return false
	}
	first := g.Values[0][0]
	for _, col := range g.Values {
		for _, v := range col {
			if v != first {
				return true
			}
		}
	}
	return false
}

// HistogramPlot bins values into n bins.
func HistogramPlot(title, xLabel string, values []float64, bins int) (*plot.Plot, error) {
	p := newPlot(title, xLabel, "entries")
	if len(values) == 0 {
		return p, nil
	}
	if slices.Min(values) == slices.Max(values) {
		bins = 1
	}
	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, err
	}
	p.Add(h)
	return p, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}
