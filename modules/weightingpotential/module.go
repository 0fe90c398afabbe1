// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package weightingpotential provides WeightingPotentialReader, which
// attaches the weighting potential of a single pixel to a detector. The
// potential is read from an INIT grid file or computed for a rectangular pad
// in a plane condenser.
package weightingpotential

import (
	"context"
	"fmt"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/field"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/output"
	"github.com/vk/pixsimgo/internal/registry"
	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Name is the module type name used in steering files.
const Name = "WeightingPotentialReader"

// Potential models.
const (
	ModelInit = "init"
	ModelPad  = "pad"
)

const (
	defaultPlotSteps = 500
	defaultBoundary  = "error"
	defaultExtension = "none"
	plotLengthUnit   = "um"

	// truncationTolerance is the largest accepted magnitude of the last
	// pad series term.
	truncationTolerance = 1e-4
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.PerDetector, New: New})
}

// Reader is one WeightingPotentialReader instance.
type Reader struct {
	module.Base

	model     string
	boundary  field.Boundary
	fileName  string
	extension field.Extension
	offset    r2.Vec
	terms     int

	plots        bool
	plotSteps    int
	plotPosition r2.Vec

	potential field.Field[float64]
}

// New reads the configuration.
//
//	model                 init or pad (required)
//	file_name             INIT file of the init model
//	extension             periodic, mirror or none (default none)
//	field_offset          in-plane shift of the init potential (default 0 0)
//	boundary              error, clamp or zero (default error)
//	pad_series_terms      image terms of the pad model (default 100)
//	output_plots          plot the potential of pixel (0, 0) (default false)
//	output_plots_steps    samples per axis (default 500)
//	output_plots_position in-plane point of the depth profile (default 0 0)
func New(env module.Environment) (module.Module, error) {
	cfg := env.Config
	r := &Reader{Base: module.NewBase(env)}

	var err error
	if r.model, err = config.GetChecked(cfg, "model", config.OneOf(ModelInit, ModelPad)); err != nil {
		return nil, err
	}

	boundary, err := config.GetCheckedOr(cfg, "boundary", defaultBoundary, config.OneOf("error", "clamp", "zero"))
	if err != nil {
		return nil, err
	}
	if r.boundary, err = field.ParseBoundary(boundary); err != nil {
		return nil, err
	}

	switch r.model {
	case ModelInit:
		if r.fileName, err = cfg.GetPath("file_name", true); err != nil {
			return nil, err
		}
		ext, err := config.GetCheckedOr(cfg, "extension", defaultExtension, config.OneOf("periodic", "mirror", "none"))
		if err != nil {
			return nil, err
		}
		if r.extension, err = field.ParseExtension(ext); err != nil {
			return nil, err
		}
		if r.offset, err = config.GetOr(cfg, "field_offset", r2.Vec{}); err != nil {
			return nil, err
		}
	case ModelPad:
		if r.terms, err = config.GetCheckedOr(cfg, "pad_series_terms", field.DefaultPadSeriesTerms, config.PositiveInt); err != nil {
			return nil, err
		}
	}

	if r.plots, err = config.GetOr(cfg, "output_plots", false); err != nil {
		return nil, err
	}
	if r.plotSteps, err = config.GetCheckedOr(cfg, "output_plots_steps", defaultPlotSteps, config.PositiveInt); err != nil {
		return nil, err
	}
	if r.plotPosition, err = config.GetOr(cfg, "output_plots_position", r2.Vec{}); err != nil {
		return nil, err
	}
	return r, nil
}

// Init builds the potential and attaches it to the detector.
func (r *Reader) Init(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	det := r.Detector()
	model := det.Model()
	domain := model.ThicknessDomain()

	switch r.model {
	case ModelInit:
		data, err := r.Fields().Load(ctx, r.fileName, 1)
		if err != nil {
			return config.WrapInvalidValue(r.Config(), "file_name", err)
		}
		for _, w := range field.CheckDetectorMatch(data.Size, domain, model.PixelSize()) {
			logger.Warn("Weighting potential does not match the detector.", "detector", det.Name(), "reason", w)
		}
		grid, err := field.NewScalarGrid(data, field.GridOptions{
			Scale:     field.Scale(data.Size, model.PixelSize()),
			Pitch:     model.PixelSize(),
			Offset:    r.offset,
			Domain:    domain,
			Extension: r.extension,
			Boundary:  r.boundary,
		})
		if err != nil {
			return config.WrapInvalidValue(r.Config(), "file_name", err)
		}
		r.potential = grid

	case ModelPad:
		implant := model.ImplantSize()
		if residual := field.PadSeriesResidual(implant, domain, r.terms); residual > truncationTolerance {
			logger.Warn("Pad weighting potential series is truncated early.",
				"terms", r.terms, "residual", residual, "tolerance", truncationTolerance)
		}
		fn, err := field.NewFunction(field.PadPotential(implant, domain, r.terms), domain, field.TypeCustom, r.boundary)
		if err != nil {
			return err
		}
		r.potential = fn
	}

	if err := det.SetWeightingPotential(r.potential); err != nil {
		return err
	}
	logger.Info("Weighting potential attached.", "detector", det.Name(), "model", r.model, "type", r.potential.Type())

	if r.plots {
		return r.plot(ctx)
	}
	return nil
}

// plot renders the depth profile of pixel (0, 0) at the configured in-plane
// position, and a map of the potential across three pixels along x.
func (r *Reader) plot(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	model := r.Detector().Model()
	domain := model.ThicknessDomain()
	pitch := model.PixelSize()
	scale, _ := units.Factor(plotLengthUnit)

	zs := output.Steps(domain.Min, domain.Max, r.plotSteps)
	depth := make([]float64, len(zs))
	values := make([]float64, len(zs))
	for i, z := range zs {
		v, err := r.potential.Get(r3.Vec{X: r.plotPosition.X, Y: r.plotPosition.Y, Z: z})
		if err != nil {
			return fmt.Errorf("sampling weighting potential at z=%g: %w", z, err)
		}
		depth[i] = z / scale
		values[i] = v
	}
	profile, err := output.LinePlot(
		fmt.Sprintf("Weighting potential at (%s, %s)", units.DisplayBest(r.plotPosition.X, "um", "mm"), units.DisplayBest(r.plotPosition.Y, "um", "mm")),
		"z ["+plotLengthUnit+"]", "phi", depth, values)
	if err != nil {
		return err
	}
	path, err := r.Output().SavePlot(r.ModuleName(), profile, "potential_depth")
	if err != nil {
		return err
	}
	logger.Info("Weighting potential plot written.", "path", path)

	xs := output.Steps(-1.5*pitch.X, 1.5*pitch.X, r.plotSteps)
	grid := output.NewGrid(make([]float64, len(xs)), make([]float64, len(zs)))
	for i, x := range xs {
		grid.Xs[i] = x / scale
		for j, z := range zs {
			grid.Ys[j] = z / scale
			v, err := r.potential.Get(r3.Vec{X: x, Y: r.plotPosition.Y, Z: z})
			if err != nil {
				return fmt.Errorf("sampling weighting potential at (%g, %g): %w", x, z, err)
			}
			grid.Values[i][j] = v
		}
	}
	heat := output.HeatMapPlot("Weighting potential of pixel (0, 0)", "x ["+plotLengthUnit+"]", "z ["+plotLengthUnit+"]", grid)
	if path, err = r.Output().SavePlot(r.ModuleName(), heat, "potential_map"); err != nil {
		return err
	}
	logger.Info("Weighting potential plot written.", "path", path)
	return nil
}

// Run does nothing; the potential is in place after Init.
func (r *Reader) Run(context.Context, uint64) error { return nil }
