// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package electricfield provides ElectricFieldReader, which attaches an
// electric field to a detector during initialisation. The field is either
// computed (constant or linear in depth) or read from an INIT grid file.
package electricfield

import (
	"context"
	"fmt"
	"math"

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
const Name = "ElectricFieldReader"

// Field models.
const (
	ModelConstant = "constant"
	ModelLinear   = "linear"
	ModelInit     = "init"
)

const (
	defaultFieldUnit  = "V/cm"
	defaultPlotSteps  = 500
	defaultBoundary   = "error"
	defaultExtension  = "periodic"
	plotFieldUnit     = "V/cm"
	plotDepthUnit     = "um"
	electricFieldPlot = "electric_field"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.PerDetector, New: New})
}

// Reader is one ElectricFieldReader instance.
type Reader struct {
	module.Base

	model    string
	boundary field.Boundary

	bias      float64
	depletion float64

	fileName   string
	extension  field.Extension
	offset     r2.Vec
	valueScale float64

	plots     bool
	plotSteps int
}

// New reads the configuration.
//
//	model              constant, linear or init (required)
//	bias_voltage       constant and linear models
//	depletion_voltage  linear model; same sign as and not above bias_voltage
//	file_name          INIT file of the init model
//	field_unit         unit of the file's values (default V/cm)
//	extension          periodic, mirror or none (default periodic)
//	field_offset       in-plane shift of the init field (default 0 0)
//	boundary           error, clamp or zero (default error)
//	output_plots       plot E_z over depth (default false)
//	output_plots_steps samples of the plot (default 500)
func New(env module.Environment) (module.Module, error) {
	cfg := env.Config
	r := &Reader{Base: module.NewBase(env)}

	var err error
	if r.model, err = config.GetChecked(cfg, "model", config.OneOf(ModelConstant, ModelLinear, ModelInit)); err != nil {
		return nil, err
	}
	if r.boundary, err = readBoundary(cfg); err != nil {
		return nil, err
	}

	switch r.model {
	case ModelConstant:
		if r.bias, err = config.Get[float64](cfg, "bias_voltage"); err != nil {
			return nil, err
		}
	case ModelLinear:
		if err := r.readLinear(cfg); err != nil {
			return nil, err
		}
	case ModelInit:
		if err := r.readInit(cfg); err != nil {
			return nil, err
		}
	}

	if r.plots, err = config.GetOr(cfg, "output_plots", false); err != nil {
		return nil, err
	}
	if r.plotSteps, err = config.GetCheckedOr(cfg, "output_plots_steps", defaultPlotSteps, config.PositiveInt); err != nil {
		return nil, err
	}
	return r, nil
}

func readBoundary(cfg *config.Configuration) (field.Boundary, error) {
	raw, err := config.GetCheckedOr(cfg, "boundary", defaultBoundary, config.OneOf("error", "clamp", "zero"))
	if err != nil {
		return field.BoundaryError, err
	}
	return field.ParseBoundary(raw)
}

func (r *Reader) readLinear(cfg *config.Configuration) error {
	var err error
	if r.bias, err = config.Get[float64](cfg, "bias_voltage"); err != nil {
		return err
	}
	if r.depletion, err = config.Get[float64](cfg, "depletion_voltage"); err != nil {
		return err
	}
	if r.depletion != 0 && math.Signbit(r.depletion) != math.Signbit(r.bias) {
		return config.NewInvalidValueError(cfg, "depletion_voltage", "must have the same sign as bias_voltage")
	}
	if math.Abs(r.depletion) > math.Abs(r.bias) {
		return config.NewInvalidValueError(cfg, "depletion_voltage", "exceeds bias_voltage; partially depleted sensors are not supported")
	}
	return nil
}

func (r *Reader) readInit(cfg *config.Configuration) error {
	var err error
	if r.fileName, err = cfg.GetPath("file_name", true); err != nil {
		return err
	}

	unit, err := config.GetOr(cfg, "field_unit", defaultFieldUnit)
	if err != nil {
		return err
	}
	if r.valueScale, err = units.Factor(unit); err != nil {
		return config.WrapInvalidValue(cfg, "field_unit", err)
	}

	ext, err := config.GetCheckedOr(cfg, "extension", defaultExtension, config.OneOf("periodic", "mirror", "none"))
	if err != nil {
		return err
	}
	if r.extension, err = field.ParseExtension(ext); err != nil {
		return err
	}
	r.offset, err = config.GetOr(cfg, "field_offset", r2.Vec{})
	return err
}

// Init builds the field and attaches it to the detector.
func (r *Reader) Init(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	det := r.Detector()
	domain := det.Model().ThicknessDomain()

	var (
		f   field.Field[r3.Vec]
		err error
	)
	switch r.model {
	case ModelConstant:
		f, err = field.NewFunction(constantField(r.bias, domain), domain, field.TypeConstant, r.boundary)
	case ModelLinear:
		f, err = field.NewFunction(linearField(r.bias, r.depletion, domain), domain, field.TypeLinear, r.boundary)
	case ModelInit:
		f, err = r.gridField(ctx)
	}
	if err != nil {
		return err
	}

	if err := det.SetElectricField(f); err != nil {
		return err
	}
	logger.Info("Electric field attached.", "detector", det.Name(), "model", r.model, "type", f.Type())

	if r.plots {
		return r.plot(ctx)
	}
	return nil
}

func (r *Reader) gridField(ctx context.Context) (field.Field[r3.Vec], error) {
	logger := ctxlog.FromContext(ctx)
	model := r.Detector().Model()

	data, err := r.Fields().Load(ctx, r.fileName, 3)
	if err != nil {
		return nil, config.WrapInvalidValue(r.Config(), "file_name", err)
	}
	for _, w := range field.CheckDetectorMatch(data.Size, model.ThicknessDomain(), model.PixelSize()) {
		logger.Warn("Electric field does not match the detector.", "detector", r.Detector().Name(), "reason", w)
	}

	grid, err := field.NewVectorGrid(data, field.GridOptions{
		Scale:      field.Scale(data.Size, model.PixelSize()),
		Pitch:      model.PixelSize(),
		Domain:     model.ThicknessDomain(),
		Offset:     r.offset,
		Extension:  r.extension,
		Boundary:   r.boundary,
		ValueScale: r.valueScale,
	})
	if err != nil {
		return nil, config.WrapInvalidValue(r.Config(), "file_name", err)
	}
	return grid, nil
}

// constantField points along z with magnitude bias/thickness.
func constantField(bias float64, domain field.ThicknessDomain) func(r3.Vec) r3.Vec {
	ez := bias / domain.Thickness()
	return func(r3.Vec) r3.Vec { return r3.Vec{Z: ez} }
}

// linearField falls linearly with the distance from the implant side, as in
// an over-depleted planar sensor.
func linearField(bias, depletion float64, domain field.ThicknessDomain) func(r3.Vec) r3.Vec {
	d := domain.Thickness()
	return func(pos r3.Vec) r3.Vec {
		depth := (domain.Max - pos.Z) / d
		return r3.Vec{Z: (bias-depletion)/d + 2*depletion/d*(1-depth)}
	}
}

// plot samples E_z through the centre of pixel (0, 0).
func (r *Reader) plot(ctx context.Context) error {
	det := r.Detector()
	domain := det.Model().ThicknessDomain()
	depthScale, _ := units.Factor(plotDepthUnit)
	fieldScale, _ := units.Factor(plotFieldUnit)

	zs := output.Steps(domain.Min, domain.Max, r.plotSteps)
	xs := make([]float64, len(zs))
	ys := make([]float64, len(zs))
	for i, z := range zs {
		e, err := det.ElectricField(r3.Vec{Z: z})
		if err != nil {
			return fmt.Errorf("sampling electric field at z=%g: %w", z, err)
		}
		xs[i] = z / depthScale
		ys[i] = e.Z / fieldScale
	}

	p, err := output.LinePlot(fmt.Sprintf("Electric field of %s", det.Name()),
		"z ["+plotDepthUnit+"]", "E_z ["+plotFieldUnit+"]", xs, ys)
	if err != nil {
		return err
	}
	path, err := r.Output().SavePlot(r.ModuleName(), p, electricFieldPlot)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Electric field plot written.", "path", path)
	return nil
}

// Run does nothing; the field is in place after Init.
func (r *Reader) Run(context.Context, uint64) error { return nil }
