// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package propagation provides ProjectionPropagation, which moves deposited
// charge straight onto the implant plane. The drift time follows from the
// local electric field and the carrier mobility; diffusion during the drift
// smears the arrival point with a gaussian of width sqrt(2 D t).
package propagation

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/pixsimgo/internal/config"
	"github.com/vk/pixsimgo/internal/ctxlog"
	"github.com/vk/pixsimgo/internal/messenger"
	"github.com/vk/pixsimgo/internal/module"
	"github.com/vk/pixsimgo/internal/objects"
	"github.com/vk/pixsimgo/internal/output"
	"github.com/vk/pixsimgo/internal/registry"
	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r3"
)

// Name is the module type name used in steering files.
const Name = "ProjectionPropagation"

const (
	defaultTemperature   = 293.15
	defaultChargePerStep = 10
	// Silicon mobilities at room temperature, 1350 and 480 cm*cm/V/s.
	defaultElectronMobility = 135.0
	defaultHoleMobility     = 48.0

	histogramBins = 50
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModule(registry.Definition{Name: Name, Scope: module.PerDetector, New: New})
}

// Propagation is one ProjectionPropagation instance.
type Propagation struct {
	module.Base

	temperature   float64
	chargePerStep uint64
	carriers      map[objects.Carrier]bool
	mobility      map[objects.Carrier]float64
	plots         bool

	deposits   *messenger.Multi[objects.DepositedCharge]
	propagated *messenger.Publisher[objects.PropagatedCharge]

	driftTimes []float64
	total      uint64
	lost       uint64
}

// New reads the configuration, subscribes to deposited charge and declares
// the propagated charge output.
//
//	temperature         sensor temperature (default 293.15K)
//	charge_per_step     charge moved as one group (default 10)
//	propagate_electrons default true
//	propagate_holes     default false
//	electron_mobility   default 1350cm*cm/V/s
//	hole_mobility       default 480cm*cm/V/s
//	output_plots        histogram the drift times at the end (default false)
func New(env module.Environment) (module.Module, error) {
	cfg := env.Config
	p := &Propagation{
		Base:     module.NewBase(env),
		carriers: make(map[objects.Carrier]bool),
		mobility: make(map[objects.Carrier]float64),
	}

	var err error
	if p.temperature, err = config.GetCheckedOr(cfg, "temperature", defaultTemperature, config.Positive); err != nil {
		return nil, err
	}
	if p.chargePerStep, err = config.GetCheckedOr[uint64](cfg, "charge_per_step", defaultChargePerStep, func(v uint64) error {
		if v == 0 {
			return fmt.Errorf("must be at least 1")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if p.carriers[objects.Electron], err = config.GetOr(cfg, "propagate_electrons", true); err != nil {
		return nil, err
	}
	if p.carriers[objects.Hole], err = config.GetOr(cfg, "propagate_holes", false); err != nil {
		return nil, err
	}
	if !p.carriers[objects.Electron] && !p.carriers[objects.Hole] {
		return nil, config.NewInvalidValueError(cfg, "propagate_electrons", "at least one carrier type must be propagated")
	}

	if p.mobility[objects.Electron], err = config.GetCheckedOr(cfg, "electron_mobility", defaultElectronMobility, config.Positive); err != nil {
		return nil, err
	}
	if p.mobility[objects.Hole], err = config.GetCheckedOr(cfg, "hole_mobility", defaultHoleMobility, config.Positive); err != nil {
		return nil, err
	}
	if p.plots, err = config.GetOr(cfg, "output_plots", false); err != nil {
		return nil, err
	}

	if p.deposits, err = messenger.BindMulti[objects.DepositedCharge](env.Messenger, &p.Base, messenger.Required()); err != nil {
		return nil, err
	}
	if p.propagated, err = messenger.Declare[objects.PropagatedCharge](env.Messenger, &p.Base); err != nil {
		return nil, err
	}
	return p, nil
}

// Run projects every deposited charge of the event onto the implant plane.
func (p *Propagation) Run(ctx context.Context, event uint64) error {
	logger := ctxlog.FromContext(ctx)
	det := p.Detector()
	model := det.Model()
	top := model.ThicknessDomain().Max
	thermal := units.Boltzmann * p.temperature

	var out []objects.PropagatedCharge
	for _, msg := range p.deposits.All() {
		deposits := msg.Objects()
		for i := range deposits {
			deposit := &deposits[i]
			if !p.carriers[deposit.Carrier] {
				continue
			}

			e, err := det.ElectricField(deposit.LocalPosition)
			if err != nil {
				return fmt.Errorf("propagating %s from %s: %w", deposit.Carrier, msg.Producer(), err)
			}
			// Holes drift along the field, electrons against it.
			towardImplants := deposit.Carrier.Sign() * e.Z
			if towardImplants <= 0 {
				logger.Debug("Carrier drifts away from the implants, skipping.",
					"carrier", deposit.Carrier, "position", deposit.LocalPosition, "field", e.Z)
				p.lost += uint64(deposit.Charge)
				continue
			}

			mu := p.mobility[deposit.Carrier]
			driftTime := (top - deposit.LocalPosition.Z) / (mu * towardImplants)
			sigma := math.Sqrt(2 * mu * thermal * driftTime)

			for remaining := uint64(deposit.Charge); remaining > 0; {
				step := min(remaining, p.chargePerStep)
				remaining -= step

				pos := r3.Vec{
					X: deposit.LocalPosition.X + p.Gauss(sigma),
					Y: deposit.LocalPosition.Y + p.Gauss(sigma),
					Z: top,
				}
				if !model.IsWithinSensor(pos) {
					p.lost += step
					continue
				}
				out = append(out, objects.PropagatedCharge{
					LocalPosition: pos,
					Carrier:       deposit.Carrier,
					Charge:        uint(step),
					DriftTime:     driftTime,
					Deposit:       deposit,
				})
				p.driftTimes = append(p.driftTimes, driftTime)
				p.total += step
			}
		}
	}

	logger.Debug("Charge projected.", "groups", len(out))
	return p.propagated.Dispatch(ctx, out)
}

// Finalize reports the propagated charge and plots the drift times.
func (p *Propagation) Finalize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Propagation summary.", "propagated", p.total, "lost", p.lost, "groups", len(p.driftTimes))
	if !p.plots {
		return nil
	}

	ps, _ := units.Factor("ps")
	times := make([]float64, len(p.driftTimes))
	for i, t := range p.driftTimes {
		times[i] = t / ps
	}
	hist, err := output.HistogramPlot(fmt.Sprintf("Drift time in %s", p.Detector().Name()), "t [ps]", times, histogramBins)
	if err != nil {
		return err
	}
	path, err := p.Output().SavePlot(p.ModuleName(), hist, "drift_time")
	if err != nil {
		return err
	}
	logger.Info("Drift time plot written.", "path", path)
	return nil
}
